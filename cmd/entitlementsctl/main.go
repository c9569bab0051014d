// Команда entitlementsctl выполняет служебные операции: разовую сверку
// подписок и миграции схемы.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/exam-subscriptions/cmd/entitlementsctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRoot().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
