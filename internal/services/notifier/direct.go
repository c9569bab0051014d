package notifier

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/goroutine"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Direct доставляет уведомления в фоне внутри процесса сервиса.
type Direct struct {
	deliverer   *Deliverer
	concurrency int
	inflight    sync.WaitGroup
	log         *slog.Logger
}

// NewDirect создаёт диспетчер с ограничением на число одновременных доставок.
func NewDirect(deliverer *Deliverer, concurrency int, log *slog.Logger) *Direct {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Direct{deliverer: deliverer, concurrency: concurrency, log: log}
}

// Dispatch запускает доставку и сразу возвращает управление. Отмена ctx
// вызывающего не прерывает доставку.
func (d *Direct) Dispatch(ctx context.Context, notices ...models.Notice) {
	if len(notices) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	goroutine.SafeGo(d.log, "notifier.dispatch", func() {
		defer d.inflight.Done()
		d.deliverAll(bg, notices)
	})
}

// Wait ждёт завершения начатых доставок или отмены ctx.
func (d *Direct) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Direct) deliverAll(ctx context.Context, notices []models.Notice) {
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, n := range notices {
		g.Go(func() error {
			if err := d.deliverer.Deliver(ctx, n); err != nil {
				d.log.Error("notification not delivered",
					slog.String("kind", string(n.Kind)),
					slog.String("account_id", n.Contact.AccountID),
					sl.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
