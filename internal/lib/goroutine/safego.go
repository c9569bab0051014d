// Package goroutine запускает фоновые задачи с перехватом паники.
package goroutine

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo запускает fn в отдельной горутине. Паника логируется и не
// роняет процесс.
func SafeGo(log *slog.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("goroutine panic recovered",
					slog.String("goroutine", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}
