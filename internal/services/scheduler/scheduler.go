// Package scheduler запускает периодическую сверку подписок на gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
)

// Sweeper выполняет один проход сверки.
type Sweeper interface {
	RunSweep(ctx context.Context) (lifecycle.SweepResult, error)
}

// Scheduler — таймер прохода сверки. Повторный Start после Stop
// возобновляет проходы.
type Scheduler struct {
	sweeper Sweeper
	cron    gocron.Scheduler
	log     *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New создаёт планировщик с интервалом interval. Первый проход выполняется
// сразу после Start; пересекающиеся проходы не запускаются.
func New(sweeper Sweeper, interval time.Duration, log *slog.Logger) (*Scheduler, error) {
	const op = "scheduler.New"

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Scheduler{
		sweeper: sweeper,
		cron:    cron,
		log:     log,
		ctx:     context.Background(),
	}
	_, err = cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("subscription-sweep"),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("sweep job registered", slog.Duration("interval", interval))
	return s, nil
}

// Start запускает таймер. Повторный вызов без Stop ничего не делает.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true
	s.log.Info("sweep scheduler started")
}

// Stop прекращает новые проходы. Текущий проход завершает начатую
// транзакцию аккаунта и останавливается.
func (s *Scheduler) Stop() error {
	const op = "scheduler.Stop"
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	if err := s.cron.StopJobs(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("sweep scheduler stopped")
	return nil
}

// Shutdown останавливает планировщик окончательно.
func (s *Scheduler) Shutdown() error {
	const op = "scheduler.Shutdown"
	if err := s.Stop(); err != nil {
		return err
	}
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	s.log.Debug("sweep started")
	res, err := s.sweeper.RunSweep(ctx)
	switch {
	case err != nil && lifecycle.IsCanceled(err):
		s.log.Info("sweep interrupted", slog.Int("accounts", res.Accounts))
	case err != nil:
		s.log.Error("sweep failed", sl.Err(err))
	}
}
