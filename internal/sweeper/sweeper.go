// Package sweeper runs the periodic expiry scan over active collaborations.
// The sweeper is owned by the process: it is started once at boot and shut
// down through its Stop method, never left running as an ownerless goroutine.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/store"
)

// DefaultInterval is how often the sweeper scans when no interval is
// configured.
const DefaultInterval = 10 * time.Second

// Sweeper periodically expires collaborations whose deadline has passed.
type Sweeper struct {
	service  *collab.Service
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// New creates a new Sweeper.
func New(service *collab.Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic scan loop. It blocks until the context is
// cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("starting expiry sweeper", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped by context")
			return ctx.Err()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop signals the scan loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// Name implements shutdown.Component.
func (s *Sweeper) Name() string {
	return "expiry-sweeper"
}

// Shutdown implements shutdown.Component.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.Stop()
	return nil
}

// Sweep runs a single scan: every overdue collaboration is expired
// independently, and a failure on one item never aborts the rest. The scan
// is idempotent; a collaboration that vanished since listing is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) {
	overdue, err := s.service.ListOverdue(ctx)
	if err != nil {
		s.logger.Error("expiry scan failed to list collaborations", "error", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	expired := 0
	for _, c := range overdue {
		if err := s.service.Expire(ctx, c.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Already expired by an earlier run
				continue
			}
			s.logger.Error("failed to expire collaboration",
				"error", err,
				"collaboration_id", c.ID,
			)
			continue
		}
		expired++
	}

	s.logger.Info("expiry scan complete", "overdue", len(overdue), "expired", expired)
}
