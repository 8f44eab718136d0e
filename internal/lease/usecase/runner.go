// Package usecase runs work under a named lease with heartbeat renewal.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	leaseDomain "github.com/allisson/marketsync/internal/lease/domain"
)

const releaseTimeout = 5 * time.Second

// LeaseRepository defines lease persistence.
type LeaseRepository interface {
	TryAcquire(ctx context.Context, lease *leaseDomain.Lease) (bool, error)
	Renew(ctx context.Context, name, holder string, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, name, holder string) error
}

// Runner executes functions while holding a lease.
type Runner interface {
	// Run acquires the lease called name, runs fn and releases the lease. It
	// returns leaseDomain.ErrRunInProgress when another holder owns the lease.
	// The context passed to fn is cancelled when the lease is lost.
	Run(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type leaseRunner struct {
	repo   LeaseRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func (r *leaseRunner) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	holder, err := uuid.NewV7()
	if err != nil {
		return err
	}

	now := r.now().UTC()
	acquired, err := r.repo.TryAcquire(ctx, &leaseDomain.Lease{
		Name:       name,
		Holder:     holder.String(),
		ExpiresAt:  now.Add(r.ttl),
		AcquiredAt: now,
	})
	if err != nil {
		return err
	}
	if !acquired {
		return leaseDomain.ErrRunInProgress
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Go(func() {
		r.heartbeat(runCtx, cancel, stop, name, holder.String())
	})

	runErr := fn(runCtx)

	close(stop)
	wg.Wait()

	releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer releaseCancel()
	if err := r.repo.Release(releaseCtx, name, holder.String()); err != nil {
		r.logger.Error("failed to release lease", slog.String("lease", name), slog.Any("error", err))
	}

	if cause := context.Cause(runCtx); errors.Is(cause, leaseDomain.ErrLeaseLost) && runErr != nil {
		return errors.Join(leaseDomain.ErrLeaseLost, runErr)
	}
	return runErr
}

// heartbeat renews the lease every ttl/3 and cancels the run once a renewal
// fails or finds the lease taken.
func (r *leaseRunner) heartbeat(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	stop <-chan struct{},
	name, holder string,
) {
	interval := r.ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := r.repo.Renew(ctx, name, holder, r.now().UTC().Add(r.ttl))
			if err != nil || !ok {
				r.logger.Warn("lease lost",
					slog.String("lease", name),
					slog.Any("error", err),
				)
				cancel(leaseDomain.ErrLeaseLost)
				return
			}
		}
	}
}

// NewRunner creates a Runner whose leases last ttl between heartbeats.
func NewRunner(repo LeaseRepository, ttl time.Duration, logger *slog.Logger) Runner {
	return &leaseRunner{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}
