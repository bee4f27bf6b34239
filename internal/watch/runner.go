package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tracyhatemice/mailwatch/internal/config"
	"github.com/tracyhatemice/mailwatch/internal/mailbox"
)

// defaultPollTimeout bounds one account's poll cycle. A mailbox that hangs
// must never block the next tick.
const defaultPollTimeout = 60 * time.Second

// Runner fans one tick out to every configured account. Accounts poll in
// parallel and each failure is contained: an unreachable mailbox is logged
// and the rest of the sweep continues.
type Runner struct {
	poller   *Poller
	dialers  map[string]mailbox.Dialer
	accounts []config.Account
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRunner creates a Runner polling accounts every interval, using the
// dialer registered for each account's protocol.
func NewRunner(
	poller *Poller,
	dialers map[string]mailbox.Dialer,
	accounts []config.Account,
	interval time.Duration,
	logger *slog.Logger,
) *Runner {
	timeout := defaultPollTimeout
	if interval < timeout {
		timeout = interval
	}
	return &Runner{
		poller:   poller,
		dialers:  dialers,
		accounts: accounts,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run polls immediately, then on every tick until ctx is cancelled.
// Checkpoints are saved only at the end of a completed account cycle, so
// cycles abandoned at shutdown are equivalent to skipped ones.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("watcher starting",
		"accounts", len(r.accounts), "interval", r.interval)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watcher stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, acct := range r.accounts {
		dialer, ok := r.dialers[acct.Protocol]
		if !ok {
			r.logger.Error("no dialer for protocol",
				"account", acct.Name, "protocol", acct.Protocol)
			continue
		}

		wg.Add(1)
		go func(acct config.Account) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			if err := r.poller.Poll(pctx, dialer, acct); err != nil {
				r.logger.Error("poll failed",
					"account", acct.Name, "error", err)
			}
		}(acct)
	}
	wg.Wait()
}
