// Package watch drives the polling cycles: one Poller run per account per
// tick, deduplicating against the account's checkpoint and announcing new
// arrivals to the chat transport.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tracyhatemice/mailwatch/internal/checkpoint"
	"github.com/tracyhatemice/mailwatch/internal/config"
	"github.com/tracyhatemice/mailwatch/internal/header"
	"github.com/tracyhatemice/mailwatch/internal/mailbox"
	"github.com/tracyhatemice/mailwatch/internal/notify"
)

// Poller runs single poll cycles.
type Poller struct {
	store     checkpoint.Store
	transport notify.Transport
	logger    *slog.Logger
	now       func() time.Time
}

// NewPoller creates a Poller on top of a checkpoint store and a chat
// transport.
func NewPoller(store checkpoint.Store, transport notify.Transport, logger *slog.Logger) *Poller {
	return &Poller{
		store:     store,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
}

// Poll runs one cycle for one account.
//
// With no watermark stored, the cycle searches the account's look-back
// window by sent date; with one, it searches tokens from the watermark
// (inclusive) onward, so the boundary message is re-fetched and skipped via
// the seen-set. Candidates are processed in mailbox order and the watermark
// follows every processed candidate, seen or not. The updated checkpoint is
// written exactly once, after the whole batch; any mailbox error before
// that point aborts the cycle with the durable state untouched, leaving the
// next cycle to retry the same ground.
func (p *Poller) Poll(ctx context.Context, dialer mailbox.Dialer, acct config.Account) error {
	cp := p.store.Load(acct.Name)

	sess, err := dialer.Dial(ctx, acct)
	if err != nil {
		return err
	}
	defer sess.Close()

	var q mailbox.Query
	since := p.now().AddDate(0, 0, -acct.Lookback())
	if cp.Watermark == "" {
		q = mailbox.SentSince(since)
		p.logger.Debug("cold start", "account", acct.Name, "since", since)
	} else {
		q = mailbox.TokenRange(cp.Watermark, since)
	}

	tokens, err := sess.Search(q)
	if err != nil {
		return err
	}

	announced := 0
	for _, token := range tokens {
		// A shutdown or an expired per-account deadline abandons the
		// batch; the unsaved checkpoint makes the next cycle retry it.
		if err := ctx.Err(); err != nil {
			return err
		}
		cand, err := sess.FetchHeaders(token)
		if err != nil {
			return err
		}

		switch {
		case cand.MessageID == "":
			// Without a Message-ID there is nothing stable to dedup on,
			// so such a message is announced on every cycle it matches
			// the query. Expected, not a bug.
			p.logger.Warn("message has no identifier, announcing again",
				"account", acct.Name, "token", cand.Token)
			p.announce(ctx, acct, cand)
			announced++
		case cp.HasSeen(cand.MessageID):
			p.logger.Debug("seen message",
				"account", acct.Name, "msg_id", cand.MessageID)
		default:
			p.announce(ctx, acct, cand)
			cp.MarkSeen(cand.MessageID)
			announced++
		}
		cp.Watermark = cand.Token
	}

	if err := p.store.Save(acct.Name, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	if announced > 0 {
		p.logger.Info("announced new mail",
			"account", acct.Name, "count", announced)
	}
	return nil
}

// announce formats and dispatches one alert. Dispatch is best effort: a
// transport error is logged and the cycle continues.
func (p *Poller) announce(ctx context.Context, acct config.Account, cand mailbox.Candidate) {
	text := notify.Format(buildAlert(cand.Fields))
	if err := p.transport.Dispatch(ctx, acct.Room, text); err != nil {
		p.logger.Error("dispatch failed",
			"account", acct.Name,
			"msg_id", cand.MessageID,
			"room", acct.Room,
			"error", err,
		)
	}
}

// buildAlert decodes the raw header fields that are present. A field that
// is absent stays unset and produces no alert line.
func buildAlert(fields map[string]string) notify.Alert {
	var a notify.Alert
	if v, ok := fields["From"]; ok {
		a.From = notify.Some(header.Decode(v))
	}
	if v, ok := fields["To"]; ok {
		a.To = notify.Some(header.Decode(v))
	}
	if v, ok := fields["Cc"]; ok {
		a.Cc = notify.Some(header.Decode(v))
	}
	if v, ok := fields["Subject"]; ok {
		a.Subject = notify.Some(header.Decode(v))
	}
	return a
}
