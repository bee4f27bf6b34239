// Package mailbox abstracts the remote mailbox protocol behind a minimal
// query surface: date-bounded search, token-range search, and per-message
// header fetch. The poller only ever talks to these interfaces; IMAP and
// POP3 sessions implement them.
package mailbox

import (
	"context"
	"time"

	"github.com/tracyhatemice/mailwatch/internal/config"
)

// QueryKind selects the search strategy for one poll cycle.
type QueryKind int

const (
	// QuerySentSince matches messages sent on or after a date. Used on
	// cold start, when no watermark exists yet.
	QuerySentSince QueryKind = iota
	// QueryTokenRange matches messages whose sequence token is greater
	// than or equal to a stored watermark. The boundary token is included
	// on purpose: re-fetching an already-seen message is cheap, skipping
	// it risks losing the next one.
	QueryTokenRange
)

// Query describes one mailbox search. Since is always set: token-range
// queries carry it as the rescan bound for backends whose tokens do not
// survive a reconnect and must fall back to date filtering.
type Query struct {
	Kind      QueryKind
	Since     time.Time
	FromToken string
}

// SentSince builds a cold-start query for messages sent since t.
func SentSince(t time.Time) Query {
	return Query{Kind: QuerySentSince, Since: t}
}

// TokenRange builds an incremental query for tokens >= from, with since as
// the date bound for sessions that cannot trust the token order.
func TokenRange(from string, since time.Time) Query {
	return Query{Kind: QueryTokenRange, FromToken: from, Since: since}
}

// Candidate is one message returned by a search: its sequence token, its
// stable message identifier (empty when the header is absent), and the raw
// undecoded header fields the alert is built from.
type Candidate struct {
	Token     string
	MessageID string
	Fields    map[string]string
}

// Session is an authenticated connection with a folder selected.
type Session interface {
	// Search returns matching sequence tokens in mailbox order.
	Search(q Query) ([]string, error)
	// FetchHeaders retrieves the header fields of one message.
	FetchHeaders(token string) (Candidate, error)
	Close() error
}

// Dialer opens a session for an account: connect, authenticate, select the
// configured folder.
type Dialer interface {
	Dial(ctx context.Context, acct config.Account) (Session, error)
}
