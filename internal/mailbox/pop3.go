package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	netmail "net/mail"
	"strconv"
	"time"

	pop3client "github.com/knadh/go-pop3"

	"github.com/tracyhatemice/mailwatch/internal/config"
)

// POP3Dialer opens POP3/POP3S sessions.
//
// POP3 numbers messages per connection, so its sequence tokens are not
// stable across sessions the way IMAP UIDs are. A stored watermark is
// therefore never trusted as a lower bound: every cycle rescans the
// look-back window and the seen-set (keyed by Message-ID, or UIDL when
// that header is absent) absorbs the re-reads.
type POP3Dialer struct {
	logger *slog.Logger
}

// NewPOP3Dialer creates a POP3 dialer.
func NewPOP3Dialer(logger *slog.Logger) *POP3Dialer {
	return &POP3Dialer{logger: logger}
}

// contextDialer adapts a context to the pop3 client's Dialer hook and keeps
// the raw connection so the session can be torn down when the context ends.
type contextDialer struct {
	ctx  context.Context
	conn net.Conn
}

func (d *contextDialer) Dial(network, addr string) (net.Conn, error) {
	conn, err := (&net.Dialer{}).DialContext(d.ctx, network, addr)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return conn, nil
}

func (d *POP3Dialer) Dial(ctx context.Context, acct config.Account) (Session, error) {
	addr := net.JoinHostPort(acct.Host, strconv.Itoa(acct.Port))

	cd := &contextDialer{ctx: ctx}
	client := pop3client.New(pop3client.Opt{
		Host:       acct.Host,
		Port:       acct.Port,
		TLSEnabled: acct.TLS(),
		Dialer:     cd,
	})
	conn, err := client.NewConn()
	if err != nil {
		return nil, &ConnError{Addr: addr, Err: err}
	}

	// ctx covers the whole session: when it expires, closing the raw
	// connection unblocks whatever command is in flight.
	stop := context.AfterFunc(ctx, func() {
		if cd.conn != nil {
			cd.conn.Close()
		}
	})

	if err := conn.Auth(acct.Username, acct.Password); err != nil {
		stop()
		conn.Quit()
		if ctx.Err() != nil {
			return nil, &ConnError{Addr: addr, Err: ctx.Err()}
		}
		return nil, &AuthError{User: acct.Username, Err: err}
	}

	return &pop3Session{
		conn:     conn,
		raw:      cd.conn,
		stop:     stop,
		username: acct.Username,
		logger:   d.logger,
		cache:    make(map[string]cachedMessage),
	}, nil
}

type cachedMessage struct {
	cand   Candidate
	sentAt time.Time
}

type pop3Session struct {
	conn     *pop3client.Conn
	raw      net.Conn
	stop     func() bool
	username string
	logger   *slog.Logger
	cache    map[string]cachedMessage
}

func (s *pop3Session) Search(q Query) ([]string, error) {
	msgs, err := s.conn.Uidl(0)
	if err != nil {
		// Some servers have no UIDL; fall back to a plain LIST.
		msgs, err = s.conn.List(0)
		if err != nil {
			return nil, &ProtocolError{Op: "pop3 list", Err: err}
		}
	}

	// POP3 has no server-side date search, and its per-connection
	// numbering means a watermark from an earlier session can sit above a
	// newly arrived message after other clients retrieve-and-delete. Both
	// query kinds inspect every header and filter on the sent date alone.
	var tokens []string
	for _, msg := range msgs {
		token := strconv.Itoa(msg.ID)
		cached, err := s.fetch(token, msg.ID, msg.UID)
		if err != nil {
			return nil, err
		}
		if !cached.sentAt.IsZero() && cached.sentAt.Before(q.Since) {
			continue
		}
		tokens = append(tokens, token)
	}

	s.logger.Debug("pop3 search done", "matches", len(tokens))
	return tokens, nil
}

func (s *pop3Session) FetchHeaders(token string) (Candidate, error) {
	if cached, ok := s.cache[token]; ok {
		return cached.cand, nil
	}
	id, err := strconv.Atoi(token)
	if err != nil {
		return Candidate{}, &ProtocolError{
			Op:  "pop3 top",
			Err: fmt.Errorf("bad sequence token %q: %w", token, err),
		}
	}
	cached, err := s.fetch(token, id, "")
	if err != nil {
		return Candidate{}, err
	}
	return cached.cand, nil
}

func (s *pop3Session) Close() error {
	s.stop()
	err := s.conn.Quit()
	if s.raw != nil {
		s.raw.Close()
	}
	return err
}

// fetch retrieves the headers of one message and caches the result, so the
// date filtering done by Search never costs a second TOP.
func (s *pop3Session) fetch(token string, id int, uid string) (cachedMessage, error) {
	entity, err := s.conn.Top(id, 0)
	if err != nil {
		return cachedMessage{}, &ProtocolError{Op: "pop3 top", Err: err}
	}

	cand := candidateFromHeader(&entity.Header, token)
	if cand.MessageID == "" && uid != "" {
		// Same fallback identifier shape as a UIDL-only mailbox entry.
		cand.MessageID = fmt.Sprintf("pop3-uid-%s-%s", uid, s.username)
	}

	var sentAt time.Time
	if raw := entity.Header.Get("Date"); raw != "" {
		if t, err := netmail.ParseDate(raw); err == nil {
			sentAt = t
		}
	}

	cached := cachedMessage{cand: cand, sentAt: sentAt}
	s.cache[token] = cached
	return cached, nil
}
