package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/tracyhatemice/mailwatch/internal/config"
)

// IMAPDialer opens IMAP/IMAPS sessions. Sequence tokens are UIDs, which are
// stable within a folder, so a stored watermark survives reconnects.
type IMAPDialer struct {
	logger *slog.Logger
}

// NewIMAPDialer creates an IMAP dialer.
func NewIMAPDialer(logger *slog.Logger) *IMAPDialer {
	return &IMAPDialer{logger: logger}
}

func (d *IMAPDialer) Dial(ctx context.Context, acct config.Account) (Session, error) {
	addr := net.JoinHostPort(acct.Host, strconv.Itoa(acct.Port))

	netConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnError{Addr: addr, Err: err}
	}

	conn := netConn
	if acct.TLS() {
		tlsConn := tls.Client(netConn, &tls.Config{ServerName: acct.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			netConn.Close()
			return nil, &ConnError{Addr: addr, Err: err}
		}
		conn = tlsConn
	}

	client := imapclient.New(conn, nil)

	// ctx covers the whole session: when it expires, closing the client
	// unblocks whatever command is in flight.
	stop := context.AfterFunc(ctx, func() { client.Close() })

	if err := client.Login(acct.Username, acct.Password).Wait(); err != nil {
		stop()
		client.Close()
		if ctx.Err() != nil {
			return nil, &ConnError{Addr: addr, Err: ctx.Err()}
		}
		return nil, &AuthError{User: acct.Username, Err: err}
	}

	if _, err := client.Select(acct.Folder(), nil).Wait(); err != nil {
		stop()
		client.Logout()
		client.Close()
		return nil, &ProtocolError{Op: "imap select " + acct.Folder(), Err: err}
	}

	return &imapSession{client: client, logger: d.logger, stop: stop}, nil
}

type imapSession struct {
	client *imapclient.Client
	logger *slog.Logger
	stop   func() bool
}

// headerSection requests the full header block, read-only (PEEK), like the
// original RFC822.HEADER fetch.
var headerSection = &imap.FetchItemBodySection{
	Specifier: imap.PartSpecifierHeader,
	Peek:      true,
}

func (s *imapSession) Search(q Query) ([]string, error) {
	criteria := &imap.SearchCriteria{}
	switch q.Kind {
	case QuerySentSince:
		criteria.SentSince = q.Since
	case QueryTokenRange:
		from, err := parseUID(q.FromToken)
		if err != nil {
			return nil, &ProtocolError{Op: "imap search", Err: err}
		}
		var set imap.UIDSet
		set.AddRange(from, 0) // 0 means "*"
		criteria.UID = []imap.UIDSet{set}
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &ProtocolError{Op: "imap search", Err: err}
	}

	uids := data.AllUIDs()
	tokens := make([]string, len(uids))
	for i, uid := range uids {
		tokens[i] = strconv.FormatUint(uint64(uid), 10)
	}
	s.logger.Debug("imap search done", "matches", len(tokens))
	return tokens, nil
}

func (s *imapSession) FetchHeaders(token string) (Candidate, error) {
	uid, err := parseUID(token)
	if err != nil {
		return Candidate{}, &ProtocolError{Op: "imap fetch", Err: err}
	}

	var set imap.UIDSet
	set.AddNum(uid)

	opts := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{headerSection},
	}
	msgs, err := s.client.Fetch(set, opts).Collect()
	if err != nil {
		return Candidate{}, &ProtocolError{Op: "imap fetch", Err: err}
	}
	if len(msgs) == 0 {
		return Candidate{}, &ProtocolError{
			Op:  "imap fetch",
			Err: fmt.Errorf("uid %s not found", token),
		}
	}

	buf := msgs[0]
	cand := parseRawHeader(buf.FindBodySection(headerSection), token)
	if cand.MessageID == "" && buf.Envelope != nil {
		cand.MessageID = buf.Envelope.MessageID
	}
	return cand, nil
}

func (s *imapSession) Close() error {
	s.stop()
	err := s.client.Logout().Wait()
	s.client.Close()
	return err
}

func parseUID(token string) (imap.UID, error) {
	n, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad sequence token %q: %w", token, err)
	}
	return imap.UID(n), nil
}
