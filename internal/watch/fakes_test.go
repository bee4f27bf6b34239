package watch

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/tracyhatemice/mailwatch/internal/checkpoint"
	"github.com/tracyhatemice/mailwatch/internal/config"
	"github.com/tracyhatemice/mailwatch/internal/mailbox"
)

// fakeMailbox is an in-memory mailbox shared by the sessions a fakeDialer
// hands out. Messages carry integer tokens so token-range queries behave
// like a real folder.
type fakeMailbox struct {
	mu       sync.Mutex
	messages []mailbox.Candidate
	fetchErr map[string]error
	onFetch  func(token string)
}

func (m *fakeMailbox) add(token, messageID, subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields := map[string]string{}
	if subject != "" {
		fields["Subject"] = subject
	}
	m.messages = append(m.messages, mailbox.Candidate{
		Token:     token,
		MessageID: messageID,
		Fields:    fields,
	})
}

type fakeSession struct {
	box     *fakeMailbox
	queries []mailbox.Query
	closed  bool
}

func (s *fakeSession) Search(q mailbox.Query) ([]string, error) {
	s.queries = append(s.queries, q)
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	var tokens []string
	switch q.Kind {
	case mailbox.QuerySentSince:
		// The fake has no dates; a cold start sees the whole folder.
		for _, msg := range s.box.messages {
			tokens = append(tokens, msg.Token)
		}
	case mailbox.QueryTokenRange:
		from, err := strconv.Atoi(q.FromToken)
		if err != nil {
			return nil, &mailbox.ProtocolError{Op: "fake search", Err: err}
		}
		for _, msg := range s.box.messages {
			n, _ := strconv.Atoi(msg.Token)
			if n >= from {
				tokens = append(tokens, msg.Token)
			}
		}
	}
	return tokens, nil
}

func (s *fakeSession) FetchHeaders(token string) (mailbox.Candidate, error) {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	if s.box.onFetch != nil {
		s.box.onFetch(token)
	}
	if err, ok := s.box.fetchErr[token]; ok {
		return mailbox.Candidate{}, err
	}
	for _, msg := range s.box.messages {
		if msg.Token == token {
			return msg, nil
		}
	}
	return mailbox.Candidate{}, &mailbox.ProtocolError{
		Op:  "fake fetch",
		Err: errors.New("token " + token + " not found"),
	}
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	box     *fakeMailbox
	dialErr error
	dials   int
	last    *fakeSession
}

func (d *fakeDialer) Dial(_ context.Context, _ config.Account) (mailbox.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.last = &fakeSession{box: d.box}
	return d.last, nil
}

type dispatched struct {
	room string
	text string
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []dispatched
	err  error
}

func (t *fakeTransport) Dispatch(_ context.Context, room, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, dispatched{room: room, text: text})
	return t.err
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

// fakeStore mimics the durability semantics of the file store: Load hands
// out an independent copy, so in-memory mutation only becomes durable
// through Save.
type fakeStore struct {
	mu      sync.Mutex
	cps     map[string]checkpoint.Checkpoint
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{cps: make(map[string]checkpoint.Checkpoint)}
}

func (s *fakeStore) Load(account string) checkpoint.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cps[account].Clone()
}

func (s *fakeStore) Save(account string, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cps[account] = cp.Clone()
	s.saves++
	return nil
}
