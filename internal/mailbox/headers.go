package mailbox

import (
	"bytes"

	"github.com/emersion/go-message"
)

// headerFields are the raw header values carried on a Candidate.
var headerFields = []string{"From", "To", "Cc", "Subject"}

// candidateFromHeader builds a Candidate from parsed message headers. Field
// values stay raw; decoding happens at notification time.
func candidateFromHeader(h *message.Header, token string) Candidate {
	fields := make(map[string]string, len(headerFields))
	for _, name := range headerFields {
		if v := h.Get(name); v != "" {
			fields[name] = v
		}
	}
	return Candidate{
		Token:     token,
		MessageID: h.Get("Message-Id"),
		Fields:    fields,
	}
}

// parseRawHeader parses raw RFC 5322 header bytes. A message whose headers
// cannot be parsed still yields a usable Candidate with empty fields, so one
// broken message never aborts a cycle.
func parseRawHeader(raw []byte, token string) Candidate {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && entity == nil {
		return Candidate{Token: token, Fields: map[string]string{}}
	}
	return candidateFromHeader(&entity.Header, token)
}
