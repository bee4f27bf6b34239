package mailbox

import "testing"

func TestParseRawHeader(t *testing.T) {
	raw := []byte("From: =?UTF-8?B?QWxpY2U=?= <alice@example.org>\r\n" +
		"To: bob@example.org\r\n" +
		"Subject: Hello\r\n" +
		"Message-Id: <abc123@example.org>\r\n" +
		"\r\n")

	cand := parseRawHeader(raw, "101")

	if cand.Token != "101" {
		t.Errorf("Token = %q, want %q", cand.Token, "101")
	}
	if cand.MessageID != "<abc123@example.org>" {
		t.Errorf("MessageID = %q, want %q", cand.MessageID, "<abc123@example.org>")
	}
	// Field values stay raw; decoding is the notifier's job.
	if got := cand.Fields["From"]; got != "=?UTF-8?B?QWxpY2U=?= <alice@example.org>" {
		t.Errorf("From = %q", got)
	}
	if got := cand.Fields["Subject"]; got != "Hello" {
		t.Errorf("Subject = %q, want Hello", got)
	}
	if _, ok := cand.Fields["Cc"]; ok {
		t.Error("absent Cc header must not appear in Fields")
	}
}

func TestParseRawHeaderNoMessageID(t *testing.T) {
	raw := []byte("From: alice@example.org\r\nSubject: no id\r\n\r\n")

	cand := parseRawHeader(raw, "7")
	if cand.MessageID != "" {
		t.Errorf("MessageID = %q, want empty", cand.MessageID)
	}
	if got := cand.Fields["Subject"]; got != "no id" {
		t.Errorf("Subject = %q, want %q", got, "no id")
	}
}

func TestParseRawHeaderGarbage(t *testing.T) {
	cand := parseRawHeader([]byte("\x00\x01 this is not a header block"), "9")

	if cand.Token != "9" {
		t.Errorf("Token = %q, want %q", cand.Token, "9")
	}
	if cand.MessageID != "" {
		t.Errorf("MessageID = %q, want empty", cand.MessageID)
	}
	if len(cand.Fields) != 0 {
		t.Errorf("Fields = %v, want empty", cand.Fields)
	}
}

func TestParseRawHeaderEmpty(t *testing.T) {
	cand := parseRawHeader(nil, "3")
	if cand.Token != "3" || cand.MessageID != "" || len(cand.Fields) != 0 {
		t.Errorf("unexpected candidate %+v", cand)
	}
}
