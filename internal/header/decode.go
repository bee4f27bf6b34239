// Package header decodes RFC 2047 encoded-words in mail header values.
package header

import (
	"mime"

	"github.com/emersion/go-message/charset"
)

// decoder handles the charsets registered by go-message (iso-8859-*,
// windows-125x, gbk, ...) on top of the stdlib defaults.
var decoder = mime.WordDecoder{CharsetReader: charset.Reader}

// Decode converts a raw header value that may contain encoded-words into a
// plain display string. Values that fail to decode are returned unchanged
// rather than dropped, so a malformed word degrades to its raw form.
func Decode(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := decoder.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}
