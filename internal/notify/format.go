// Package notify formats new-mail alerts and delivers them to a chat room.
package notify

import "strings"

// Field is an optional decoded header value. Unset fields are left out of
// the formatted alert entirely.
type Field struct {
	Value string
	Set   bool
}

// Some returns a set field.
func Some(v string) Field {
	return Field{Value: v, Set: true}
}

// Alert holds the decoded headers of one newly arrived message.
type Alert struct {
	From    Field
	To      Field
	Cc      Field
	Subject Field
}

// Format renders the multi-line alert text: a fixed header line followed by
// one tab-indented line per set field, in From, To, Cc, Subject order.
func Format(a Alert) string {
	var b strings.Builder
	b.WriteString("New email arrived")

	lines := []struct {
		name  string
		field Field
	}{
		{"From", a.From},
		{"To", a.To},
		{"Cc", a.Cc},
		{"Subject", a.Subject},
	}
	for _, l := range lines {
		if !l.field.Set {
			continue
		}
		b.WriteString("\n\t")
		b.WriteString(l.name)
		b.WriteString(": ")
		b.WriteString(l.field.Value)
	}
	return b.String()
}
