package mailbox

import "fmt"

// ConnError is a network or TLS failure while reaching the mailbox.
type ConnError struct {
	Addr string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// AuthError is a rejected login.
type AuthError struct {
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate %s: %v", e.User, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError is an unexpected mailbox response to a select, search or
// fetch.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
