// Package mailer defines the outbound mail port used by email actions.
package mailer

import (
	"context"
	"errors"
)

// ErrNoTransport is returned when an email action runs without a configured
// mail transport.
var ErrNoTransport = errors.New("no mail transport configured")

// Message is one outbound mail.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Mailer submits messages with do-or-fail semantics; the transport's own
// timeout applies.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
