// Package report renders and sends the run notification emails.
package report

import "context"

// Message is one outgoing notification, already rendered.
type Message struct {
	Subject string
	To      []string
	Cc      []string
	HTML    string

	// Attachment is the path of a workbook to attach, empty for none.
	Attachment string

	// HighPriority marks the message urgent so admin alerts stand out.
	HighPriority bool
}

// Sender delivers notification messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
