package model

import "time"

// Email is one inbound message as fetched from the mail provider.
// Immutable once fetched; identified by (user id, gmail id) for dedup.
type Email struct {
	GmailID        string    `json:"gmail_id"`
	ThreadID       string    `json:"thread_id"`
	Sender         string    `json:"sender"` // raw "Name <addr>" form
	Subject        string    `json:"subject"`
	Snippet        string    `json:"snippet"`
	Body           string    `json:"body"`
	HasAttachments bool      `json:"has_attachments"`
	ReceivedAt     time.Time `json:"received_at"`
}

// SentEmail is a message from the user's sent folder, used by the
// background setup to infer writing voice and frequent contacts.
type SentEmail struct {
	GmailID string
	To      string
	Subject string
	Body    string
	SentAt  time.Time
}

// Attachment is a document pulled from Drive to send along with a reply.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}
