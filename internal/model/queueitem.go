package model

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus is the lifecycle state of a queue item.
//
//	pending   waiting for user review
//	drafted   reply sent to the user's Gmail drafts by user action
//	sent      reply delivered (auto or user action), terminal
//	discarded dropped (auto or user action), terminal
type QueueStatus string

const (
	StatusPending   QueueStatus = "pending"
	StatusDrafted   QueueStatus = "drafted"
	StatusSent      QueueStatus = "sent"
	StatusDiscarded QueueStatus = "discarded"
)

// Terminal reports whether no further transitions are allowed from s.
func (s QueueStatus) Terminal() bool {
	return s == StatusSent || s == StatusDiscarded
}

// QueueAction is a user-initiated operation on a pending queue item.
type QueueAction string

const (
	ActionSend    QueueAction = "send"
	ActionDraft   QueueAction = "draft"
	ActionDiscard QueueAction = "discard"
)

// QueueItem records one processed email and what the pipeline did with it.
// Exactly one item exists per (user, gmail message); duplicates are
// rejected at the repository layer.
type QueueItem struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	GmailID        string          `json:"gmail_id"`
	ThreadID       string          `json:"thread_id"`
	Sender         string          `json:"sender"`
	Subject        string          `json:"subject"`
	Snippet        string          `json:"snippet"`
	Body           string          `json:"body,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	DraftReply     string          `json:"draft_reply,omitempty"`
	Status         QueueStatus     `json:"status"`
	ActionTaken    string          `json:"action_taken,omitempty"`
	RoutingReason  string          `json:"routing_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

func NewQueueItem(userID string, email Email) *QueueItem {
	return &QueueItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		GmailID:   email.GmailID,
		ThreadID:  email.ThreadID,
		Sender:    email.Sender,
		Subject:   email.Subject,
		Snippet:   email.Snippet,
		Body:      email.Body,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Resolve moves the item into a final or drafted state and stamps the
// resolution time.
func (q *QueueItem) Resolve(status QueueStatus, action string) {
	now := time.Now()
	q.Status = status
	q.ActionTaken = action
	q.ResolvedAt = &now
}
