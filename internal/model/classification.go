package model

// SenderPriority is the classifier's judgement of how important the
// sender is to the user.
type SenderPriority string

const (
	PriorityLow     SenderPriority = "low"
	PriorityNormal  SenderPriority = "normal"
	PriorityHigh    SenderPriority = "high"
	PriorityUnknown SenderPriority = "unknown"
)

// Valid reports whether p is one of the known priority values.
func (p SenderPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUnknown:
		return true
	}
	return false
}

// Classification is the structured output of the classifier for one email.
// Never mutated after creation; re-classification creates a new value.
type Classification struct {
	WorthReplying  bool           `json:"worth_replying"`
	SenderPriority SenderPriority `json:"sender_priority"`
	Confidence     float64        `json:"confidence"`
	IsCritical     bool           `json:"is_critical"`
	NeedsCalendar  bool           `json:"needs_calendar"`
	NeedsGDrive    bool           `json:"needs_gdrive"`
	GDriveQuery    string         `json:"gdrive_query,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
	ModelUsed      string         `json:"model_used,omitempty"`
}
