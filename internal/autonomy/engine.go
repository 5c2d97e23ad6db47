// Package autonomy implements the routing decision engine. Given a
// classified email and the user's policy it decides whether the drafted
// reply is sent automatically, queued for human review, or discarded.
package autonomy

import "inbox-pilot/internal/model"

// Action is a routing outcome.
type Action string

const (
	ActionSend    Action = "send"
	ActionReview  Action = "review"
	ActionDiscard Action = "discard"
)

// Decision is the result of one routing evaluation.
type Decision struct {
	Action Action
	Reason string
}

// Decide maps a classification plus context to a routing decision.
//
// Pure function of its inputs. The rules are evaluated in order and the
// first match wins; reordering them changes the contract. The attachment
// and unknown-sender rules override every autonomy level.
func Decide(c model.Classification, autonomyLevel int, knownSender, hasAttachment bool, threshold float64) Decision {
	if !c.WorthReplying {
		return Decision{Action: ActionDiscard, Reason: "not worth replying"}
	}
	if hasAttachment {
		return Decision{Action: ActionReview, Reason: "document attachment requires review"}
	}
	if !knownSender {
		return Decision{Action: ActionReview, Reason: "unknown sender"}
	}
	if c.Confidence < threshold {
		return Decision{Action: ActionReview, Reason: "confidence below threshold"}
	}

	switch autonomyLevel {
	case model.AutonomyFullAuto:
		return Decision{Action: ActionSend, Reason: "full-auto"}
	case model.AutonomySmart:
		safe := (c.SenderPriority == model.PriorityNormal || c.SenderPriority == model.PriorityHigh) && !c.IsCritical
		if safe {
			return Decision{Action: ActionSend, Reason: "smart-mode auto-send"}
		}
		return Decision{Action: ActionReview, Reason: "smart-mode criteria not met"}
	default:
		// Level 1 and any unexpected value fall back to human review.
		return Decision{Action: ActionReview, Reason: "review-all autonomy level"}
	}
}
