package autonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inbox-pilot/internal/model"
)

func classified(worth bool, priority model.SenderPriority, confidence float64, critical bool) model.Classification {
	return model.Classification{
		WorthReplying:  worth,
		SenderPriority: priority,
		Confidence:     confidence,
		IsCritical:     critical,
	}
}

func TestDecideNotWorthReplying(t *testing.T) {
	c := classified(false, model.PriorityHigh, 0.99, false)

	for level := 1; level <= 3; level++ {
		d := Decide(c, level, true, false, 0.6)
		assert.Equal(t, ActionDiscard, d.Action)
		assert.Equal(t, "not worth replying", d.Reason)
	}
}

func TestDecideAttachmentOverridesEveryLevel(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.9, false)

	for level := 1; level <= 3; level++ {
		d := Decide(c, level, true, true, 0.6)
		assert.Equal(t, ActionReview, d.Action)
		assert.Equal(t, "document attachment requires review", d.Reason)
	}
}

func TestDecideUnknownSenderOverridesEveryLevel(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.95, false)

	for level := 1; level <= 3; level++ {
		d := Decide(c, level, false, false, 0.6)
		assert.Equal(t, ActionReview, d.Action)
		assert.Equal(t, "unknown sender", d.Reason)
	}
}

func TestDecideAttachmentBeatsUnknownSender(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.9, false)

	d := Decide(c, 3, false, true, 0.6)
	assert.Equal(t, ActionReview, d.Action)
	assert.Equal(t, "document attachment requires review", d.Reason)
}

func TestDecideLowConfidence(t *testing.T) {
	c := classified(true, model.PriorityHigh, 0.5, false)

	d := Decide(c, 3, true, false, 0.6)
	assert.Equal(t, ActionReview, d.Action)
	assert.Equal(t, "confidence below threshold", d.Reason)
}

func TestDecideConfidenceAtThresholdPasses(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.6, false)

	d := Decide(c, 3, true, false, 0.6)
	assert.Equal(t, ActionSend, d.Action)
}

func TestDecideReviewAllLevel(t *testing.T) {
	c := classified(true, model.PriorityHigh, 0.99, false)

	d := Decide(c, model.AutonomyReviewAll, true, false, 0.6)
	assert.Equal(t, ActionReview, d.Action)
	assert.Equal(t, "review-all autonomy level", d.Reason)
}

func TestDecideSmartMode(t *testing.T) {
	tests := []struct {
		name     string
		priority model.SenderPriority
		critical bool
		want     Action
	}{
		{"normal priority sends", model.PriorityNormal, false, ActionSend},
		{"high priority sends", model.PriorityHigh, false, ActionSend},
		{"low priority reviews", model.PriorityLow, false, ActionReview},
		{"unknown priority reviews", model.PriorityUnknown, false, ActionReview},
		{"critical blocks auto-send", model.PriorityHigh, true, ActionReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classified(true, tt.priority, 0.9, tt.critical)
			d := Decide(c, model.AutonomySmart, true, false, 0.6)
			assert.Equal(t, tt.want, d.Action)
			if tt.want == ActionReview {
				assert.Equal(t, "smart-mode criteria not met", d.Reason)
			}
		})
	}
}

func TestDecideFullAuto(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.9, false)

	d := Decide(c, model.AutonomyFullAuto, true, false, 0.6)
	assert.Equal(t, ActionSend, d.Action)
	assert.Equal(t, "full-auto", d.Reason)
}

func TestDecideFullAutoSendsCriticalToo(t *testing.T) {
	c := classified(true, model.PriorityHigh, 0.9, true)

	d := Decide(c, model.AutonomyFullAuto, true, false, 0.6)
	assert.Equal(t, ActionSend, d.Action)
}

func TestDecideUnknownLevelFallsBackToReview(t *testing.T) {
	c := classified(true, model.PriorityNormal, 0.9, false)

	d := Decide(c, 7, true, false, 0.6)
	assert.Equal(t, ActionReview, d.Action)
}

func TestDecideIsDeterministic(t *testing.T) {
	c := classified(true, model.PriorityHigh, 0.72, false)

	first := Decide(c, 2, true, false, 0.6)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Decide(c, 2, true, false, 0.6))
	}
}
