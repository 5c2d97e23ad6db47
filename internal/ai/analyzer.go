package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
)

const voiceSystemPrompt = `You analyze email excerpts written by one person and describe their writing voice.

Return ONLY valid JSON matching this schema (no markdown, no explanation):
{
  "tone": "one short phrase, e.g. direct and casual",
  "greeting": "their typical greeting, or empty string",
  "sign_off": "their typical sign-off, or empty string",
  "traits": ["5-8 concise bullet-point traits covering length preference, formality, punctuation habits, common phrases"]
}`

const maxVoiceSamples = 50

// AnalyzeVoice infers a writing-style profile from the user's sent mail.
func (c *Client) AnalyzeVoice(ctx context.Context, samples []model.SentEmail) (*model.VoiceProfile, error) {
	if len(samples) == 0 {
		return nil, apperr.Service("openai", "analyze voice", fmt.Errorf("no samples"))
	}
	if len(samples) > maxVoiceSamples {
		samples = samples[:maxVoiceSamples]
	}

	var excerpts []string
	for _, s := range samples {
		excerpts = append(excerpts, fmt.Sprintf("Subject: %s\n%s", s.Subject, strings.TrimSpace(truncate(s.Body, 500))))
	}

	userPrompt := fmt.Sprintf(`Analyze these %d email excerpts written by the same person and describe their voice.

Emails:
%s`, len(excerpts), strings.Join(excerpts, "\n\n---\n\n"))

	raw, err := c.completeWithSystem(ctx, voiceSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	profile := &model.VoiceProfile{}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), profile); err != nil {
		return nil, apperr.Service("openai", "parse voice profile", err)
	}
	profile.SampleCount = len(samples)
	profile.UpdatedAt = time.Now()
	return profile, nil
}
