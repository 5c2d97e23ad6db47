package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
)

const classifySystemPrompt = `You are an email classifier for a busy professional.
Your job is to analyze incoming emails and classify them accurately.

Return ONLY valid JSON matching this schema (no markdown, no explanation):
{
  "worth_replying": true | false,
  "sender_priority": "high" | "normal" | "low" | "unknown",
  "confidence": 0.0 - 1.0,
  "is_critical": true | false,
  "needs_calendar": true | false,
  "needs_gdrive": true | false,
  "gdrive_query": "string or null",
  "reasoning": "one sentence"
}

Definitions:
- worth_replying: Does this email warrant a reply from the user?
- sender_priority: "high" = executives/recruiters/close collaborators/important business contacts; "normal" = colleagues/vendors; "low" = mailing lists/newsletters/low priority; "unknown" = first-time or unrecognized sender.
- confidence: How confident are you in your classification (0 = very unsure, 1 = certain)?
- is_critical: Time-sensitive, financial, legal, job offer, urgent decision required?
- needs_calendar: Does the email ask for the user's availability or to schedule a meeting?
- needs_gdrive: Does the email ask for a document (resume, proposal, report, etc)?
- gdrive_query: If needs_gdrive=true, what search query to use in Drive (e.g. "resume", "Q3 proposal")? Otherwise null.
- reasoning: Brief reason for your classification.`

const maxBodyChars = 2000

// Classify analyzes one inbound email and returns its structured
// classification. A response the model refuses to format as JSON is a
// ServiceError; callers skip the email rather than guessing.
func (c *Client) Classify(ctx context.Context, email model.Email) (*model.Classification, error) {
	userPrompt := fmt.Sprintf(`Classify this email:

From: %s
Subject: %s
Has Attachments: %t

Body:
%s`, email.Sender, email.Subject, email.HasAttachments, truncate(email.Body, maxBodyChars))

	raw, err := c.completeWithSystem(ctx, classifySystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	classification := &model.Classification{}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), classification); err != nil {
		return nil, apperr.Service("openai", "parse classification", err)
	}

	if !classification.SenderPriority.Valid() {
		classification.SenderPriority = model.PriorityUnknown
	}
	classification.ModelUsed = c.model
	return classification, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
