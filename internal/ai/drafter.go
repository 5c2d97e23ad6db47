package ai

import (
	"context"
	"fmt"
	"strings"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

const draftRules = `Rules:
1. Write the reply body ONLY, no subject line, no "Subject:" prefix
2. Match the tone to the relationship (casual for known contacts, professional for unknowns)
3. Be concise: if it can be said in one sentence, use one sentence
4. If calendar availability is provided, include it exactly as formatted (don't reformat it)
5. If attachment context is provided, mention the attachment naturally and briefly
6. Never add platitudes, filler phrases, or unnecessary sign-off lines
7. If the email doesn't need a substantive reply, write a minimal acknowledgment`

const defaultVoice = `The user's email voice:
- Direct, no fluff, gets to the point immediately
- Short sentences and paragraphs
- Never starts with "I hope this email finds you well" or similar filler
- Uses natural, conversational language`

// DraftReply writes a reply to the given email in the user's voice,
// folding in calendar availability and attachment context when present.
func (c *Client) DraftReply(ctx context.Context, email model.Email, classification model.Classification, enrichment service.Enrichment, profile *model.VoiceProfile) (string, error) {
	systemPrompt := fmt.Sprintf(`You are drafting an email reply on behalf of the user.

%s

%s`, voiceSection(profile), draftRules)

	var contextParts []string
	if enrichment.CalendarSlots != "" {
		contextParts = append(contextParts, "Calendar availability to include:\n"+enrichment.CalendarSlots)
	}
	if enrichment.Attachment != nil {
		contextParts = append(contextParts, "Attaching this file from Drive: "+enrichment.Attachment.Filename)
	}
	contextBlock := ""
	if len(contextParts) > 0 {
		contextBlock = "\n\n" + strings.Join(contextParts, "\n\n")
	}

	userPrompt := fmt.Sprintf(`Draft a reply to this email:

From: %s
Subject: %s
Sender priority: %s

Email body:
%s%s

Write the reply body only.`, email.Sender, email.Subject, classification.SenderPriority, truncate(email.Body, maxBodyChars), contextBlock)

	draft, err := c.completeWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", apperr.Service("openai", "draft reply", fmt.Errorf("empty draft"))
	}
	return draft, nil
}

func voiceSection(profile *model.VoiceProfile) string {
	if profile == nil {
		return defaultVoice
	}

	var b strings.Builder
	b.WriteString("The user's email voice:\n")
	if profile.Tone != "" {
		b.WriteString("- Tone: " + profile.Tone + "\n")
	}
	if profile.Greeting != "" {
		b.WriteString("- Typical greeting: " + profile.Greeting + "\n")
	}
	if profile.SignOff != "" {
		b.WriteString("- Typical sign-off: " + profile.SignOff + "\n")
	}
	for _, trait := range profile.Traits {
		b.WriteString("- " + trait + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
