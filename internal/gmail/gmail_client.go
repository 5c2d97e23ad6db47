package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

// Automated category labels excluded from fetching.
var skipLabels = map[string]bool{
	"CATEGORY_PROMOTIONS": true,
	"CATEGORY_SOCIAL":     true,
	"CATEGORY_UPDATES":    true,
	"CATEGORY_FORUMS":     true,
}

// Inbound bodies are capped before they reach the language model.
const maxBodyBytes = 4000

type gmailClient struct {
	oauthCfg *oauth2.Config
	logger   zerolog.Logger
}

// NewGmailClient builds a client that creates a per-user Gmail service
// on each call. Tokens refresh automatically through the oauth2
// TokenSource; callers hold the refreshed token only for this request.
func NewGmailClient(clientID, clientSecret string, log zerolog.Logger) service.GmailClient {
	return &gmailClient{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes: []string{
				gmail.GmailReadonlyScope,
				gmail.GmailSendScope,
				gmail.GmailComposeScope,
				gmail.GmailModifyScope,
			},
			Endpoint: google.Endpoint,
		},
		logger: log.With().Str("component", "gmail").Logger(),
	}
}

func (g *gmailClient) serviceFor(ctx context.Context, user *model.User) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	ts := g.oauthCfg.TokenSource(ctx, token)

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, apperr.Service("gmail", "create service", err)
	}
	return svc, nil
}

func (g *gmailClient) FetchNewEmails(ctx context.Context, user *model.User, after time.Time, max int64) ([]model.Email, error) {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return nil, err
	}

	query := "is:unread in:inbox -category:promotions -category:social -category:updates"
	if !after.IsZero() {
		query += fmt.Sprintf(" after:%d", after.Unix())
	}

	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Service("gmail", "list messages", err)
	}

	var emails []model.Email
	for _, msg := range list.Messages {
		detail, err := svc.Users.Messages.Get("me", msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			g.logger.Error().Err(err).Str("gmail_id", msg.Id).Msg("failed to get message")
			continue
		}

		skip := false
		for _, label := range detail.LabelIds {
			if skipLabels[label] {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		email, ok := parseMessage(detail)
		if !ok {
			continue
		}
		emails = append(emails, email)
	}

	// Oldest first so processing follows arrival order.
	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}

	g.logger.Debug().Int("count", len(emails)).Str("user_id", user.ID).Msg("fetched new emails")
	return emails, nil
}

func parseMessage(detail *gmail.Message) (model.Email, bool) {
	var sender, subject string
	for _, header := range detail.Payload.Headers {
		switch header.Name {
		case "From":
			sender = header.Value
		case "Subject":
			subject = header.Value
		}
	}
	if subject == "" {
		subject = "(no subject)"
	}

	body := extractBody(detail.Payload)
	if strings.TrimSpace(body) == "" {
		return model.Email{}, false
	}
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}

	return model.Email{
		GmailID:        detail.Id,
		ThreadID:       detail.ThreadId,
		Sender:         sender,
		Subject:        subject,
		Snippet:        detail.Snippet,
		Body:           body,
		HasAttachments: hasAttachments(detail.Payload),
		ReceivedAt:     time.Unix(detail.InternalDate/1000, 0),
	}, true
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}

	if payload.MimeType == "text/html" && payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return htmlTagRe.ReplaceAllString(string(decoded), " ")
		}
	}

	for _, part := range payload.Parts {
		if body := extractBody(part); body != "" {
			return body
		}
	}
	return ""
}

func hasAttachments(payload *gmail.MessagePart) bool {
	if payload == nil {
		return false
	}
	for _, part := range payload.Parts {
		if strings.TrimSpace(part.Filename) != "" {
			return true
		}
		if hasAttachments(part) {
			return true
		}
	}
	return false
}

func (g *gmailClient) FetchSentEmails(ctx context.Context, user *model.User, days int, max int64) ([]model.SentEmail, error) {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("in:sent newer_than:%dd", days)
	list, err := svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Service("gmail", "list sent messages", err)
	}

	var emails []model.SentEmail
	for _, msg := range list.Messages {
		detail, err := svc.Users.Messages.Get("me", msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			g.logger.Error().Err(err).Str("gmail_id", msg.Id).Msg("failed to get sent message")
			continue
		}

		var to, subject string
		for _, header := range detail.Payload.Headers {
			switch header.Name {
			case "To":
				to = header.Value
			case "Subject":
				subject = header.Value
			}
		}

		emails = append(emails, model.SentEmail{
			GmailID: detail.Id,
			To:      to,
			Subject: subject,
			Body:    extractBody(detail.Payload),
			SentAt:  time.Unix(detail.InternalDate/1000, 0),
		})
	}
	return emails, nil
}

func (g *gmailClient) SendReply(ctx context.Context, user *model.User, email model.Email, body string, attachment *model.Attachment) error {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	msg := &gmail.Message{
		Raw:      buildRawMessage(replyAddress(email.Sender), replySubject(email.Subject), body, attachment),
		ThreadId: email.ThreadID,
	}
	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return apperr.Service("gmail", "send message", err)
	}

	g.logger.Info().Str("user_id", user.ID).Str("gmail_id", email.GmailID).Msg("reply sent")
	return nil
}

func (g *gmailClient) CreateReplyDraft(ctx context.Context, user *model.User, email model.Email, body string) error {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      buildRawMessage(replyAddress(email.Sender), replySubject(email.Subject), body, nil),
			ThreadId: email.ThreadID,
		},
	}
	if _, err := svc.Users.Drafts.Create("me", draft).Context(ctx).Do(); err != nil {
		return apperr.Service("gmail", "create draft", err)
	}

	g.logger.Info().Str("user_id", user.ID).Str("gmail_id", email.GmailID).Msg("draft created")
	return nil
}

func (g *gmailClient) MarkAsRead(ctx context.Context, user *model.User, gmailID string) error {
	svc, err := g.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := svc.Users.Messages.Modify("me", gmailID, req).Context(ctx).Do(); err != nil {
		return apperr.Service("gmail", "mark as read", err)
	}
	return nil
}

// replyAddress pulls the bare address out of a "Name <addr>" header.
func replyAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return addr.Address
	}
	return sender
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func buildRawMessage(to, subject, body string, attachment *model.Attachment) string {
	var b strings.Builder

	if attachment == nil {
		b.WriteString("To: " + to + "\r\n")
		b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
		b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
		b.WriteString("MIME-Version: 1.0\r\n\r\n")
		b.WriteString(body)
		return base64.URLEncoding.EncodeToString([]byte(b.String()))
	}

	boundary := "inbox-pilot-boundary"
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	contentType := attachment.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"" + attachment.Filename + "\"\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString(attachment.Data) + "\r\n")
	b.WriteString("--" + boundary + "--")

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
