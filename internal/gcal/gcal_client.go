// Package gcal answers "when is the user free" for scheduling replies.
package gcal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

const (
	workStartHour   = 8
	workEndHour     = 18
	minSlotMinutes  = 30
	fullyBookedText = "I'm fully booked this week."
)

type calendarClient struct {
	oauthCfg *oauth2.Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCalendarClient(clientID, clientSecret string, log zerolog.Logger) service.CalendarClient {
	return &calendarClient{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		logger: log.With().Str("component", "gcal").Logger(),
		now:    time.Now,
	}
}

// FreeSlots queries free/busy for the user's primary calendar and
// returns free windows of at least 30 minutes within work hours over
// the next N days, formatted for direct insertion into a reply.
func (c *calendarClient) FreeSlots(ctx context.Context, user *model.User, days int) (string, error) {
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(c.oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return "", apperr.Service("gcal", "create service", err)
	}

	now := c.now()
	req := &calendar.FreeBusyRequest{
		TimeMin: now.Format(time.RFC3339),
		TimeMax: now.AddDate(0, 0, days).Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}

	resp, err := svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return "", apperr.Service("gcal", "freebusy query", err)
	}

	var busy []window
	if primary, ok := resp.Calendars["primary"]; ok {
		for _, period := range primary.Busy {
			start, err1 := time.Parse(time.RFC3339, period.Start)
			end, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, window{start.In(now.Location()), end.In(now.Location())})
		}
	}

	free := computeFreeSlots(now, days, busy, workStartHour, workEndHour)
	return formatFreeSlots(free), nil
}

type window struct {
	start time.Time
	end   time.Time
}

func computeFreeSlots(now time.Time, days int, busy []window, workStart, workEnd int) []window {
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	var free []window
	for offset := 0; offset < days; offset++ {
		day := now.AddDate(0, 0, offset)
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), workStart, 0, 0, 0, now.Location())
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), workEnd, 0, 0, 0, now.Location())

		if !dayEnd.After(now) {
			continue
		}
		if dayStart.Before(now) {
			dayStart = now
		}

		cursor := dayStart
		for _, b := range busy {
			if !b.end.After(dayStart) || !b.start.Before(dayEnd) {
				continue
			}
			if cursor.Before(b.start) && b.start.Sub(cursor) >= minSlotMinutes*time.Minute {
				free = append(free, window{cursor, b.start})
			}
			if b.end.After(cursor) {
				cursor = b.end
			}
		}
		if cursor.Before(dayEnd) && dayEnd.Sub(cursor) >= minSlotMinutes*time.Minute {
			free = append(free, window{cursor, dayEnd})
		}
	}
	return free
}

func formatFreeSlots(slots []window) string {
	if len(slots) == 0 {
		return fullyBookedText
	}

	var dayOrder []string
	byDay := make(map[string][]window)
	for _, slot := range slots {
		key := fmt.Sprintf("%d/%d", slot.start.Month(), slot.start.Day())
		if _, seen := byDay[key]; !seen {
			dayOrder = append(dayOrder, key)
		}
		byDay[key] = append(byDay[key], slot)
	}

	var lines []string
	for _, key := range dayOrder {
		var parts []string
		for _, slot := range byDay[key] {
			parts = append(parts, fmtTime(slot.start)+"-"+fmtTime(slot.end))
		}
		lines = append(lines, key+": "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

// fmtTime renders like 12pm or 10:30am.
func fmtTime(t time.Time) string {
	h := t.Hour()
	period := "am"
	if h >= 12 {
		period = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	if t.Minute() == 0 {
		return fmt.Sprintf("%d%s", h12, period)
	}
	return fmt.Sprintf("%d:%02d%s", h12, t.Minute(), period)
}
