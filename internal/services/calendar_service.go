package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const calendarEventLinkFormat = "https://calendar.google.com/calendar/event?eid=%s"

// SessionEvent describes a booking as a calendar entry.
type SessionEvent struct {
	BookingID int64
	Start     time.Time
	Duration  int
	Notes     string
}

// CalendarEvent is what the provider returns for a created entry.
type CalendarEvent struct {
	ID   string
	Link string
}

// CalendarClient syncs bookings with an external calendar.
type CalendarClient interface {
	CreateEvent(ctx context.Context, event SessionEvent) (*CalendarEvent, error)
	UpdateEvent(ctx context.Context, eventID string, event SessionEvent) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// NewCalendarClient returns a Google Calendar client, or a no-op client when
// calendar sync is disabled.
func NewCalendarClient(ctx context.Context, cfg config.CalendarConfig) (CalendarClient, error) {
	if !cfg.Enabled {
		return NoopCalendar{}, nil
	}
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("calendar service account email and private key are required")
	}

	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{calendar.CalendarScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return NewGoogleCalendar(svc, cfg.CalendarID, cfg.TimeZone), nil
}

type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	timeZone   string
}

func NewGoogleCalendar(svc *calendar.Service, calendarID, timeZone string) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, timeZone: timeZone}
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, event SessionEvent) (*CalendarEvent, error) {
	ev := g.toEvent(event)
	ev.Status = "confirmed"
	ev.Visibility = "default"

	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	link := created.HangoutLink
	if link == "" {
		link = fmt.Sprintf(calendarEventLinkFormat, created.Id)
	}
	return &CalendarEvent{ID: created.Id, Link: link}, nil
}

func (g *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, event SessionEvent) error {
	if _, err := g.svc.Events.Patch(g.calendarID, eventID, g.toEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}
	return nil
}

func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

func (g *GoogleCalendar) toEvent(event SessionEvent) *calendar.Event {
	end := event.Start.Add(time.Duration(event.Duration) * time.Minute)
	return &calendar.Event{
		Summary:     "Counseling Session with Counselor",
		Description: sessionDescription(event),
		Start:       &calendar.EventDateTime{DateTime: event.Start.UTC().Format(time.RFC3339), TimeZone: g.timeZone},
		End:         &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339), TimeZone: g.timeZone},
	}
}

func sessionDescription(event SessionEvent) string {
	notes := event.Notes
	if notes == "" {
		notes = "No additional notes"
	}
	return fmt.Sprintf("Booking ID: %d\nDuration: %d minutes\nNotes: %s", event.BookingID, event.Duration, notes)
}

// NoopCalendar accepts every call and creates nothing.
type NoopCalendar struct{}

func (NoopCalendar) CreateEvent(context.Context, SessionEvent) (*CalendarEvent, error) {
	return nil, nil
}

func (NoopCalendar) UpdateEvent(context.Context, string, SessionEvent) error { return nil }

func (NoopCalendar) DeleteEvent(context.Context, string) error { return nil }
