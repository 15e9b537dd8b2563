// Package calendar wraps the Google Calendar v3 API behind the small surface
// the assistant's tools need: list upcoming events, insert one, delete one.
// Authentication reuses pre-issued authorized-user credentials (the JSON blob
// produced by a one-time OAuth consent flow); this service never runs a
// consent flow of its own.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// primaryCalendarID is the user's default calendar. The assistant manages a
// single person's schedule, so everything targets primary.
const primaryCalendarID = "primary"

// EventsAPI is the calendar surface consumed by the assistant's tools.
// The concrete Client talks to Google; tests substitute a fake.
type EventsAPI interface {
	// ListUpcoming returns up to max events starting after now, soonest first.
	ListUpcoming(ctx context.Context, max int64) ([]*gcal.Event, error)
	// Insert creates an event on the primary calendar and returns it with
	// server-assigned fields (ID, HtmlLink) populated.
	Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error)
	// Delete removes the event with the given ID from the primary calendar.
	Delete(ctx context.Context, eventID string) error
}

// Client is the Google-backed implementation of EventsAPI.
type Client struct {
	svc *gcal.Service
	now func() time.Time
}

var _ EventsAPI = (*Client)(nil)

// NewClient builds a calendar client from an authorized-user credentials JSON
// blob (the format written by Google's OAuth tooling: client id/secret plus a
// refresh token). The token source refreshes access tokens transparently.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("google calendar credentials cannot be empty")
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{svc: svc, now: time.Now}, nil
}

// ListUpcoming fetches the next events on the primary calendar. Recurring
// events are expanded to single instances and ordered by start time, matching
// how a person reads their schedule.
func (c *Client) ListUpcoming(ctx context.Context, max int64) ([]*gcal.Event, error) {
	result, err := c.svc.Events.List(primaryCalendarID).
		TimeMin(c.now().UTC().Format(time.RFC3339)).
		MaxResults(max).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar list failed: %w", err)
	}
	return result.Items, nil
}

func (c *Client) Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error) {
	created, err := c.svc.Events.Insert(primaryCalendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar insert failed: %w", err)
	}
	return created, nil
}

func (c *Client) Delete(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(primaryCalendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar delete failed: %w", err)
	}
	return nil
}
