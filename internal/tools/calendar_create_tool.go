package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/mimilabs/mimi/internal/calendar"
)

// --- Calendar Create Tool ---

// CalendarCreateTool creates a new event on the user's primary calendar.
type CalendarCreateTool struct {
	events calendar.EventsAPI
}

var _ ToolExecutor = (*CalendarCreateTool)(nil)

func NewCalendarCreateTool(events calendar.EventsAPI) *CalendarCreateTool {
	return &CalendarCreateTool{events: events}
}

func (ct *CalendarCreateTool) Definition() Tool {
	return NewFunctionTool(
		"create_calendar_event",
		"Create an event on the user's calendar. Times must be ISO 8601 timestamps, e.g. 2025-11-22T15:00:00 or 2025-11-22T15:00:00-05:00.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"summary": {
					Type:        "string",
					Description: "The title of the event, e.g. 'Dinner with Carla'.",
				},
				"start_time": {
					Type:        "string",
					Description: "The event start as an ISO 8601 timestamp.",
				},
				"end_time": {
					Type:        "string",
					Description: "The event end as an ISO 8601 timestamp.",
				},
			},
			Required: []string{"summary", "start_time", "end_time"},
		},
	)
}

// Execute validates the timestamps and inserts the event. Malformed times
// come back as readable results so the model can re-ask the user instead of
// silently creating a broken event.
func (ct *CalendarCreateTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Summary   string `json:"summary"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for calendar create tool: %w", err)
	}

	start, err := parseEventTime(args.StartTime)
	if err != nil {
		return fmt.Sprintf("Error: start_time %q is not a valid ISO 8601 timestamp.", args.StartTime), nil
	}
	end, err := parseEventTime(args.EndTime)
	if err != nil {
		return fmt.Sprintf("Error: end_time %q is not a valid ISO 8601 timestamp.", args.EndTime), nil
	}
	if !end.After(start) {
		return "Error: end_time must be after start_time.", nil
	}

	event := &gcal.Event{
		Summary: args.Summary,
		Start:   &gcal.EventDateTime{DateTime: args.StartTime},
		End:     &gcal.EventDateTime{DateTime: args.EndTime},
	}
	created, err := ct.events.Insert(ctx, event)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return fmt.Sprintf("Event created: %s", created.HtmlLink), nil
}

// parseEventTime accepts the timestamp shapes models actually produce:
// RFC 3339 with an offset, or a bare local wall-clock time.
func parseEventTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}
