package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mimilabs/mimi/internal/calendar"
)

// --- Calendar List Tool ---

// maxUpcomingEvents bounds how much schedule the model sees at once.
const maxUpcomingEvents = 10

// CalendarListTool surfaces the user's upcoming schedule to the model.
// It returns event IDs alongside times and titles so a follow-up delete
// request can reference a concrete event.
type CalendarListTool struct {
	events calendar.EventsAPI
}

var _ ToolExecutor = (*CalendarListTool)(nil)

func NewCalendarListTool(events calendar.EventsAPI) *CalendarListTool {
	return &CalendarListTool{events: events}
}

func (ct *CalendarListTool) Definition() Tool {
	return NewFunctionTool(
		"list_upcoming_events",
		"Get the next 10 upcoming events from the user's calendar. Returns each event's ID, start time, and title. Use this before deleting an event to find its ID.",
		JSONSchema{
			Type:       "object",
			Properties: map[string]*JSONSchema{},
			Required:   []string{},
		},
	)
}

// Execute lists the upcoming events and formats them one per line as
// "ID: <id> | <start>: <title>". An empty calendar is a normal result the
// model should relay, not an error.
func (ct *CalendarListTool) Execute(ctx context.Context, arguments string) (string, error) {
	events, err := ct.events.ListUpcoming(ctx, maxUpcomingEvents)
	if err != nil {
		return "", fmt.Errorf("failed to list calendar events: %w", err)
	}
	if len(events) == 0 {
		return "No upcoming events found.", nil
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		start := event.Start.DateTime
		if start == "" {
			// All-day events carry a date instead of a timestamp.
			start = event.Start.Date
		}
		lines = append(lines, fmt.Sprintf("ID: %s | %s: %s", event.Id, start, event.Summary))
	}
	return strings.Join(lines, "\n"), nil
}
