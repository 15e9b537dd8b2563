package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mimilabs/mimi/internal/calendar"
)

// --- Calendar Delete Tool ---

// CalendarDeleteTool removes an event from the user's primary calendar by ID.
// IDs come from a preceding list_upcoming_events call; the system instruction
// steers the model to list first.
type CalendarDeleteTool struct {
	events calendar.EventsAPI
}

var _ ToolExecutor = (*CalendarDeleteTool)(nil)

func NewCalendarDeleteTool(events calendar.EventsAPI) *CalendarDeleteTool {
	return &CalendarDeleteTool{events: events}
}

func (ct *CalendarDeleteTool) Definition() Tool {
	return NewFunctionTool(
		"delete_calendar_event",
		"Delete a calendar event using its ID. Use list_upcoming_events first to find the ID of the event to delete.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"event_id": {
					Type:        "string",
					Description: "The ID of the event to delete, as returned by list_upcoming_events.",
				},
			},
			Required: []string{"event_id"},
		},
	)
}

func (ct *CalendarDeleteTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for calendar delete tool: %w", err)
	}
	if strings.TrimSpace(args.EventID) == "" {
		return "Error: event_id cannot be empty. List the upcoming events to find the ID first.", nil
	}

	if err := ct.events.Delete(ctx, args.EventID); err != nil {
		return "", fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return "Event deleted successfully.", nil
}
