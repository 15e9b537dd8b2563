package agent

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPersona is used when the deployment does not configure its own.
const DefaultPersona = "You are a warm, sharp personal secretary. You manage the user's Google Calendar and can search the web on their behalf. Keep replies short and conversational."

// promptGuidance is the fixed capability briefing appended to every system
// instruction. The delete rule matters: event IDs only exist in the model's
// context after a list call, so deleting without listing first fails.
const promptGuidance = `You have access to the user's Google Calendar and to web search.
- If the user asks about their schedule, check the calendar.
- If the user asks about news, sports, stocks, or current facts, use search_web.
- If the user asks to delete an event, list the upcoming events first to get its ID.`

// intentHints nudge the model toward the classified intent without forbidding
// anything. The model keeps final say over tool use.
var intentHints = map[Intent]string{
	IntentCalendar:  "The user's message looks like a calendar request.",
	IntentSearch:    "The user's message looks like it needs fresh information from the web.",
	IntentSmalltalk: "The user is making conversation. Just reply warmly; no tools are needed.",
}

// BuildSystemInstruction assembles the per-turn system instruction: persona,
// optional nickname, the current date and time (models have no clock, and
// "tomorrow at 3" is meaningless without one), capability guidance, and the
// intent hint.
func BuildSystemInstruction(persona, nickname string, now time.Time, intent Intent) string {
	if persona == "" {
		persona = DefaultPersona
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n")
	if nickname != "" {
		fmt.Fprintf(&sb, "Your nickname for the user is %s.\n", nickname)
	}
	fmt.Fprintf(&sb, "The current date and time is %s.\n\n", now.Format("Monday, January 2, 2006 at 3:04 PM (MST)"))
	sb.WriteString(promptGuidance)
	if hint, ok := intentHints[intent]; ok {
		sb.WriteString("\n\n")
		sb.WriteString(hint)
	}
	return sb.String()
}
