package agent

import (
	"regexp"
	"strings"
)

// Intent is the deterministic classification of a user turn. The model still
// chooses whether and how to call tools; the intent shapes which tools are
// exposed, what guidance the system instruction carries, and what the logs
// and API report.
type Intent string

const (
	IntentCalendar  Intent = "calendar"
	IntentSearch    Intent = "search"
	IntentSmalltalk Intent = "smalltalk"
	IntentGeneral   Intent = "general"
)

var (
	// --- Pre-compiled archetypes, cheapest checks first ---

	// Schedule management in any phrasing: nouns, booking verbs, or the
	// "am I free" family.
	calendarArchetypes = regexp.MustCompile(
		`(?i)\b(calendar|schedule|meeting|appointment|event|agenda|reminder)s?\b|` +
			`\b(book|schedule|cancel|delete|move|reschedule)\b.*\b(lunch|dinner|call|meeting|appointment|event)\b|` +
			`\bam i (free|busy)\b|\bwhat('s| is| do i have) (on|planned|happening)\b`,
	)

	// Real-time knowledge: news, sports, markets, or an explicit ask to
	// search.
	searchArchetypes = regexp.MustCompile(
		`(?i)\b(news|headlines?|score|standings|stock|price|election|results?)\b|` +
			`\b(search|look up|google|find out)\b|` +
			`\bwhat('s| is) happening\b|\blatest on\b`,
	)

	// Greetings and pleasantries that deserve an answer, not a tool call.
	smalltalkArchetypes = regexp.MustCompile(
		`(?i)^(hi|hey|hello|hola|yo|good (morning|afternoon|evening|night)|` +
			`how are you|what'?s up|que pasa|thanks?( you)?|thank you|bye|goodbye|see you)\b`,
	)
)

// smalltalkMaxLen keeps long messages that merely open with a greeting from
// being classified as smalltalk.
const smalltalkMaxLen = 40

// ClassifyIntent maps a user turn onto an Intent using pre-compiled regex
// archetypes. Calendar wins ties with search: "cancel my meeting and tell me
// the news" should first and foremost touch the schedule.
func ClassifyIntent(message string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return IntentSmalltalk
	}

	if len(normalized) <= smalltalkMaxLen && smalltalkArchetypes.MatchString(normalized) {
		return IntentSmalltalk
	}
	if calendarArchetypes.MatchString(normalized) {
		return IntentCalendar
	}
	if searchArchetypes.MatchString(normalized) {
		return IntentSearch
	}
	return IntentGeneral
}

// wantsTools reports whether an intent should have tools attached at all.
// Smalltalk turns skip the tool schemas entirely; that saves tokens and stops
// eager models from searching the web for "good morning".
func (i Intent) wantsTools() bool {
	return i != IntentSmalltalk
}
