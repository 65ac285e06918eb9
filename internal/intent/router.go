package intent

import (
	"regexp"
	"strings"
)

// Action is the gateway operation an input is routed to
type Action string

const (
	ActionCorrect   Action = "correct"
	ActionTranslate Action = "translate"
	ActionSentiment Action = "sentiment"
	ActionDefault   Action = "default"
)

// Intent is the result of classifying one raw input
type Intent struct {
	Action  Action
	Payload string
}

type rule struct {
	action   Action
	keywords []string
	strip    *regexp.Regexp
}

// rules are evaluated in priority order; the first match wins
var rules = []rule{
	{action: ActionCorrect, keywords: []string{"correct", "grammar"}, strip: regexp.MustCompile(`(?i)correct|grammar`)},
	{action: ActionTranslate, keywords: []string{"translate"}, strip: regexp.MustCompile(`(?i)translate`)},
	{action: ActionSentiment, keywords: []string{"sentiment"}, strip: regexp.MustCompile(`(?i)sentiment`)},
}

// Router maps raw user input to an Intent by keyword
type Router struct {
	rules []rule
}

// NewRouter creates a router; disabled actions are skipped so their input falls
// through to the next rule.
func NewRouter(disabled ...Action) *Router {
	off := make(map[Action]bool, len(disabled))
	for _, a := range disabled {
		off[a] = true
	}

	r := &Router{}
	for _, rl := range rules {
		if !off[rl.action] {
			r.rules = append(r.rules, rl)
		}
	}
	return r
}

// Classify returns the intent for raw. It is pure and deterministic.
func (r *Router) Classify(raw string) Intent {
	lower := strings.ToLower(raw)

	for _, rl := range r.rules {
		if !matches(lower, rl.keywords) {
			continue
		}
		payload := strings.TrimSpace(rl.strip.ReplaceAllString(raw, ""))
		if payload == "" {
			payload = raw
		}
		return Intent{Action: rl.action, Payload: payload}
	}

	return Intent{Action: ActionDefault, Payload: strings.TrimSpace(raw)}
}

// Actions returns the enabled keyword actions in priority order
func (r *Router) Actions() []Action {
	out := make([]Action, 0, len(r.rules))
	for _, rl := range r.rules {
		out = append(out, rl.action)
	}
	return out
}

func matches(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var defaultRouter = NewRouter()

// Classify routes raw with every rule enabled
func Classify(raw string) Intent {
	return defaultRouter.Classify(raw)
}
