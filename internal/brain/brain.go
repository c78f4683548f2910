// Package brain evaluates new chat messages against an LLM backend and
// turns the reply into a typed action.
//
// Providers speak the OpenAI chat-completions dialect. Model replies
// are expected to carry a JSON object, possibly wrapped in markdown
// fences or prose; extraction is tolerant, then the object is
// schema-validated and normalized so downstream consumers only ever
// see well-formed actions.
package brain

import (
	"context"
	"time"

	"pryd/internal/transcript"
)

// ActionKind is what the model decided to do with the new messages.
type ActionKind string

const (
	// ActionSuggest proposes a reply the user could send.
	ActionSuggest ActionKind = "suggest"
	// ActionRoast is a snarky aside about the conversation.
	ActionRoast ActionKind = "roast"
	// ActionThink is an observation without a proposed reply.
	ActionThink ActionKind = "think"
	// ActionVibe is a short mood read on the conversation.
	ActionVibe ActionKind = "vibe"
	// ActionWarn flags something the user should look at.
	ActionWarn ActionKind = "warn"
	// ActionNone means stay quiet this round.
	ActionNone ActionKind = "none"
)

// knownActions is the closed set a reply may use; anything else is
// normalized to none.
var knownActions = map[ActionKind]struct{}{
	ActionSuggest: {},
	ActionRoast:   {},
	ActionThink:   {},
	ActionVibe:    {},
	ActionWarn:    {},
	ActionNone:    {},
}

// ProfileUpdate is what the model learned about one party.
type ProfileUpdate struct {
	Notes  []string `json:"notes,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// MemoryUpdates carries profile changes the model wants persisted.
type MemoryUpdates struct {
	Contact ProfileUpdate `json:"contact"`
	User    ProfileUpdate `json:"user"`
}

func (m *MemoryUpdates) Empty() bool {
	if m == nil {
		return true
	}
	return len(m.Contact.Notes) == 0 && len(m.Contact.Topics) == 0 &&
		len(m.User.Notes) == 0 && len(m.User.Topics) == 0
}

// ActionResult is a normalized model decision.
type ActionResult struct {
	Kind    ActionKind
	Content string
	Memory  *MemoryUpdates
}

// Request is one evaluation: the new messages plus trailing context
// and whatever the memory store knows about the contact.
type Request struct {
	Contact     string
	Delta       []transcript.Message
	Context     []transcript.Message
	ProfileHint string
	Mood        string
	SubmittedAt time.Time
}

// Backend evaluates a request. Implementations must honor the context
// deadline; an error means "no action this cycle", never a crash.
type Backend interface {
	Evaluate(ctx context.Context, req Request) (ActionResult, error)
}

// normalizeResult enforces the action invariants: unknown kinds become
// none, none carries no content, and content-free actions collapse to
// none.
func normalizeResult(r ActionResult) ActionResult {
	if _, ok := knownActions[r.Kind]; !ok {
		r.Kind = ActionNone
	}
	if r.Kind == ActionNone {
		r.Content = ""
		return r
	}
	if r.Content == "" {
		r.Kind = ActionNone
	}
	return r
}
