// Package session holds each user's current interaction mode. State is
// in-memory only and transient by design: a restart drops everyone back to
// the regular mode.
package session

import "sync"

// Mode is the single active conversational handler for a user. Exactly one
// mode is active at a time; the closed enumeration makes two-modes-at-once
// unrepresentable.
type Mode int

const (
	// ModeRegular is the initial and implicit rest state.
	ModeRegular Mode = iota
	// ModeCore is the free-conversation mode.
	ModeCore
	// ModePostAnalysis follows a completed chain analysis; follow-up
	// questions are grounded on the last report.
	ModePostAnalysis
	// ModeRuleContent awaits the text of a new rule.
	ModeRuleContent
	// ModeRuleDescription awaits the optional description of the rule
	// captured in the previous step.
	ModeRuleDescription
)

func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "regular"
	case ModeCore:
		return "core"
	case ModePostAnalysis:
		return "post_analysis"
	case ModeRuleContent:
		return "rule_content"
	case ModeRuleDescription:
		return "rule_description"
	}
	return "unknown"
}

// State is one user's session: the mode plus mode-scoped scratch fields.
// Scratch belongs to the mode that set it; every transition clears it.
type State struct {
	Mode Mode
	// RuleContent is the pending rule text between the two capture steps.
	RuleContent string
	// LastReport is the formatted analysis report shown when entering
	// ModePostAnalysis, used to ground follow-up questions.
	LastReport string
}

// Manager maps user ids to session state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]State)}
}

// Get returns the user's state; absent users are in ModeRegular.
func (m *Manager) Get(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// Enter moves the user into mode, discarding all scratch fields of any other
// mode. The optional mutate callback sets the new mode's scratch on the fresh
// state.
func (m *Manager) Enter(userID int64, mode Mode, mutate ...func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{Mode: mode}
	for _, f := range mutate {
		f(&st)
	}
	m.sessions[userID] = st
}

// Reset returns the user to ModeRegular and drops all scratch.
func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
