package session

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownToken is returned when confirming or cancelling a token that was
// never issued or has already been completed.
var ErrUnknownToken = errors.New("unknown confirmation token")

// ClearTarget names what a confirmation would clear.
type ClearTarget int

const (
	// ClearConversation empties the local message log.
	ClearConversation ClearTarget = iota
	// ClearRemoteHistory deletes the backend's history.
	ClearRemoteHistory
)

// Confirmation is a pending destructive action awaiting Confirm or Cancel.
type Confirmation struct {
	Token  string
	Target ClearTarget
	Prompt string
}

// RequestClearConversation issues a confirmation for clearing the local log.
func (m *Manager) RequestClearConversation() Confirmation {
	return m.requestConfirmation(ClearConversation, ClearConversationPrompt)
}

// RequestClearHistory issues a confirmation for deleting the remote history.
func (m *Manager) RequestClearHistory() Confirmation {
	return m.requestConfirmation(ClearRemoteHistory, ClearHistoryPrompt)
}

func (m *Manager) requestConfirmation(target ClearTarget, prompt string) Confirmation {
	c := Confirmation{
		Token:  uuid.New().String(),
		Target: target,
		Prompt: prompt,
	}

	m.mu.Lock()
	m.confirmations[c.Token] = target
	m.mu.Unlock()

	return c
}

// takeConfirmation removes and returns the target bound to token.
func (m *Manager) takeConfirmation(token string) (ClearTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.confirmations[token]
	if !ok {
		return 0, ErrUnknownToken
	}
	delete(m.confirmations, token)
	return target, nil
}

// Confirm completes a pending confirmation. Clearing the conversation takes
// effect before Confirm returns; deleting the remote history runs in the
// background and reports its outcome through the change notifications.
func (m *Manager) Confirm(token string) error {
	target, err := m.takeConfirmation(token)
	if err != nil {
		return err
	}

	switch target {
	case ClearConversation:
		m.clearConversation()
	case ClearRemoteHistory:
		m.goAsync(m.clearRemoteHistory)
	}
	return nil
}

// Cancel drops a pending confirmation without side effects.
func (m *Manager) Cancel(token string) error {
	_, err := m.takeConfirmation(token)
	return err
}
