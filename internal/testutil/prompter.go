package testutil

import (
	"sync"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/prompt"
)

// FakePrompter answers prompts from queues and records what was asked.
type FakePrompter struct {
	mu sync.Mutex

	Confirms []bool
	Secrets  []string
	// ConfirmErr, when set, is returned from every Confirm.
	ConfirmErr error

	Asked  []string
	Waited []string
	// OnWait runs on every Wait, e.g. to observe a keyfile before it is wiped.
	OnWait func(message string)
}

var _ prompt.Prompter = (*FakePrompter)(nil)

// NewFakePrompter returns a prompter that confirms with the given answers.
func NewFakePrompter(confirms ...bool) *FakePrompter {
	return &FakePrompter{Confirms: confirms}
}

func (f *FakePrompter) Confirm(message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Asked = append(f.Asked, message)
	if f.ConfirmErr != nil {
		return false, f.ConfirmErr
	}
	if len(f.Confirms) == 0 {
		return false, errors.Cancelled()
	}
	answer := f.Confirms[0]
	f.Confirms = f.Confirms[1:]
	return answer, nil
}

func (f *FakePrompter) Secret(message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Asked = append(f.Asked, message)
	if len(f.Secrets) == 0 {
		return "", nil
	}
	s := f.Secrets[0]
	f.Secrets = f.Secrets[1:]
	return s, nil
}

func (f *FakePrompter) Wait(message string) error {
	f.mu.Lock()
	f.Waited = append(f.Waited, message)
	hook := f.OnWait
	f.mu.Unlock()

	if hook != nil {
		hook(message)
	}
	return nil
}
