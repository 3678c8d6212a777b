package batch

import (
	"errors"

	"sheetmail/internal/model"
)

// Action is what a run does after an error.
type Action int

const (
	Continue Action = iota
	Abort
)

func (a Action) String() string {
	if a == Abort {
		return "abort"
	}
	return "continue"
}

// policies is checked in order; the first kind matched decides.
var policies = []struct {
	kind   error
	action Action
}{
	{model.ErrNoCredentials, Abort},
	{model.ErrFetch, Abort},
	{model.ErrInvalidRecipient, Continue},
	{model.ErrRender, Continue},
	{model.ErrSend, Continue},
	{model.ErrStatusWrite, Continue},
	{model.ErrStatusColumn, Continue},
	{model.ErrAttachment, Continue},
	{model.ErrTrackerRegister, Continue},
	{model.ErrTokenPersist, Continue},
	{model.ErrCredentialParse, Continue},
	{model.ErrLedger, Continue},
}

// Policy classifies err. Kinds not in the table continue.
func Policy(err error) Action {
	for _, p := range policies {
		if errors.Is(err, p.kind) {
			return p.action
		}
	}
	return Continue
}
