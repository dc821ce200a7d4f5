package model

import "github.com/m-mizutani/goerr/v2"

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Validate checks if the role is one of the known roles
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleBot:
		return nil
	default:
		return goerr.Wrap(ErrInvalidArgument, "invalid role", goerr.V("role", r))
	}
}

// Turn is one message in a conversation. It is never modified after creation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
