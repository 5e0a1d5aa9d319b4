package dto

import (
	"errors"
	"strings"
)

var (
	ErrIdentityRequired = errors.New("identity.user_id and identity.agent_id required")
	ErrStepsRequired    = errors.New("steps required")
	ErrActionRequired   = errors.New("action name required")
	ErrTokenRequired    = errors.New("token required")
	ErrNegativeTTL      = errors.New("ttl_seconds must not be negative")
)

func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" || strings.TrimSpace(i.AgentID) == "" {
		return ErrIdentityRequired
	}
	return nil
}

func (r IssueRequest) Validate() error {
	if err := r.Identity.Validate(); err != nil {
		return err
	}
	if len(r.Steps) == 0 {
		return ErrStepsRequired
	}
	for _, s := range r.Steps {
		if strings.TrimSpace(s.Action) == "" {
			return ErrActionRequired
		}
	}
	if r.TTLSeconds < 0 {
		return ErrNegativeTTL
	}
	return nil
}

func (r VerifyRequest) Validate() error {
	if err := r.Identity.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Action.Name) == "" {
		return ErrActionRequired
	}
	return nil
}

// Validate leaves an empty armor_token to the gate, which rejects it as
// malformed and audits the attempt.
func (r ToolRequest) Validate() error {
	return r.Identity.Validate()
}
