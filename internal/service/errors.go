package service

import (
	"errors"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

var (
	ErrMalformed        = errors.New("malformed")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrExpired          = errors.New("expired")
	ErrPolicyViolation  = errors.New("policy_violation")
	ErrUpstreamFailure  = errors.New("upstream_failure")
	ErrReplayed         = errors.New("replayed")
	ErrInvalidPlan      = errors.New("invalid_plan")
	ErrTTLExceeded      = errors.New("ttl_exceeded")
	ErrNotFound         = errors.New("not_found")
)

// OutcomeErr maps a rejection outcome to its sentinel error; nil for approved.
func OutcomeErr(o models.Outcome) error {
	switch o {
	case models.OutcomeApproved:
		return nil
	case models.OutcomeMalformed:
		return ErrMalformed
	case models.OutcomeInvalidSignature:
		return ErrInvalidSignature
	case models.OutcomeExpired:
		return ErrExpired
	case models.OutcomePolicyViolation:
		return ErrPolicyViolation
	case models.OutcomeReplayed:
		return ErrReplayed
	}
	return ErrUpstreamFailure
}
