// Package domain holds the core league vocabulary: error codes, team
// constants, and the division/conference layout. It has no infrastructure
// dependencies.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a stable, machine-readable error identifier. Codes are part of
// the external contract and must not be renamed.
type ErrorCode string

// Input validation codes.
const (
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrInvalidPlayerID   ErrorCode = "INVALID_PLAYER_ID"
	ErrMissingToTeam     ErrorCode = "MISSING_TO_TEAM"
	ErrProtectionInvalid ErrorCode = "PROTECTION_INVALID"
	ErrSwapInvalid       ErrorCode = "SWAP_INVALID"
	ErrDealInvalidated   ErrorCode = "DEAL_INVALIDATED"
)

// Ownership codes.
const (
	ErrPlayerNotOwned     ErrorCode = "PLAYER_NOT_OWNED"
	ErrPickNotOwned       ErrorCode = "PICK_NOT_OWNED"
	ErrSwapNotOwned       ErrorCode = "SWAP_NOT_OWNED"
	ErrFixedAssetNotFound ErrorCode = "FIXED_ASSET_NOT_FOUND"
	ErrFixedAssetNotOwned ErrorCode = "FIXED_ASSET_NOT_OWNED"
	ErrProtectionConflict ErrorCode = "PROTECTION_CONFLICT"
)

// Lifecycle codes.
const (
	ErrAssetLocked         ErrorCode = "ASSET_LOCKED"
	ErrDealExpired         ErrorCode = "DEAL_EXPIRED"
	ErrDealAlreadyExecuted ErrorCode = "DEAL_ALREADY_EXECUTED"
	ErrApplyFailed         ErrorCode = "APPLY_FAILED"
)

// Rule violation codes.
const (
	ErrDeadlinePassed   ErrorCode = "DEADLINE_PASSED"
	ErrBadLegs          ErrorCode = "BAD_LEGS"
	ErrDuplicateAsset   ErrorCode = "DUPLICATE_ASSET"
	ErrRosterLimit      ErrorCode = "ROSTER_LIMIT"
	ErrPlayerIneligible ErrorCode = "PLAYER_INELIGIBLE"
	ErrReturnToTeam     ErrorCode = "RETURN_TO_TRADING_TEAM"
	ErrPickRules        ErrorCode = "PICK_RULES"
	ErrSalaryMismatch   ErrorCode = "SALARY_MISMATCH"
	ErrIntegrity        ErrorCode = "INTEGRITY_VIOLATION"
)

// Error is a typed league error carrying a stable code and optional detail
// payload identifying the offending entity (player id, pick id, deal id).
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, 0, len(e.Details))
	for k, v := range e.Details {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, " "))
}

// NewError builds a typed error. Details are optional key/value pairs given
// as alternating arguments, e.g. NewError(code, msg, "player_id", id).
func NewError(code ErrorCode, message string, kv ...any) *Error {
	e := &Error{Code: code, Message: message}
	if len(kv) > 0 {
		e.Details = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", kv[i])
			}
			e.Details[key] = kv[i+1]
		}
	}
	return e
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
