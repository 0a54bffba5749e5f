// Package errors provides structured error handling for TeamTally services.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Rule errors
	CodeRuleNameEmpty            Code = "RULE_NAME_EMPTY"
	CodeRuleDescriptionEmpty     Code = "RULE_DESCRIPTION_EMPTY"
	CodeRuleConditionsEmpty      Code = "RULE_CONDITIONS_EMPTY"
	CodeRuleTargetPositionsEmpty Code = "RULE_TARGET_POSITIONS_EMPTY"
	CodeRuleTargetPlayerMissing  Code = "RULE_TARGET_PLAYER_MISSING"
	CodeRuleInvalidCategory      Code = "RULE_INVALID_CATEGORY"
	CodeRuleConditionIncomplete  Code = "RULE_CONDITION_INCOMPLETE"

	// Variable errors
	CodeVariableKeyEmpty     Code = "VARIABLE_KEY_EMPTY"
	CodeVariableBuiltInFixed Code = "VARIABLE_BUILT_IN_IMMUTABLE"
	CodeVariableInvalidScope Code = "VARIABLE_INVALID_SCOPE"

	// Profile errors
	CodeProfileNameEmpty        Code = "PROFILE_NAME_EMPTY"
	CodeProfileEmptyClubID      Code = "PROFILE_EMPTY_CLUB_ID"
	CodeProfileDefaultConflict  Code = "PROFILE_DEFAULT_CONFLICT"
	CodeProfileOverrideConflict Code = "PROFILE_OVERRIDE_CONFLICT"

	// Match completion errors
	CodeMatchEmptyID           Code = "MATCH_EMPTY_ID"
	CodeMatchNotFound          Code = "MATCH_NOT_FOUND"
	CodeMatchNotCompleted      Code = "MATCH_NOT_COMPLETED"
	CodeMatchCompletionInvalid Code = "MATCH_COMPLETION_INVALID"
	CodeAssignmentInvalidCount Code = "ASSIGNMENT_INVALID_COUNT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRuleNameEmpty,
		CodeRuleDescriptionEmpty,
		CodeRuleConditionsEmpty,
		CodeRuleTargetPositionsEmpty,
		CodeRuleTargetPlayerMissing,
		CodeRuleInvalidCategory,
		CodeRuleConditionIncomplete,
		CodeVariableKeyEmpty,
		CodeVariableInvalidScope,
		CodeProfileNameEmpty,
		CodeProfileEmptyClubID,
		CodeMatchEmptyID,
		CodeAssignmentInvalidCount,
		CodeMatchCompletionInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeVariableBuiltInFixed,
		CodeProfileDefaultConflict,
		CodeProfileOverrideConflict,
		CodeMatchNotCompleted,
		CodeConflict:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeMatchNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
