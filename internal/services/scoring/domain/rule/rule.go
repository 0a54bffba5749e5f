// Package rule defines scoring rules and their evaluation against match facts.
package rule

import (
	"fmt"
	"strings"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/condition"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
)

// Category dispatches how a rule is evaluated.
type Category int

const (
	// CategoryUnspecified represents an invalid category value.
	CategoryUnspecified Category = iota
	// CategoryResult awards points from the final match result alone.
	CategoryResult
	// CategoryPerformance awards points from per-player statistics.
	CategoryPerformance
	// CategoryManual awards points only through explicit per-player counts.
	CategoryManual
)

// Label returns a stable label for a category.
func (c Category) Label() string {
	switch c {
	case CategoryResult:
		return "RESULT"
	case CategoryPerformance:
		return "PERFORMANCE"
	case CategoryManual:
		return "MANUAL"
	default:
		return "UNSPECIFIED"
	}
}

// CategoryFromLabel parses a string label into a Category.
// It trims whitespace and matches case-insensitively.
func CategoryFromLabel(value string) Category {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "RESULT":
		return CategoryResult
	case "PERFORMANCE":
		return CategoryPerformance
	case "MANUAL":
		return CategoryManual
	default:
		return CategoryUnspecified
	}
}

// TargetScope is the player-selection policy of a rule.
type TargetScope int

const (
	// TargetScopeUnspecified represents an invalid target scope value.
	TargetScopeUnspecified TargetScope = iota
	// TargetScopeAllPlayers applies the rule to every supplied player.
	TargetScopeAllPlayers
	// TargetScopeByPosition restricts the rule to the listed positions.
	TargetScopeByPosition
	// TargetScopeIndividualPlayer pins the rule to one designated player.
	TargetScopeIndividualPlayer
)

// Label returns a stable label for a target scope.
func (s TargetScope) Label() string {
	switch s {
	case TargetScopeAllPlayers:
		return "ALL_PLAYERS"
	case TargetScopeByPosition:
		return "BY_POSITION"
	case TargetScopeIndividualPlayer:
		return "INDIVIDUAL_PLAYER"
	default:
		return "UNSPECIFIED"
	}
}

// TargetScopeFromLabel parses a string label into a TargetScope.
// It trims whitespace and matches case-insensitively.
func TargetScopeFromLabel(value string) TargetScope {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ALL_PLAYERS":
		return TargetScopeAllPlayers
	case "BY_POSITION":
		return TargetScopeByPosition
	case "INDIVIDUAL_PLAYER":
		return TargetScopeIndividualPlayer
	default:
		return TargetScopeUnspecified
	}
}

// Award is the point award of a rule: a flat value, or a value multiplied by
// the actual per-player reading of MultiplierVariable. The explicit multiplier
// source replaces inferring intent from condition shape.
type Award struct {
	// Points is the signed base point value.
	Points int
	// MultiplierVariable, when set, names the player-scope variable whose
	// actual value multiplies Points. Empty means a flat award.
	MultiplierVariable string
}

// Multiplied reports whether the award scales with a variable's value.
func (a Award) Multiplied() bool {
	return strings.TrimSpace(a.MultiplierVariable) != ""
}

// Rule is a named condition-to-point-award mapping owned by a team.
type Rule struct {
	ID          string
	TeamID      string
	Name        string
	Description string
	Category    Category
	Award       Award
	TargetScope TargetScope
	// TargetPositions holds the position set for BY_POSITION rules.
	TargetPositions []position.Position
	// TargetPlayerID pins the target for INDIVIDUAL_PLAYER rules.
	TargetPlayerID string
	// Conditions is the ordered condition list; all must pass.
	Conditions []condition.Condition
	Active     bool
}

// Validate returns the aggregated list of authoring issues for a rule.
// An empty list means the rule is structurally sound; the caller decides
// whether issues block the save.
func Validate(r Rule) []string {
	var issues []string
	if strings.TrimSpace(r.Name) == "" {
		issues = append(issues, "rule name is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		issues = append(issues, "rule description is required")
	}
	switch r.Category {
	case CategoryResult, CategoryPerformance:
		if len(r.Conditions) == 0 {
			issues = append(issues, "at least one condition is required for "+r.Category.Label()+" rules")
		}
	case CategoryManual:
		// Manual rules are never auto-evaluated and carry no conditions.
	default:
		issues = append(issues, "rule category is required")
	}
	if r.TargetScope == TargetScopeByPosition && len(r.TargetPositions) == 0 {
		issues = append(issues, "at least one target position is required for BY_POSITION rules")
	}
	if r.TargetScope == TargetScopeIndividualPlayer && strings.TrimSpace(r.TargetPlayerID) == "" {
		issues = append(issues, "a target player is required for INDIVIDUAL_PLAYER rules")
	}
	for i, cond := range r.Conditions {
		if strings.TrimSpace(cond.Variable) == "" {
			issues = append(issues, conditionIssue(i, "variable is required"))
		}
		if cond.Operator == condition.OperatorUnspecified {
			issues = append(issues, conditionIssue(i, "operator is required"))
		}
		if cond.Scope == variable.ScopeUnspecified {
			issues = append(issues, conditionIssue(i, "scope is required"))
		}
	}
	return issues
}

func conditionIssue(index int, message string) string {
	return fmt.Sprintf("condition %d: %s", index+1, message)
}
