// Package ledger assembles point-ledger entries at match completion and
// reconstructs editable assignments when a completed match is reopened.
package ledger

import (
	"fmt"
	"strings"

	apperrors "github.com/teamtally/teamtally/internal/platform/errors"
	"github.com/teamtally/teamtally/internal/platform/id"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
)

// PointType identifies which profile produced a ledger entry.
type PointType int

const (
	// PointTypeUnspecified represents an invalid point type value.
	PointTypeUnspecified PointType = iota
	// PointTypeTeam marks entries produced by the team's default profile.
	PointTypeTeam
	// PointTypeClub marks entries produced by the club's default profile.
	PointTypeClub
)

// Label returns a stable label for a point type.
func (p PointType) Label() string {
	switch p {
	case PointTypeTeam:
		return "TEAM"
	case PointTypeClub:
		return "CLUB"
	default:
		return "UNSPECIFIED"
	}
}

// PointTypeFromLabel parses a string label into a PointType.
// It trims whitespace and matches case-insensitively.
func PointTypeFromLabel(value string) PointType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TEAM":
		return PointTypeTeam
	case "CLUB":
		return PointTypeClub
	default:
		return PointTypeUnspecified
	}
}

// Entry is one persisted point award tied to a player, match, rule, and
// profile. The full batch for a match is atomically replaced on every
// (re-)completion and never incrementally patched.
type Entry struct {
	PlayerID string
	MatchID  string
	RuleID   string
	// AssignmentID links the TEAM and CLUB siblings of one manual
	// assignment. Empty for automatic entries.
	AssignmentID string
	Points       int
	// InstanceCount is the structured occurrence count behind Points.
	InstanceCount int
	PointType     PointType
	ProfileID     string
	Manual        bool
	// Notes is free-form audit text shown alongside the award.
	Notes string
}

// ManualAssignment is a captain-entered count of rule occurrences for one
// player in one match, bypassing automatic condition evaluation.
type ManualAssignment struct {
	RuleID   string
	PlayerID string
	Count    int
}

// AssembleInput carries everything needed to build one match's replacement
// ledger batch.
type AssembleInput struct {
	MatchID string
	// Rules is the team's full rule set; assignments referencing unknown
	// rules contribute no entries.
	Rules []rule.Rule
	// TeamProfile and ClubProfile are the applicable default profiles.
	// Either may be nil; an absent profile contributes no entries for its
	// point type.
	TeamProfile *profile.Profile
	ClubProfile *profile.Profile
	// Automatic holds the results of automatic rule evaluation.
	Automatic []rule.PlayerResult
	// Manual holds the explicit per-player rule counts from the wizard.
	Manual []ManualAssignment
	// NewID generates assignment identifiers; defaults to the platform
	// generator when nil.
	NewID func() (string, error)
}

// Assemble produces the full ledger batch for one match completion: one entry
// per (manual assignment or automatic result) per applicable profile with the
// rule enabled. Per-instance point values come from the profile's effective
// points, so the same facts can settle differently per leaderboard.
func Assemble(in AssembleInput) ([]Entry, error) {
	newID := in.NewID
	if newID == nil {
		newID = id.NewID
	}

	rulesByID := make(map[string]rule.Rule, len(in.Rules))
	for _, r := range in.Rules {
		rulesByID[r.ID] = r
	}

	type scopedProfile struct {
		profile   *profile.Profile
		pointType PointType
	}
	profiles := []scopedProfile{
		{in.TeamProfile, PointTypeTeam},
		{in.ClubProfile, PointTypeClub},
	}

	var entries []Entry

	for _, assignment := range in.Manual {
		if assignment.Count < 0 {
			return nil, apperrors.WithMetadata(
				apperrors.CodeAssignmentInvalidCount,
				fmt.Sprintf("manual assignment count must not be negative: %d", assignment.Count),
				map[string]string{"RuleID": assignment.RuleID, "PlayerID": assignment.PlayerID},
			)
		}
		if assignment.Count == 0 {
			continue
		}
		r, ok := rulesByID[assignment.RuleID]
		if !ok {
			continue
		}

		assignmentID, err := newID()
		if err != nil {
			return nil, fmt.Errorf("generate assignment id: %w", err)
		}
		for _, scoped := range profiles {
			if scoped.profile == nil || !scoped.profile.RuleEnabled(r.ID) {
				continue
			}
			perInstance := scoped.profile.EffectivePoints(r)
			entries = append(entries, Entry{
				PlayerID:      assignment.PlayerID,
				MatchID:       in.MatchID,
				RuleID:        r.ID,
				AssignmentID:  assignmentID,
				Points:        assignment.Count * perInstance,
				InstanceCount: assignment.Count,
				PointType:     scoped.pointType,
				ProfileID:     scoped.profile.ID,
				Manual:        true,
				Notes:         fmt.Sprintf("Manual assignment: %d instances", assignment.Count),
			})
		}
	}

	for _, result := range in.Automatic {
		r, ok := rulesByID[result.RuleID]
		if !ok {
			continue
		}
		for _, scoped := range profiles {
			if scoped.profile == nil || !scoped.profile.RuleEnabled(r.ID) {
				continue
			}
			perInstance := scoped.profile.EffectivePoints(r)
			entries = append(entries, Entry{
				PlayerID:      result.PlayerID,
				MatchID:       in.MatchID,
				RuleID:        r.ID,
				Points:        result.Quantity * perInstance,
				InstanceCount: result.Quantity,
				PointType:     scoped.pointType,
				ProfileID:     scoped.profile.ID,
				Manual:        false,
				Notes:         result.Reason,
			})
		}
	}

	return entries, nil
}

// Totals sums entry points per point type, keyed by player.
func Totals(entries []Entry, pointType PointType) map[string]int {
	totals := make(map[string]int)
	for _, entry := range entries {
		if entry.PointType == pointType {
			totals[entry.PlayerID] += entry.Points
		}
	}
	return totals
}
