// Package profile defines club-owned rules profiles: named bundles of rule
// overrides used to compute one leaderboard's totals.
package profile

import (
	"strings"

	apperrors "github.com/teamtally/teamtally/internal/platform/errors"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
)

var (
	// ErrEmptyName indicates a missing profile name.
	ErrEmptyName = apperrors.New(apperrors.CodeProfileNameEmpty, "profile name is required")
	// ErrEmptyClubID indicates a missing owning club.
	ErrEmptyClubID = apperrors.New(apperrors.CodeProfileEmptyClubID, "club id is required")
)

// Override layers per-profile scoring on top of a global rule.
type Override struct {
	RuleID string
	// CustomPoints replaces the rule's base point value when set.
	CustomPoints *int
	// Enabled gates whether the profile considers the rule at all.
	Enabled bool
}

// Profile is a named, club-owned bundle of rule overrides.
type Profile struct {
	ID     string
	ClubID string
	Name   string
	// ClubDefault marks the club-wide comparison profile. At most one
	// profile per club may carry it.
	ClubDefault bool
	Overrides   map[string]Override
}

// Normalize trims identifying fields and validates required ones.
func Normalize(p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.ClubID = strings.TrimSpace(p.ClubID)
	if p.Name == "" {
		return Profile{}, ErrEmptyName
	}
	if p.ClubID == "" {
		return Profile{}, ErrEmptyClubID
	}
	return p, nil
}

// RuleEnabled reports whether the profile considers a rule. Rules without an
// override entry are not part of the profile.
func (p Profile) RuleEnabled(ruleID string) bool {
	override, ok := p.Overrides[ruleID]
	return ok && override.Enabled
}

// EffectivePoints returns the per-instance point value of a rule under this
// profile: the override's custom points when set, else the rule's base value.
func (p Profile) EffectivePoints(r rule.Rule) int {
	if override, ok := p.Overrides[r.ID]; ok && override.CustomPoints != nil {
		return *override.CustomPoints
	}
	return r.Award.Points
}

// EnabledRules filters a rule set down to the rules this profile considers.
func (p Profile) EnabledRules(rules []rule.Rule) []rule.Rule {
	var enabled []rule.Rule
	for _, r := range rules {
		if p.RuleEnabled(r.ID) {
			enabled = append(enabled, r)
		}
	}
	return enabled
}
