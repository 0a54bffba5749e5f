package ledger

import (
	"fmt"
	"testing"

	apperrors "github.com/teamtally/teamtally/internal/platform/errors"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
)

func intPtr(v int) *int { return &v }

func sequentialIDs() func() (string, error) {
	next := 0
	return func() (string, error) {
		next++
		return fmt.Sprintf("assignment-%d", next), nil
	}
}

func scenarioRules() []rule.Rule {
	return []rule.Rule{
		{ID: "rule-goal", Name: "Goal Scored", Award: rule.Award{Points: 3}},
		{ID: "rule-cs", Name: "Clean Sheet", Award: rule.Award{Points: 4}},
	}
}

// Team profile overrides Goal Scored to 4 points; club profile keeps base values.
func scenarioProfiles() (*profile.Profile, *profile.Profile) {
	team := &profile.Profile{
		ID:     "profile-team",
		ClubID: "club-1",
		Name:   "Team Default",
		Overrides: map[string]profile.Override{
			"rule-goal": {RuleID: "rule-goal", Enabled: true, CustomPoints: intPtr(4)},
			"rule-cs":   {RuleID: "rule-cs", Enabled: true},
		},
	}
	club := &profile.Profile{
		ID:          "profile-club",
		ClubID:      "club-1",
		Name:        "Club Default",
		ClubDefault: true,
		Overrides: map[string]profile.Override{
			"rule-goal": {RuleID: "rule-goal", Enabled: true},
			"rule-cs":   {RuleID: "rule-cs", Enabled: true},
		},
	}
	return team, club
}

func TestAssembleDualProfileScenario(t *testing.T) {
	team, club := scenarioProfiles()
	entries, err := Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual: []ManualAssignment{
			{RuleID: "rule-goal", PlayerID: "forward", Count: 2},
		},
		Automatic: []rule.PlayerResult{
			{PlayerID: "keeper", RuleID: "rule-cs", Quantity: 1, Points: 4, Reason: "Clean Sheet: goalsAgainst=0 == 0"},
		},
		NewID: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// 2 manual siblings + 2 automatic siblings.
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	teamTotals := Totals(entries, PointTypeTeam)
	clubTotals := Totals(entries, PointTypeClub)
	if teamTotals["forward"] != 8 {
		t.Errorf("TEAM forward total = %d, want 2 x 4 = 8", teamTotals["forward"])
	}
	if clubTotals["forward"] != 6 {
		t.Errorf("CLUB forward total = %d, want 2 x 3 = 6", clubTotals["forward"])
	}
	if teamTotals["keeper"] != 4 || clubTotals["keeper"] != 4 {
		t.Errorf("clean sheet should award 4 per profile, got team=%d club=%d",
			teamTotals["keeper"], clubTotals["keeper"])
	}
}

func TestAssembleManualSiblingsShareAssignmentID(t *testing.T) {
	team, club := scenarioProfiles()
	entries, err := Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual: []ManualAssignment{
			{RuleID: "rule-goal", PlayerID: "forward", Count: 2},
			{RuleID: "rule-goal", PlayerID: "winger", Count: 1},
		},
		NewID: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	byAssignment := make(map[string][]Entry)
	for _, entry := range entries {
		if !entry.Manual {
			t.Fatalf("unexpected automatic entry %+v", entry)
		}
		byAssignment[entry.AssignmentID] = append(byAssignment[entry.AssignmentID], entry)
	}
	if len(byAssignment) != 2 {
		t.Fatalf("got %d assignment groups, want 2", len(byAssignment))
	}
	for assignmentID, siblings := range byAssignment {
		if len(siblings) != 2 {
			t.Errorf("assignment %s has %d siblings, want TEAM+CLUB pair", assignmentID, len(siblings))
		}
		if siblings[0].PointType == siblings[1].PointType {
			t.Errorf("siblings should span both point types, got %v twice", siblings[0].PointType)
		}
		if siblings[0].InstanceCount != siblings[1].InstanceCount {
			t.Errorf("siblings should agree on the instance count")
		}
	}
}

func TestAssembleAbsentProfileContributesNothing(t *testing.T) {
	_, club := scenarioProfiles()
	entries, err := Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		ClubProfile: club,
		Manual: []ManualAssignment{
			{RuleID: "rule-goal", PlayerID: "forward", Count: 1},
		},
		NewID: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].PointType != PointTypeClub {
		t.Errorf("entry point type = %v, want CLUB only", entries[0].PointType)
	}
}

func TestAssembleSkipsDisabledAndUnknownRules(t *testing.T) {
	team, club := scenarioProfiles()
	club.Overrides["rule-goal"] = profile.Override{RuleID: "rule-goal", Enabled: false}

	entries, err := Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual: []ManualAssignment{
			{RuleID: "rule-goal", PlayerID: "forward", Count: 1},
			{RuleID: "rule-deleted", PlayerID: "forward", Count: 3},
		},
		NewID: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (TEAM only, unknown rule dropped)", len(entries))
	}
	if entries[0].PointType != PointTypeTeam {
		t.Errorf("disabled club rule should contribute no CLUB entry")
	}
}

func TestAssembleZeroCountSkippedNegativeRejected(t *testing.T) {
	team, club := scenarioProfiles()

	entries, err := Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual:      []ManualAssignment{{RuleID: "rule-goal", PlayerID: "forward", Count: 0}},
		NewID:       sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("zero-count assignment should contribute nothing, got %v", entries)
	}

	_, err = Assemble(AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual:      []ManualAssignment{{RuleID: "rule-goal", PlayerID: "forward", Count: -1}},
		NewID:       sequentialIDs(),
	})
	if !apperrors.IsCode(err, apperrors.CodeAssignmentInvalidCount) {
		t.Errorf("negative count should be rejected, got %v", err)
	}
}

func TestAssembleIdempotentForIdenticalInput(t *testing.T) {
	team, club := scenarioProfiles()
	input := AssembleInput{
		MatchID:     "match-1",
		Rules:       scenarioRules(),
		TeamProfile: team,
		ClubProfile: club,
		Manual: []ManualAssignment{
			{RuleID: "rule-goal", PlayerID: "forward", Count: 2},
		},
		Automatic: []rule.PlayerResult{
			{PlayerID: "keeper", RuleID: "rule-cs", Quantity: 1, Points: 4, Reason: "Clean Sheet"},
		},
	}

	input.NewID = sequentialIDs()
	first, err := Assemble(input)
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	input.NewID = sequentialIDs()
	second, err := Assemble(input)
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs between completions:\n  %+v\n  %+v", i, first[i], second[i])
		}
	}
}
