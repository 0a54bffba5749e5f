package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/condition"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scoring.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestTeamRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	team := storage.TeamRecord{
		ID:               "team-1",
		ClubID:           "club-1",
		Name:             "Rovers U15",
		DefaultProfileID: "profile-team",
	}
	if err := store.PutTeam(ctx, team); err != nil {
		t.Fatalf("put team: %v", err)
	}

	got, err := store.GetTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if got.Name != "Rovers U15" || got.ClubID != "club-1" || got.DefaultProfileID != "profile-team" {
		t.Errorf("unexpected team %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated on write")
	}

	if _, err := store.GetTeam(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing team should return ErrNotFound, got %v", err)
	}
}

func TestPlayerListOrderedByName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	players := []storage.PlayerRecord{
		{ID: "p1", TeamID: "team-1", Name: "Zola", PositionCode: position.PositionForward.Code(), Active: true},
		{ID: "p2", TeamID: "team-1", Name: "Adams", PositionCode: position.PositionGoalkeeper.Code(), Active: true},
		{ID: "p3", TeamID: "other", Name: "Banks", Active: true},
	}
	for _, player := range players {
		if err := store.PutPlayer(ctx, player); err != nil {
			t.Fatalf("put player %s: %v", player.ID, err)
		}
	}

	listed, err := store.ListPlayersByTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d players, want 2", len(listed))
	}
	if listed[0].Name != "Adams" || listed[1].Name != "Zola" {
		t.Errorf("players not ordered by name: %s, %s", listed[0].Name, listed[1].Name)
	}
}

func TestVariableRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	descriptor := variable.Descriptor{
		Key:      "trainingAttendance",
		Label:    "Training Attendance",
		Scope:    variable.ScopePlayer,
		DataType: variable.DataTypeNumber,
		Default:  variable.Number(0),
		Active:   true,
	}
	if err := store.PutVariable(ctx, "team-1", descriptor); err != nil {
		t.Fatalf("put variable: %v", err)
	}

	builtIn := descriptor
	builtIn.Key = "goalsScored"
	builtIn.BuiltIn = true
	if err := store.PutVariable(ctx, "team-1", builtIn); err == nil {
		t.Error("built-in descriptor should be rejected")
	}

	listed, err := store.ListVariablesByTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("list variables: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d variables, want 1", len(listed))
	}
	got := listed[0]
	if got.Key != "trainingAttendance" || got.Scope != variable.ScopePlayer || got.DataType != variable.DataTypeNumber {
		t.Errorf("unexpected descriptor %+v", got)
	}
	if !got.Active || got.BuiltIn {
		t.Errorf("descriptor flags wrong: %+v", got)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := rule.Rule{
		ID:          "rule-cs",
		TeamID:      "team-1",
		Name:        "Clean Sheet",
		Description: "Defenders and keepers on a shutout",
		Category:    rule.CategoryPerformance,
		Award:       rule.Award{Points: 4},
		TargetScope: rule.TargetScopeByPosition,
		TargetPositions: []position.Position{
			position.PositionGoalkeeper,
			position.PositionDefender,
		},
		Conditions: []condition.Condition{
			{Variable: variable.KeyGoalsAgainst, Operator: condition.OperatorEq, Value: 0, Scope: variable.ScopeMatch},
			{Variable: variable.KeyPlayed, Operator: condition.OperatorEq, Value: 1, Scope: variable.ScopePlayer},
		},
		Active: true,
	}
	if err := store.PutRule(ctx, want); err != nil {
		t.Fatalf("put rule: %v", err)
	}

	got, err := store.GetRule(ctx, "rule-cs")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got.Name != want.Name || got.Category != want.Category || got.Award != want.Award {
		t.Errorf("unexpected rule %+v", got)
	}
	if len(got.TargetPositions) != 2 || got.TargetPositions[0] != position.PositionGoalkeeper {
		t.Errorf("target positions lost: %+v", got.TargetPositions)
	}
	if len(got.Conditions) != 2 {
		t.Fatalf("got %d conditions, want 2", len(got.Conditions))
	}
	if got.Conditions[0].Operator != condition.OperatorEq || got.Conditions[0].Scope != variable.ScopeMatch {
		t.Errorf("condition decode wrong: %+v", got.Conditions[0])
	}

	multiplied := rule.Rule{
		ID:       "rule-goal",
		TeamID:   "team-1",
		Name:     "Goal Scored",
		Category: rule.CategoryPerformance,
		Award:    rule.Award{Points: 3, MultiplierVariable: variable.KeyGoalsScored},
		Conditions: []condition.Condition{
			{Variable: variable.KeyGoalsScored, Operator: condition.OperatorGt, Value: 0, Scope: variable.ScopePlayer},
		},
		TargetScope: rule.TargetScopeAllPlayers,
		Active:      true,
	}
	if err := store.PutRule(ctx, multiplied); err != nil {
		t.Fatalf("put multiplied rule: %v", err)
	}
	gotMultiplied, err := store.GetRule(ctx, "rule-goal")
	if err != nil {
		t.Fatalf("get multiplied rule: %v", err)
	}
	if !gotMultiplied.Award.Multiplied() || gotMultiplied.Award.MultiplierVariable != variable.KeyGoalsScored {
		t.Errorf("multiplier source lost: %+v", gotMultiplied.Award)
	}

	listed, err := store.ListRulesByTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d rules, want 2", len(listed))
	}
}

func TestProfileRoundTripAndClubDefaultUniqueness(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	custom := 4
	first := profile.Profile{
		ID:          "profile-club",
		ClubID:      "club-1",
		Name:        "Club Default",
		ClubDefault: true,
		Overrides: map[string]profile.Override{
			"rule-goal": {RuleID: "rule-goal", Enabled: true, CustomPoints: &custom},
			"rule-cs":   {RuleID: "rule-cs", Enabled: false},
		},
	}
	if err := store.PutProfile(ctx, first); err != nil {
		t.Fatalf("put profile: %v", err)
	}

	got, err := store.GetClubDefaultProfile(ctx, "club-1")
	if err != nil {
		t.Fatalf("get club default: %v", err)
	}
	if got.ID != "profile-club" || !got.ClubDefault {
		t.Errorf("unexpected club default %+v", got)
	}
	override, ok := got.Overrides["rule-goal"]
	if !ok || override.CustomPoints == nil || *override.CustomPoints != 4 || !override.Enabled {
		t.Errorf("override round trip wrong: %+v", override)
	}
	if got.Overrides["rule-cs"].Enabled {
		t.Error("disabled override came back enabled")
	}

	second := profile.Profile{
		ID:          "profile-other",
		ClubID:      "club-1",
		Name:        "Second Default",
		ClubDefault: true,
	}
	if err := store.PutProfile(ctx, second); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second club default should conflict, got %v", err)
	}

	if _, err := store.GetClubDefaultProfile(ctx, "club-none"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("club without default should return ErrNotFound, got %v", err)
	}
}

func TestCompleteMatchReplacesSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	match := storage.MatchRecord{ID: "match-1", TeamID: "team-1", Opponent: "United"}
	if err := store.PutMatch(ctx, match); err != nil {
		t.Fatalf("put match: %v", err)
	}

	first := storage.MatchCompletion{
		MatchID:      "match-1",
		GoalsFor:     2,
		GoalsAgainst: 0,
		Stats: []storage.PlayerStatRecord{
			{MatchID: "match-1", PlayerID: "forward", GoalsScored: 2, Played: true},
		},
		Ledger: []ledger.Entry{
			{MatchID: "match-1", PlayerID: "forward", RuleID: "rule-goal", Points: 8,
				InstanceCount: 2, PointType: ledger.PointTypeTeam, ProfileID: "profile-team"},
			{MatchID: "match-1", PlayerID: "forward", RuleID: "rule-goal", Points: 6,
				InstanceCount: 2, PointType: ledger.PointTypeClub, ProfileID: "profile-club"},
		},
	}
	if err := store.CompleteMatch(ctx, first); err != nil {
		t.Fatalf("complete match: %v", err)
	}

	got, err := store.GetMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Status != storage.MatchStatusCompleted || got.GoalsFor != 2 {
		t.Errorf("match not marked completed: %+v", got)
	}

	// Re-completion with a corrected score replaces the batch instead of
	// appending to it.
	second := storage.MatchCompletion{
		MatchID:      "match-1",
		GoalsFor:     3,
		GoalsAgainst: 1,
		Stats: []storage.PlayerStatRecord{
			{MatchID: "match-1", PlayerID: "forward", GoalsScored: 3, Played: true},
		},
		Ledger: []ledger.Entry{
			{MatchID: "match-1", PlayerID: "forward", RuleID: "rule-goal", Points: 12,
				InstanceCount: 3, PointType: ledger.PointTypeTeam, ProfileID: "profile-team"},
		},
	}
	if err := store.CompleteMatch(ctx, second); err != nil {
		t.Fatalf("re-complete match: %v", err)
	}

	entries, err := store.ListLedgerByMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries after re-completion, want 1", len(entries))
	}
	if entries[0].Points != 12 || entries[0].InstanceCount != 3 || entries[0].PointType != ledger.PointTypeTeam {
		t.Errorf("unexpected surviving entry %+v", entries[0])
	}

	stats, err := store.ListStatsByMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(stats) != 1 || stats[0].GoalsScored != 3 {
		t.Errorf("stats not replaced: %+v", stats)
	}
}

func TestCompleteMatchUnknownMatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.CompleteMatch(ctx, storage.MatchCompletion{MatchID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("completing unknown match should return ErrNotFound, got %v", err)
	}
}

func TestReopenMatchKeepsLedgerUntilNextCompletion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutMatch(ctx, storage.MatchRecord{ID: "match-1", TeamID: "team-1"}); err != nil {
		t.Fatalf("put match: %v", err)
	}
	completion := storage.MatchCompletion{
		MatchID: "match-1",
		Ledger: []ledger.Entry{
			{MatchID: "match-1", PlayerID: "forward", RuleID: "rule-goal", Points: 8,
				InstanceCount: 2, PointType: ledger.PointTypeTeam, Manual: true, AssignmentID: "a1"},
		},
	}
	if err := store.CompleteMatch(ctx, completion); err != nil {
		t.Fatalf("complete match: %v", err)
	}

	if err := store.ReopenMatch(ctx, "match-1"); err != nil {
		t.Fatalf("reopen match: %v", err)
	}
	got, err := store.GetMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Status != storage.MatchStatusScheduled {
		t.Errorf("match status = %s, want scheduled", got.Status)
	}

	entries, err := store.ListLedgerByMatch(ctx, "match-1")
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("reopening should keep the prior ledger for reconciliation, got %d entries", len(entries))
	}

	if err := store.ReopenMatch(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("reopening unknown match should return ErrNotFound, got %v", err)
	}
}

func TestLeaderboardByTeam(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutPlayer(ctx, storage.PlayerRecord{ID: "forward", TeamID: "team-1", Name: "Nine", Active: true}); err != nil {
		t.Fatalf("put player: %v", err)
	}
	if err := store.PutPlayer(ctx, storage.PlayerRecord{ID: "keeper", TeamID: "team-1", Name: "One", Active: true}); err != nil {
		t.Fatalf("put player: %v", err)
	}

	for i, matchID := range []string{"match-1", "match-2"} {
		if err := store.PutMatch(ctx, storage.MatchRecord{ID: matchID, TeamID: "team-1"}); err != nil {
			t.Fatalf("put match: %v", err)
		}
		completion := storage.MatchCompletion{
			MatchID: matchID,
			Ledger: []ledger.Entry{
				{MatchID: matchID, PlayerID: "forward", RuleID: "rule-goal", Points: 4 * (i + 1),
					InstanceCount: i + 1, PointType: ledger.PointTypeTeam},
				{MatchID: matchID, PlayerID: "keeper", RuleID: "rule-cs", Points: 4,
					InstanceCount: 1, PointType: ledger.PointTypeTeam},
				{MatchID: matchID, PlayerID: "forward", RuleID: "rule-goal", Points: 100,
					InstanceCount: 1, PointType: ledger.PointTypeClub},
			},
		}
		if err := store.CompleteMatch(ctx, completion); err != nil {
			t.Fatalf("complete %s: %v", matchID, err)
		}
	}

	totals, err := store.LeaderboardByTeam(ctx, "team-1", ledger.PointTypeTeam)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d leaderboard rows, want 2", len(totals))
	}
	if totals[0].PlayerID != "forward" || totals[0].Points != 12 {
		t.Errorf("top row = %+v, want forward with 12 TEAM points", totals[0])
	}
	if totals[1].PlayerID != "keeper" || totals[1].Points != 8 {
		t.Errorf("second row = %+v, want keeper with 8", totals[1])
	}
	if totals[0].PlayerName != "Nine" {
		t.Errorf("player name not joined: %+v", totals[0])
	}
}

func TestAppendTelemetryEvent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	event := storage.TelemetryEvent{
		Severity: "INFO",
		Event:    "match.completed",
		TeamID:   "team-1",
		MatchID:  "match-1",
		Detail:   "entries=4",
	}
	if err := store.AppendTelemetryEvent(ctx, event); err != nil {
		t.Fatalf("append telemetry event: %v", err)
	}
}
