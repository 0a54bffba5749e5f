package mcp

import (
	"context"
	"testing"

	"github.com/teamtally/teamtally/internal/services/scoring/app"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

type stubService struct {
	rules      []rule.Rule
	completion app.CompleteMatchResult
	reopen     app.ReopenMatchResult
	totals     []storage.PlayerTotal

	lastInput     app.CompleteMatchInput
	lastPointType ledger.PointType
	completed     bool
	previewed     bool
}

func (s *stubService) ListRules(_ context.Context, _ string) ([]rule.Rule, error) {
	return s.rules, nil
}

func (s *stubService) Preview(_ context.Context, in app.CompleteMatchInput) (app.CompleteMatchResult, error) {
	s.previewed = true
	s.lastInput = in
	return s.completion, nil
}

func (s *stubService) CompleteMatch(_ context.Context, in app.CompleteMatchInput) (app.CompleteMatchResult, error) {
	s.completed = true
	s.lastInput = in
	return s.completion, nil
}

func (s *stubService) ReopenMatch(_ context.Context, _ string) (app.ReopenMatchResult, error) {
	return s.reopen, nil
}

func (s *stubService) Leaderboard(_ context.Context, _ string, pointType ledger.PointType) ([]storage.PlayerTotal, error) {
	s.lastPointType = pointType
	return s.totals, nil
}

func TestNewRequiresService(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error for nil service")
	}
	server, err := New(&stubService{}, Config{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if server.config.Transport != TransportStdio {
		t.Errorf("default transport = %s, want stdio", server.config.Transport)
	}
	if server.config.HTTPAddr == "" {
		t.Error("HTTP address default missing")
	}
}

func TestListRulesHandlerMapsRules(t *testing.T) {
	service := &stubService{rules: []rule.Rule{
		{ID: "rule-goal", Name: "Goal Scored", Category: rule.CategoryPerformance,
			Award:       rule.Award{Points: 3, MultiplierVariable: "goalsScored"},
			TargetScope: rule.TargetScopeAllPlayers, Active: true},
	}}

	_, result, err := ListRulesHandler(service)(context.Background(), nil, ListRulesInput{TeamID: "team-1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(result.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(result.Rules))
	}
	got := result.Rules[0]
	if got.Category != "PERFORMANCE" || got.TargetScope != "ALL_PLAYERS" || got.MultiplierVariable != "goalsScored" {
		t.Errorf("unexpected summary %+v", got)
	}
}

func TestValidateRuleHandler(t *testing.T) {
	handler := ValidateRuleHandler()

	_, valid, err := handler(context.Background(), nil, ValidateRuleInput{
		Name: "Goal Scored", Description: "Per goal", Category: "PERFORMANCE",
		Points: 3, TargetScope: "ALL_PLAYERS",
		Conditions: []ConditionInput{
			{Variable: "goalsScored", Operator: ">", Value: 0, Scope: "PLAYER"},
		},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !valid.Valid || len(valid.Issues) != 0 {
		t.Errorf("sound draft reported issues: %+v", valid.Issues)
	}

	_, invalid, err := handler(context.Background(), nil, ValidateRuleInput{
		Category:    "PERFORMANCE",
		TargetScope: "BY_POSITION",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if invalid.Valid {
		t.Fatal("draft with missing fields reported valid")
	}
	// Name, description, conditions, and positions are all missing; every
	// issue must be reported in one pass.
	if len(invalid.Issues) < 4 {
		t.Errorf("got %d issues, want all of them at once: %v", len(invalid.Issues), invalid.Issues)
	}
}

func TestCompleteMatchHandlerConvertsInput(t *testing.T) {
	service := &stubService{completion: app.CompleteMatchResult{
		MatchID: "match-1",
		Entries: []ledger.Entry{
			{PlayerID: "forward", RuleID: "rule-goal", Points: 8, InstanceCount: 2,
				PointType: ledger.PointTypeTeam, Manual: true, Notes: "Manual assignment: 2 instances"},
		},
		TeamTotals: map[string]int{"forward": 8},
		ClubTotals: map[string]int{"forward": 6},
	}}

	input := CompletionInput{
		MatchID:  "match-1",
		GoalsFor: 2,
		Stats: []StatInput{
			{PlayerID: "forward", GoalsScored: 2, Played: true, Custom: map[string]string{"trainingAttendance": "3"}},
		},
		Manual: []ManualInput{{RuleID: "rule-motm", PlayerID: "keeper", Count: 1}},
	}
	_, result, err := CompleteMatchHandler(service)(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !service.completed {
		t.Fatal("service was not called")
	}
	if len(service.lastInput.Stats) != 1 || service.lastInput.Stats[0].Custom["trainingAttendance"] != "3" {
		t.Errorf("stat conversion lost data: %+v", service.lastInput.Stats)
	}
	if len(service.lastInput.Manual) != 1 || service.lastInput.Manual[0].RuleID != "rule-motm" {
		t.Errorf("manual conversion lost data: %+v", service.lastInput.Manual)
	}
	if len(result.Entries) != 1 || result.Entries[0].PointType != "TEAM" || !result.Entries[0].Manual {
		t.Errorf("entry conversion wrong: %+v", result.Entries)
	}
	if result.TeamTotals["forward"] != 8 || result.ClubTotals["forward"] != 6 {
		t.Errorf("totals lost: %+v %+v", result.TeamTotals, result.ClubTotals)
	}
}

func TestPreviewHandlerDoesNotComplete(t *testing.T) {
	service := &stubService{}
	if _, _, err := PreviewMatchScoringHandler(service)(context.Background(), nil, CompletionInput{MatchID: "match-1"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if service.completed || !service.previewed {
		t.Errorf("preview handler should call Preview only: completed=%v previewed=%v",
			service.completed, service.previewed)
	}
}

func TestReopenMatchHandlerMapsAssignments(t *testing.T) {
	service := &stubService{reopen: app.ReopenMatchResult{
		Match: storage.MatchRecord{ID: "match-1", Status: storage.MatchStatusScheduled},
		Assignments: []ledger.EditableAssignment{
			{RuleID: "rule-motm", PlayerID: "keeper", Count: 2},
		},
	}}

	_, result, err := ReopenMatchHandler(service)(context.Background(), nil, ReopenMatchInput{MatchID: "match-1"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.Status != string(storage.MatchStatusScheduled) {
		t.Errorf("status = %s, want scheduled", result.Status)
	}
	if len(result.Assignments) != 1 || result.Assignments[0].Count != 2 {
		t.Errorf("assignments lost: %+v", result.Assignments)
	}
}

func TestTeamLeaderboardHandlerValidatesPointType(t *testing.T) {
	service := &stubService{totals: []storage.PlayerTotal{
		{PlayerID: "forward", PlayerName: "Nine", Points: 12},
	}}
	handler := TeamLeaderboardHandler(service)

	if _, _, err := handler(context.Background(), nil, TeamLeaderboardInput{TeamID: "team-1", PointType: "BOTH"}); err == nil {
		t.Error("invalid point type should fail")
	}

	_, result, err := handler(context.Background(), nil, TeamLeaderboardInput{TeamID: "team-1", PointType: "club"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if service.lastPointType != ledger.PointTypeClub {
		t.Errorf("point type = %v, want CLUB", service.lastPointType)
	}
	if len(result.Rows) != 1 || result.Rows[0].PlayerName != "Nine" {
		t.Errorf("rows lost: %+v", result.Rows)
	}
}
