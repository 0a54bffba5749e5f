package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/app"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/condition"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
)

const toolTimeout = 10 * time.Second

// ListRulesInput represents the MCP tool input for listing rules.
type ListRulesInput struct {
	TeamID string `json:"team_id" jsonschema:"team identifier"`
}

// RuleSummary is one rule in a list_rules result.
type RuleSummary struct {
	ID                 string `json:"id" jsonschema:"rule identifier"`
	Name               string `json:"name" jsonschema:"rule name"`
	Description        string `json:"description" jsonschema:"rule description"`
	Category           string `json:"category" jsonschema:"RESULT, PERFORMANCE, or MANUAL"`
	Points             int    `json:"points" jsonschema:"base point value per instance"`
	MultiplierVariable string `json:"multiplier_variable,omitempty" jsonschema:"variable whose value multiplies the points, empty for flat awards"`
	TargetScope        string `json:"target_scope" jsonschema:"ALL_PLAYERS, BY_POSITION, or INDIVIDUAL_PLAYER"`
	Active             bool   `json:"active" jsonschema:"whether the rule is evaluated"`
}

// ListRulesResult represents the MCP tool output for listing rules.
type ListRulesResult struct {
	Rules []RuleSummary `json:"rules" jsonschema:"the team's scoring rules"`
}

// ListRulesTool defines the MCP tool schema for listing rules.
func ListRulesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_rules",
		Description: "Lists a team's scoring rules with their categories, point awards, and targeting.",
	}
}

// ListRulesHandler executes a list rules request.
func ListRulesHandler(service ScoringService) mcp.ToolHandlerFor[ListRulesInput, ListRulesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRulesInput) (*mcp.CallToolResult, ListRulesResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		rules, err := service.ListRules(runCtx, input.TeamID)
		if err != nil {
			return nil, ListRulesResult{}, fmt.Errorf("list rules failed: %w", err)
		}

		result := ListRulesResult{Rules: make([]RuleSummary, 0, len(rules))}
		for _, r := range rules {
			result.Rules = append(result.Rules, RuleSummary{
				ID:                 r.ID,
				Name:               r.Name,
				Description:        r.Description,
				Category:           r.Category.Label(),
				Points:             r.Award.Points,
				MultiplierVariable: r.Award.MultiplierVariable,
				TargetScope:        r.TargetScope.Label(),
				Active:             r.Active,
			})
		}
		return nil, result, nil
	}
}

// ConditionInput is one condition in a validate_rule request.
type ConditionInput struct {
	Variable        string  `json:"variable" jsonschema:"variable key supplying the left operand"`
	Operator        string  `json:"operator" jsonschema:"comparison operator: > == < >= <= !="`
	Value           float64 `json:"value" jsonschema:"literal right operand, ignored when compare_variable is set"`
	CompareVariable string  `json:"compare_variable,omitempty" jsonschema:"variable supplying the right operand, same scope"`
	Scope           string  `json:"scope" jsonschema:"MATCH or PLAYER"`
}

// ValidateRuleInput represents the MCP tool input for validating a rule draft.
type ValidateRuleInput struct {
	Name               string           `json:"name" jsonschema:"rule name"`
	Description        string           `json:"description" jsonschema:"rule description"`
	Category           string           `json:"category" jsonschema:"RESULT, PERFORMANCE, or MANUAL"`
	Points             int              `json:"points" jsonschema:"base point value per instance"`
	MultiplierVariable string           `json:"multiplier_variable,omitempty" jsonschema:"player-scope variable multiplying the points"`
	TargetScope        string           `json:"target_scope" jsonschema:"ALL_PLAYERS, BY_POSITION, or INDIVIDUAL_PLAYER"`
	TargetPositions    []string         `json:"target_positions,omitempty" jsonschema:"position labels for BY_POSITION rules"`
	TargetPlayerID     string           `json:"target_player_id,omitempty" jsonschema:"player id for INDIVIDUAL_PLAYER rules"`
	Conditions         []ConditionInput `json:"conditions,omitempty" jsonschema:"ordered conditions, all must pass"`
}

// ValidateRuleResult represents the MCP tool output for rule validation.
type ValidateRuleResult struct {
	Valid  bool     `json:"valid" jsonschema:"whether the draft has no authoring issues"`
	Issues []string `json:"issues,omitempty" jsonschema:"aggregated authoring issues, empty when valid"`
}

// ValidateRuleTool defines the MCP tool schema for validating a rule draft.
func ValidateRuleTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_rule",
		Description: "Validates a rule draft and returns every authoring issue at once.",
	}
}

// ValidateRuleHandler executes a rule validation request. Validation is pure
// and never touches storage.
func ValidateRuleHandler() mcp.ToolHandlerFor[ValidateRuleInput, ValidateRuleResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidateRuleInput) (*mcp.CallToolResult, ValidateRuleResult, error) {
		draft := rule.Rule{
			Name:           input.Name,
			Description:    input.Description,
			Category:       rule.CategoryFromLabel(input.Category),
			Award:          rule.Award{Points: input.Points, MultiplierVariable: input.MultiplierVariable},
			TargetScope:    rule.TargetScopeFromLabel(input.TargetScope),
			TargetPlayerID: input.TargetPlayerID,
		}
		for _, label := range input.TargetPositions {
			draft.TargetPositions = append(draft.TargetPositions, position.FromLabel(label))
		}
		for _, cond := range input.Conditions {
			draft.Conditions = append(draft.Conditions, condition.Condition{
				Variable:        cond.Variable,
				Operator:        condition.OperatorFromSymbol(cond.Operator),
				Value:           cond.Value,
				CompareVariable: cond.CompareVariable,
				Scope:           variable.ScopeFromLabel(cond.Scope),
			})
		}

		issues := rule.Validate(draft)
		return nil, ValidateRuleResult{Valid: len(issues) == 0, Issues: issues}, nil
	}
}

// StatInput is one player's statistic line in a completion request.
type StatInput struct {
	PlayerID    string            `json:"player_id" jsonschema:"player identifier"`
	GoalsScored int               `json:"goals_scored" jsonschema:"goals scored by the player"`
	GoalAssists int               `json:"goal_assists" jsonschema:"assists by the player"`
	Cards       int               `json:"cards" jsonschema:"cards received"`
	Saves       int               `json:"saves" jsonschema:"saves made"`
	Tackles     int               `json:"tackles" jsonschema:"tackles made"`
	Played      bool              `json:"played" jsonschema:"whether the player participated"`
	Custom      map[string]string `json:"custom,omitempty" jsonschema:"raw values for custom player-scope variables keyed by variable key"`
}

// ManualInput is one manual assignment in a completion request.
type ManualInput struct {
	RuleID   string `json:"rule_id" jsonschema:"rule identifier"`
	PlayerID string `json:"player_id" jsonschema:"player identifier"`
	Count    int    `json:"count" jsonschema:"number of rule occurrences, must not be negative"`
}

// CompletionInput represents the MCP tool input shared by preview and
// completion.
type CompletionInput struct {
	MatchID      string            `json:"match_id" jsonschema:"match identifier"`
	GoalsFor     int               `json:"goals_for" jsonschema:"final goals scored by the team"`
	GoalsAgainst int               `json:"goals_against" jsonschema:"final goals conceded"`
	Stats        []StatInput       `json:"stats,omitempty" jsonschema:"per-player statistic lines"`
	Manual       []ManualInput     `json:"manual,omitempty" jsonschema:"explicit per-player rule counts"`
	Custom       map[string]string `json:"custom,omitempty" jsonschema:"raw values for custom match-scope variables"`
}

// EntryResult is one ledger entry in a completion result.
type EntryResult struct {
	PlayerID      string `json:"player_id" jsonschema:"player identifier"`
	RuleID        string `json:"rule_id" jsonschema:"rule identifier"`
	Points        int    `json:"points" jsonschema:"points awarded by this entry"`
	InstanceCount int    `json:"instance_count" jsonschema:"occurrence count behind the points"`
	PointType     string `json:"point_type" jsonschema:"TEAM or CLUB"`
	Manual        bool   `json:"manual" jsonschema:"whether the entry came from a manual assignment"`
	Notes         string `json:"notes,omitempty" jsonschema:"audit text"`
}

// CompletionResult represents the MCP tool output for preview and completion.
type CompletionResult struct {
	MatchID    string         `json:"match_id" jsonschema:"match identifier"`
	Entries    []EntryResult  `json:"entries" jsonschema:"the assembled ledger batch"`
	TeamTotals map[string]int `json:"team_totals" jsonschema:"TEAM points per player id"`
	ClubTotals map[string]int `json:"club_totals" jsonschema:"CLUB points per player id"`
}

// PreviewMatchScoringTool defines the MCP tool schema for a dry-run scoring
// evaluation.
func PreviewMatchScoringTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "preview_match_scoring",
		Description: "Evaluates scoring for a match without persisting anything, returning the would-be ledger and totals.",
	}
}

// PreviewMatchScoringHandler executes a scoring preview.
func PreviewMatchScoringHandler(service ScoringService) mcp.ToolHandlerFor[CompletionInput, CompletionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CompletionInput) (*mcp.CallToolResult, CompletionResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		result, err := service.Preview(runCtx, toAppInput(input))
		if err != nil {
			return nil, CompletionResult{}, fmt.Errorf("preview failed: %w", err)
		}
		return nil, toCompletionResult(result), nil
	}
}

// CompleteMatchTool defines the MCP tool schema for completing a match.
func CompleteMatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "complete_match",
		Description: "Completes a match: evaluates rules, assembles the dual-profile point ledger, and commits it atomically. Re-completing replaces the previous snapshot.",
	}
}

// CompleteMatchHandler executes the match completion workflow.
func CompleteMatchHandler(service ScoringService) mcp.ToolHandlerFor[CompletionInput, CompletionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CompletionInput) (*mcp.CallToolResult, CompletionResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		result, err := service.CompleteMatch(runCtx, toAppInput(input))
		if err != nil {
			return nil, CompletionResult{}, fmt.Errorf("complete match failed: %w", err)
		}
		return nil, toCompletionResult(result), nil
	}
}

// ReopenMatchInput represents the MCP tool input for reopening a match.
type ReopenMatchInput struct {
	MatchID string `json:"match_id" jsonschema:"match identifier"`
}

// AssignmentResult is one reconstructed manual assignment.
type AssignmentResult struct {
	RuleID   string `json:"rule_id" jsonschema:"rule identifier"`
	PlayerID string `json:"player_id" jsonschema:"player identifier"`
	Count    int    `json:"count" jsonschema:"reconstructed occurrence count"`
}

// ReopenMatchResult represents the MCP tool output for reopening a match.
type ReopenMatchResult struct {
	MatchID     string             `json:"match_id" jsonschema:"match identifier"`
	Status      string             `json:"status" jsonschema:"match status after reopening"`
	Assignments []AssignmentResult `json:"assignments" jsonschema:"editable manual assignments reconstructed from the ledger"`
}

// ReopenMatchTool defines the MCP tool schema for reopening a completed match.
func ReopenMatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reopen_match",
		Description: "Reopens a completed match for editing and reconstructs the manual assignments from the persisted ledger.",
	}
}

// ReopenMatchHandler executes the match reopening workflow.
func ReopenMatchHandler(service ScoringService) mcp.ToolHandlerFor[ReopenMatchInput, ReopenMatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReopenMatchInput) (*mcp.CallToolResult, ReopenMatchResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		result, err := service.ReopenMatch(runCtx, input.MatchID)
		if err != nil {
			return nil, ReopenMatchResult{}, fmt.Errorf("reopen match failed: %w", err)
		}

		out := ReopenMatchResult{
			MatchID:     result.Match.ID,
			Status:      string(result.Match.Status),
			Assignments: make([]AssignmentResult, 0, len(result.Assignments)),
		}
		for _, assignment := range result.Assignments {
			out.Assignments = append(out.Assignments, AssignmentResult{
				RuleID:   assignment.RuleID,
				PlayerID: assignment.PlayerID,
				Count:    assignment.Count,
			})
		}
		return nil, out, nil
	}
}

// TeamLeaderboardInput represents the MCP tool input for a leaderboard read.
type TeamLeaderboardInput struct {
	TeamID    string `json:"team_id" jsonschema:"team identifier"`
	PointType string `json:"point_type" jsonschema:"TEAM or CLUB"`
}

// LeaderboardRow is one line of a leaderboard result.
type LeaderboardRow struct {
	PlayerID   string `json:"player_id" jsonschema:"player identifier"`
	PlayerName string `json:"player_name" jsonschema:"player display name"`
	Points     int    `json:"points" jsonschema:"summed points"`
}

// TeamLeaderboardResult represents the MCP tool output for a leaderboard read.
type TeamLeaderboardResult struct {
	Rows []LeaderboardRow `json:"rows" jsonschema:"players ordered by points, highest first"`
}

// TeamLeaderboardTool defines the MCP tool schema for reading a leaderboard.
func TeamLeaderboardTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "team_leaderboard",
		Description: "Returns per-player point totals for one team and point type (TEAM or CLUB).",
	}
}

// TeamLeaderboardHandler executes a leaderboard read.
func TeamLeaderboardHandler(service ScoringService) mcp.ToolHandlerFor[TeamLeaderboardInput, TeamLeaderboardResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamLeaderboardInput) (*mcp.CallToolResult, TeamLeaderboardResult, error) {
		pointType := ledger.PointTypeFromLabel(input.PointType)
		if pointType == ledger.PointTypeUnspecified {
			return nil, TeamLeaderboardResult{}, fmt.Errorf("point_type must be TEAM or CLUB, got %q", input.PointType)
		}

		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		totals, err := service.Leaderboard(runCtx, input.TeamID, pointType)
		if err != nil {
			return nil, TeamLeaderboardResult{}, fmt.Errorf("leaderboard failed: %w", err)
		}

		result := TeamLeaderboardResult{Rows: make([]LeaderboardRow, 0, len(totals))}
		for _, total := range totals {
			result.Rows = append(result.Rows, LeaderboardRow{
				PlayerID:   total.PlayerID,
				PlayerName: total.PlayerName,
				Points:     total.Points,
			})
		}
		return nil, result, nil
	}
}

func toAppInput(input CompletionInput) app.CompleteMatchInput {
	out := app.CompleteMatchInput{
		MatchID:      input.MatchID,
		GoalsFor:     input.GoalsFor,
		GoalsAgainst: input.GoalsAgainst,
		Custom:       input.Custom,
	}
	for _, stat := range input.Stats {
		out.Stats = append(out.Stats, app.PlayerStatInput{
			PlayerID:    stat.PlayerID,
			GoalsScored: stat.GoalsScored,
			GoalAssists: stat.GoalAssists,
			Cards:       stat.Cards,
			Saves:       stat.Saves,
			Tackles:     stat.Tackles,
			Played:      stat.Played,
			Custom:      stat.Custom,
		})
	}
	for _, manual := range input.Manual {
		out.Manual = append(out.Manual, ledger.ManualAssignment{
			RuleID:   manual.RuleID,
			PlayerID: manual.PlayerID,
			Count:    manual.Count,
		})
	}
	return out
}

func toCompletionResult(result app.CompleteMatchResult) CompletionResult {
	out := CompletionResult{
		MatchID:    result.MatchID,
		Entries:    make([]EntryResult, 0, len(result.Entries)),
		TeamTotals: result.TeamTotals,
		ClubTotals: result.ClubTotals,
	}
	for _, entry := range result.Entries {
		out.Entries = append(out.Entries, EntryResult{
			PlayerID:      entry.PlayerID,
			RuleID:        entry.RuleID,
			Points:        entry.Points,
			InstanceCount: entry.InstanceCount,
			PointType:     entry.PointType.Label(),
			Manual:        entry.Manual,
			Notes:         entry.Notes,
		})
	}
	return out
}
