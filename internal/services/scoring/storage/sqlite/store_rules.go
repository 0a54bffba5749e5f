package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/condition"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

// conditionRow is the JSON shape persisted in the conditions_json column.
type conditionRow struct {
	Variable        string  `json:"variable"`
	Operator        string  `json:"operator"`
	Value           float64 `json:"value"`
	CompareVariable string  `json:"compareVariable,omitempty"`
	Scope           string  `json:"scope"`
}

func encodeConditions(conditions []condition.Condition) (string, error) {
	rows := make([]conditionRow, 0, len(conditions))
	for _, cond := range conditions {
		rows = append(rows, conditionRow{
			Variable:        cond.Variable,
			Operator:        cond.Operator.Symbol(),
			Value:           cond.Value,
			CompareVariable: cond.CompareVariable,
			Scope:           cond.Scope.Label(),
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode conditions: %w", err)
	}
	return string(payload), nil
}

func decodeConditions(raw string) ([]condition.Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var rows []conditionRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	conditions := make([]condition.Condition, 0, len(rows))
	for _, row := range rows {
		conditions = append(conditions, condition.Condition{
			Variable:        row.Variable,
			Operator:        condition.OperatorFromSymbol(row.Operator),
			Value:           row.Value,
			CompareVariable: row.CompareVariable,
			Scope:           variable.ScopeFromLabel(row.Scope),
		})
	}
	return conditions, nil
}

func encodePositions(positions []position.Position) (string, error) {
	codes := make([]int, 0, len(positions))
	for _, pos := range positions {
		codes = append(codes, pos.Code())
	}
	payload, err := json.Marshal(codes)
	if err != nil {
		return "", fmt.Errorf("encode positions: %w", err)
	}
	return string(payload), nil
}

func decodePositions(raw string) ([]position.Position, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var codes []int
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	positions := make([]position.Position, 0, len(codes))
	for _, code := range codes {
		positions = append(positions, position.FromCode(code))
	}
	return positions, nil
}

// PutRule upserts one scoring rule.
func (s *Store) PutRule(ctx context.Context, r rule.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	ruleID := strings.TrimSpace(r.ID)
	if ruleID == "" {
		return fmt.Errorf("rule id is required")
	}
	if strings.TrimSpace(r.TeamID) == "" {
		return fmt.Errorf("team id is required")
	}
	conditionsJSON, err := encodeConditions(r.Conditions)
	if err != nil {
		return err
	}
	positionsJSON, err := encodePositions(r.TargetPositions)
	if err != nil {
		return err
	}
	now := toMillis(time.Now().UTC())

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rules (id, team_id, name, description, category, points,
		   multiplier_variable, target_scope, target_positions, target_player_id,
		   conditions_json, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   team_id = excluded.team_id,
		   name = excluded.name,
		   description = excluded.description,
		   category = excluded.category,
		   points = excluded.points,
		   multiplier_variable = excluded.multiplier_variable,
		   target_scope = excluded.target_scope,
		   target_positions = excluded.target_positions,
		   target_player_id = excluded.target_player_id,
		   conditions_json = excluded.conditions_json,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		ruleID,
		r.TeamID,
		r.Name,
		r.Description,
		r.Category.Label(),
		r.Award.Points,
		r.Award.MultiplierVariable,
		r.TargetScope.Label(),
		positionsJSON,
		r.TargetPlayerID,
		conditionsJSON,
		boolToInt(r.Active),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("put rule: %w", err)
	}
	return nil
}

// GetRule returns one scoring rule.
func (s *Store) GetRule(ctx context.Context, ruleID string) (rule.Rule, error) {
	if err := ctx.Err(); err != nil {
		return rule.Rule{}, err
	}
	if s == nil || s.sqlDB == nil {
		return rule.Rule{}, fmt.Errorf("storage is not configured")
	}
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return rule.Rule{}, fmt.Errorf("rule id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, team_id, name, description, category, points,
		   multiplier_variable, target_scope, target_positions, target_player_id,
		   conditions_json, active
		 FROM rules WHERE id = ?`,
		ruleID,
	)
	r, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule.Rule{}, storage.ErrNotFound
		}
		return rule.Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

// ListRulesByTeam returns a team's rules ordered by name.
func (s *Store) ListRulesByTeam(ctx context.Context, teamID string) ([]rule.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("team id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, team_id, name, description, category, points,
		   multiplier_variable, target_scope, target_positions, target_player_id,
		   conditions_json, active
		 FROM rules WHERE team_id = ?
		 ORDER BY name ASC, id ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []rule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (rule.Rule, error) {
	var (
		r              rule.Rule
		category       string
		targetScope    string
		positionsJSON  string
		conditionsJSON string
		active         int
	)
	if err := row.Scan(
		&r.ID,
		&r.TeamID,
		&r.Name,
		&r.Description,
		&category,
		&r.Award.Points,
		&r.Award.MultiplierVariable,
		&targetScope,
		&positionsJSON,
		&r.TargetPlayerID,
		&conditionsJSON,
		&active,
	); err != nil {
		return rule.Rule{}, err
	}
	r.Category = rule.CategoryFromLabel(category)
	r.TargetScope = rule.TargetScopeFromLabel(targetScope)
	r.Active = active != 0

	positions, err := decodePositions(positionsJSON)
	if err != nil {
		return rule.Rule{}, err
	}
	r.TargetPositions = positions

	conditions, err := decodeConditions(conditionsJSON)
	if err != nil {
		return rule.Rule{}, err
	}
	r.Conditions = conditions
	return r, nil
}

// PutProfile upserts one rules profile and replaces its override set.
func (s *Store) PutProfile(ctx context.Context, p profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	p, err := profile.Normalize(p)
	if err != nil {
		return err
	}
	profileID := strings.TrimSpace(p.ID)
	if profileID == "" {
		return fmt.Errorf("profile id is required")
	}
	now := toMillis(time.Now().UTC())

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put profile: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(cause, fmt.Errorf("rollback put profile: %w", rbErr))
		}
		return cause
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO profiles (id, club_id, name, club_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   club_id = excluded.club_id,
		   name = excluded.name,
		   club_default = excluded.club_default,
		   updated_at = excluded.updated_at`,
		profileID,
		p.ClubID,
		p.Name,
		boolToInt(p.ClubDefault),
		now,
		now,
	); err != nil {
		if isUniqueConstraintError(err) {
			return rollbackWith(storage.ErrConflict)
		}
		return rollbackWith(fmt.Errorf("put profile: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_overrides WHERE profile_id = ?`, profileID); err != nil {
		return rollbackWith(fmt.Errorf("clear profile overrides: %w", err))
	}
	for _, override := range p.Overrides {
		var customPoints any
		if override.CustomPoints != nil {
			customPoints = *override.CustomPoints
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO profile_overrides (profile_id, rule_id, custom_points, enabled)
			 VALUES (?, ?, ?, ?)`,
			profileID,
			override.RuleID,
			customPoints,
			boolToInt(override.Enabled),
		); err != nil {
			return rollbackWith(fmt.Errorf("put profile override: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put profile: %w", err)
	}
	return nil
}

// GetProfile returns one rules profile with its overrides.
func (s *Store) GetProfile(ctx context.Context, profileID string) (profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return profile.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return profile.Profile{}, fmt.Errorf("storage is not configured")
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return profile.Profile{}, fmt.Errorf("profile id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, club_id, name, club_default FROM profiles WHERE id = ?`,
		profileID,
	)
	return s.scanProfile(ctx, row)
}

// GetClubDefaultProfile returns the club-wide comparison profile.
func (s *Store) GetClubDefaultProfile(ctx context.Context, clubID string) (profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return profile.Profile{}, err
	}
	if s == nil || s.sqlDB == nil {
		return profile.Profile{}, fmt.Errorf("storage is not configured")
	}
	clubID = strings.TrimSpace(clubID)
	if clubID == "" {
		return profile.Profile{}, fmt.Errorf("club id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, club_id, name, club_default FROM profiles
		 WHERE club_id = ? AND club_default = 1`,
		clubID,
	)
	return s.scanProfile(ctx, row)
}

func (s *Store) scanProfile(ctx context.Context, row *sql.Row) (profile.Profile, error) {
	var (
		p           profile.Profile
		clubDefault int
	)
	if err := row.Scan(&p.ID, &p.ClubID, &p.Name, &clubDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, storage.ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.ClubDefault = clubDefault != 0

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT rule_id, custom_points, enabled FROM profile_overrides WHERE profile_id = ?`,
		p.ID,
	)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("list profile overrides: %w", err)
	}
	defer rows.Close()

	p.Overrides = make(map[string]profile.Override)
	for rows.Next() {
		var (
			override     profile.Override
			customPoints sql.NullInt64
			enabled      int
		)
		if err := rows.Scan(&override.RuleID, &customPoints, &enabled); err != nil {
			return profile.Profile{}, fmt.Errorf("list profile overrides: %w", err)
		}
		if customPoints.Valid {
			points := int(customPoints.Int64)
			override.CustomPoints = &points
		}
		override.Enabled = enabled != 0
		p.Overrides[override.RuleID] = override
	}
	if err := rows.Err(); err != nil {
		return profile.Profile{}, fmt.Errorf("list profile overrides: %w", err)
	}
	return p, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
