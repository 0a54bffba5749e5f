package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

// PutTeam upserts one team record.
func (s *Store) PutTeam(ctx context.Context, team storage.TeamRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID := strings.TrimSpace(team.ID)
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(team.ClubID) == "" {
		return fmt.Errorf("club id is required")
	}
	now := time.Now().UTC()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	if team.UpdatedAt.IsZero() {
		team.UpdatedAt = now
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO teams (id, club_id, name, default_profile_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   club_id = excluded.club_id,
		   name = excluded.name,
		   default_profile_id = excluded.default_profile_id,
		   updated_at = excluded.updated_at`,
		teamID,
		team.ClubID,
		team.Name,
		team.DefaultProfileID,
		toMillis(team.CreatedAt),
		toMillis(team.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put team: %w", err)
	}
	return nil
}

// GetTeam returns one team record.
func (s *Store) GetTeam(ctx context.Context, teamID string) (storage.TeamRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TeamRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TeamRecord{}, fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return storage.TeamRecord{}, fmt.Errorf("team id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, club_id, name, default_profile_id, created_at, updated_at
		 FROM teams WHERE id = ?`,
		teamID,
	)
	var (
		team      storage.TeamRecord
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&team.ID, &team.ClubID, &team.Name, &team.DefaultProfileID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TeamRecord{}, storage.ErrNotFound
		}
		return storage.TeamRecord{}, fmt.Errorf("get team: %w", err)
	}
	team.CreatedAt = fromMillis(createdAt)
	team.UpdatedAt = fromMillis(updatedAt)
	return team, nil
}

// PutPlayer upserts one player record.
func (s *Store) PutPlayer(ctx context.Context, player storage.PlayerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID := strings.TrimSpace(player.ID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(player.TeamID) == "" {
		return fmt.Errorf("team id is required")
	}
	now := time.Now().UTC()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = now
	}
	if player.UpdatedAt.IsZero() {
		player.UpdatedAt = now
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO players (id, team_id, name, position_code, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   team_id = excluded.team_id,
		   name = excluded.name,
		   position_code = excluded.position_code,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		playerID,
		player.TeamID,
		player.Name,
		player.PositionCode,
		boolToInt(player.Active),
		toMillis(player.CreatedAt),
		toMillis(player.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

// ListPlayersByTeam returns a team's players ordered by name.
func (s *Store) ListPlayersByTeam(ctx context.Context, teamID string) ([]storage.PlayerRecord, error) {
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
		`SELECT id, team_id, name, position_code, active, created_at, updated_at
		 FROM players WHERE team_id = ?
		 ORDER BY name ASC, id ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []storage.PlayerRecord
	for rows.Next() {
		var (
			player    storage.PlayerRecord
			active    int
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(
			&player.ID,
			&player.TeamID,
			&player.Name,
			&player.PositionCode,
			&active,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		player.Active = active != 0
		player.CreatedAt = fromMillis(createdAt)
		player.UpdatedAt = fromMillis(updatedAt)
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// PutVariable upserts one team-scoped custom variable descriptor. Built-in
// descriptors are rejected because they are never persisted.
func (s *Store) PutVariable(ctx context.Context, teamID string, d variable.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return fmt.Errorf("team id is required")
	}
	key := strings.TrimSpace(d.Key)
	if key == "" {
		return fmt.Errorf("variable key is required")
	}
	if d.BuiltIn {
		return fmt.Errorf("built-in variables cannot be persisted")
	}
	now := toMillis(time.Now().UTC())

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO variables (team_id, var_key, label, scope, data_type, default_value, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(team_id, var_key) DO UPDATE SET
		   label = excluded.label,
		   scope = excluded.scope,
		   data_type = excluded.data_type,
		   default_value = excluded.default_value,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		teamID,
		key,
		d.Label,
		d.Scope.Label(),
		d.DataType.Label(),
		encodeDefaultValue(d),
		boolToInt(d.Active),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("put variable: %w", err)
	}
	return nil
}

// ListVariablesByTeam returns a team's custom variable descriptors ordered by
// key. Inactive descriptors are included; the registry decides visibility.
func (s *Store) ListVariablesByTeam(ctx context.Context, teamID string) ([]variable.Descriptor, error) {
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
		`SELECT var_key, label, scope, data_type, default_value, active
		 FROM variables WHERE team_id = ?
		 ORDER BY var_key ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()

	var descriptors []variable.Descriptor
	for rows.Next() {
		var (
			d            variable.Descriptor
			scope        string
			dataType     string
			defaultValue string
			active       int
		)
		if err := rows.Scan(&d.Key, &d.Label, &scope, &dataType, &defaultValue, &active); err != nil {
			return nil, fmt.Errorf("list variables: %w", err)
		}
		d.Scope = variable.ScopeFromLabel(scope)
		d.DataType = variable.DataTypeFromLabel(dataType)
		d.Default = decodeDefaultValue(d.DataType, defaultValue)
		d.Active = active != 0
		descriptors = append(descriptors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	return descriptors, nil
}
