package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
)

// PutMatch upserts one match record.
func (s *Store) PutMatch(ctx context.Context, match storage.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	matchID := strings.TrimSpace(match.ID)
	if matchID == "" {
		return fmt.Errorf("match id is required")
	}
	if strings.TrimSpace(match.TeamID) == "" {
		return fmt.Errorf("team id is required")
	}
	if match.Status == "" {
		match.Status = storage.MatchStatusScheduled
	}
	now := time.Now().UTC()
	if match.CreatedAt.IsZero() {
		match.CreatedAt = now
	}
	if match.UpdatedAt.IsZero() {
		match.UpdatedAt = now
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO matches (id, team_id, opponent, kickoff_at, goals_for, goals_against, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   team_id = excluded.team_id,
		   opponent = excluded.opponent,
		   kickoff_at = excluded.kickoff_at,
		   goals_for = excluded.goals_for,
		   goals_against = excluded.goals_against,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		matchID,
		match.TeamID,
		match.Opponent,
		toMillis(match.KickoffAt),
		match.GoalsFor,
		match.GoalsAgainst,
		string(match.Status),
		toMillis(match.CreatedAt),
		toMillis(match.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put match: %w", err)
	}
	return nil
}

// GetMatch returns one match record.
func (s *Store) GetMatch(ctx context.Context, matchID string) (storage.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MatchRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MatchRecord{}, fmt.Errorf("storage is not configured")
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return storage.MatchRecord{}, fmt.Errorf("match id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, team_id, opponent, kickoff_at, goals_for, goals_against, status, created_at, updated_at
		 FROM matches WHERE id = ?`,
		matchID,
	)
	var (
		match     storage.MatchRecord
		status    string
		kickoffAt int64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&match.ID,
		&match.TeamID,
		&match.Opponent,
		&kickoffAt,
		&match.GoalsFor,
		&match.GoalsAgainst,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MatchRecord{}, storage.ErrNotFound
		}
		return storage.MatchRecord{}, fmt.Errorf("get match: %w", err)
	}
	match.Status = storage.MatchStatus(status)
	match.KickoffAt = fromMillis(kickoffAt)
	match.CreatedAt = fromMillis(createdAt)
	match.UpdatedAt = fromMillis(updatedAt)
	return match, nil
}

// CompleteMatch atomically replaces the match's stat lines and ledger batch
// and marks the match completed. Either every write lands or none do, so a
// failed re-completion leaves the previous snapshot intact.
func (s *Store) CompleteMatch(ctx context.Context, completion storage.MatchCompletion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	matchID := strings.TrimSpace(completion.MatchID)
	if matchID == "" {
		return fmt.Errorf("match id is required")
	}
	completedAt := completion.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete match: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(cause, fmt.Errorf("rollback complete match: %w", rbErr))
		}
		return cause
	}

	var existing string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM matches WHERE id = ?`, matchID).Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(fmt.Errorf("load match: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_stats WHERE match_id = ?`, matchID); err != nil {
		return rollbackWith(fmt.Errorf("clear player stats: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM point_ledger WHERE match_id = ?`, matchID); err != nil {
		return rollbackWith(fmt.Errorf("clear point ledger: %w", err))
	}

	for _, stat := range completion.Stats {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO player_stats (match_id, player_id, goals_scored, goal_assists, cards, saves, tackles, played, position_code)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID,
			stat.PlayerID,
			stat.GoalsScored,
			stat.GoalAssists,
			stat.Cards,
			stat.Saves,
			stat.Tackles,
			boolToInt(stat.Played),
			stat.PositionCode,
		); err != nil {
			return rollbackWith(fmt.Errorf("insert player stat: %w", err))
		}
	}

	for _, entry := range completion.Ledger {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO point_ledger (match_id, player_id, rule_id, assignment_id, points, instance_count, point_type, profile_id, manual, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID,
			entry.PlayerID,
			entry.RuleID,
			entry.AssignmentID,
			entry.Points,
			entry.InstanceCount,
			entry.PointType.Label(),
			entry.ProfileID,
			boolToInt(entry.Manual),
			entry.Notes,
		); err != nil {
			return rollbackWith(fmt.Errorf("insert ledger entry: %w", err))
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE matches SET goals_for = ?, goals_against = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		completion.GoalsFor,
		completion.GoalsAgainst,
		string(storage.MatchStatusCompleted),
		toMillis(completedAt),
		matchID,
	); err != nil {
		return rollbackWith(fmt.Errorf("mark match completed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete match: %w", err)
	}
	return nil
}

// ReopenMatch flips a completed match back to scheduled. The stat lines and
// ledger batch stay in place until the next completion replaces them.
func (s *Store) ReopenMatch(ctx context.Context, matchID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return fmt.Errorf("match id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE matches SET status = ?, updated_at = ? WHERE id = ?`,
		string(storage.MatchStatusScheduled),
		toMillis(time.Now().UTC()),
		matchID,
	)
	if err != nil {
		return fmt.Errorf("reopen match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reopen match: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListLedgerByMatch returns a match's ledger batch in insertion order.
func (s *Store) ListLedgerByMatch(ctx context.Context, matchID string) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("match id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT match_id, player_id, rule_id, assignment_id, points, instance_count, point_type, profile_id, manual, notes
		 FROM point_ledger WHERE match_id = ?
		 ORDER BY id ASC`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			entry     ledger.Entry
			pointType string
			manual    int
		)
		if err := rows.Scan(
			&entry.MatchID,
			&entry.PlayerID,
			&entry.RuleID,
			&entry.AssignmentID,
			&entry.Points,
			&entry.InstanceCount,
			&pointType,
			&entry.ProfileID,
			&manual,
			&entry.Notes,
		); err != nil {
			return nil, fmt.Errorf("list ledger: %w", err)
		}
		entry.PointType = ledger.PointTypeFromLabel(pointType)
		entry.Manual = manual != 0
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return entries, nil
}

// ListStatsByMatch returns a match's player stat lines.
func (s *Store) ListStatsByMatch(ctx context.Context, matchID string) ([]storage.PlayerStatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("match id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT match_id, player_id, goals_scored, goal_assists, cards, saves, tackles, played, position_code
		 FROM player_stats WHERE match_id = ?
		 ORDER BY player_id ASC`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.PlayerStatRecord
	for rows.Next() {
		var (
			stat   storage.PlayerStatRecord
			played int
		)
		if err := rows.Scan(
			&stat.MatchID,
			&stat.PlayerID,
			&stat.GoalsScored,
			&stat.GoalAssists,
			&stat.Cards,
			&stat.Saves,
			&stat.Tackles,
			&played,
			&stat.PositionCode,
		); err != nil {
			return nil, fmt.Errorf("list stats: %w", err)
		}
		stat.Played = played != 0
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return stats, nil
}

// LeaderboardByTeam sums ledger points per player for one point type across
// all of a team's matches, highest total first.
func (s *Store) LeaderboardByTeam(ctx context.Context, teamID string, pointType ledger.PointType) ([]storage.PlayerTotal, error) {
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
		`SELECT l.player_id, COALESCE(p.name, ''), SUM(l.points)
		 FROM point_ledger l
		 JOIN matches m ON m.id = l.match_id
		 LEFT JOIN players p ON p.id = l.player_id
		 WHERE m.team_id = ? AND l.point_type = ?
		 GROUP BY l.player_id
		 ORDER BY SUM(l.points) DESC, l.player_id ASC`,
		teamID,
		pointType.Label(),
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var totals []storage.PlayerTotal
	for rows.Next() {
		var total storage.PlayerTotal
		if err := rows.Scan(&total.PlayerID, &total.PlayerName, &total.Points); err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return totals, nil
}

// AppendTelemetryEvent records one operational event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (ts, severity, event, team_id, match_id, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(timestamp),
		event.Severity,
		event.Event,
		event.TeamID,
		event.MatchID,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}
