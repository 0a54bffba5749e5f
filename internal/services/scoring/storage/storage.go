// Package storage defines the persistence contracts for the scoring service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	// MatchStatusScheduled means the match has not been completed yet.
	MatchStatusScheduled MatchStatus = "scheduled"
	// MatchStatusCompleted means the completion workflow has run.
	MatchStatusCompleted MatchStatus = "completed"
)

// TeamRecord stores one team within a club.
type TeamRecord struct {
	ID     string
	ClubID string
	Name   string
	// DefaultProfileID references the rules profile used for TEAM points.
	DefaultProfileID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlayerRecord stores one registered player.
type PlayerRecord struct {
	ID           string
	TeamID       string
	Name         string
	PositionCode int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MatchRecord stores one match of a team.
type MatchRecord struct {
	ID           string
	TeamID       string
	Opponent     string
	KickoffAt    time.Time
	GoalsFor     int
	GoalsAgainst int
	Status       MatchStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerStatRecord stores one player's statistic line for one match. The full
// set for a match is replaced on every (re-)completion.
type PlayerStatRecord struct {
	MatchID      string
	PlayerID     string
	GoalsScored  int
	GoalAssists  int
	Cards        int
	Saves        int
	Tackles      int
	Played       bool
	PositionCode int
}

// MatchCompletion is the atomic snapshot committed when a match is completed:
// final score, replacement stat rows, and the replacement ledger batch.
// Partial application must never be observable.
type MatchCompletion struct {
	MatchID      string
	GoalsFor     int
	GoalsAgainst int
	CompletedAt  time.Time
	Stats        []PlayerStatRecord
	Ledger       []ledger.Entry
}

// PlayerTotal is one leaderboard line.
type PlayerTotal struct {
	PlayerID   string
	PlayerName string
	Points     int
}

// TeamStore persists team registry state.
type TeamStore interface {
	PutTeam(ctx context.Context, team TeamRecord) error
	GetTeam(ctx context.Context, teamID string) (TeamRecord, error)
}

// PlayerStore persists player registry state.
type PlayerStore interface {
	PutPlayer(ctx context.Context, player PlayerRecord) error
	ListPlayersByTeam(ctx context.Context, teamID string) ([]PlayerRecord, error)
}

// RuleStore persists scoring rules.
type RuleStore interface {
	PutRule(ctx context.Context, r rule.Rule) error
	GetRule(ctx context.Context, ruleID string) (rule.Rule, error)
	ListRulesByTeam(ctx context.Context, teamID string) ([]rule.Rule, error)
}

// ProfileStore persists rules profiles and their overrides.
type ProfileStore interface {
	PutProfile(ctx context.Context, p profile.Profile) error
	GetProfile(ctx context.Context, profileID string) (profile.Profile, error)
	// GetClubDefaultProfile returns the club-wide comparison profile,
	// or ErrNotFound when the club has none.
	GetClubDefaultProfile(ctx context.Context, clubID string) (profile.Profile, error)
}

// VariableStore persists team-scoped custom variables. Built-ins are never
// persisted.
type VariableStore interface {
	PutVariable(ctx context.Context, teamID string, d variable.Descriptor) error
	ListVariablesByTeam(ctx context.Context, teamID string) ([]variable.Descriptor, error)
}

// MatchStore persists matches and executes the completion snapshot.
type MatchStore interface {
	PutMatch(ctx context.Context, match MatchRecord) error
	GetMatch(ctx context.Context, matchID string) (MatchRecord, error)
	// CompleteMatch atomically replaces the match's stats and ledger and
	// marks it completed: all or nothing.
	CompleteMatch(ctx context.Context, completion MatchCompletion) error
	// ReopenMatch flips a completed match back to scheduled for editing.
	ReopenMatch(ctx context.Context, matchID string) error
}

// LedgerStore reads persisted point-ledger state.
type LedgerStore interface {
	ListLedgerByMatch(ctx context.Context, matchID string) ([]ledger.Entry, error)
	ListStatsByMatch(ctx context.Context, matchID string) ([]PlayerStatRecord, error)
	// LeaderboardByTeam sums ledger points per player for one point type.
	LeaderboardByTeam(ctx context.Context, teamID string, pointType ledger.PointType) ([]PlayerTotal, error)
}

// TelemetryEvent records one operational event.
type TelemetryEvent struct {
	Timestamp time.Time
	Severity  string
	Event     string
	TeamID    string
	MatchID   string
	Detail    string
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
