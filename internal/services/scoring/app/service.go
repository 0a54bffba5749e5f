// Package app orchestrates the scoring workflows: match completion, preview,
// reopening, and leaderboard reads.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teamtally/teamtally/internal/core/position"
	apperrors "github.com/teamtally/teamtally/internal/platform/errors"
	"github.com/teamtally/teamtally/internal/platform/id"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/ledger"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/profile"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/rule"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
	"github.com/teamtally/teamtally/internal/telemetry"
)

var tracer = otel.Tracer("github.com/teamtally/teamtally/internal/services/scoring/app")

// Store is the persistence surface the service depends on.
type Store interface {
	storage.TeamStore
	storage.PlayerStore
	storage.RuleStore
	storage.ProfileStore
	storage.VariableStore
	storage.MatchStore
	storage.LedgerStore
}

// Service runs the scoring workflows against a store.
type Service struct {
	store     Store
	telemetry *telemetry.Emitter
	newID     func() (string, error)
	clock     func() time.Time

	mu         sync.Mutex
	matchLocks map[string]*sync.Mutex
}

// NewService creates a scoring service. The telemetry emitter may be nil.
func NewService(store Store, emitter *telemetry.Emitter) *Service {
	return &Service{
		store:      store,
		telemetry:  emitter,
		newID:      id.NewID,
		clock:      time.Now,
		matchLocks: make(map[string]*sync.Mutex),
	}
}

// lockMatch serializes workflows touching the same match. The returned
// function releases the lock.
func (s *Service) lockMatch(matchID string) func() {
	s.mu.Lock()
	lock, ok := s.matchLocks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		s.matchLocks[matchID] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// PlayerStatInput is one player's statistic line entered in the completion
// wizard. Custom holds raw values for team-defined player-scope variables,
// keyed by variable key; unknown keys are ignored.
type PlayerStatInput struct {
	PlayerID    string
	GoalsScored int
	GoalAssists int
	Cards       int
	Saves       int
	Tackles     int
	Played      bool
	Custom      map[string]string
}

// CompleteMatchInput carries everything the completion wizard collected.
type CompleteMatchInput struct {
	MatchID      string
	GoalsFor     int
	GoalsAgainst int
	Stats        []PlayerStatInput
	Manual       []ledger.ManualAssignment
	// Custom holds raw values for match-scope custom variables.
	Custom map[string]string
}

// CompleteMatchResult reports the committed snapshot.
type CompleteMatchResult struct {
	MatchID    string
	Entries    []ledger.Entry
	TeamTotals map[string]int
	ClubTotals map[string]int
}

// ReopenMatchResult carries the editable state reconstructed from the ledger.
type ReopenMatchResult struct {
	Match       storage.MatchRecord
	Stats       []storage.PlayerStatRecord
	Assignments []ledger.EditableAssignment
}

// evaluation is the shared outcome of the evaluate-and-assemble pipeline.
type evaluation struct {
	match   storage.MatchRecord
	team    storage.TeamRecord
	stats   []storage.PlayerStatRecord
	entries []ledger.Entry
}

// CompleteMatch runs the full completion workflow and commits the snapshot
// atomically. Re-completing a match replaces its previous stats and ledger;
// concurrent completions of the same match are serialized and the last
// writer's snapshot fully wins.
func (s *Service) CompleteMatch(ctx context.Context, in CompleteMatchInput) (CompleteMatchResult, error) {
	ctx, span := tracer.Start(ctx, "scoring.CompleteMatch",
		trace.WithAttributes(attribute.String("match.id", in.MatchID)))
	defer span.End()

	matchID := strings.TrimSpace(in.MatchID)
	if matchID == "" {
		return CompleteMatchResult{}, spanError(span, apperrors.New(apperrors.CodeMatchEmptyID, "match id is required"))
	}
	unlock := s.lockMatch(matchID)
	defer unlock()

	eval, err := s.evaluate(ctx, matchID, in)
	if err != nil {
		return CompleteMatchResult{}, spanError(span, err)
	}

	completion := storage.MatchCompletion{
		MatchID:      matchID,
		GoalsFor:     in.GoalsFor,
		GoalsAgainst: in.GoalsAgainst,
		CompletedAt:  s.clock().UTC(),
		Stats:        eval.stats,
		Ledger:       eval.entries,
	}
	if err := s.store.CompleteMatch(ctx, completion); err != nil {
		return CompleteMatchResult{}, spanError(span, fmt.Errorf("commit completion: %w", err))
	}

	_ = s.telemetry.Emit(ctx, storage.TelemetryEvent{
		Severity: string(telemetry.SeverityInfo),
		Event:    "match.completed",
		TeamID:   eval.team.ID,
		MatchID:  matchID,
		Detail:   fmt.Sprintf("entries=%d", len(eval.entries)),
	})

	return CompleteMatchResult{
		MatchID:    matchID,
		Entries:    eval.entries,
		TeamTotals: ledger.Totals(eval.entries, ledger.PointTypeTeam),
		ClubTotals: ledger.Totals(eval.entries, ledger.PointTypeClub),
	}, nil
}

// Preview runs the completion pipeline without persisting anything, so a
// captain can inspect the would-be ledger before committing.
func (s *Service) Preview(ctx context.Context, in CompleteMatchInput) (CompleteMatchResult, error) {
	ctx, span := tracer.Start(ctx, "scoring.Preview",
		trace.WithAttributes(attribute.String("match.id", in.MatchID)))
	defer span.End()

	matchID := strings.TrimSpace(in.MatchID)
	if matchID == "" {
		return CompleteMatchResult{}, spanError(span, apperrors.New(apperrors.CodeMatchEmptyID, "match id is required"))
	}

	eval, err := s.evaluate(ctx, matchID, in)
	if err != nil {
		return CompleteMatchResult{}, spanError(span, err)
	}
	return CompleteMatchResult{
		MatchID:    matchID,
		Entries:    eval.entries,
		TeamTotals: ledger.Totals(eval.entries, ledger.PointTypeTeam),
		ClubTotals: ledger.Totals(eval.entries, ledger.PointTypeClub),
	}, nil
}

// ReopenMatch flips a completed match back to scheduled and reconstructs the
// editable manual assignments from the persisted ledger. Automatic entries
// are recomputed on the next completion and need no reconstruction.
func (s *Service) ReopenMatch(ctx context.Context, matchID string) (ReopenMatchResult, error) {
	ctx, span := tracer.Start(ctx, "scoring.ReopenMatch",
		trace.WithAttributes(attribute.String("match.id", matchID)))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return ReopenMatchResult{}, spanError(span, apperrors.New(apperrors.CodeMatchEmptyID, "match id is required"))
	}
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ReopenMatchResult{}, spanError(span, apperrors.Wrap(apperrors.CodeMatchNotFound, "match not found", err))
		}
		return ReopenMatchResult{}, spanError(span, fmt.Errorf("load match: %w", err))
	}
	if match.Status != storage.MatchStatusCompleted {
		return ReopenMatchResult{}, spanError(span, apperrors.WithMetadata(
			apperrors.CodeMatchNotCompleted,
			"only completed matches can be reopened",
			map[string]string{"MatchID": matchID, "Status": string(match.Status)},
		))
	}

	entries, err := s.store.ListLedgerByMatch(ctx, matchID)
	if err != nil {
		return ReopenMatchResult{}, spanError(span, fmt.Errorf("load ledger: %w", err))
	}
	stats, err := s.store.ListStatsByMatch(ctx, matchID)
	if err != nil {
		return ReopenMatchResult{}, spanError(span, fmt.Errorf("load stats: %w", err))
	}

	if err := s.store.ReopenMatch(ctx, matchID); err != nil {
		return ReopenMatchResult{}, spanError(span, fmt.Errorf("reopen match: %w", err))
	}
	match.Status = storage.MatchStatusScheduled

	_ = s.telemetry.Emit(ctx, storage.TelemetryEvent{
		Severity: string(telemetry.SeverityInfo),
		Event:    "match.reopened",
		TeamID:   match.TeamID,
		MatchID:  matchID,
	})

	return ReopenMatchResult{
		Match:       match,
		Stats:       stats,
		Assignments: ledger.Reconcile(entries),
	}, nil
}

// Leaderboard returns per-player point totals for one team and point type.
func (s *Service) Leaderboard(ctx context.Context, teamID string, pointType ledger.PointType) ([]storage.PlayerTotal, error) {
	ctx, span := tracer.Start(ctx, "scoring.Leaderboard",
		trace.WithAttributes(attribute.String("team.id", teamID)))
	defer span.End()

	totals, err := s.store.LeaderboardByTeam(ctx, teamID, pointType)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("leaderboard: %w", err))
	}
	return totals, nil
}

// ListRules returns a team's rule set.
func (s *Service) ListRules(ctx context.Context, teamID string) ([]rule.Rule, error) {
	return s.store.ListRulesByTeam(ctx, teamID)
}

// evaluate loads the match context, runs automatic evaluation, and assembles
// the replacement ledger batch.
func (s *Service) evaluate(ctx context.Context, matchID string, in CompleteMatchInput) (evaluation, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return evaluation{}, apperrors.Wrap(apperrors.CodeMatchNotFound, "match not found", err)
		}
		return evaluation{}, fmt.Errorf("load match: %w", err)
	}
	team, err := s.store.GetTeam(ctx, match.TeamID)
	if err != nil {
		return evaluation{}, fmt.Errorf("load team: %w", err)
	}

	teamProfile, err := s.loadProfile(ctx, team.DefaultProfileID)
	if err != nil {
		return evaluation{}, err
	}
	clubProfile, err := s.loadClubDefault(ctx, team.ClubID)
	if err != nil {
		return evaluation{}, err
	}

	rules, err := s.store.ListRulesByTeam(ctx, team.ID)
	if err != nil {
		return evaluation{}, fmt.Errorf("load rules: %w", err)
	}
	custom, err := s.store.ListVariablesByTeam(ctx, team.ID)
	if err != nil {
		return evaluation{}, fmt.Errorf("load variables: %w", err)
	}
	registry := variable.NewRegistry(custom)

	players, err := s.store.ListPlayersByTeam(ctx, team.ID)
	if err != nil {
		return evaluation{}, fmt.Errorf("load players: %w", err)
	}
	playersByID := make(map[string]storage.PlayerRecord, len(players))
	for _, player := range players {
		playersByID[player.ID] = player
	}

	matchFacts := variable.Facts{
		variable.KeyGoalsFor:     variable.Number(float64(in.GoalsFor)),
		variable.KeyGoalsAgainst: variable.Number(float64(in.GoalsAgainst)),
	}
	mergeCustomFacts(matchFacts, registry, variable.ScopeMatch, in.Custom)

	contexts := make([]rule.PlayerContext, 0, len(in.Stats))
	statRecords := make([]storage.PlayerStatRecord, 0, len(in.Stats))
	for _, stat := range in.Stats {
		player, ok := playersByID[stat.PlayerID]
		if !ok {
			return evaluation{}, apperrors.WithMetadata(
				apperrors.CodeMatchCompletionInvalid,
				"stat line references an unknown player",
				map[string]string{"PlayerID": stat.PlayerID},
			)
		}
		facts := variable.Facts{
			variable.KeyGoalsScored: variable.Number(float64(stat.GoalsScored)),
			variable.KeyGoalAssists: variable.Number(float64(stat.GoalAssists)),
			variable.KeyCards:       variable.Number(float64(stat.Cards)),
			variable.KeySaves:       variable.Number(float64(stat.Saves)),
			variable.KeyTackles:     variable.Number(float64(stat.Tackles)),
		}
		mergeCustomFacts(facts, registry, variable.ScopePlayer, stat.Custom)
		pos := position.FromCode(player.PositionCode)
		contexts = append(contexts, rule.NewPlayerContext(player.ID, player.Name, pos, stat.Played, facts))
		statRecords = append(statRecords, storage.PlayerStatRecord{
			MatchID:      matchID,
			PlayerID:     player.ID,
			GoalsScored:  stat.GoalsScored,
			GoalAssists:  stat.GoalAssists,
			Cards:        stat.Cards,
			Saves:        stat.Saves,
			Tackles:      stat.Tackles,
			Played:       stat.Played,
			PositionCode: player.PositionCode,
		})
	}

	results := rule.EvaluateAll(rules, matchFacts, contexts)
	entries, err := ledger.Assemble(ledger.AssembleInput{
		MatchID:     matchID,
		Rules:       rules,
		TeamProfile: teamProfile,
		ClubProfile: clubProfile,
		Automatic:   results,
		Manual:      in.Manual,
		NewID:       s.newID,
	})
	if err != nil {
		return evaluation{}, err
	}

	return evaluation{match: match, team: team, stats: statRecords, entries: entries}, nil
}

// loadProfile fetches a profile by id; a blank id or a missing profile yields
// nil, which drops its point type from the ledger rather than failing.
func (s *Service) loadProfile(ctx context.Context, profileID string) (*profile.Profile, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, nil
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

func (s *Service) loadClubDefault(ctx context.Context, clubID string) (*profile.Profile, error) {
	p, err := s.store.GetClubDefaultProfile(ctx, clubID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load club default profile: %w", err)
	}
	return &p, nil
}

// mergeCustomFacts decodes raw custom values through the registry. Keys that
// do not resolve in the given scope are dropped; evaluation fails open on the
// missing fact instead.
func mergeCustomFacts(facts variable.Facts, registry *variable.Registry, scope variable.Scope, raw map[string]string) {
	for key, value := range raw {
		descriptor, ok := registry.Resolve(key, scope)
		if !ok || descriptor.BuiltIn {
			continue
		}
		switch descriptor.DataType {
		case variable.DataTypeNumber:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			facts[descriptor.Key] = variable.Number(parsed)
		case variable.DataTypeBoolean:
			facts[descriptor.Key] = variable.Boolean(strings.TrimSpace(value) == "true")
		case variable.DataTypeEnum:
			facts[descriptor.Key] = variable.Text(strings.TrimSpace(value))
		}
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
