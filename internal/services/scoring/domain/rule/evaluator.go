package rule

import (
	"fmt"
	"strings"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/condition"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
)

// PlayerContext carries one participating player and their fact set.
type PlayerContext struct {
	PlayerID string
	Name     string
	Position position.Position
	Facts    variable.Facts
}

// NewPlayerContext builds a player context, injecting the position and played
// built-ins into the fact set so conditions can reference them.
func NewPlayerContext(playerID, name string, pos position.Position, played bool, facts variable.Facts) PlayerContext {
	merged := make(variable.Facts, len(facts)+2)
	for key, value := range facts {
		merged[key] = value
	}
	merged[variable.KeyPosition] = variable.Text(pos.Label())
	merged[variable.KeyPlayed] = variable.Boolean(played)
	return PlayerContext{PlayerID: playerID, Name: name, Position: pos, Facts: merged}
}

// PlayerResult is one point award produced by automatic evaluation.
type PlayerResult struct {
	PlayerID string
	RuleID   string
	// Quantity is the number of award instances: 1 for flat and result
	// awards, the multiplier variable's actual value for multiplied awards.
	Quantity int
	// Points is Quantity times the rule's base point value.
	Points int
	// Reason is a human-readable trace of the conditions that matched.
	// It is for audit display only and carries no semantics.
	Reason string
}

// EvaluateAll runs every active rule against the supplied facts and returns
// one result per qualifying (player, rule) pair. Manual rules never
// auto-evaluate. The result multiset is deterministic for fixed inputs
// regardless of rule ordering.
func EvaluateAll(rules []Rule, matchFacts variable.Facts, players []PlayerContext) []PlayerResult {
	var results []PlayerResult
	for _, r := range rules {
		if !r.Active {
			continue
		}
		switch r.Category {
		case CategoryResult:
			results = append(results, evaluateResultRule(r, matchFacts, players)...)
		case CategoryPerformance:
			results = append(results, evaluatePerformanceRule(r, matchFacts, players)...)
		case CategoryManual:
			// Manual points come exclusively from explicit assignments.
		}
	}
	return results
}

// evaluateResultRule awards points once per resolved target player when every
// condition holds against the match facts alone.
func evaluateResultRule(r Rule, matchFacts variable.Facts, players []PlayerContext) []PlayerResult {
	traces := make([]string, 0, len(r.Conditions))
	for _, cond := range r.Conditions {
		if cond.Scope != variable.ScopeMatch {
			return nil
		}
		if !condition.Evaluate(cond, matchFacts, nil) {
			return nil
		}
		traces = append(traces, condition.Trace(cond, matchFacts, nil))
	}

	reason := fmt.Sprintf("%s: %s", r.Name, strings.Join(traces, "; "))
	targets := ResolveTargets(r, players)
	results := make([]PlayerResult, 0, len(targets))
	for _, player := range targets {
		results = append(results, PlayerResult{
			PlayerID: player.PlayerID,
			RuleID:   r.ID,
			Quantity: 1,
			Points:   r.Award.Points,
			Reason:   reason,
		})
	}
	return results
}

// evaluatePerformanceRule evaluates each target player independently. A rule
// may mix match-scope and player-scope conditions; all must pass.
func evaluatePerformanceRule(r Rule, matchFacts variable.Facts, players []PlayerContext) []PlayerResult {
	var results []PlayerResult
	for _, player := range ResolveTargets(r, players) {
		traces := make([]string, 0, len(r.Conditions))
		qualified := true
		for _, cond := range r.Conditions {
			if !condition.Evaluate(cond, matchFacts, player.Facts) {
				qualified = false
				break
			}
			traces = append(traces, condition.Trace(cond, matchFacts, player.Facts))
		}
		if !qualified {
			continue
		}

		quantity := 1
		if r.Award.Multiplied() {
			quantity = int(player.Facts.Lookup(r.Award.MultiplierVariable).AsNumber())
			if quantity < 0 {
				quantity = 0
			}
		}
		results = append(results, PlayerResult{
			PlayerID: player.PlayerID,
			RuleID:   r.ID,
			Quantity: quantity,
			Points:   quantity * r.Award.Points,
			Reason:   fmt.Sprintf("%s: %s", r.Name, strings.Join(traces, "; ")),
		})
	}
	return results
}

// ResolveTargets maps a rule's target scope to the concrete player set.
func ResolveTargets(r Rule, players []PlayerContext) []PlayerContext {
	switch r.TargetScope {
	case TargetScopeByPosition:
		var targets []PlayerContext
		for _, player := range players {
			if positionTargeted(r.TargetPositions, player.Position) {
				targets = append(targets, player)
			}
		}
		return targets
	case TargetScopeIndividualPlayer:
		for _, player := range players {
			if player.PlayerID == r.TargetPlayerID {
				return []PlayerContext{player}
			}
		}
		return nil
	default:
		return players
	}
}

func positionTargeted(targets []position.Position, pos position.Position) bool {
	for _, target := range targets {
		if target == pos {
			return true
		}
	}
	return false
}
