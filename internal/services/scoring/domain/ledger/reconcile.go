package ledger

import (
	"regexp"
	"sort"
	"strconv"
)

// EditableAssignment is the single count control the editing wizard presents
// for one (player, rule) pair when a completed match is reopened.
type EditableAssignment struct {
	RuleID   string
	PlayerID string
	Count    int
}

// instancesPattern matches the integer preceding "instances" in legacy notes.
var instancesPattern = regexp.MustCompile(`(\d+)\s+instances`)

// ParseInstanceCount extracts the occurrence count embedded in a legacy notes
// field. Unparseable notes default to one instance.
func ParseInstanceCount(notes string) int {
	match := instancesPattern.FindStringSubmatch(notes)
	if len(match) != 2 {
		return 1
	}
	count, err := strconv.Atoi(match[1])
	if err != nil || count < 1 {
		return 1
	}
	return count
}

// Reconcile collapses a match's persisted manual ledger rows back into one
// editable count per (player, rule). The TEAM and CLUB siblings of an
// assignment normally agree; when the profiles were edited independently
// between completions and the counts diverge, the maximum wins so no recorded
// occurrence is silently dropped. Automatic rows are regenerated on the next
// completion and are not editable.
func Reconcile(entries []Entry) []EditableAssignment {
	type groupKey struct {
		playerID string
		ruleID   string
	}
	counts := make(map[groupKey]int)
	for _, entry := range entries {
		if !entry.Manual {
			continue
		}
		count := entry.InstanceCount
		if count < 1 {
			count = ParseInstanceCount(entry.Notes)
		}
		key := groupKey{playerID: entry.PlayerID, ruleID: entry.RuleID}
		if count > counts[key] {
			counts[key] = count
		}
	}

	assignments := make([]EditableAssignment, 0, len(counts))
	for key, count := range counts {
		assignments = append(assignments, EditableAssignment{
			RuleID:   key.ruleID,
			PlayerID: key.playerID,
			Count:    count,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].PlayerID != assignments[j].PlayerID {
			return assignments[i].PlayerID < assignments[j].PlayerID
		}
		return assignments[i].RuleID < assignments[j].RuleID
	})
	return assignments
}
