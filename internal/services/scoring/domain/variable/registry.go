package variable

import "strings"

// Built-in variable keys. These exist for every team without persistence.
const (
	KeyGoalsFor     = "goalsFor"
	KeyGoalsAgainst = "goalsAgainst"
	KeyGoalsScored  = "goalsScored"
	KeyGoalAssists  = "goalAssists"
	KeyCards        = "cards"
	KeySaves        = "saves"
	KeyTackles      = "tackles"
	KeyPosition     = "position"
	KeyPlayed       = "played"
)

// builtIns is the immutable built-in descriptor table.
var builtIns = []Descriptor{
	{Key: KeyGoalsFor, Label: "Goals For", Scope: ScopeMatch, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyGoalsAgainst, Label: "Goals Against", Scope: ScopeMatch, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyGoalsScored, Label: "Goals Scored", Scope: ScopePlayer, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyGoalAssists, Label: "Goal Assists", Scope: ScopePlayer, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyCards, Label: "Cards", Scope: ScopePlayer, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeySaves, Label: "Saves", Scope: ScopePlayer, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyTackles, Label: "Tackles", Scope: ScopePlayer, DataType: DataTypeNumber, Default: Number(0), BuiltIn: true, Active: true},
	{Key: KeyPosition, Label: "Position", Scope: ScopePlayer, DataType: DataTypeEnum, Default: Text(""), BuiltIn: true, Active: true},
	{Key: KeyPlayed, Label: "Played", Scope: ScopePlayer, DataType: DataTypeBoolean, Default: Boolean(false), BuiltIn: true, Active: true},
}

// BuiltIns returns a copy of the built-in descriptor table.
func BuiltIns() []Descriptor {
	out := make([]Descriptor, len(builtIns))
	copy(out, builtIns)
	return out
}

// IsBuiltInKey reports whether a key names a built-in variable.
func IsBuiltInKey(key string) bool {
	key = strings.TrimSpace(key)
	for _, d := range builtIns {
		if d.Key == key {
			return true
		}
	}
	return false
}

// Registry resolves variable keys against the merged view of built-in and
// team-scoped custom descriptors. A Registry is immutable after construction
// and safe for concurrent use.
type Registry struct {
	byScopeKey map[Scope]map[string]Descriptor
}

// NewRegistry builds a registry from the built-in table plus custom
// descriptors. Built-ins always win on key collision; inactive custom
// descriptors are excluded.
func NewRegistry(custom []Descriptor) *Registry {
	merged := map[Scope]map[string]Descriptor{
		ScopeMatch:  make(map[string]Descriptor),
		ScopePlayer: make(map[string]Descriptor),
	}
	for _, d := range custom {
		if !d.Active || d.BuiltIn {
			continue
		}
		key := strings.TrimSpace(d.Key)
		if key == "" {
			continue
		}
		scoped, ok := merged[d.Scope]
		if !ok {
			continue
		}
		d.Key = key
		scoped[key] = d
	}
	for _, d := range builtIns {
		merged[d.Scope][d.Key] = d
	}
	return &Registry{byScopeKey: merged}
}

// Resolve returns the descriptor for a key within a scope. Unknown keys fail
// closed: the zero Descriptor and false are returned, and callers must treat
// the variable's value as 0/false rather than raising.
func (r *Registry) Resolve(key string, scope Scope) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}
	scoped, ok := r.byScopeKey[scope]
	if !ok {
		return Descriptor{}, false
	}
	d, ok := scoped[strings.TrimSpace(key)]
	return d, ok
}
