// Package variable defines the named values usable inside scoring conditions
// and the registry that resolves them.
//
// Built-in variables exist implicitly for every team and are never persisted.
// Custom, team-scoped variables are layered over the built-in table at lookup
// time; the merged view is immutable once constructed.
package variable

import "strings"

// Scope determines which fact set supplies a variable's value.
type Scope int

const (
	// ScopeUnspecified represents an invalid scope value.
	ScopeUnspecified Scope = iota
	// ScopeMatch resolves against match-level facts.
	ScopeMatch
	// ScopePlayer resolves against per-player facts.
	ScopePlayer
)

// DataType describes the value type a variable carries.
type DataType int

const (
	// DataTypeUnspecified represents an invalid data type value.
	DataTypeUnspecified DataType = iota
	// DataTypeNumber is a numeric value.
	DataTypeNumber
	// DataTypeBoolean is a true/false value.
	DataTypeBoolean
	// DataTypeEnum is a string drawn from a fixed set of labels.
	DataTypeEnum
)

// Label returns a stable label for a scope.
func (s Scope) Label() string {
	switch s {
	case ScopeMatch:
		return "MATCH"
	case ScopePlayer:
		return "PLAYER"
	default:
		return "UNSPECIFIED"
	}
}

// ScopeFromLabel parses a string label into a Scope.
// It trims whitespace and matches case-insensitively.
func ScopeFromLabel(value string) Scope {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "MATCH":
		return ScopeMatch
	case "PLAYER":
		return ScopePlayer
	default:
		return ScopeUnspecified
	}
}

// Label returns a stable label for a data type.
func (d DataType) Label() string {
	switch d {
	case DataTypeNumber:
		return "NUMBER"
	case DataTypeBoolean:
		return "BOOLEAN"
	case DataTypeEnum:
		return "ENUM"
	default:
		return "UNSPECIFIED"
	}
}

// DataTypeFromLabel parses a string label into a DataType.
// It trims whitespace and matches case-insensitively.
func DataTypeFromLabel(value string) DataType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "NUMBER":
		return DataTypeNumber
	case "BOOLEAN":
		return DataTypeBoolean
	case "ENUM":
		return DataTypeEnum
	default:
		return DataTypeUnspecified
	}
}

// Descriptor describes one named value usable inside conditions.
type Descriptor struct {
	// Key is the stable identifier, unique within the owning team.
	Key      string
	Label    string
	Scope    Scope
	DataType DataType
	// Default is the value used when no fact is supplied.
	Default Value
	// BuiltIn descriptors are immutable and cannot be deleted or disabled.
	BuiltIn bool
	Active  bool
}
