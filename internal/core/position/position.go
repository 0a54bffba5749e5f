// Package position maps playing positions to their stable integer codes.
//
// Rule conditions store positions as integer literals, so the mapping between
// codes and positions must stay bijective for codes 1..4.
package position

import "strings"

// Position identifies a playing position on the pitch.
type Position int

const (
	// PositionUnspecified represents an unknown or invalid position value.
	PositionUnspecified Position = iota
	// PositionGoalkeeper indicates a goalkeeper.
	PositionGoalkeeper
	// PositionDefender indicates a defender.
	PositionDefender
	// PositionMidfielder indicates a midfielder.
	PositionMidfielder
	// PositionForward indicates a forward.
	PositionForward
)

// FromCode decodes a stored integer code into a Position.
// Out-of-range codes map to PositionUnspecified.
func FromCode(code int) Position {
	switch code {
	case 1:
		return PositionGoalkeeper
	case 2:
		return PositionDefender
	case 3:
		return PositionMidfielder
	case 4:
		return PositionForward
	default:
		return PositionUnspecified
	}
}

// Code returns the stable integer code for a position, or 0 when unspecified.
func (p Position) Code() int {
	switch p {
	case PositionGoalkeeper:
		return 1
	case PositionDefender:
		return 2
	case PositionMidfielder:
		return 3
	case PositionForward:
		return 4
	default:
		return 0
	}
}

// Label returns a stable label for a position.
func (p Position) Label() string {
	switch p {
	case PositionGoalkeeper:
		return "GOALKEEPER"
	case PositionDefender:
		return "DEFENDER"
	case PositionMidfielder:
		return "MIDFIELDER"
	case PositionForward:
		return "FORWARD"
	default:
		return "UNSPECIFIED"
	}
}

// FromLabel parses a string label into a Position. It trims whitespace and
// matches case-insensitively. Unknown labels map to PositionUnspecified.
func FromLabel(value string) Position {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "GOALKEEPER":
		return PositionGoalkeeper
	case "DEFENDER":
		return PositionDefender
	case "MIDFIELDER":
		return PositionMidfielder
	case "FORWARD":
		return PositionForward
	default:
		return PositionUnspecified
	}
}
