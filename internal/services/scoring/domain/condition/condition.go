// Package condition evaluates one rule condition against a supplied fact set.
package condition

import (
	"strings"

	"github.com/teamtally/teamtally/internal/core/position"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
)

// Operator is the comparison applied between the two operands.
type Operator int

const (
	// OperatorUnspecified represents an invalid operator value.
	OperatorUnspecified Operator = iota
	// OperatorGt is strictly-greater-than.
	OperatorGt
	// OperatorEq is equality.
	OperatorEq
	// OperatorLt is strictly-less-than.
	OperatorLt
	// OperatorGte is greater-than-or-equal.
	OperatorGte
	// OperatorLte is less-than-or-equal.
	OperatorLte
	// OperatorNeq is inequality.
	OperatorNeq
)

// Symbol returns the comparison symbol for an operator.
func (o Operator) Symbol() string {
	switch o {
	case OperatorGt:
		return ">"
	case OperatorEq:
		return "=="
	case OperatorLt:
		return "<"
	case OperatorGte:
		return ">="
	case OperatorLte:
		return "<="
	case OperatorNeq:
		return "!="
	default:
		return "?"
	}
}

// OperatorFromSymbol parses a comparison symbol into an Operator.
func OperatorFromSymbol(value string) Operator {
	switch strings.TrimSpace(value) {
	case ">":
		return OperatorGt
	case "==", "=":
		return OperatorEq
	case "<":
		return OperatorLt
	case ">=":
		return OperatorGte
	case "<=":
		return OperatorLte
	case "!=":
		return OperatorNeq
	default:
		return OperatorUnspecified
	}
}

// Condition is one comparison between a variable's actual value and either a
// numeric literal or another variable of the same scope.
type Condition struct {
	// Variable is the key supplying the left operand.
	Variable string
	Operator Operator
	// Value is the literal right operand. For the position variable it holds
	// the integer position code. Ignored when CompareVariable is set.
	Value float64
	// CompareVariable, when set, supplies the right operand from the same
	// scope as the condition instead of the literal.
	CompareVariable string
	// Scope determines which fact set supplies the left operand.
	Scope variable.Scope
}

// Evaluate resolves both operands and applies the operator. A Player-scope
// condition evaluated without player facts fails. Unresolved variable keys
// coerce to zero values instead of failing the whole evaluation.
func Evaluate(cond Condition, matchFacts, playerFacts variable.Facts) bool {
	facts := matchFacts
	if cond.Scope == variable.ScopePlayer {
		if playerFacts == nil {
			return false
		}
		facts = playerFacts
	}

	left := facts.Lookup(cond.Variable)
	right := rightOperand(cond, facts)
	return compare(cond.Operator, left, right)
}

// rightOperand resolves the right-hand value: a same-scope variable when
// CompareVariable is set, otherwise the literal. Position literals are decoded
// from their integer code before comparison.
func rightOperand(cond Condition, facts variable.Facts) variable.Value {
	if strings.TrimSpace(cond.CompareVariable) != "" {
		return facts.Lookup(cond.CompareVariable)
	}
	if cond.Variable == variable.KeyPosition {
		return variable.Text(position.FromCode(int(cond.Value)).Label())
	}
	return variable.Number(cond.Value)
}

// compare applies type-aware comparison semantics: boolean and enum operands
// only support ==/!=, numeric operands support all six operators.
func compare(op Operator, left, right variable.Value) bool {
	if left.Kind() == variable.KindText || right.Kind() == variable.KindText {
		switch op {
		case OperatorEq:
			return left.AsText() == right.AsText()
		case OperatorNeq:
			return left.AsText() != right.AsText()
		default:
			return false
		}
	}
	if left.Kind() == variable.KindBoolean || right.Kind() == variable.KindBoolean {
		switch op {
		case OperatorEq:
			return left.AsBoolean() == right.AsBoolean()
		case OperatorNeq:
			return left.AsBoolean() != right.AsBoolean()
		default:
			return false
		}
	}

	l, r := left.AsNumber(), right.AsNumber()
	switch op {
	case OperatorGt:
		return l > r
	case OperatorEq:
		return l == r
	case OperatorLt:
		return l < r
	case OperatorGte:
		return l >= r
	case OperatorLte:
		return l <= r
	case OperatorNeq:
		return l != r
	default:
		return false
	}
}

// Trace renders one evaluated condition for audit display.
func Trace(cond Condition, matchFacts, playerFacts variable.Facts) string {
	facts := matchFacts
	if cond.Scope == variable.ScopePlayer {
		facts = playerFacts
	}
	actual := facts.Lookup(cond.Variable)
	right := rightOperand(cond, facts)
	return variable.Trace(cond.Variable, actual) + " " + cond.Operator.Symbol() + " " + right.String()
}
