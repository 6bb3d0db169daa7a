package strategy

import (
	"fmt"
	"math"
	"strconv"

	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/model"
)

// equalsTolerance absorbs floating-point noise for the equals operator.
const equalsTolerance = 0.01

// Values resolves an indicator reference at a bar. *indicator.Set satisfies it.
type Values interface {
	Value(r indicator.Ref, bar int) (float64, bool)
}

// Condition is a compiled, fully resolved condition.
type Condition struct {
	Left  indicator.Ref
	Op    model.Operator
	Right *indicator.Ref // nil when comparing against Const
	Const float64
}

func (c Condition) String() string {
	rhs := strconv.FormatFloat(c.Const, 'f', -1, 64)
	if c.Right != nil {
		rhs = c.Right.Name()
	}
	return fmt.Sprintf("%s %s %s", c.Left.Name(), c.Op, rhs)
}

// Refs returns the indicator references the condition reads.
func (c Condition) Refs() []indicator.Ref {
	if c.Right != nil {
		return []indicator.Ref{c.Left, *c.Right}
	}
	return []indicator.Ref{c.Left}
}

func (c Condition) operands(v Values, bar int) (left, right float64, ok bool) {
	left, ok = v.Value(c.Left, bar)
	if !ok {
		return 0, 0, false
	}
	if c.Right == nil {
		return left, c.Const, true
	}
	right, ok = v.Value(*c.Right, bar)
	return left, right, ok
}

// Evaluate resolves the condition at bar. Undefined values make it false, and
// crossing operators are false at bar 0 since there is no previous bar.
func (c Condition) Evaluate(bar int, v Values) bool {
	cur, cmp, ok := c.operands(v, bar)
	if !ok {
		return false
	}
	switch c.Op {
	case model.OpGreaterThan:
		return cur > cmp
	case model.OpLessThan:
		return cur < cmp
	case model.OpEquals:
		return math.Abs(cur-cmp) < equalsTolerance
	case model.OpCrossesAbove, model.OpCrossesBelow:
		if bar < 1 {
			return false
		}
		prev, prevCmp, ok := c.operands(v, bar-1)
		if !ok {
			return false
		}
		if c.Op == model.OpCrossesAbove {
			return prev <= prevCmp && cur > cmp
		}
		return prev >= prevCmp && cur < cmp
	}
	return false
}
