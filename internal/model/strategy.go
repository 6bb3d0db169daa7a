package model

import "time"

// Operator is a comparison between two indicator values at a bar.
type Operator string

const (
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpEquals       Operator = "equals"
	OpCrossesAbove Operator = "crosses_above"
	OpCrossesBelow Operator = "crosses_below"
)

// Valid reports whether op is one of the five supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpEquals, OpCrossesAbove, OpCrossesBelow:
		return true
	}
	return false
}

// Edge reports whether the operator needs the previous bar.
func (op Operator) Edge() bool {
	return op == OpCrossesAbove || op == OpCrossesBelow
}

// Condition compares an indicator against either a constant Value or
// another indicator named by Compare. Exactly one of the two is set.
type Condition struct {
	Indicator string   `json:"indicator" yaml:"indicator" validate:"required"`
	Operator  Operator `json:"operator" yaml:"operator" validate:"omitempty,oneof=greater_than less_than equals crosses_above crosses_below"`
	Value     *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Compare   string   `json:"compare,omitempty" yaml:"compare,omitempty"`
}

// Float is a helper for building conditions with literal values.
func Float(v float64) *float64 { return &v }

// Strategy is a user-defined rule set. Entry conditions are ANDed, exit
// conditions are ORed together with the take-profit and stop-loss levels.
type Strategy struct {
	ID                string      `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name" validate:"required,max=128"`
	Symbol            string      `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Timeframe         string      `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	RiskPercent       float64     `json:"riskPercent" yaml:"riskPercent" default:"100" validate:"gt=0,lte=100"`
	TakeProfitPercent float64     `json:"takeProfitPercent" yaml:"takeProfitPercent" default:"5" validate:"gt=0"`
	StopLossPercent   float64     `json:"stopLossPercent" yaml:"stopLossPercent" default:"2" validate:"gt=0,lt=100"`
	Entry             []Condition `json:"entryConditions" yaml:"entryConditions" validate:"required,min=1,dive"`
	Exit              []Condition `json:"exitConditions" yaml:"exitConditions" validate:"omitempty,dive"`
	CreatedAt         time.Time   `json:"createdAt,omitempty" yaml:"-"`
}
