// Package strategy validates user-defined strategies and evaluates their
// entry and exit conditions bar by bar against precomputed indicators.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"

	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/model"
)

// Reserved pseudo-indicators that set take-profit and stop-loss percents
// from an exit condition's value.
const (
	ReservedTakeProfit = "tp"
	ReservedStopLoss   = "sl"
)

// Plan is a validated strategy ready to run. It is safe for concurrent use.
type Plan struct {
	Strategy model.Strategy
	Entry    []Condition
	Exit     []Condition
	refs     []indicator.Ref
}

// Compile applies defaults, validates the strategy and resolves every
// indicator reference. The input is not modified. Any problem returns a
// *ValidationError wrapping model.ErrMalformedStrategy.
func Compile(s model.Strategy) (*Plan, error) {
	cp := s
	cp.Entry = append([]model.Condition(nil), s.Entry...)
	cp.Exit = append([]model.Condition(nil), s.Exit...)
	if err := defaults.Set(&cp); err != nil {
		return nil, fmt.Errorf("strategy defaults: %w", err)
	}

	verr := &ValidationError{}
	p := &Plan{}

	for i, c := range cp.Entry {
		field := fmt.Sprintf("entryConditions[%d]", i)
		if isReserved(c.Indicator) {
			verr.add(field+".indicator", "%q is only allowed in exit conditions", c.Indicator)
			continue
		}
		if cc, ok := resolve(c, field, verr); ok {
			p.Entry = append(p.Entry, cc)
		}
	}
	for i, c := range cp.Exit {
		field := fmt.Sprintf("exitConditions[%d]", i)
		if isReserved(c.Indicator) {
			applyReserved(&cp, c, field, verr)
			continue
		}
		if cc, ok := resolve(c, field, verr); ok {
			p.Exit = append(p.Exit, cc)
		}
	}

	structErrors(&cp, verr)
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	p.Strategy = cp
	p.refs = collectRefs(p.Entry, p.Exit)
	return p, nil
}

func isReserved(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == ReservedTakeProfit || n == ReservedStopLoss
}

func applyReserved(s *model.Strategy, c model.Condition, field string, verr *ValidationError) {
	if c.Value == nil || *c.Value <= 0 {
		verr.add(field+".value", "%s needs a positive percent value", c.Indicator)
		return
	}
	if strings.EqualFold(strings.TrimSpace(c.Indicator), ReservedTakeProfit) {
		s.TakeProfitPercent = *c.Value
	} else {
		s.StopLossPercent = *c.Value
	}
}

func resolve(c model.Condition, field string, verr *ValidationError) (Condition, bool) {
	ok := true
	if c.Operator == "" {
		verr.add(field+".operator", "is required")
		ok = false
	}
	left, err := indicator.ParseRef(c.Indicator)
	if err != nil {
		// an empty name is reported by the struct tags
		if c.Indicator != "" {
			verr.add(field+".indicator", "%s", refMessage(err, c.Indicator))
		}
		ok = false
	}
	out := Condition{Left: left, Op: c.Operator}

	switch {
	case c.Value != nil && c.Compare != "":
		verr.add(field, "value and compare are mutually exclusive")
		ok = false
	case c.Value != nil:
		out.Const = *c.Value
	case c.Compare != "":
		right, err := indicator.ParseRef(c.Compare)
		if err != nil {
			verr.add(field+".compare", "%s", refMessage(err, c.Compare))
			ok = false
		} else {
			out.Right = &right
		}
	default:
		verr.add(field, "one of value or compare is required")
		ok = false
	}
	return out, ok
}

func refMessage(err error, name string) string {
	if errors.Is(err, model.ErrUnknownIndicator) {
		return fmt.Sprintf("unknown indicator %q", name)
	}
	return err.Error()
}

func collectRefs(groups ...[]Condition) []indicator.Ref {
	var out []indicator.Ref
	seen := map[string]bool{}
	for _, g := range groups {
		for _, c := range g {
			for _, r := range c.Refs() {
				if !seen[r.Name()] {
					seen[r.Name()] = true
					out = append(out, r)
				}
			}
		}
	}
	return out
}

// Refs lists the unique indicator references the plan needs computed.
func (p *Plan) Refs() []indicator.Ref {
	return append([]indicator.Ref(nil), p.refs...)
}

// TakeProfitPercent is the configured take-profit distance.
func (p *Plan) TakeProfitPercent() float64 { return p.Strategy.TakeProfitPercent }

// StopLossPercent is the configured stop-loss distance.
func (p *Plan) StopLossPercent() float64 { return p.Strategy.StopLossPercent }

// RiskPercent is the share of equity exposed per trade.
func (p *Plan) RiskPercent() float64 { return p.Strategy.RiskPercent }

// EntrySignal is true when every entry condition holds at bar.
func (p *Plan) EntrySignal(bar int, v Values) bool {
	if len(p.Entry) == 0 {
		return false
	}
	for _, c := range p.Entry {
		if !c.Evaluate(bar, v) {
			return false
		}
	}
	return true
}

// ExitSignal is true when any exit condition holds at bar.
func (p *Plan) ExitSignal(bar int, v Values) bool {
	for _, c := range p.Exit {
		if c.Evaluate(bar, v) {
			return true
		}
	}
	return false
}
