package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"trading-backtestv1/internal/model"
)

// Kind is the closed set of indicator outputs a strategy can reference.
type Kind string

const (
	KindOpen       Kind = "OPEN"
	KindHigh       Kind = "HIGH"
	KindLow        Kind = "LOW"
	KindClose      Kind = "CLOSE"
	KindVolume     Kind = "VOLUME"
	KindSMA        Kind = "SMA"
	KindEMA        Kind = "EMA"
	KindRSI        Kind = "RSI"
	KindMACD       Kind = "MACD"
	KindMACDSignal Kind = "MACD_SIGNAL"
	KindMACDHist   Kind = "MACD_HIST"
	KindBBUpper    Kind = "BB_UPPER"
	KindBBMiddle   Kind = "BB_MIDDLE"
	KindBBLower    Kind = "BB_LOWER"
	KindBBWidth    Kind = "BB_WIDTH"
	KindStochRSI   Kind = "STOCHRSI"
	KindATR        Kind = "ATR"
	KindTenkan     Kind = "TENKAN"
	KindKijun      Kind = "KIJUN"
	KindSenkouA    Kind = "SENKOU_A"
	KindSenkouB    Kind = "SENKOU_B"
	KindCloud      Kind = "ICHIMOKU_CLOUD"
)

// aliases maps alternative spellings onto a Kind.
var aliases = map[string]Kind{
	"PRICE":          KindClose,
	"MACD_LINE":      KindMACD,
	"MACD_HISTOGRAM": KindMACDHist,
	"STOCH_RSI":      KindStochRSI,
	"BB_BANDWIDTH":   KindBBWidth,
	"TENKAN_SEN":     KindTenkan,
	"KIJUN_SEN":      KindKijun,
	"CLOUD":          KindCloud,
}

// MaxPeriod bounds every lookback a reference may ask for.
const MaxPeriod = 5000

// Ref names one series: a Kind plus its lookback period (0 for kinds without one).
type Ref struct {
	Kind   Kind
	Period int
}

// Name returns the canonical reference string, e.g. "SMA_20" or "MACD_SIGNAL".
func (r Ref) Name() string {
	if r.Period == 0 {
		return string(r.Kind)
	}
	return string(r.Kind) + "_" + strconv.Itoa(r.Period)
}

func (r Ref) String() string { return r.Name() }

// ParseRef resolves a user-facing indicator reference. Accepted forms are
// "RSI", "RSI_14", "rsi(14)" and the aliases above. Kinds that take a period
// get their default when none is given.
func ParseRef(s string) (Ref, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", model.ErrUnknownIndicator)
	}

	name, period, hasPeriod, err := splitPeriod(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", model.ErrUnknownIndicator, s, err)
	}
	if k, ok := aliases[name]; ok {
		name = string(k)
	}
	spec, ok := registry[Kind(name)]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q", model.ErrUnknownIndicator, s)
	}
	if !spec.periodic {
		if hasPeriod {
			return Ref{}, fmt.Errorf("%w: %q takes no period", model.ErrUnknownIndicator, s)
		}
		return Ref{Kind: Kind(name)}, nil
	}
	if !hasPeriod {
		period = spec.defaultPeriod
	}
	if period < 1 {
		return Ref{}, fmt.Errorf("%w: %q: period must be positive", model.ErrUnknownIndicator, s)
	}
	if period > MaxPeriod {
		return Ref{}, fmt.Errorf("%w: %q: period above %d", model.ErrUnknownIndicator, s, MaxPeriod)
	}
	return Ref{Kind: Kind(name), Period: period}, nil
}

// MustParseRef is ParseRef for literals known to be valid.
func MustParseRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// splitPeriod handles "NAME(n)" and "NAME_n".
func splitPeriod(s string) (name string, period int, ok bool, err error) {
	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return "", 0, false, fmt.Errorf("unbalanced parenthesis")
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[i+1 : len(s)-1]))
		if err != nil {
			return "", 0, false, fmt.Errorf("bad period")
		}
		return strings.TrimSpace(s[:i]), n, true, nil
	}
	if i := strings.LastIndexByte(s, '_'); i > 0 {
		if n, err := strconv.Atoi(s[i+1:]); err == nil {
			return s[:i], n, true, nil
		}
	}
	return s, 0, false, nil
}
