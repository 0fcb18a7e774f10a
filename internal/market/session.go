package market

import (
	"fmt"
	"time"
)

// Phase classifies the current market session. It drives broadcast cadence,
// provider ordering, and REST cache lifetimes.
type Phase string

const (
	PhaseRegular     Phase = "regular"
	PhasePreMarket   Phase = "pre-market"
	PhaseAfterMarket Phase = "after-market"
	PhaseOffHours    Phase = "off-hours"
)

// Snapshot is the result of classifying one instant.
type Snapshot struct {
	Phase     Phase
	IsWeekend bool
}

// Label returns the wire representation of the snapshot.
func (s Snapshot) Label() string {
	if s.IsWeekend {
		return "weekend"
	}
	return string(s.Phase)
}

// IsMarketOpen reports whether regular trading is in session.
func (s Snapshot) IsMarketOpen() bool {
	return !s.IsWeekend && s.Phase == PhaseRegular
}

// CacheTTL returns the quote cache lifetime for this phase. Lifetimes
// lengthen progressively outside regular hours, up to whole-day caching
// on weekends.
func (s Snapshot) CacheTTL() time.Duration {
	switch {
	case s.IsWeekend:
		return 24 * time.Hour
	case s.Phase == PhaseRegular:
		return time.Minute
	case s.Phase == PhasePreMarket, s.Phase == PhaseAfterMarket:
		return 5 * time.Minute
	default:
		return time.Hour
	}
}

// Classifier maps wall-clock time to a session phase in the exchange's
// local trading timezone.
type Classifier struct {
	loc *time.Location
}

// NewClassifier creates a classifier for the given IANA timezone.
func NewClassifier(timezone string) (*Classifier, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Classifier{loc: loc}, nil
}

// Classify returns the session snapshot for the given instant. Pure; callers
// re-evaluate it on every tick because phase transitions change both cadence
// and provider ordering.
func (c *Classifier) Classify(now time.Time) Snapshot {
	local := now.In(c.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return Snapshot{Phase: PhaseOffHours, IsWeekend: true}
	}

	// Minutes since midnight, exchange-local.
	m := local.Hour()*60 + local.Minute()
	switch {
	case m >= 9*60+30 && m < 16*60:
		return Snapshot{Phase: PhaseRegular}
	case m >= 4*60 && m < 9*60+30:
		return Snapshot{Phase: PhasePreMarket}
	case m >= 16*60 && m < 20*60:
		return Snapshot{Phase: PhaseAfterMarket}
	default:
		return Snapshot{Phase: PhaseOffHours}
	}
}

// IsMarketOpen reports whether the regular session is open at the instant.
func (c *Classifier) IsMarketOpen(now time.Time) bool {
	return c.Classify(now).IsMarketOpen()
}
