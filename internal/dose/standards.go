package dose

import (
	"math"
	"time"
)

// #region standards

// Standards parameterizes the exchange-rate exposure model.
type Standards struct {
	ReferenceLevelDB  float64
	ExchangeRateDB    float64
	ReferenceDuration time.Duration
}

// NIOSH is the 85 dB / 3 dB exchange-rate preset over an 8-hour reference day.
var NIOSH = Standards{
	ReferenceLevelDB:  85,
	ExchangeRateDB:    3,
	ReferenceDuration: 8 * time.Hour,
}

// OSHA is the 90 dB / 5 dB exchange-rate preset over an 8-hour reference day.
var OSHA = Standards{
	ReferenceLevelDB:  90,
	ExchangeRateDB:    5,
	ReferenceDuration: 8 * time.Hour,
}

// #endregion standards

// #region allowable-time

const (
	minAllowable = time.Second
	maxAllowable = 24 * time.Hour
)

// AllowableTime returns the safe continuous listening duration at a level,
// clamped to [1s, 24h]. Every ExchangeRateDB increase halves the result.
func (s Standards) AllowableTime(levelDB float64) time.Duration {
	exp := (s.ReferenceLevelDB - levelDB) / s.ExchangeRateDB
	secs := s.ReferenceDuration.Seconds() * math.Pow(2, exp)
	d := time.Duration(secs * float64(time.Second))
	if d < minAllowable {
		return minAllowable
	}
	if d > maxAllowable {
		return maxAllowable
	}
	return d
}

// #endregion allowable-time

// #region remaining-safe-time

// RemainingSafeTime returns how long listening at atLevelDB can continue
// before the remaining dose budget is spent. Floored at zero.
func (s Standards) RemainingSafeTime(dosePercent, atLevelDB float64) time.Duration {
	remaining := (100 - dosePercent) / 100
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining * float64(s.AllowableTime(atLevelDB)))
}

// #endregion remaining-safe-time

// #region safe-level

// SafeLevelForRemainingTime solves the allowable-time formula for the level
// that would consume exactly the remaining dose budget over the given
// duration. Returns false when the budget is already spent or the duration
// is non-positive.
func (s Standards) SafeLevelForRemainingTime(dosePercent float64, remaining time.Duration) (float64, bool) {
	if dosePercent >= 100 || remaining <= 0 {
		return 0, false
	}
	// allowable(level) must equal remaining / (budget fraction)
	budget := (100 - dosePercent) / 100
	target := remaining.Seconds() / budget
	level := s.ReferenceLevelDB - s.ExchangeRateDB*math.Log2(target/s.ReferenceDuration.Seconds())
	return level, true
}

// #endregion safe-level
