package insight

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

// #region severity

// Severity is the four-level taxonomy shared by display and agent decisions.
type Severity string

const (
	SeverityInactive Severity = "inactive"
	SeveritySafe     Severity = "safe"
	SeverityWarning  Severity = "warning"
	SeverityDanger   Severity = "danger"
)

// #endregion severity

// #region insight

// Insight maps dose and burn-rate analysis into a severity plus a summary.
type Insight struct {
	Severity            Severity
	Message             string
	ETAToLimit          *time.Duration
	BurnRatePerHour     float64
	IsActivelyListening bool
}

// #endregion insight

// #region thresholds

const (
	dangerPeakDB       = 95.0
	warningDosePercent = 70.0
	warningETA         = 30 * time.Minute
)

// #endregion thresholds

// #region classify

// Classify is a pure mapping from the current dose result and burn-rate
// window onto a severity and templated message. The eta comes from the
// caller's ETAToLimit projection against the configured limit. No external
// calls.
func Classify(result dose.DoseResult, burn dose.BurnRate, eta *time.Duration) Insight {
	ins := Insight{
		ETAToLimit:          eta,
		BurnRatePerHour:     burn.PerHourPercent,
		IsActivelyListening: burn.IsActivelyListening,
	}

	switch {
	case !burn.IsActivelyListening && burn.LastSampleEnd.IsZero():
		ins.Severity = SeverityInactive
		ins.Message = fmt.Sprintf("No recent listening activity. Today's dose is %.0f%%.", result.DosePercent)

	case result.DosePercent >= 100:
		ins.Severity = SeverityDanger
		ins.Message = fmt.Sprintf("Daily exposure budget spent: %.0f%% of the safe dose.", result.DosePercent)

	case burn.IsActivelyListening && result.PeakLevelDB >= dangerPeakDB:
		ins.Severity = SeverityDanger
		ins.Message = fmt.Sprintf("Peak level %.0f dB while listening. Lower the volume now.", result.PeakLevelDB)

	case eta != nil && *eta <= warningETA:
		ins.Severity = SeverityWarning
		ins.Message = fmt.Sprintf("At the current rate the daily limit is about %.0f minutes away.", eta.Minutes())

	case burn.IsActivelyListening && result.DosePercent >= warningDosePercent:
		ins.Severity = SeverityWarning
		ins.Message = fmt.Sprintf("Dose at %.0f%% of the daily budget and still listening.", result.DosePercent)

	case burn.IsActivelyListening:
		ins.Severity = SeveritySafe
		ins.Message = fmt.Sprintf("Listening within a safe range: %.0f%% of today's budget used.", result.DosePercent)

	default:
		ins.Severity = SeverityInactive
		ins.Message = fmt.Sprintf("Not actively listening. Today's dose is %.0f%%.", result.DosePercent)
	}

	return ins
}

// #endregion classify
