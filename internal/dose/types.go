package dose

import "time"

// #region sample

// Sample is one contiguous stretch of sound-level exposure.
// Samples arrive deduplicated and chronologically sorted from the collector.
type Sample struct {
	Start   time.Time
	End     time.Time
	LevelDB float64
}

// Duration returns End - Start. Samples with non-positive duration
// or non-positive level contribute nothing to dose.
func (s Sample) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// #endregion sample

// #region dose-result

// DoseResult is the recomputed-per-cycle summary of a day's exposure.
type DoseResult struct {
	DosePercent    float64
	TotalExposure  time.Duration
	AverageLevelDB float64 // time-weighted; 0 when no exposure
	PeakLevelDB    float64
	TimeAbove85    time.Duration
	TimeAbove90    time.Duration
}

// #endregion dose-result

// #region burn-rate

// BurnRate is the output of analyzing a recent rolling window of samples.
type BurnRate struct {
	PerHourPercent      float64
	WindowDosePercent   float64
	IsActivelyListening bool
	LastSampleEnd       time.Time // zero when the window has no samples
}

// BurnRateOptions tunes the rolling-window analysis.
type BurnRateOptions struct {
	Window           time.Duration // width of the rolling window
	RecencyThreshold time.Duration // max age of the last sample end to count as active
}

// DefaultBurnRateOptions returns the standard 30-minute window with a
// 10-minute activity recency threshold.
func DefaultBurnRateOptions() BurnRateOptions {
	return BurnRateOptions{
		Window:           30 * time.Minute,
		RecencyThreshold: 10 * time.Minute,
	}
}

// #endregion burn-rate
