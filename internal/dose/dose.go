package dose

import "time"

// #region daily-dose

// CalculateDailyDose accumulates dose contributions across a day's samples.
// Each sample contributes (duration / allowableTime(level)) * 100. Samples
// with non-positive duration or level are skipped. Empty input yields a
// zero result.
func (s Standards) CalculateDailyDose(samples []Sample) DoseResult {
	var result DoseResult
	var levelWeighted float64 // sum of level * seconds, for the time-weighted average

	for _, sample := range samples {
		dur := sample.Duration()
		if dur <= 0 || sample.LevelDB <= 0 {
			continue
		}

		allowable := s.AllowableTime(sample.LevelDB)
		result.DosePercent += dur.Seconds() / allowable.Seconds() * 100
		result.TotalExposure += dur
		levelWeighted += sample.LevelDB * dur.Seconds()

		if sample.LevelDB > result.PeakLevelDB {
			result.PeakLevelDB = sample.LevelDB
		}
		if sample.LevelDB >= 85 {
			result.TimeAbove85 += dur
		}
		if sample.LevelDB >= 90 {
			result.TimeAbove90 += dur
		}
	}

	if result.TotalExposure > 0 {
		result.AverageLevelDB = levelWeighted / result.TotalExposure.Seconds()
	}
	return result
}

// #endregion daily-dose

// #region burn-rate-analysis

// AnalyzeBurnRate computes the dose accrued inside a rolling window ending
// at now, normalized to a per-hour rate. Activity requires both a sample
// ending within the recency threshold and a headphone-class output device;
// the headphone signal is supplied by the caller, not derived here.
func (s Standards) AnalyzeBurnRate(recent []Sample, now time.Time, headphoneOutput bool, opts BurnRateOptions) BurnRate {
	windowStart := now.Add(-opts.Window)

	var br BurnRate
	for _, sample := range recent {
		if sample.LevelDB <= 0 || !sample.End.After(windowStart) {
			continue
		}
		// Clip the sample to the window before computing its contribution.
		start := sample.Start
		if start.Before(windowStart) {
			start = windowStart
		}
		end := sample.End
		if end.After(now) {
			end = now
		}
		dur := end.Sub(start)
		if dur <= 0 {
			continue
		}

		allowable := s.AllowableTime(sample.LevelDB)
		br.WindowDosePercent += dur.Seconds() / allowable.Seconds() * 100

		if sample.End.After(br.LastSampleEnd) {
			br.LastSampleEnd = sample.End
		}
	}

	if opts.Window > 0 {
		br.PerHourPercent = br.WindowDosePercent / opts.Window.Hours()
	}

	if !br.LastSampleEnd.IsZero() && now.Sub(br.LastSampleEnd) <= opts.RecencyThreshold && headphoneOutput {
		br.IsActivelyListening = true
	}
	return br
}

// #endregion burn-rate-analysis

// #region eta

// ETAToLimit projects the time until dose reaches the daily limit at the
// current burn rate. Returns 0 when already at or above the limit while
// actively listening, nil when the burn rate is zero or negative.
func ETAToLimit(dosePercent, limitPercent, burnPerHour float64, active bool) *time.Duration {
	if dosePercent >= limitPercent {
		if !active {
			return nil
		}
		zero := time.Duration(0)
		return &zero
	}
	if burnPerHour <= 0 {
		return nil
	}
	eta := time.Duration((limitPercent - dosePercent) / burnPerHour * float64(time.Hour))
	return &eta
}

// #endregion eta
