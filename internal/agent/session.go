package agent

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

// #region session

// Session is a continuous listening stretch ending at the most recent sample.
type Session struct {
	Start time.Time
	End   time.Time
	Key   string
}

// Length returns the span from session start to the last sample's end.
func (s Session) Length() time.Duration {
	return s.End.Sub(s.Start)
}

// #endregion session

// #region current-session

// CurrentSession walks samples backward from the most recent one, merging
// consecutive samples while the gap between one sample's end and the next's
// start stays within gap. Samples must be chronologically sorted. The key is
// the unix-second start of the session's first sample, stable across
// re-fetches of the same data.
func CurrentSession(samples []dose.Sample, gap time.Duration) (Session, bool) {
	if len(samples) == 0 {
		return Session{}, false
	}

	last := samples[len(samples)-1]
	start := last.Start
	for i := len(samples) - 2; i >= 0; i-- {
		if start.Sub(samples[i].End) > gap {
			break
		}
		start = samples[i].Start
	}

	return Session{
		Start: start,
		End:   last.End,
		Key:   fmt.Sprintf("session-%d", start.Unix()),
	}, true
}

// #endregion current-session
