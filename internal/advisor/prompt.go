package advisor

import (
	"fmt"
	"strings"
	"time"
)

// #region context

// Context is the structured fact set handed to the advisor each cycle.
type Context struct {
	DosePercent         float64
	BurnRatePerHour     float64
	ETAToLimit          *time.Duration
	IsActivelyListening bool
	CurrentLevelDB      float64
	SessionLength       time.Duration
	DailyLimitPercent   float64
	VolumeThresholdDB   float64
	QuietHoursActive    bool
}

// #endregion context

// #region prompt

// BuildPrompt renders the decision request. The contract section pins the
// flat JSON shape the model must answer with.
func BuildPrompt(c Context) string {
	var b strings.Builder

	b.WriteString("You advise a hearing-safety agent. Decide whether to intervene right now.\n\n")
	b.WriteString("Current facts:\n")
	fmt.Fprintf(&b, "- daily dose: %.1f%% of a %.0f%% limit\n", c.DosePercent, c.DailyLimitPercent)
	fmt.Fprintf(&b, "- burn rate: %.2f%%/hour\n", c.BurnRatePerHour)
	if c.ETAToLimit != nil {
		fmt.Fprintf(&b, "- projected time to limit: %.0f minutes\n", c.ETAToLimit.Minutes())
	} else {
		b.WriteString("- projected time to limit: none (not accruing)\n")
	}
	fmt.Fprintf(&b, "- actively listening on headphones: %v\n", c.IsActivelyListening)
	fmt.Fprintf(&b, "- current level: %.1f dB (alert threshold %.0f dB)\n", c.CurrentLevelDB, c.VolumeThresholdDB)
	fmt.Fprintf(&b, "- continuous session length: %.0f minutes\n", c.SessionLength.Minutes())
	fmt.Fprintf(&b, "- quiet hours active: %v\n", c.QuietHoursActive)

	b.WriteString("\nAnswer with a single flat JSON object and nothing else:\n")
	b.WriteString(`{"action":"none|notify|break|sync|adjust_settings",` + "\n")
	b.WriteString(` "title":"...", "body":"...", "breakMinutes":0, "triggerSync":false,` + "\n")
	b.WriteString(` "setDailyLimit":0, "setVolumeThresholdDB":0, "reason":"..."}` + "\n")
	b.WriteString("Only include the optional fields your action needs. Prefer \"none\" unless intervening clearly helps.\n")

	return b.String()
}

// #endregion prompt
