package advisor

import (
	"encoding/json"
	"strings"
)

// #region action-type

// ActionType is the closed set of actions an advisor may request.
type ActionType string

const (
	ActionNone           ActionType = "none"
	ActionNotify         ActionType = "notify"
	ActionBreak          ActionType = "break"
	ActionSync           ActionType = "sync"
	ActionAdjustSettings ActionType = "adjust_settings"
)

// #endregion action-type

// #region clamps

const (
	MinDailyLimitPercent = 70.0
	MaxDailyLimitPercent = 100.0
	MinVolumeThresholdDB = 60.0
	MaxVolumeThresholdDB = 95.0
)

// #endregion clamps

// #region decision

// Decision is the flat advisor payload: an action tag plus action-specific
// optional fields. Nothing nested.
type Decision struct {
	Action               ActionType `json:"action"`
	Title                string     `json:"title,omitempty"`
	Body                 string     `json:"body,omitempty"`
	BreakMinutes         int        `json:"breakMinutes,omitempty"`
	TriggerSync          bool       `json:"triggerSync,omitempty"`
	SetDailyLimit        *float64   `json:"setDailyLimit,omitempty"`
	SetVolumeThresholdDB *float64   `json:"setVolumeThresholdDB,omitempty"`
	Reason               string     `json:"reason,omitempty"`
}

// #endregion decision

// #region parse

// ParseDecision extracts the first balanced {...} span from raw (the model
// may wrap JSON in prose or a code fence), decodes it, validates the action
// against the closed set, and clamps numeric fields. Any malformed input is
// "no decision": ok=false, never an error.
func ParseDecision(raw string) (Decision, bool) {
	span := extractJSONObject(raw)
	if span == "" {
		return Decision{}, false
	}

	var d Decision
	if err := json.Unmarshal([]byte(span), &d); err != nil {
		return Decision{}, false
	}

	switch d.Action {
	case ActionNone, ActionNotify, ActionBreak, ActionSync, ActionAdjustSettings:
	default:
		return Decision{}, false
	}

	if d.SetDailyLimit != nil {
		v := clamp(*d.SetDailyLimit, MinDailyLimitPercent, MaxDailyLimitPercent)
		d.SetDailyLimit = &v
	}
	if d.SetVolumeThresholdDB != nil {
		v := clamp(*d.SetVolumeThresholdDB, MinVolumeThresholdDB, MaxVolumeThresholdDB)
		d.SetVolumeThresholdDB = &v
	}
	if d.BreakMinutes < 0 {
		d.BreakMinutes = 0
	}
	return d, true
}

// #endregion parse

// #region helpers

// extractJSONObject returns the first balanced top-level {...} span in s,
// or "" when none closes.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
