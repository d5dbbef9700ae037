package insight

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

func etaPtr(d time.Duration) *time.Duration { return &d }

func TestClassify(t *testing.T) {
	end := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	activeBurn := dose.BurnRate{PerHourPercent: 10, IsActivelyListening: true, LastSampleEnd: end}
	idleBurn := dose.BurnRate{}

	tests := []struct {
		name   string
		result dose.DoseResult
		burn   dose.BurnRate
		eta    *time.Duration
		want   Severity
	}{
		{"no-activity", dose.DoseResult{DosePercent: 20}, idleBurn, nil, SeverityInactive},
		{"dose-over-100", dose.DoseResult{DosePercent: 104}, activeBurn, etaPtr(0), SeverityDanger},
		{"dose-over-100-idle", dose.DoseResult{DosePercent: 104}, idleBurn, nil, SeverityInactive},
		{"peak-while-active", dose.DoseResult{DosePercent: 30, PeakLevelDB: 97}, activeBurn, nil, SeverityDanger},
		{"peak-while-idle", dose.DoseResult{DosePercent: 30, PeakLevelDB: 97}, idleBurn, nil, SeverityInactive},
		{"eta-imminent", dose.DoseResult{DosePercent: 60}, activeBurn, etaPtr(20 * time.Minute), SeverityWarning},
		{"high-dose-active", dose.DoseResult{DosePercent: 75}, activeBurn, etaPtr(2 * time.Hour), SeverityWarning},
		{"safe", dose.DoseResult{DosePercent: 30}, activeBurn, etaPtr(6 * time.Hour), SeveritySafe},
		{"recent-but-not-active", dose.DoseResult{DosePercent: 30}, dose.BurnRate{LastSampleEnd: end}, nil, SeverityInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := Classify(tt.result, tt.burn, tt.eta)
			if ins.Severity != tt.want {
				t.Errorf("severity: got %q, want %q (message=%q)", ins.Severity, tt.want, ins.Message)
			}
			if ins.Message == "" {
				t.Error("expected a non-empty message")
			}
		})
	}
}

func TestClassify_CarriesBurnFields(t *testing.T) {
	burn := dose.BurnRate{PerHourPercent: 12.5, IsActivelyListening: true, LastSampleEnd: time.Now()}
	eta := etaPtr(45 * time.Minute)

	ins := Classify(dose.DoseResult{DosePercent: 10}, burn, eta)
	if ins.BurnRatePerHour != 12.5 {
		t.Errorf("burn rate: got %.2f, want 12.5", ins.BurnRatePerHour)
	}
	if !ins.IsActivelyListening {
		t.Error("expected active flag carried through")
	}
	if ins.ETAToLimit == nil || *ins.ETAToLimit != 45*time.Minute {
		t.Errorf("eta: got %v, want 45m", ins.ETAToLimit)
	}
}
