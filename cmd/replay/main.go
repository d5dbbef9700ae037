package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	jsonOut := flag.Bool("json", false, "output results as JSON instead of a table")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	results, summary := replay.Replay(f)
	mismatches := replay.Verify(f, results)

	if *jsonOut {
		printJSON(results, summary, mismatches)
	} else {
		printTable(f, results, summary, mismatches)
	}

	if len(mismatches) > 0 {
		os.Exit(1)
	}
}

// #endregion main

// #region output

func printTable(f *replay.Fixture, results []replay.Result, summary replay.Summary, mismatches []replay.Mismatch) {
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}

	fmt.Printf("%-4s  %-20s  %8s  %-10s  %-22s  %s\n",
		"#", "At", "Dose", "Severity", "Skip", "Trigger")
	fmt.Printf("%-4s  %-20s  %8s  %-10s  %-22s  %s\n",
		"----", "--------------------", "--------", "----------", "----------------------", "---------------")

	for _, r := range results {
		trigger := r.Trigger
		if trigger == "" {
			trigger = "—"
		}
		skip := r.SkipReason
		if skip == "" {
			skip = "—"
		}
		fmt.Printf("%-4d  %-20s  %7.1f%%  %-10s  %-22s  %s\n",
			r.Delivery, r.At.Format("2006-01-02T15:04:05Z"), r.DosePercent, r.Severity, skip, trigger)
	}

	fmt.Printf("\nSummary: %d deliveries, %d evaluations, %d interventions, %d compliance resolutions, final dose %.1f%%\n",
		summary.Deliveries, summary.Evaluations, summary.Interventions,
		summary.ComplianceResolved, summary.FinalDosePercent)

	if len(f.Expected) > 0 {
		if len(mismatches) == 0 {
			fmt.Printf("Expectations: %d checked, all match\n", len(f.Expected))
		} else {
			fmt.Printf("Expectations: %d checked, %d diverge\n", len(f.Expected), len(mismatches))
			for _, m := range mismatches {
				fmt.Printf("  %s\n", m)
			}
		}
	}
}

func printJSON(results []replay.Result, summary replay.Summary, mismatches []replay.Mismatch) {
	out := struct {
		Results    []replay.Result   `json:"results"`
		Summary    replay.Summary    `json:"summary"`
		Mismatches []replay.Mismatch `json:"mismatches,omitempty"`
	}{results, summary, mismatches}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

// #endregion output
