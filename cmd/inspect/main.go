package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to exposure.db")
	last := flag.Int("last", 20, "show N most recent rows")
	show := flag.String("show", "interventions", "what to list: interventions|compliance|sync|decisions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of a table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/exposure.db [--show interventions|compliance|sync|decisions] [--last N] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch *show {
	case "interventions":
		err = showInterventions(st, *last, *jsonOut)
	case "compliance":
		err = showCompliance(st, *last, *jsonOut)
	case "sync":
		err = showSync(st, *last, *jsonOut)
	case "decisions":
		err = showDecisions(st, *last, *jsonOut)
	default:
		fmt.Fprintf(os.Stderr, "unknown --show value %q\n", *show)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region interventions

func showInterventions(st *store.Store, last int, jsonOut bool) error {
	interventions, err := st.ListInterventions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(interventions)
	}
	if len(interventions) == 0 {
		fmt.Fprintln(os.Stderr, "no interventions found")
		return nil
	}

	fmt.Printf("%-10s  %-20s  %-15s  %8s  %-10s  %s\n",
		"ID", "Time", "Trigger", "Dose", "Resolved", "Outcome")
	fmt.Printf("%-10s  %-20s  %-15s  %8s  %-10s  %s\n",
		"----------", "--------------------", "---------------", "--------", "----------", "---------------")

	for _, iv := range interventions {
		outcome := string(iv.Outcome)
		if outcome == "" {
			outcome = "—"
		}
		fmt.Printf("%-10s  %-20s  %-15s  %7.1f%%  %-10v  %s\n",
			shortID(iv.ID), iv.Timestamp.Format("2006-01-02T15:04:05Z"),
			iv.Trigger, iv.DosePercent, iv.Resolved, outcome)
	}
	return nil
}

// #endregion interventions

// #region compliance

func showCompliance(st *store.Store, last int, jsonOut bool) error {
	events, err := st.ListCompliance(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "no compliance events found")
		return nil
	}

	fmt.Printf("%-10s  %-10s  %-20s  %-17s  %10s  %s\n",
		"ID", "Interv", "Time", "Outcome", "Response", "Delta dB")
	fmt.Printf("%-10s  %-10s  %-20s  %-17s  %10s  %s\n",
		"----------", "----------", "--------------------", "-----------------", "----------", "--------")

	for _, ev := range events {
		response := "—"
		if ev.ResponseSeconds != nil {
			response = fmt.Sprintf("%.0fs", *ev.ResponseSeconds)
		}
		delta := "—"
		if ev.VolumeDeltaDB != nil {
			delta = fmt.Sprintf("%.1f", *ev.VolumeDeltaDB)
		}
		fmt.Printf("%-10s  %-10s  %-20s  %-17s  %10s  %s\n",
			shortID(ev.ID), shortID(ev.InterventionID),
			ev.Timestamp.Format("2006-01-02T15:04:05Z"), ev.Outcome, response, delta)
	}

	printOutcomeCounts(events)
	return nil
}

func printOutcomeCounts(events []event.Compliance) {
	counts := map[event.Outcome]int{}
	for _, ev := range events {
		counts[ev.Outcome]++
	}
	fmt.Printf("\nOutcomes: stopped=%d reduced=%d no_change=%d\n",
		counts[event.OutcomeStoppedListening],
		counts[event.OutcomeVolumeReduced],
		counts[event.OutcomeNoChange])
}

// #endregion compliance

// #region sync

func showSync(st *store.Store, last int, jsonOut bool) error {
	records, err := st.ListSyncLog(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no sync records found")
		return nil
	}

	fmt.Printf("%-20s  %10s  %s\n", "Started", "Duration", "Result")
	fmt.Printf("%-20s  %10s  %s\n", "--------------------", "----------", "---------------")
	for _, rec := range records {
		result := "ok"
		if rec.Error != "" {
			result = rec.Error
		}
		fmt.Printf("%-20s  %10s  %s\n",
			rec.StartedAt.Format("2006-01-02T15:04:05Z"), formatDuration(rec.Duration), result)
	}
	return nil
}

// #endregion sync

// #region decisions

func showDecisions(st *store.Store, last int, jsonOut bool) error {
	records, err := st.ListDecisions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no decision records found")
		return nil
	}

	fmt.Printf("%-20s  %-22s  %-15s  %8s  %s\n", "Time", "Gate", "Trigger", "Dose", "Reason")
	fmt.Printf("%-20s  %-22s  %-15s  %8s  %s\n",
		"--------------------", "----------------------", "---------------", "--------", "---------------")
	for _, rec := range records {
		trigger := rec.Trigger
		if trigger == "" {
			trigger = "—"
		}
		fmt.Printf("%-20s  %-22s  %-15s  %7.1f%%  %s\n",
			rec.Timestamp.Format("2006-01-02T15:04:05Z"), rec.Gate, trigger, rec.DosePercent, rec.Reason)
	}
	return nil
}

// #endregion decisions

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(10 * time.Millisecond).String()
}

// #endregion output
