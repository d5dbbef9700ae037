package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/advisor"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/agent"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/compliance"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/config"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/feed"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/store"
)

// #region main

func main() {
	cfg := config.Load()

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	client, err := feed.NewClient(feed.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("connect broker: %v", err)
	}
	defer client.Close()

	pub := feed.NewPublisher(client.Native())
	writer := newSettingsState(settings)

	deps := agent.Deps{
		Notifier: &mqttNotifier{pub: pub, topic: cfg.MQTTNotifyTopic},
		Syncer:   &mqttSyncer{pub: pub, topic: cfg.MQTTSyncTopic},
		Settings: writer,
		Store:    st,
		Tracker:  compliance.NewTracker(st, compliance.DefaultConfig(), nil),
	}

	if cfg.GeminiAPIKey != "" {
		adv, err := advisor.NewGeminiAdvisor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("[MAIN] advisor unavailable, rules only: %v", err)
		} else {
			deps.Advisor = adv
		}
	}

	loop := agent.NewLoop(cfg.Standards(), agent.DefaultConfig(), deps)
	restoreState(st, loop)

	// Deliveries are queued and evaluated on this goroutine only: the loop
	// is not safe for concurrent cycles.
	batches := make(chan feed.Batch, 16)
	sub := feed.NewSubscriber(client.Native(), cfg.MQTTSampleTopic, func(b feed.Batch) {
		select {
		case batches <- b:
		default:
			log.Println("[MAIN] batch queue full, dropping delivery")
		}
	})
	if err := sub.Subscribe(); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	snapshot := time.NewTicker(cfg.SnapshotInterval)
	defer snapshot.Stop()

	log.Printf("[MAIN] exposure agent ready: db=%s broker=%s preset=%s", cfg.DBPath, cfg.MQTTBroker, cfg.Preset)

	var day []dose.Sample
	for {
		select {
		case b := <-batches:
			day = mergeDay(day, b)
			res := loop.Evaluate(context.Background(), agent.CycleInput{
				Now:             b.ReceivedAt,
				DaySamples:      day,
				RecentSamples:   day,
				Settings:        writer.Snapshot(),
				HeadphoneOutput: b.Headphones,
			})
			logCycle(res)

		case <-snapshot.C:
			saveState(st, loop)

		case <-sig:
			log.Println("[MAIN] shutting down")
			saveState(st, loop)
			return
		}
	}
}

// #endregion main

// #region cycle-logging

func logCycle(res agent.CycleResult) {
	switch {
	case res.Intervention != nil:
		log.Printf("[MAIN] cycle: dose=%.1f%% severity=%s intervention=%s",
			res.Dose.DosePercent, res.Insight.Severity, res.Intervention.Trigger)
	case res.SkipReason != "":
		log.Printf("[MAIN] cycle: dose=%.1f%% severity=%s skip=%s",
			res.Dose.DosePercent, res.Insight.Severity, res.SkipReason)
	default:
		log.Printf("[MAIN] cycle: dose=%.1f%% severity=%s no action",
			res.Dose.DosePercent, res.Insight.Severity)
	}
	if res.SyncErr != nil {
		log.Printf("[MAIN] sync error: %v", res.SyncErr)
	}
}

// #endregion cycle-logging

// #region day-window

// mergeDay folds a delivery into the running day window: samples before the
// local midnight of the delivery time are dropped, the rest stay sorted.
func mergeDay(day []dose.Sample, b feed.Batch) []dose.Sample {
	day = append(day, b.Samples...)

	y, m, d := b.ReceivedAt.Local().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, b.ReceivedAt.Local().Location())

	kept := day[:0]
	for _, s := range day {
		if s.End.After(midnight) {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start.Before(kept[j].Start) })
	return kept
}

// #endregion day-window

// #region state-snapshot

func restoreState(st *store.Store, loop *agent.Loop) {
	data, err := st.LoadAgentState()
	if err != nil {
		log.Printf("[MAIN] load agent state: %v", err)
		return
	}
	if data == nil {
		return
	}
	var state agent.State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[MAIN] bad agent state snapshot: %v", err)
		return
	}
	loop.RestoreState(state)
	log.Println("[MAIN] restored agent state snapshot")
}

func saveState(st *store.Store, loop *agent.Loop) {
	data, err := json.Marshal(loop.State())
	if err != nil {
		log.Printf("[MAIN] marshal agent state: %v", err)
		return
	}
	if err := st.SaveAgentState(data, time.Now().UTC()); err != nil {
		log.Printf("[MAIN] save agent state: %v", err)
	}
}

// #endregion state-snapshot

// #region notifier

// notification is the outbound JSON payload on the notify topic.
type notification struct {
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	DosePercent float64 `json:"dose_percent,omitempty"`
	ETAMinutes  float64 `json:"eta_minutes,omitempty"`
}

type mqttNotifier struct {
	pub   *feed.Publisher
	topic string
}

func (n *mqttNotifier) publish(p notification) {
	if err := n.pub.PublishJSON(n.topic, p); err != nil {
		log.Printf("[NOTIFY] publish: %v", err)
	}
}

func (n *mqttNotifier) SendLimitReached(dosePercent float64) {
	n.publish(notification{
		Kind:        "limit_reached",
		Title:       "Daily sound limit reached",
		Body:        "You have hit your daily listening budget. Give your ears a rest.",
		DosePercent: dosePercent,
	})
}

func (n *mqttNotifier) SendETAWarning(eta time.Duration) {
	n.publish(notification{
		Kind:       "eta_warning",
		Title:      "Approaching your daily limit",
		Body:       "At the current volume you will hit your limit soon.",
		ETAMinutes: eta.Minutes(),
	})
}

func (n *mqttNotifier) SendBreakReminder(sessionMinutes, breakMinutes int) {
	n.publish(notification{
		Kind:  "break_reminder",
		Title: "Time for a listening break",
		Body:  "You have been listening for a while. A short break helps.",
	})
}

func (n *mqttNotifier) SendVolumeSuggestion(levelDB, dosePercent float64) {
	n.publish(notification{
		Kind:        "volume_alert",
		Title:       "Volume is high",
		Body:        "Current level is above your threshold. Consider turning it down.",
		DosePercent: dosePercent,
	})
}

func (n *mqttNotifier) SendAgentNotification(title, body string) {
	n.publish(notification{Kind: "agent", Title: title, Body: body})
}

// #endregion notifier

// #region syncer

type syncRequest struct {
	Request     string    `json:"request"`
	RequestedAt time.Time `json:"requested_at"`
}

// mqttSyncer asks the sample producer for an incremental resync.
type mqttSyncer struct {
	pub   *feed.Publisher
	topic string
}

func (s *mqttSyncer) TriggerIncrementalSync(ctx context.Context) error {
	return s.pub.PublishJSON(s.topic, syncRequest{
		Request:     "incremental",
		RequestedAt: time.Now().UTC(),
	})
}

// #endregion syncer

// #region settings-state

// settingsState holds the live settings snapshot and accepts advisor
// adjustments. The subscriber goroutine reads while the evaluation loop
// writes, so access is locked.
type settingsState struct {
	mu       sync.Mutex
	settings agent.Settings
}

func newSettingsState(s agent.Settings) *settingsState {
	return &settingsState{settings: s}
}

func (s *settingsState) Snapshot() agent.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *settingsState) SetDailyLimitPercent(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.DailyLimitPercent = v
	log.Printf("[MAIN] daily limit adjusted to %.0f%%", v)
	return nil
}

func (s *settingsState) SetVolumeThresholdDB(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.VolumeThresholdDB = v
	log.Printf("[MAIN] volume threshold adjusted to %.0f dB", v)
	return nil
}

// #endregion settings-state
