package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

// #region batch-types

// Batch is one delivered set of exposure samples. A delivery is the "new
// data arrived" signal that drives an evaluation cycle.
type Batch struct {
	Headphones bool
	ReceivedAt time.Time
	Samples    []dose.Sample
}

type samplePayload struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	LevelDB float64   `json:"level_db"`
}

type batchPayload struct {
	Headphones bool            `json:"headphones"`
	Samples    []samplePayload `json:"samples"`
}

// #endregion batch-types

// #region subscriber

// Handler receives each decoded sample batch.
type Handler func(Batch)

// Subscriber decodes sample batches off an MQTT topic and hands them to a
// caller-supplied handler.
type Subscriber struct {
	client  mqtt.Client
	topic   string
	handler Handler
}

// NewSubscriber wires a handler to the sample topic. Call Subscribe to
// start receiving.
func NewSubscriber(client mqtt.Client, topic string, handler Handler) *Subscriber {
	return &Subscriber{client: client, topic: topic, handler: handler}
}

// Subscribe registers with the broker at QoS 1.
func (s *Subscriber) Subscribe() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	log.Printf("[FEED] subscribed to %s", s.topic)
	return nil
}

func (s *Subscriber) handleMessage(client mqtt.Client, msg mqtt.Message) {
	batch, err := decodeBatch(msg.Payload(), time.Now())
	if err != nil {
		log.Printf("[FEED] bad batch on %s: %v", msg.Topic(), err)
		return
	}
	log.Printf("[FEED] batch: %d samples, headphones=%v", len(batch.Samples), batch.Headphones)
	s.handler(batch)
}

// #endregion subscriber

// #region decode

// decodeBatch parses a JSON batch payload. Samples with a non-positive span
// are dropped; an empty batch is still a valid delivery (it marks silence).
func decodeBatch(payload []byte, receivedAt time.Time) (Batch, error) {
	var p batchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Batch{}, fmt.Errorf("unmarshal batch: %w", err)
	}

	batch := Batch{Headphones: p.Headphones, ReceivedAt: receivedAt}
	for _, sp := range p.Samples {
		if !sp.End.After(sp.Start) {
			log.Printf("[FEED] dropping sample with non-positive span at %v", sp.Start)
			continue
		}
		batch.Samples = append(batch.Samples, dose.Sample{
			Start:   sp.Start,
			End:     sp.End,
			LevelDB: sp.LevelDB,
		})
	}
	return batch, nil
}

// #endregion decode
