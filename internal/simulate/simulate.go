// Package simulate produces synthetic sensor traffic for bench testing the
// collector without hardware.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kirbo/swishsensei/internal/config"
	"github.com/kirbo/swishsensei/internal/jump"
	"github.com/kirbo/swishsensei/internal/models"
)

const publishTimeout = 5 * time.Second

// Message is one sensor publication.
type Message struct {
	Topic   string
	Payload interface{}
}

// Options shape the generated traffic.
type Options struct {
	Shots      int
	ScoredRate float64
	// Step is the device clock spacing between samples in milliseconds.
	// It should exceed the perfect window for all three grades to appear.
	Step int64
	Seed int64
}

// Plan generates the messages for opts.Shots jumps, each followed by a hoop
// event. The same seed yields the same plan.
func Plan(topics config.Topics, opts Options) []Message {
	step := opts.Step
	if step <= 0 {
		step = 80
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var msgs []Message
	foot := func(ts int64, az int) {
		msgs = append(msgs, Message{topics.FootRaw, models.FootSample{Timestamp: ts, AZ: az}})
	}
	glove := func(ts int64, fsr1, fsr2 int) {
		msgs = append(msgs, Message{topics.GloveRaw, models.GloveSample{Timestamp: ts, FSR1: fsr1, FSR2: fsr2}})
	}

	ts := int64(0)
	for i := 0; i < opts.Shots; i++ {
		for j := 0; j < 3; j++ {
			foot(ts, jump.LandingThreshold)
			ts += step
		}

		foot(ts, jump.StartThreshold+1000+rng.Intn(15000))
		ts += step

		// Five airborne samples with the apex on the third. Grip builds
		// until the release sample, which lands before, on or after the apex.
		release := 1 + rng.Intn(3)
		for k := 0; k < 5; k++ {
			g := 100
			if k < release {
				g = 400 + 300*k
			}
			glove(ts, g/2+rng.Intn(20), g/2+rng.Intn(20))
			foot(ts, jump.LandingThreshold+500+rng.Intn(2000))
			ts += step
		}

		foot(ts, jump.LandingThreshold-200)
		ts += step

		msgs = append(msgs, Message{topics.HoopEvent, models.HoopEvent{
			Timestamp: ts,
			Scored:    rng.Float64() < opts.ScoredRate,
		}})
		ts += 20 * step
	}
	return msgs
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTPublisher publishes through a connected paho client.
type MQTTPublisher struct {
	Client mqtt.Client
}

func (p MQTTPublisher) Publish(topic string, payload []byte) error {
	token := p.Client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout topic=%s", topic)
	}
	return token.Error()
}

// Run publishes msgs in order, pausing pace between each.
func Run(ctx context.Context, pub Publisher, msgs []Message, pace time.Duration) error {
	for i, msg := range msgs {
		data, err := json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", i, err)
		}
		if err := pub.Publish(msg.Topic, data); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}

		if pace > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pace):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
