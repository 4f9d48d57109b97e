package ingest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/channels"
	"github.com/kirbo/swishsensei/internal/config"
)

const (
	subscribeTimeout = 5 * time.Second
	connectTimeout   = 5 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

// ClientOptions builds paho options from the shared settings. The broker
// keeps "offline" retained on the status topic if the collector drops.
func ClientOptions(cfg config.MQTT, logger *zap.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL()).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.User).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(channels.Status, statusOffline, 1, true)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	return opts
}

// Connect opens the client and announces the collector online.
func Connect(client mqtt.Client) error {
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	token = client.Publish(channels.Status, 1, true, statusOnline)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt status publish timeout")
	}
	return token.Error()
}

// Subscribe registers the collector on its three sensor topics.
func Subscribe(ctx context.Context, client mqtt.Client, c *Collector) error {
	for topic := range c.routes {
		topic := topic
		token := client.Subscribe(
			topic,
			0, // At most once, a lost sample only blurs one jump
			func(_ mqtt.Client, m mqtt.Message) {
				_ = c.HandleMessage(ctx, m.Topic(), m.Payload())
			},
		)

		if !token.WaitTimeout(subscribeTimeout) {
			return fmt.Errorf("subscription timeout topic=%s", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		c.logger.Info("subscribed", zap.String("topic", topic))
	}
	return nil
}
