package config

import (
	"fmt"
	"strings"
)

const maxTopicLen = 65535

// Validate checks every key for well-formedness.
func (s Settings) Validate() error {
	required := []struct{ key, value string }{
		{"WIFI_SSID", s.WiFi.SSID},
		{"WIFI_PASSWORD", s.WiFi.Password},
		{"MQTT_BROKER", s.MQTT.Broker},
		{"MQTT_USER", s.MQTT.User},
		{"MQTT_PASSWORD", s.MQTT.Password},
		{"MQTT_CLIENT_ID", s.MQTT.ClientID},
		{"HTTP_COLLECTOR", s.Collector.Host},
		{"METRICS_ADDR", s.Runtime.MetricsAddr},
		{"SHOTS_TABLE", s.Runtime.ShotsTable},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidConfig, r.key)
		}
	}

	ports := []struct {
		key  string
		port int
	}{
		{"MQTT_PORT", s.MQTT.Port},
		{"HTTP_PORT", s.Collector.Port},
		{"REDIS_PORT", s.Runtime.RedisPort},
	}
	for _, p := range ports {
		if p.port < 1 || p.port > 65535 {
			return fmt.Errorf("%w: %s must be within 1..65535, got %d", ErrInvalidConfig, p.key, p.port)
		}
	}

	topics := []struct{ key, topic string }{
		{"TOPIC_GLOVE_RAW", s.Topics.GloveRaw},
		{"TOPIC_FOOT_RAW", s.Topics.FootRaw},
		{"TOPIC_HOOP_EVENT", s.Topics.HoopEvent},
	}
	seen := make(map[string]string, len(topics))
	for _, t := range topics {
		if err := ValidateTopic(t.topic); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, t.key, err)
		}
		if other, ok := seen[t.topic]; ok {
			return fmt.Errorf("%w: %s duplicates %s (%q)", ErrInvalidConfig, t.key, other, t.topic)
		}
		seen[t.topic] = t.key
	}

	if s.Runtime.PerfectWindow < 0 {
		return fmt.Errorf("%w: PERFECT_WINDOW_MS must be >= 0", ErrInvalidConfig)
	}
	if s.Runtime.HoopWindow <= 0 {
		return fmt.Errorf("%w: HOOP_WINDOW must be > 0", ErrInvalidConfig)
	}
	if s.Runtime.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", ErrInvalidConfig)
	}
	if s.Runtime.RateLimitBurst < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ValidateTopic checks a publish topic name: non-empty, no wildcards, no NUL
// and within the MQTT length limit.
func ValidateTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("topic is empty")
	case len(topic) > maxTopicLen:
		return fmt.Errorf("topic exceeds %d bytes", maxTopicLen)
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("topic %q contains a wildcard", topic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("topic contains NUL")
	}
	return nil
}
