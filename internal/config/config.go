package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/oleiade/reflections.v1"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownKey is returned for overrides naming a key that does not exist.
	ErrUnknownKey = errors.New("unknown config key")
)

// WiFi holds the network join credentials flashed onto the sensors.
type WiFi struct {
	SSID     string `yaml:"ssid" env:"WIFI_SSID" header:"wifi"`
	Password string `yaml:"password" env:"WIFI_PASSWORD" header:"wifi" secret:"true"`
}

// MQTT holds the broker connection parameters.
type MQTT struct {
	Broker   string `yaml:"broker" env:"MQTT_BROKER" header:"mqtt"`
	Port     int    `yaml:"port" env:"MQTT_PORT" header:"mqtt"`
	User     string `yaml:"user" env:"MQTT_USER" header:"mqtt"`
	Password string `yaml:"password" env:"MQTT_PASSWORD" header:"mqtt" secret:"true"`
	ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
}

// Topics are the pub/sub topic names the sensors publish on.
type Topics struct {
	GloveRaw  string `yaml:"glove_raw" env:"TOPIC_GLOVE_RAW" header:"topics"`
	FootRaw   string `yaml:"foot_raw" env:"TOPIC_FOOT_RAW" header:"topics"`
	HoopEvent string `yaml:"hoop_event" env:"TOPIC_HOOP_EVENT" header:"topics"`
}

// Collector is the alternate HTTP/SocketIO telemetry sink.
type Collector struct {
	Host string `yaml:"host" env:"HTTP_COLLECTOR" header:"http"`
	Port int    `yaml:"port" env:"HTTP_PORT" header:"http"`
}

// Runtime carries collector-only settings that never reach the firmware.
type Runtime struct {
	ListenAddr     string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	MetricsAddr    string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	RedisHost      string        `yaml:"redis_host" env:"REDIS_HOST"`
	RedisPort      int           `yaml:"redis_port" env:"REDIS_PORT"`
	RedisPassword  string        `yaml:"redis_password" env:"REDIS_PASSWORD" secret:"true"`
	DatabaseURL    string        `yaml:"database_url" env:"DATABASE_URL" secret:"true"`
	ShotsTable     string        `yaml:"shots_table" env:"SHOTS_TABLE"`
	PerfectWindow  time.Duration `yaml:"perfect_window" env:"PERFECT_WINDOW_MS"`
	HoopWindow     time.Duration `yaml:"hoop_window" env:"HOOP_WINDOW"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string        `yaml:"log_format" env:"LOG_FORMAT"`
}

// Settings aggregates every configuration key.
// Precedence: overrides > environment > YAML file > defaults.
type Settings struct {
	WiFi      WiFi      `yaml:"wifi"`
	MQTT      MQTT      `yaml:"mqtt"`
	Topics    Topics    `yaml:"topics"`
	Collector Collector `yaml:"collector"`
	Runtime   Runtime   `yaml:"runtime"`
}

// Options controls where Load reads from.
type Options struct {
	// File is an optional YAML file. When set it must exist.
	File string
	// Overrides are keyed by env name, e.g. "MQTT_BROKER".
	Overrides map[string]string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Defaults returns the literal values shipped in the firmware header.
func Defaults() Settings {
	return Settings{
		WiFi: WiFi{
			SSID:     "Swishsensei",
			Password: "flushflush",
		},
		MQTT: MQTT{
			Broker:   "192.168.1.10",
			Port:     1883,
			User:     "mqttuser",
			Password: "mqttpass",
			ClientID: "swishsensei-collector",
		},
		Topics: Topics{
			GloveRaw:  "basket/glove/raw",
			FootRaw:   "basket/foot/raw",
			HoopEvent: "basket/hoop/event",
		},
		Collector: Collector{
			Host: "192.168.1.10",
			Port: 5000,
		},
		Runtime: Runtime{
			MetricsAddr:    ":9101",
			RedisHost:      "localhost",
			RedisPort:      6379,
			ShotsTable:     "shots",
			PerfectWindow:  50 * time.Millisecond,
			HoopWindow:     3 * time.Second,
			RateLimitRPS:   25,
			RateLimitBurst: 50,
			LogLevel:       "info",
			LogFormat:      "json",
		},
	}
}

// Load resolves settings from all sources and validates the result.
func Load(opts Options) (Settings, error) {
	cfg := Defaults()

	if opts.File != "" {
		fileCfg, err := loadFromFile(opts.File)
		if err != nil {
			return Settings{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := mergo.Merge(&fileCfg, cfg); err != nil {
			return Settings{}, fmt.Errorf("merge YAML config: %w", err)
		}
		cfg = fileCfg
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Settings{}, err
	}

	for key, value := range opts.Overrides {
		if err := cfg.Set(key, value); err != nil {
			return Settings{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func loadFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read file: %w", err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse YAML: %w", err)
	}
	return cfg, nil
}

// section pairs a settings group with a pointer into Settings.
type section struct {
	name string
	ptr  interface{}
}

func (s *Settings) sections() []section {
	return []section{
		{"wifi", &s.WiFi},
		{"mqtt", &s.MQTT},
		{"topics", &s.Topics},
		{"collector", &s.Collector},
		{"runtime", &s.Runtime},
	}
}

// lookup finds the section and field name carrying the given env key.
func (s *Settings) lookup(key string) (section, string, bool) {
	for _, sec := range s.sections() {
		tags, err := reflections.Tags(sec.ptr, "env")
		if err != nil {
			continue
		}
		for field, env := range tags {
			if env == key {
				return sec, field, true
			}
		}
	}
	return section{}, "", false
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	for _, sec := range s.sections() {
		tags, err := reflections.Tags(sec.ptr, "env")
		if err != nil {
			return fmt.Errorf("read %s tags: %w", sec.name, err)
		}
		for _, env := range tags {
			value := strings.TrimSpace(getenv(env))
			if value == "" {
				continue
			}
			if err := s.Set(env, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Set assigns a raw string value to the field tagged with the given env key.
func (s *Settings) Set(key, raw string) error {
	sec, field, ok := s.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	current, err := reflections.GetField(sec.ptr, field)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	raw = strings.TrimSpace(raw)
	var value interface{}
	switch current.(type) {
	case string:
		value = raw
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, key, raw)
		}
		value = n
	case float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidConfig, key, raw)
		}
		value = f
	case time.Duration:
		d, err := parseDuration(key, raw)
		if err != nil {
			return err
		}
		value = d
	default:
		return fmt.Errorf("%w: unsupported type %T for %s", ErrInvalidConfig, current, key)
	}

	if err := reflections.SetField(sec.ptr, field, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// parseDuration accepts Go duration strings, and bare integers as
// milliseconds for keys ending in _MS.
func parseDuration(key, raw string) (time.Duration, error) {
	if strings.HasSuffix(key, "_MS") {
		if ms, err := strconv.Atoi(raw); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a duration, got %q", ErrInvalidConfig, key, raw)
	}
	return d, nil
}

// URL is the paho broker address.
func (m MQTT) URL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Broker, m.Port)
}

// BrokerURL is the paho broker address.
func (s Settings) BrokerURL() string {
	return s.MQTT.URL()
}

// CollectorAddr is the host:port of the HTTP collector.
func (s Settings) CollectorAddr() string {
	return fmt.Sprintf("%s:%d", s.Collector.Host, s.Collector.Port)
}

// ServerAddr is where cmd/server listens. It follows HTTP_PORT unless
// LISTEN_ADDR is set, so firmware built from the header reaches it.
func (s Settings) ServerAddr() string {
	if addr := strings.TrimSpace(s.Runtime.ListenAddr); addr != "" {
		return addr
	}
	return fmt.Sprintf(":%d", s.Collector.Port)
}

// RedisAddr is the host:port of the fan-out redis.
func (s Settings) RedisAddr() string {
	return fmt.Sprintf("%s:%d", s.Runtime.RedisHost, s.Runtime.RedisPort)
}
