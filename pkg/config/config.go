package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config captures module-level configuration knobs. Feature packages (dedup,
// identity, delivery, push, etc.) pull from these nested structs.
type Config struct {
	Localization LocalizationConfig `mapstructure:"localization" json:"localization"`
	Dedup        DedupConfig        `mapstructure:"dedup" json:"dedup"`
	Identity     IdentityConfig     `mapstructure:"identity" json:"identity"`
	Delivery     DeliveryConfig     `mapstructure:"delivery" json:"delivery"`
	Push         PushConfig         `mapstructure:"push" json:"push"`
	Inbox        InboxConfig        `mapstructure:"inbox" json:"inbox"`
	HTTP         HTTPConfig         `mapstructure:"http" json:"http"`
	Cue          CueConfig          `mapstructure:"cue" json:"cue"`
}

// LocalizationConfig controls the locale used by the classifier catalog.
type LocalizationConfig struct {
	DefaultLocale string `mapstructure:"default_locale" json:"default_locale"`
}

// DedupConfig holds the duplicate window and the memory hygiene schedule.
type DedupConfig struct {
	Window        time.Duration `mapstructure:"window" json:"window"`
	Horizon       time.Duration `mapstructure:"horizon" json:"horizon"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval"`
}

// IdentityConfig controls how the viewer session is located and polled.
type IdentityConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	Store        string        `mapstructure:"store" json:"store"` // file, sqlite, memory
	SessionPath  string        `mapstructure:"session_path" json:"session_path"`
}

// DeliveryConfig tunes toast and cue behaviour.
type DeliveryConfig struct {
	ToastDuration   time.Duration `mapstructure:"toast_duration" json:"toast_duration"`
	DesktopDuration time.Duration `mapstructure:"desktop_duration" json:"desktop_duration"`
	ClipPath        string        `mapstructure:"clip_path" json:"clip_path"`
	ActionBaseURL   string        `mapstructure:"action_base_url" json:"action_base_url"`
	PlayerCommand   string        `mapstructure:"player_command" json:"player_command"`
	Tone            ToneConfig    `mapstructure:"tone" json:"tone"`
}

// ToneConfig shapes the synthesized "ding".
type ToneConfig struct {
	StartHz    float64       `mapstructure:"start_hz" json:"start_hz"`
	EndHz      float64       `mapstructure:"end_hz" json:"end_hz"`
	Sweep      time.Duration `mapstructure:"sweep" json:"sweep"`
	Duration   time.Duration `mapstructure:"duration" json:"duration"`
	Peak       float64       `mapstructure:"peak" json:"peak"`
	SampleRate int           `mapstructure:"sample_rate" json:"sample_rate"`
}

// PushConfig selects and configures the push channel transport.
type PushConfig struct {
	Transport     string        `mapstructure:"transport" json:"transport"` // websocket, mqtt, kafka, memory
	URL           string        `mapstructure:"url" json:"url"`
	Topic         string        `mapstructure:"topic" json:"topic"`
	Brokers       []string      `mapstructure:"brokers" json:"brokers"`
	GroupID       string        `mapstructure:"group_id" json:"group_id"`
	ReconnectBase time.Duration `mapstructure:"reconnect_base" json:"reconnect_base"`
	ReconnectMax  time.Duration `mapstructure:"reconnect_max" json:"reconnect_max"`
	Buffer        int           `mapstructure:"buffer" json:"buffer"`
}

// InboxConfig enables the in-app inbox mirror.
type InboxConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	DSN     string `mapstructure:"dsn" json:"dsn"`
}

// HTTPConfig controls the admin surface.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr"`
}

// CueConfig carries system-level cue preferences.
type CueConfig struct {
	Muted         bool     `mapstructure:"muted" json:"muted"`
	DisabledTiers []string `mapstructure:"disabled_tiers" json:"disabled_tiers"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Localization: LocalizationConfig{DefaultLocale: "en"},
		Dedup: DedupConfig{
			Window:        100 * time.Millisecond,
			Horizon:       10 * time.Minute,
			SweepInterval: 10 * time.Minute,
		},
		Identity: IdentityConfig{
			PollInterval: 500 * time.Millisecond,
			Store:        "file",
			SessionPath:  "session.json",
		},
		Delivery: DeliveryConfig{
			ToastDuration:   5 * time.Second,
			DesktopDuration: 5 * time.Second,
			ActionBaseURL:   "/events",
			Tone: ToneConfig{
				StartHz:    800,
				EndHz:      600,
				Sweep:      100 * time.Millisecond,
				Duration:   400 * time.Millisecond,
				Peak:       0.3,
				SampleRate: 44100,
			},
		},
		Push: PushConfig{
			Transport:     "websocket",
			Topic:         "notifications",
			ReconnectBase: 500 * time.Millisecond,
			ReconnectMax:  30 * time.Second,
			Buffer:        100,
		},
		Inbox: InboxConfig{Enabled: true},
		HTTP:  HTTPConfig{Enabled: true, Addr: ":8089"},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Localization.DefaultLocale == "" {
		return errors.New("localization.default_locale is required")
	}
	if c.Dedup.Window <= 0 {
		return fmt.Errorf("dedup.window must be > 0")
	}
	if c.Dedup.Horizon < c.Dedup.Window {
		return fmt.Errorf("dedup.horizon must be >= dedup.window")
	}
	if c.Dedup.SweepInterval <= 0 {
		return fmt.Errorf("dedup.sweep_interval must be > 0")
	}
	if c.Identity.PollInterval <= 0 {
		return fmt.Errorf("identity.poll_interval must be > 0")
	}
	switch strings.ToLower(c.Identity.Store) {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("identity.store %q is not supported", c.Identity.Store)
	}
	switch strings.ToLower(c.Push.Transport) {
	case "websocket", "mqtt", "kafka", "memory":
	default:
		return fmt.Errorf("push.transport %q is not supported", c.Push.Transport)
	}
	if c.Delivery.ToastDuration < 0 || c.Delivery.DesktopDuration < 0 {
		return fmt.Errorf("delivery durations must be >= 0")
	}
	if c.Delivery.Tone.EndHz <= 0 || c.Delivery.Tone.StartHz <= 0 {
		return fmt.Errorf("delivery.tone frequencies must be > 0")
	}
	if c.Delivery.Tone.Sweep > c.Delivery.Tone.Duration {
		return fmt.Errorf("delivery.tone.sweep must not exceed delivery.tone.duration")
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// When cfgx yields a zero value we fall back to a JSON decoder so plain maps
// and structs still work.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Localization.DefaultLocale == "" {
		c.Localization.DefaultLocale = defaults.Localization.DefaultLocale
	}
	if c.Dedup.Window == 0 {
		c.Dedup.Window = defaults.Dedup.Window
	}
	if c.Dedup.Horizon == 0 {
		c.Dedup.Horizon = defaults.Dedup.Horizon
	}
	if c.Dedup.SweepInterval == 0 {
		c.Dedup.SweepInterval = defaults.Dedup.SweepInterval
	}
	if c.Identity.PollInterval == 0 {
		c.Identity.PollInterval = defaults.Identity.PollInterval
	}
	if c.Identity.Store == "" {
		c.Identity.Store = defaults.Identity.Store
	}
	if c.Identity.SessionPath == "" {
		c.Identity.SessionPath = defaults.Identity.SessionPath
	}
	if c.Delivery.ToastDuration == 0 {
		c.Delivery.ToastDuration = defaults.Delivery.ToastDuration
	}
	if c.Delivery.DesktopDuration == 0 {
		c.Delivery.DesktopDuration = defaults.Delivery.DesktopDuration
	}
	if c.Delivery.ActionBaseURL == "" {
		c.Delivery.ActionBaseURL = defaults.Delivery.ActionBaseURL
	}
	c.Delivery.Tone = c.Delivery.Tone.withDefaults(defaults.Delivery.Tone)
	if c.Push.Transport == "" {
		c.Push.Transport = defaults.Push.Transport
	}
	if c.Push.Topic == "" {
		c.Push.Topic = defaults.Push.Topic
	}
	if c.Push.ReconnectBase == 0 {
		c.Push.ReconnectBase = defaults.Push.ReconnectBase
	}
	if c.Push.ReconnectMax == 0 {
		c.Push.ReconnectMax = defaults.Push.ReconnectMax
	}
	if c.Push.Buffer == 0 {
		c.Push.Buffer = defaults.Push.Buffer
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaults.HTTP.Addr
	}
	return c
}

func (t ToneConfig) withDefaults(d ToneConfig) ToneConfig {
	if t.StartHz == 0 {
		t.StartHz = d.StartHz
	}
	if t.EndHz == 0 {
		t.EndHz = d.EndHz
	}
	if t.Sweep == 0 {
		t.Sweep = d.Sweep
	}
	if t.Duration == 0 {
		t.Duration = d.Duration
	}
	if t.Peak == 0 {
		t.Peak = d.Peak
	}
	if t.SampleRate == 0 {
		t.SampleRate = d.SampleRate
	}
	return t
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
