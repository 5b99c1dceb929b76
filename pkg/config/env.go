package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "LIVE_"

// LoadEnvFiles loads .env style files when present. Later files override
// earlier ones. It returns the files that were applied.
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env", ".env.dev"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			return loaded, err
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// FromEnv overlays LIVE_* environment variables on top of cfg.
func FromEnv(cfg Config) Config {
	cfg.Localization.DefaultLocale = envString("LOCALE", cfg.Localization.DefaultLocale)
	cfg.Dedup.Window = envDuration("DEDUP_WINDOW", cfg.Dedup.Window)
	cfg.Dedup.Horizon = envDuration("DEDUP_HORIZON", cfg.Dedup.Horizon)
	cfg.Dedup.SweepInterval = envDuration("DEDUP_SWEEP_INTERVAL", cfg.Dedup.SweepInterval)
	cfg.Identity.PollInterval = envDuration("IDENTITY_POLL_INTERVAL", cfg.Identity.PollInterval)
	cfg.Identity.Store = envString("IDENTITY_STORE", cfg.Identity.Store)
	cfg.Identity.SessionPath = envString("SESSION_PATH", cfg.Identity.SessionPath)
	cfg.Delivery.ToastDuration = envDuration("TOAST_DURATION", cfg.Delivery.ToastDuration)
	cfg.Delivery.DesktopDuration = envDuration("DESKTOP_DURATION", cfg.Delivery.DesktopDuration)
	cfg.Delivery.ClipPath = envString("CLIP_PATH", cfg.Delivery.ClipPath)
	cfg.Delivery.PlayerCommand = envString("PLAYER_COMMAND", cfg.Delivery.PlayerCommand)
	cfg.Delivery.ActionBaseURL = envString("ACTION_BASE_URL", cfg.Delivery.ActionBaseURL)
	cfg.Push.Transport = envString("PUSH_TRANSPORT", cfg.Push.Transport)
	cfg.Push.URL = envString("PUSH_URL", cfg.Push.URL)
	cfg.Push.Topic = envString("PUSH_TOPIC", cfg.Push.Topic)
	cfg.Push.GroupID = envString("PUSH_GROUP_ID", cfg.Push.GroupID)
	if brokers := envString("PUSH_BROKERS", ""); brokers != "" {
		cfg.Push.Brokers = splitList(brokers)
	}
	cfg.Inbox.Enabled = envBool("INBOX_ENABLED", cfg.Inbox.Enabled)
	cfg.Inbox.DSN = envString("INBOX_DSN", cfg.Inbox.DSN)
	cfg.HTTP.Enabled = envBool("HTTP_ENABLED", cfg.HTTP.Enabled)
	cfg.HTTP.Addr = envString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Cue.Muted = envBool("CUE_MUTED", cfg.Cue.Muted)
	if tiers := envString("CUE_DISABLED_TIERS", ""); tiers != "" {
		cfg.Cue.DisabledTiers = splitList(tiers)
	}
	return cfg
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
