package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

// #region config-struct

// Config is the daemon's environment-driven configuration. User-facing
// preferences live in the YAML settings file instead (see LoadSettings).
type Config struct {
	// Storage
	DBPath string

	// MQTT feed
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTSampleTopic string
	MQTTNotifyTopic string
	MQTTSyncTopic   string

	// Advisor
	GeminiAPIKey string
	GeminiModel  string

	// Dose standard preset: "niosh" or "osha"
	Preset string

	// User settings file
	SettingsPath string

	// Snapshot cadence for persisting agent state
	SnapshotInterval time.Duration
}

// #endregion config-struct

// #region load

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBPath: getEnv("EXPOSURE_DB", "exposure.db"),

		MQTTBroker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "exposure-agent"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTSampleTopic: getEnv("MQTT_TOPIC_SAMPLES", "exposure/samples"),
		MQTTNotifyTopic: getEnv("MQTT_TOPIC_NOTIFY", "exposure/notify"),
		MQTTSyncTopic:   getEnv("MQTT_TOPIC_SYNC", "exposure/sync"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		Preset:       getEnv("DOSE_PRESET", "niosh"),
		SettingsPath: getEnv("SETTINGS_PATH", "settings.yaml"),

		SnapshotInterval: getEnvDuration("SNAPSHOT_INTERVAL", 5*time.Minute),
	}
}

// Standards maps the configured preset to its dose standard. Unknown presets
// fall back to NIOSH.
func (c *Config) Standards() dose.Standards {
	switch c.Preset {
	case "osha":
		return dose.OSHA
	case "niosh":
		return dose.NIOSH
	default:
		log.Printf("Warning: unknown dose preset %q, using niosh", c.Preset)
		return dose.NIOSH
	}
}

// #endregion load

// #region env-helpers

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}

// #endregion env-helpers
