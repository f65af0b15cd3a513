// Package config wraps the viper singleton for CLI-wide settings.
// Precedence: flags > BACKLOG_* environment variables > config.yaml inside
// the data dir > defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Called once at startup,
// before command dispatch.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Walk up from CWD so commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
	search:
		for dir := cwd; ; dir = filepath.Dir(dir) {
			for _, name := range []string{".tasks", ".backlog"} {
				configPath := filepath.Join(dir, name, "config.yaml")
				if _, err := os.Stat(configPath); err == nil {
					v.SetConfigFile(configPath)
					break search
				}
			}
			if dir == filepath.Dir(dir) {
				break
			}
		}
	}

	v.SetEnvPrefix("BACKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("actor", "")
	v.SetDefault("data-dir", "")
	v.SetDefault("stale-session-minutes", 30)
	v.SetDefault("lock-timeout", "10s")
	v.SetDefault("activity-log-max-mb", 5)
	v.SetDefault("activity-log-backups", 3)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

func active() *viper.Viper {
	if v == nil {
		_ = Initialize()
	}
	return v
}

// GetString reads a string setting.
func GetString(key string) string { return active().GetString(key) }

// GetBool reads a boolean setting.
func GetBool(key string) bool { return active().GetBool(key) }

// GetInt reads an integer setting.
func GetInt(key string) int { return active().GetInt(key) }

// Actor resolves the agent identity: config/env first, then OS username.
func Actor() string {
	if actor := active().GetString("actor"); actor != "" {
		return actor
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "agent"
}

// StaleSessionThreshold returns the heartbeat age beyond which a session
// counts as stale.
func StaleSessionThreshold() time.Duration {
	minutes := active().GetInt("stale-session-minutes")
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// LockTimeout bounds how long a transaction waits for the commit lock.
func LockTimeout() time.Duration {
	d, err := time.ParseDuration(active().GetString("lock-timeout"))
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
