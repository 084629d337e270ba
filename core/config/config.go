package config

import (
	"errors"
	"reflect"
	"strings"

	"staysync/core/database"
	"staysync/core/events"
	"staysync/core/ics"
	"staysync/core/logger"
	"staysync/core/policy"
	"staysync/core/reconcile"
	"staysync/core/scheduler"
	"staysync/core/server"
	"staysync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations owned by the packages that consume them.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Sync holds the reconciliation defaults (mode, dry-run, past stays).
	Sync reconcile.Config `mapstructure:"sync"`
	// Fetch holds the calendar feed download settings.
	Fetch ics.Config `mapstructure:"fetch"`
	// Scheduler holds the periodic sweep settings.
	Scheduler scheduler.Config `mapstructure:"scheduler"`
	// Redis holds the sync policy (cooldown and quota) settings.
	Redis policy.Config `mapstructure:"redis"`
	// Broker holds the message broker settings for sync notifications.
	Broker events.Config `mapstructure:"broker"`
	// Storage holds configuration for the run archive bucket.
	Storage storage.Config `mapstructure:"storage"`
}

// LoadConfig loads configuration from environment variables, a .env file and
// an optional config.yaml.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Optional config.yaml next to the .env file; environment still wins
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Map environment variables to nested keys (e.g. SYNC_MODE -> sync.mode)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
