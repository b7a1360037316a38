package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageLocal = "local"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFile   string `mapstructure:"log_file"`
	LogFormat string `mapstructure:"log_format"`
}

type SnapshotConfig struct {
	AdminURL   string        `mapstructure:"admin_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	StagingDir string        `mapstructure:"staging_dir"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`

	// AWS S3 and compatible
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`

	// Google Cloud Storage
	CredentialsFile string `mapstructure:"credentials_file"`

	// Local directory
	LocalPath string `mapstructure:"local_path"`
}

type BackupConfig struct {
	KeyPrefix       string `mapstructure:"key_prefix"`
	RetentionPrefix string `mapstructure:"retention_prefix"`
	RetentionDays   int    `mapstructure:"retention_days"`
	Strict          bool   `mapstructure:"strict"`
	Schedule        string `mapstructure:"schedule"`
	Timezone        string `mapstructure:"timezone"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BotToken  string `mapstructure:"bot_token"`
	ChatID    int64  `mapstructure:"chat_id"`
	OnSuccess bool   `mapstructure:"on_success"`
}

// envBindings maps config keys to the environment variables that may set
// them, in priority order.
var envBindings = map[string][]string{
	"app.name":                   {"APP_NAME"},
	"app.log_level":              {"LOG_LEVEL"},
	"app.log_file":               {"LOG_FILE"},
	"app.log_format":             {"LOG_FORMAT"},
	"snapshot.admin_url":         {"ZK_ADMIN_URL"},
	"snapshot.timeout":           {"SNAPSHOT_TIMEOUT"},
	"snapshot.username":          {"SNAPSHOT_USERNAME"},
	"snapshot.password":          {"SNAPSHOT_PASSWORD"},
	"snapshot.staging_dir":       {"STAGING_DIR"},
	"storage.type":               {"STORAGE_TYPE"},
	"storage.region":             {"REGION", "AWS_REGION"},
	"storage.bucket":             {"ZK_BACK_FOLDER_NAME"},
	"storage.endpoint":           {"S3_ENDPOINT"},
	"storage.access_key":         {"S3_ACCESS_KEY"},
	"storage.secret_key":         {"S3_SECRET_KEY"},
	"storage.path_style":         {"S3_PATH_STYLE"},
	"storage.credentials_file":   {"GCS_CREDENTIALS_FILE"},
	"storage.local_path":         {"LOCAL_STORAGE_PATH"},
	"backup.key_prefix":          {"BACKUP_KEY_PREFIX"},
	"backup.retention_prefix":    {"RETENTION_PREFIX"},
	"backup.retention_days":      {"RETENTION_DAYS"},
	"backup.strict":              {"BACKUP_STRICT"},
	"backup.schedule":            {"BACKUP_SCHEDULE"},
	"backup.timezone":            {"BACKUP_TIMEZONE"},
	"notify.telegram.enabled":    {"TELEGRAM_ENABLED"},
	"notify.telegram.bot_token":  {"TELEGRAM_BOT_TOKEN"},
	"notify.telegram.chat_id":    {"TELEGRAM_CHAT_ID"},
	"notify.telegram.on_success": {"TELEGRAM_ON_SUCCESS"},
}

// Load reads the optional YAML file at path and overlays environment
// variables. An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Storage.Type = strings.ToLower(cfg.Storage.Type)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "zkbackup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("snapshot.admin_url", "")
	v.SetDefault("snapshot.timeout", time.Duration(0))
	v.SetDefault("snapshot.username", "")
	v.SetDefault("snapshot.password", "")
	v.SetDefault("snapshot.staging_dir", os.TempDir())

	v.SetDefault("storage.type", StorageS3)
	v.SetDefault("storage.path_style", false)

	v.SetDefault("backup.key_prefix", "backups/zookeeper-snapshot")
	v.SetDefault("backup.retention_prefix", "backups/")
	v.SetDefault("backup.retention_days", 10)
	v.SetDefault("backup.strict", false)
	v.SetDefault("backup.schedule", "0 0 2 * * *")
	v.SetDefault("backup.timezone", "Local")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.on_success", true)
}

func (c *Config) Validate() error {
	if c.Snapshot.AdminURL == "" {
		return errors.New("snapshot.admin_url is required")
	}
	u, err := url.Parse(c.Snapshot.AdminURL)
	if err != nil {
		return fmt.Errorf("snapshot.admin_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("snapshot.admin_url: unsupported scheme %q", u.Scheme)
	}
	if c.Snapshot.Timeout < 0 {
		return errors.New("snapshot.timeout must not be negative")
	}
	if c.Snapshot.StagingDir == "" {
		return errors.New("snapshot.staging_dir is required")
	}

	switch c.Storage.Type {
	case StorageS3:
		if c.Storage.Region == "" {
			return errors.New("storage.region is required for s3")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for s3")
		}
		if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
			return errors.New("storage.access_key and storage.secret_key must be set together")
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for gcs")
		}
	case StorageLocal:
		if c.Storage.LocalPath == "" {
			return errors.New("storage.local_path is required for local")
		}
	default:
		return fmt.Errorf("storage.type: unknown type %q", c.Storage.Type)
	}

	if c.Backup.KeyPrefix == "" {
		return errors.New("backup.key_prefix is required")
	}
	if c.Backup.RetentionDays < 0 {
		return errors.New("backup.retention_days must not be negative")
	}
	if _, err := c.Backup.Location(); err != nil {
		return fmt.Errorf("backup.timezone: %w", err)
	}

	if t := c.Notify.Telegram; t.Enabled && (t.BotToken == "" || t.ChatID == 0) {
		return errors.New("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// Location resolves the timezone used for the date in object keys.
func (b BackupConfig) Location() (*time.Location, error) {
	if b.Timezone == "" || b.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(b.Timezone)
}
