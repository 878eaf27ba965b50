package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Merge    MergeConfig    `mapstructure:"merge"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// ProviderConfig configures the generative media provider.
type ProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Project        string `mapstructure:"project"`
	Location       string `mapstructure:"location"`
	VideoModel     string `mapstructure:"video_model"`
	VisionModel    string `mapstructure:"vision_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig configures the S3-compatible object store holding
// generated and merged videos.
type StorageConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	PublicHost string `mapstructure:"public_host"`
}

// MergeConfig configures the video merge pipeline.
type MergeConfig struct {
	FFmpegBinary   string `mapstructure:"ffmpeg_binary"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// JobsConfig configures the job orchestrator.
type JobsConfig struct {
	DefaultDurationSeconds int `mapstructure:"default_duration_seconds"`
	MinDurationSeconds     int `mapstructure:"min_duration_seconds"`
	MaxDurationSeconds     int `mapstructure:"max_duration_seconds"`
	RetentionMinutes       int `mapstructure:"retention_minutes"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file_path"`
	FileOnly bool   `mapstructure:"file_only"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("provider.base_url", "https://aiplatform.googleapis.com/v1")
	v.SetDefault("provider.location", "us-central1")
	v.SetDefault("provider.video_model", "veo-2.0-generate-001")
	v.SetDefault("provider.vision_model", "gemini-2.0-flash")
	v.SetDefault("provider.timeout_seconds", 120)
	v.SetDefault("storage.endpoint", "storage.googleapis.com")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "krafity-videos")
	v.SetDefault("storage.public_host", "storage.googleapis.com")
	v.SetDefault("merge.ffmpeg_binary", "ffmpeg")
	v.SetDefault("merge.timeout_seconds", 300)
	v.SetDefault("jobs.default_duration_seconds", 6)
	v.SetDefault("jobs.min_duration_seconds", 4)
	v.SetDefault("jobs.max_duration_seconds", 8)
	v.SetDefault("jobs.retention_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("provider.api_key", "PROVIDER_API_KEY")
	v.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	v.BindEnv("provider.project", "GOOGLE_CLOUD_PROJECT")
	v.BindEnv("provider.location", "GOOGLE_CLOUD_LOCATION")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "GOOGLE_CLOUD_BUCKET_NAME")
	v.BindEnv("storage.public_host", "STORAGE_PUBLIC_HOST")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
