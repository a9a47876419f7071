package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file
const (
	EnvExtractorEndpoint = "PARKINSON_EXTRACTOR_ENDPOINT"
	EnvExtractorAPIKey   = "PARKINSON_EXTRACTOR_API_KEY"
	EnvHTTPPort          = "PARKINSON_HTTP_PORT"
	EnvMQTTPassword      = "PARKINSON_MQTT_PASSWORD"
	EnvLogLevel          = "PARKINSON_LOG_LEVEL"
)

// Config represents the complete service configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Audio     AudioConfig     `yaml:"audio"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Models    ModelsConfig    `yaml:"models"`
	Scalers   ScalersConfig   `yaml:"scalers"`
	Subject   SubjectConfig   `yaml:"subject"`
	History   HistoryConfig   `yaml:"history"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port          int    `yaml:"port"`
	Address       string `yaml:"address"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	ReadTimeout   int    `yaml:"read_timeout"`  // seconds
	WriteTimeout  int    `yaml:"write_timeout"` // seconds
	AllowedOrigin string `yaml:"allowed_origin"`
}

// AudioConfig contains upload handling and conversion parameters
type AudioConfig struct {
	UploadDir         string  `yaml:"upload_dir"`
	KeepUploads       bool    `yaml:"keep_uploads"`
	DefaultTestTime   float64 `yaml:"default_test_time"` // seconds
	FFmpegBinary      string  `yaml:"ffmpeg_binary"`
	ConvertSampleRate int     `yaml:"convert_sample_rate"`
}

// ExtractorConfig contains acoustic-analysis service configuration
type ExtractorConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Timeout       int     `yaml:"timeout"` // seconds
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	BackoffBase   float64 `yaml:"backoff_base"` // seconds
	PitchFloor    float64 `yaml:"pitch_floor"`
	PitchCeiling  float64 `yaml:"pitch_ceiling"`
}

// ModelsConfig names the predictor artifacts used by the pipeline
type ModelsConfig struct {
	Dir             string `yaml:"dir" json:"dir"`
	Classifier      string `yaml:"classifier" json:"classifier"`
	MotorWithAge    string `yaml:"motor_with_age" json:"motor_with_age"`
	MotorWithoutAge string `yaml:"motor_without_age" json:"motor_without_age"`
	TotalWithAge    string `yaml:"total_with_age" json:"total_with_age"`
	TotalWithoutAge string `yaml:"total_without_age" json:"total_without_age"`
	Preload         bool   `yaml:"preload" json:"preload"`
}

// ScalersConfig names the persisted scalers used by the pipeline
type ScalersConfig struct {
	Dir                  string `yaml:"dir" json:"dir"`
	Classification       string `yaml:"classification" json:"classification"`
	RegressionWithAge    string `yaml:"regression_with_age" json:"regression_with_age"`
	RegressionWithoutAge string `yaml:"regression_without_age" json:"regression_without_age"`
}

// SubjectConfig contains defaults for omitted form fields
type SubjectConfig struct {
	DefaultAge int    `yaml:"default_age"`
	DefaultSex string `yaml:"default_sex"`
}

// HistoryConfig contains assessment history storage configuration
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NotifyConfig contains MQTT verdict publication configuration
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration that works for local development
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:          5000,
			Address:       "0.0.0.0",
			MaxUploadMB:   32,
			ReadTimeout:   30,
			WriteTimeout:  120,
			AllowedOrigin: "*",
		},
		Audio: AudioConfig{
			UploadDir:         "./uploads",
			DefaultTestTime:   10.0,
			FFmpegBinary:      "ffmpeg",
			ConvertSampleRate: 44100,
		},
		Extractor: ExtractorConfig{
			Endpoint:      "http://localhost:8000/measure",
			Timeout:       60,
			MaxRetries:    2,
			MaxConcurrent: 4,
			BackoffBase:   1.0,
			PitchFloor:    75,
			PitchCeiling:  500,
		},
		Models: ModelsConfig{
			Dir:             "./models",
			Classifier:      "parkinson_classifier",
			MotorWithAge:    "motor_updrs_with_age",
			MotorWithoutAge: "motor_updrs_without_age",
			TotalWithAge:    "total_updrs_with_age",
			TotalWithoutAge: "total_updrs_without_age",
			Preload:         true,
		},
		Scalers: ScalersConfig{
			Dir:                  "./models",
			Classification:       "scaler_classification",
			RegressionWithAge:    "scaler_regression_with_age",
			RegressionWithoutAge: "scaler_regression_without_age",
		},
		Subject: SubjectConfig{
			DefaultAge: 70,
			DefaultSex: "male",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./data/history.db",
		},
		Notify: NotifyConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "parkinson-assessment",
			Topic:    "parkinson/verdicts",
			QoS:      1,
			Timeout:  5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file on top of Default, applies
// environment overrides (including a .env file when present) and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// A missing .env file is not an error
	_ = godotenv.Load()

	if err := config.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment override failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides secrets and deployment-specific values from the environment
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvExtractorEndpoint); v != "" {
		c.Extractor.Endpoint = v
	}

	if v := os.Getenv(EnvExtractorAPIKey); v != "" {
		c.Extractor.APIKey = v
	}

	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got '%s'", EnvHTTPPort, v)
		}
		c.HTTP.Port = port
	}

	if v := os.Getenv(EnvMQTTPassword); v != "" {
		c.Notify.Password = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Extractor.Validate(); err != nil {
		return fmt.Errorf("extractor config: %w", err)
	}

	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("models config: %w", err)
	}

	if err := c.Scalers.Validate(); err != nil {
		return fmt.Errorf("scalers config: %w", err)
	}

	if err := c.Subject.Validate(); err != nil {
		return fmt.Errorf("subject config: %w", err)
	}

	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history config: %w", err)
	}

	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty")
	}

	if h.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", h.MaxUploadMB)
	}

	if h.ReadTimeout < 1 || h.WriteTimeout < 1 {
		return fmt.Errorf("read_timeout and write_timeout must be at least 1 second")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.UploadDir == "" {
		return fmt.Errorf("upload_dir cannot be empty")
	}

	if a.DefaultTestTime <= 0 {
		return fmt.Errorf("default_test_time must be positive, got %f", a.DefaultTestTime)
	}

	if a.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg_binary cannot be empty")
	}

	if a.ConvertSampleRate < 0 {
		return fmt.Errorf("convert_sample_rate cannot be negative, got %d", a.ConvertSampleRate)
	}

	return nil
}

// Validate validates extractor configuration
func (e *ExtractorConfig) Validate() error {
	if e.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if e.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", e.Timeout)
	}

	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", e.MaxRetries)
	}

	if e.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", e.MaxConcurrent)
	}

	if e.BackoffBase < 0 {
		return fmt.Errorf("backoff_base cannot be negative, got %f", e.BackoffBase)
	}

	if e.PitchFloor <= 0 || e.PitchCeiling <= e.PitchFloor {
		return fmt.Errorf("pitch range must satisfy 0 < pitch_floor < pitch_ceiling, got %f..%f",
			e.PitchFloor, e.PitchCeiling)
	}

	return nil
}

// Validate validates model identifiers
func (m *ModelsConfig) Validate() error {
	if m.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	for name, id := range map[string]string{
		"classifier":        m.Classifier,
		"motor_with_age":    m.MotorWithAge,
		"motor_without_age": m.MotorWithoutAge,
		"total_with_age":    m.TotalWithAge,
		"total_without_age": m.TotalWithoutAge,
	} {
		if id == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	return nil
}

// Validate validates scaler identifiers
func (s *ScalersConfig) Validate() error {
	if s.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	if s.Classification == "" || s.RegressionWithAge == "" || s.RegressionWithoutAge == "" {
		return fmt.Errorf("classification, regression_with_age and regression_without_age must all be set")
	}

	if s.RegressionWithAge == s.RegressionWithoutAge {
		return fmt.Errorf("regression scalers must differ, both are '%s'", s.RegressionWithAge)
	}

	return nil
}

// Validate validates subject defaults
func (s *SubjectConfig) Validate() error {
	if s.DefaultAge < 0 || s.DefaultAge > 130 {
		return fmt.Errorf("default_age must be between 0 and 130, got %d", s.DefaultAge)
	}

	if s.DefaultSex == "" {
		return fmt.Errorf("default_sex cannot be empty")
	}

	return nil
}

// Validate validates history configuration
func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.Path == "" {
		return fmt.Errorf("path cannot be empty when history is enabled")
	}

	return nil
}

// Validate validates notify configuration
func (n *NotifyConfig) Validate() error {
	if !n.Enabled {
		return nil
	}

	if n.Broker == "" {
		return fmt.Errorf("broker cannot be empty when notify is enabled")
	}

	if n.Topic == "" {
		return fmt.Errorf("topic cannot be empty when notify is enabled")
	}

	if n.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", n.QoS)
	}

	if n.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", n.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout or stderr is treated as a file path
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// MaxUploadBytes returns the upload size limit in bytes
func (h *HTTPConfig) MaxUploadBytes() int64 {
	return int64(h.MaxUploadMB) << 20
}

// GetReadTimeoutDuration returns the read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeoutDuration() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeoutDuration returns the write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeoutDuration() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetTimeoutDuration returns the extractor timeout as a time.Duration
func (e *ExtractorConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// GetBackoffBaseDuration returns the retry backoff base as a time.Duration
func (e *ExtractorConfig) GetBackoffBaseDuration() time.Duration {
	return time.Duration(e.BackoffBase * float64(time.Second))
}

// GetTimeoutDuration returns the publish timeout as a time.Duration
func (n *NotifyConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(n.Timeout) * time.Second
}
