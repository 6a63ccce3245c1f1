// Package config loads translator settings from defaults, an optional TOML file,
// an optional .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
	"github.com/GriffinCanCode/autotranslator/internal/lang"
)

// Config holds all runtime settings.
type Config struct {
	HTTPAddr      string `toml:"http_addr"`
	InferenceAddr string `toml:"inference_addr"`
	LogLevel      string `toml:"log_level"`

	CaptureSource     string `toml:"capture_source"` // display | adb
	Display           int    `toml:"display"`
	ADBPath           string `toml:"adb_path"`
	ADBSerial         string `toml:"adb_serial"`
	CaptureIntervalMS int    `toml:"capture_interval_ms"`
	MaxWidth          int    `toml:"max_width"`
	MaxHeight         int    `toml:"max_height"`
	SkipSimilarFrames bool   `toml:"skip_similar_frames"`
	AutoStart         bool   `toml:"auto_start"`

	OCREngine      string   `toml:"ocr_engine"` // remote | tesseract
	TesseractLangs []string `toml:"tesseract_langs"`
	Detector       string   `toml:"detector"`   // remote | local
	Translator     string   `toml:"translator"` // remote | stub

	TargetLanguage    string   `toml:"target_language"`
	PrefetchModels    bool     `toml:"prefetch_models"`
	PrefetchLanguages []string `toml:"prefetch_languages"`
	RequireWifi       bool     `toml:"require_wifi"`

	HistorySize int `toml:"history_size"`
	OverlayX    int `toml:"overlay_x"`
	OverlayY    int `toml:"overlay_y"`

	MQTTBrokerURL   string `toml:"mqtt_broker_url"`
	MQTTClientID    string `toml:"mqtt_client_id"`
	MQTTUsername    string `toml:"mqtt_username"`
	MQTTPassword    string `toml:"mqtt_password"`
	MQTTTopicPrefix string `toml:"mqtt_topic_prefix"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:          ":8090",
		InferenceAddr:     "localhost:50051",
		LogLevel:          "info",
		CaptureSource:     "display",
		ADBPath:           "adb",
		CaptureIntervalMS: 2000,
		MaxWidth:          1080,
		MaxHeight:         1920,
		SkipSimilarFrames: false,
		AutoStart:         true,
		OCREngine:         "remote",
		TesseractLangs:    []string{"eng", "spa", "fra", "deu"},
		Detector:          "remote",
		Translator:        "remote",
		TargetLanguage:    lang.English,
		PrefetchModels:    true,
		PrefetchLanguages: []string{"es", "fr", "de", "zh", "ja", "ko", "hi", "ar"},
		HistorySize:       50,
		OverlayX:          0,
		OverlayY:          100,
		MQTTTopicPrefix:   "autotranslator",
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable .env", "error", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ConfigInvalid, "open config file %s", path)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		return apperrors.Wrapf(err, apperrors.ConfigInvalid, "parse config file %s", path)
	}
	return nil
}

func applyEnv(c *Config) {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.InferenceAddr = getEnv("INFERENCE_ADDR", c.InferenceAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.CaptureSource = getEnv("CAPTURE_SOURCE", c.CaptureSource)
	c.Display = getEnvInt("CAPTURE_DISPLAY", c.Display)
	c.ADBPath = getEnv("ADB_PATH", c.ADBPath)
	c.ADBSerial = getEnv("ADB_SERIAL", c.ADBSerial)
	c.CaptureIntervalMS = getEnvInt("CAPTURE_INTERVAL_MS", c.CaptureIntervalMS)
	c.MaxWidth = getEnvInt("MAX_CAPTURE_WIDTH", c.MaxWidth)
	c.MaxHeight = getEnvInt("MAX_CAPTURE_HEIGHT", c.MaxHeight)
	c.SkipSimilarFrames = getEnvBool("SKIP_SIMILAR_FRAMES", c.SkipSimilarFrames)
	c.AutoStart = getEnvBool("AUTO_START", c.AutoStart)

	c.OCREngine = getEnv("OCR_ENGINE", c.OCREngine)
	c.TesseractLangs = getEnvList("TESSERACT_LANGS", c.TesseractLangs)
	c.Detector = getEnv("LANGUAGE_DETECTOR", c.Detector)
	c.Translator = getEnv("TRANSLATOR", c.Translator)

	c.TargetLanguage = getEnv("TARGET_LANGUAGE", c.TargetLanguage)
	c.PrefetchModels = getEnvBool("PREFETCH_MODELS", c.PrefetchModels)
	c.PrefetchLanguages = getEnvList("PREFETCH_LANGUAGES", c.PrefetchLanguages)
	c.RequireWifi = getEnvBool("REQUIRE_WIFI", c.RequireWifi)

	c.HistorySize = getEnvInt("HISTORY_SIZE", c.HistorySize)
	c.OverlayX = getEnvInt("OVERLAY_X", c.OverlayX)
	c.OverlayY = getEnvInt("OVERLAY_Y", c.OverlayY)

	c.MQTTBrokerURL = getEnv("MQTT_BROKER_URL", c.MQTTBrokerURL)
	c.MQTTClientID = getEnv("MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTUsername = getEnv("MQTT_USERNAME", c.MQTTUsername)
	c.MQTTPassword = getEnv("MQTT_PASSWORD", c.MQTTPassword)
	c.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTTTopicPrefix)
}

// validate rejects settings the pipeline cannot run with.
func (c *Config) validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Newf(apperrors.ConfigInvalid, format, args...)
	}

	if c.CaptureIntervalMS <= 0 {
		return invalid("capture interval must be positive, got %dms", c.CaptureIntervalMS)
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return invalid("max capture size must be positive, got %dx%d", c.MaxWidth, c.MaxHeight)
	}
	if err := oneOf("capture source", c.CaptureSource, "display", "adb"); err != nil {
		return err
	}
	if err := oneOf("ocr engine", c.OCREngine, "remote", "tesseract"); err != nil {
		return err
	}
	if err := oneOf("language detector", c.Detector, "remote", "local"); err != nil {
		return err
	}
	if err := oneOf("translator", c.Translator, "remote", "stub"); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return invalid("log level %q: %v", c.LogLevel, err)
	}

	// Translation models and the source table are English-bound.
	if lang.Normalize(c.TargetLanguage) != lang.English {
		return invalid("target language %q unsupported, only %q", c.TargetLanguage, lang.English)
	}
	c.TargetLanguage = lang.English

	sources := lang.Supported()
	prefetch := make([]string, 0, len(c.PrefetchLanguages))
	for _, code := range c.PrefetchLanguages {
		base := lang.Normalize(code)
		if !slices.Contains(sources, base) {
			return invalid("prefetch language %q not one of %s", code, strings.Join(sources, ", "))
		}
		prefetch = append(prefetch, base)
	}
	c.PrefetchLanguages = prefetch
	if c.HistorySize <= 0 {
		c.HistorySize = Default().HistorySize
	}
	return nil
}

func oneOf(what, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return apperrors.Newf(apperrors.ConfigInvalid, "%s %q not one of %s", what, v, strings.Join(allowed, ", "))
}

// CaptureInterval returns the tick period.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMS) * time.Millisecond
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// String renders the config for startup logs with secrets masked.
func (c Config) String() string {
	if c.MQTTPassword != "" {
		c.MQTTPassword = "***"
	}
	type plain Config
	return fmt.Sprintf("%+v", plain(c))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
