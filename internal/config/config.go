package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the smart-glass gateway.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	UploadDir  string
	HistoryDir string

	PendingImageTimeout    time.Duration
	RetentionMaxAge        time.Duration
	RetentionMaxFiles      int
	RetentionSweepInterval time.Duration

	AudioBackend     string
	TTSSampleRate    int
	TTSChannels      int
	TTSBitsPerSample int
	TTSFrameBytes    int

	DeepgramAPIKey   string
	DeepgramTTSURL   string
	DeepgramTTSModel string

	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsSTTModel string

	AgentMode    string
	AgentHTTPURL string

	OpenAIAPIKey      string
	OpenAIVisionModel string

	StartupPrompt string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults. Provider API
// keys are intentionally not required here: a missing key fails the
// corresponding external call at first use, not at startup.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "glassd"),
		AllowAnyOrigin:   false,
		UploadDir:        envOrDefault("APP_UPLOAD_DIR", "uploads"),
		HistoryDir:       envOrDefault("APP_HISTORY_DIR", "audio_history"),
		AudioBackend:     envOrDefault("AUDIO_BACKEND", "auto"),
		// Deepgram aura voices stream linear16 at 24kHz mono; the playback
		// device is opened with the same triple so the two never drift apart.
		TTSSampleRate:    24000,
		TTSChannels:      1,
		TTSBitsPerSample: 16,
		// ~0.1s of audio per playback frame at 24kHz mono 16-bit.
		TTSFrameBytes:          4800,
		DeepgramTTSURL:         envOrDefault("DEEPGRAM_TTS_URL", "https://api.deepgram.com/v1/speak"),
		DeepgramTTSModel:       envOrDefault("DEEPGRAM_TTS_MODEL", "aura-2-thalia-en"),
		DeepgramAPIKey:         trimSpaceEnv("DEEPGRAM_API_KEY"),
		ElevenLabsBaseURL:      envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsSTTModel:     envOrDefault("ELEVENLABS_STT_MODEL_ID", "scribe_v1"),
		ElevenLabsAPIKey:       trimSpaceEnv("ELEVENLABS_API_KEY"),
		AgentMode:              envOrDefault("AGENT_MODE", "auto"),
		AgentHTTPURL:           trimSpaceEnv("AGENT_HTTP_URL"),
		OpenAIAPIKey:           trimSpaceEnv("OPENAI_API_KEY"),
		OpenAIVisionModel:      envOrDefault("OPENAI_VISION_MODEL", "gpt-4o-mini"),
		StartupPrompt:          trimSpaceEnv("APP_STARTUP_PROMPT"),
		DatabaseURL:            trimSpaceEnv("DATABASE_URL"),
		ShutdownTimeout:        15 * time.Second,
		PendingImageTimeout:    30 * time.Second,
		RetentionMaxAge:        0,
		RetentionMaxFiles:      0,
		RetentionSweepInterval: time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PendingImageTimeout, err = durationFromEnv("APP_PENDING_IMAGE_TIMEOUT", cfg.PendingImageTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RetentionMaxAge, err = durationFromEnv("APP_RETENTION_MAX_AGE", cfg.RetentionMaxAge)
	if err != nil {
		return Config{}, err
	}
	cfg.RetentionSweepInterval, err = durationFromEnv("APP_RETENTION_SWEEP_INTERVAL", cfg.RetentionSweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.RetentionMaxFiles, err = intFromEnv("APP_RETENTION_MAX_FILES", cfg.RetentionMaxFiles)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSSampleRate, err = intFromEnv("APP_TTS_SAMPLE_RATE", cfg.TTSSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSChannels, err = intFromEnv("APP_TTS_CHANNELS", cfg.TTSChannels)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSBitsPerSample, err = intFromEnv("APP_TTS_BITS_PER_SAMPLE", cfg.TTSBitsPerSample)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSFrameBytes, err = intFromEnv("APP_TTS_FRAME_BYTES", cfg.TTSFrameBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.PendingImageTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_PENDING_IMAGE_TIMEOUT must be at least 1s")
	}
	if cfg.RetentionMaxAge < 0 {
		return Config{}, fmt.Errorf("APP_RETENTION_MAX_AGE must be >= 0")
	}
	if cfg.RetentionMaxFiles < 0 {
		return Config{}, fmt.Errorf("APP_RETENTION_MAX_FILES must be >= 0")
	}
	if cfg.RetentionSweepInterval <= 0 {
		return Config{}, fmt.Errorf("APP_RETENTION_SWEEP_INTERVAL must be positive")
	}
	if cfg.TTSSampleRate <= 0 {
		return Config{}, fmt.Errorf("APP_TTS_SAMPLE_RATE must be positive")
	}
	if cfg.TTSChannels <= 0 {
		return Config{}, fmt.Errorf("APP_TTS_CHANNELS must be positive")
	}
	if cfg.TTSBitsPerSample <= 0 || cfg.TTSBitsPerSample%8 != 0 {
		return Config{}, fmt.Errorf("APP_TTS_BITS_PER_SAMPLE must be a positive multiple of 8")
	}
	blockAlign := cfg.TTSChannels * cfg.TTSBitsPerSample / 8
	if cfg.TTSFrameBytes <= 0 || cfg.TTSFrameBytes%blockAlign != 0 {
		return Config{}, fmt.Errorf("APP_TTS_FRAME_BYTES must be a positive multiple of %d", blockAlign)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AudioBackend)) {
	case "auto", "portaudio", "mock":
	default:
		return Config{}, fmt.Errorf("invalid AUDIO_BACKEND: %q (expected auto|portaudio|mock)", cfg.AudioBackend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpaceEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
