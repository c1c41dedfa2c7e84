package config

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "GRPC_PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SPEAKER_DETECTION",
		"STT_AUDIO_INTELLIGENCE", "STT_SUMMARIZE", "STT_REQUEST_TIMEOUT",
		"MAX_AUDIO_BYTES", "KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
		"KAFKA_TOPIC_DOCUMENTS", "KAFKA_TOPIC_FAILURES",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-s2t-blockifier" {
		t.Errorf("expected default principal 'svc-s2t-blockifier', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" || cfg.Service.GRPCPort != "50051" {
		t.Errorf("unexpected default ports http=%s grpc=%s", cfg.Service.HTTPPort, cfg.Service.GRPCPort)
	}

	// STT defaults
	if cfg.STT.Provider != ProviderMock {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if !cfg.STT.SpeakerDetection || !cfg.STT.AudioIntelligence || cfg.STT.Summarize {
		t.Errorf("unexpected default features %+v", cfg.STT)
	}
	if cfg.STT.RequestTimeout != 2*time.Minute {
		t.Errorf("expected default timeout 2m, got %v", cfg.STT.RequestTimeout)
	}

	if cfg.Limits.MaxAudioBytes != 100*1024*1024 {
		t.Errorf("expected default max audio bytes 100MB, got %d", cfg.Limits.MaxAudioBytes)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("unexpected default brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.TopicDocuments != "transcription.document.completed" || cfg.Kafka.TopicFailures != "transcription.job.failed" {
		t.Errorf("unexpected default topics %s %s", cfg.Kafka.TopicDocuments, cfg.Kafka.TopicFailures)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" || cfg.Observability.LogFormat != "json" {
		t.Errorf("unexpected default logging %+v", cfg.Observability)
	}
	if cfg.Observability.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr ':9090', got %s", cfg.Observability.MetricsAddr)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_PROVIDER", "Deepgram")
	t.Setenv("STT_LANGUAGE_CODE", "es-ES")
	t.Setenv("STT_SPEAKER_DETECTION", "false")
	t.Setenv("STT_SUMMARIZE", "true")
	t.Setenv("STT_REQUEST_TIMEOUT", "30s")
	t.Setenv("MAX_AUDIO_BYTES", "10485760")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != ProviderDeepgram {
		t.Errorf("expected STT provider 'deepgram', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SpeakerDetection || !cfg.STT.Summarize {
		t.Errorf("unexpected features %+v", cfg.STT)
	}
	if cfg.STT.RequestTimeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.STT.RequestTimeout)
	}
	if cfg.Limits.MaxAudioBytes != 10485760 {
		t.Errorf("expected max audio bytes 10485760, got %d", cfg.Limits.MaxAudioBytes)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	t.Setenv("STT_SPEAKER_DETECTION", "invalid")
	t.Setenv("STT_REQUEST_TIMEOUT", "invalid")
	t.Setenv("MAX_AUDIO_BYTES", "invalid")
	t.Setenv("KAFKA_BROKERS", " , ")

	cfg := Load()

	// Should fall back to defaults on parse errors
	if !cfg.STT.SpeakerDetection {
		t.Error("expected default speaker detection on invalid input")
	}
	if cfg.STT.RequestTimeout != 2*time.Minute {
		t.Errorf("expected default timeout on invalid input, got %v", cfg.STT.RequestTimeout)
	}
	if cfg.Limits.MaxAudioBytes != 100*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.Limits.MaxAudioBytes)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers on invalid input, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Configuration {
		return &Configuration{
			STT:    STTConfig{Provider: ProviderMock},
			Limits: LimitsConfig{MaxAudioBytes: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr bool
	}{
		{"mock", func(c *Configuration) {}, false},
		{"assemblyai without token", func(c *Configuration) { c.STT.Provider = ProviderAssemblyAI }, true},
		{"assemblyai with token", func(c *Configuration) {
			c.STT.Provider = ProviderAssemblyAI
			c.AssemblyAI.APIToken = "t"
		}, false},
		{"deepgram without token", func(c *Configuration) { c.STT.Provider = ProviderDeepgram }, true},
		{"google with api key", func(c *Configuration) {
			c.STT.Provider = ProviderGoogle
			c.Google.APIKey = "k"
		}, false},
		{"google without credentials", func(c *Configuration) { c.STT.Provider = ProviderGoogle }, true},
		{"unknown provider", func(c *Configuration) { c.STT.Provider = "whisper" }, true},
		{"zero audio limit", func(c *Configuration) { c.Limits.MaxAudioBytes = 0 }, true},
		{"kafka without brokers", func(c *Configuration) { c.Kafka.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
