package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by STT_PROVIDER.
const (
	ProviderMock       = "mock"
	ProviderAssemblyAI = "assemblyai"
	ProviderDeepgram   = "deepgram"
	ProviderGoogle     = "google"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	AssemblyAI    AssemblyAIConfig
	Deepgram      DeepgramConfig
	Google        GoogleConfig
	Limits        LimitsConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
}

// STTConfig selects the provider and the features requested from it.
type STTConfig struct {
	Provider          string
	LanguageCode      string
	SpeakerDetection  bool
	AudioIntelligence bool
	Summarize         bool
	RequestTimeout    time.Duration
}

type AssemblyAIConfig struct {
	APIToken string
	BaseURL  string
}

type DeepgramConfig struct {
	APIToken string
	BaseURL  string
	Model    string
}

type GoogleConfig struct {
	CredentialsFile string
	APIKey          string
	SampleRateHz    int64
	AudioEncoding   string
}

type LimitsConfig struct {
	MaxAudioBytes int64
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicDocuments string
	TopicFailures  string
	Principal      string
}

type ObservabilityConfig struct {
	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

// Load reads the configuration from the environment. Values that fail to
// parse fall back to their defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-s2t-blockifier")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		STT: STTConfig{
			Provider:          strings.ToLower(envOrDefault("STT_PROVIDER", ProviderMock)),
			LanguageCode:      envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SpeakerDetection:  envOrDefaultBool("STT_SPEAKER_DETECTION", true),
			AudioIntelligence: envOrDefaultBool("STT_AUDIO_INTELLIGENCE", true),
			Summarize:         envOrDefaultBool("STT_SUMMARIZE", false),
			RequestTimeout:    envOrDefaultDuration("STT_REQUEST_TIMEOUT", 2*time.Minute),
		},
		AssemblyAI: AssemblyAIConfig{
			APIToken: os.Getenv("ASSEMBLYAI_API_TOKEN"),
			BaseURL:  envOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"),
		},
		Deepgram: DeepgramConfig{
			APIToken: os.Getenv("DEEPGRAM_API_TOKEN"),
			BaseURL:  envOrDefault("DEEPGRAM_BASE_URL", "https://api.deepgram.com/v1"),
			Model:    envOrDefault("DEEPGRAM_MODEL", "nova-2"),
		},
		Google: GoogleConfig{
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			APIKey:          os.Getenv("GOOGLE_STT_API_KEY"),
			SampleRateHz:    envOrDefaultInt64("GOOGLE_STT_SAMPLE_RATE_HZ", 8000),
			AudioEncoding:   envOrDefault("GOOGLE_STT_AUDIO_ENCODING", "LINEAR16"),
		},
		Limits: LimitsConfig{
			MaxAudioBytes: envOrDefaultInt64("MAX_AUDIO_BYTES", 100*1024*1024),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicDocuments: envOrDefault("KAFKA_TOPIC_DOCUMENTS", "transcription.document.completed"),
			TopicFailures:  envOrDefault("KAFKA_TOPIC_FAILURES", "transcription.job.failed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks the provider selection and its credentials.
func (c *Configuration) Validate() error {
	switch c.STT.Provider {
	case ProviderMock:
	case ProviderAssemblyAI:
		if c.AssemblyAI.APIToken == "" {
			return fmt.Errorf("%w: ASSEMBLYAI_API_TOKEN is required for provider %s", ErrInvalidConfig, c.STT.Provider)
		}
	case ProviderDeepgram:
		if c.Deepgram.APIToken == "" {
			return fmt.Errorf("%w: DEEPGRAM_API_TOKEN is required for provider %s", ErrInvalidConfig, c.STT.Provider)
		}
	case ProviderGoogle:
		if c.Google.CredentialsFile == "" && c.Google.APIKey == "" {
			return fmt.Errorf("%w: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_STT_API_KEY is required for provider %s", ErrInvalidConfig, c.STT.Provider)
		}
	default:
		return fmt.Errorf("%w: unknown STT_PROVIDER %q", ErrInvalidConfig, c.STT.Provider)
	}
	if c.Limits.MaxAudioBytes <= 0 {
		return fmt.Errorf("%w: MAX_AUDIO_BYTES must be positive", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: KAFKA_BROKERS is required when Kafka is enabled", ErrInvalidConfig)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envOrDefaultList splits a comma separated value, dropping empty entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
