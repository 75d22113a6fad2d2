package config

import (
	"strings"
	"time"
)

// TTSConfig configures the voice-synthesis provider and the synthesis
// cache in front of it.
type TTSConfig struct {
	APIURL string
	APIKey string
	// Timeout bounds a single provider call; exceeding it counts as a
	// failed synthesis.
	Timeout time.Duration
	Format  string
	// Voices maps locale to the free-text voice description sent with
	// every utterance in that locale.
	Voices map[string]string

	HotCacheTTL    time.Duration
	HotCachePrefix string
}

const (
	defaultVoiceEN = "A warm, friendly adult female voice with a clear British English accent, speaking at a calm pace."
	defaultVoiceAR = "A warm, friendly adult female voice speaking clear Modern Standard Arabic at a calm pace."
)

func LoadTTSConfig() TTSConfig {
	return TTSConfig{
		APIURL:  envStr("TTS_API_URL", "https://api.hume.ai/v0/tts"),
		APIKey:  envStr("TTS_API_KEY", ""),
		Timeout: envDur("TTS_TIMEOUT", 30*time.Second),
		Format:  strings.ToLower(envStr("TTS_FORMAT", "mp3")),
		Voices: map[string]string{
			"en": envStr("TTS_VOICE_EN", defaultVoiceEN),
			"ar": envStr("TTS_VOICE_AR", defaultVoiceAR),
		},
		HotCacheTTL:    envDur("TTS_HOT_CACHE_TTL", 24*time.Hour),
		HotCachePrefix: envStr("TTS_HOT_CACHE_PREFIX", "tts"),
	}
}

// StorageConfig points at the S3 bucket that holds synthesized audio.
// PublicBaseURL, when set, is used to build durable object URLs (for a
// CDN or a public bucket); otherwise the virtual-hosted S3 URL is used.
type StorageConfig struct {
	Bucket        string
	Region        string
	Prefix        string
	PublicBaseURL string
	Endpoint      string // optional S3-compatible endpoint (e.g. MinIO)
	UsePathStyle  bool
}

func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket:        envStr("S3_AUDIO_BUCKET", ""),
		Region:        envStr("AWS_REGION", "us-east-1"),
		Prefix:        strings.Trim(envStr("S3_AUDIO_PREFIX", "tts"), "/"),
		PublicBaseURL: strings.TrimRight(envStr("S3_PUBLIC_BASE_URL", ""), "/"),
		Endpoint:      envStr("S3_ENDPOINT", ""),
		UsePathStyle:  envBool("S3_USE_PATH_STYLE", false),
	}
}

// JobsConfig controls the server-side background sweep.
type JobsConfig struct {
	AutoStartEnabled bool
	AutoStartEvery   time.Duration
}

func LoadJobsConfig() JobsConfig {
	return JobsConfig{
		AutoStartEnabled: envBool("AUTO_START_ENABLED", true),
		AutoStartEvery:   envDur("AUTO_START_EVERY", time.Minute),
	}
}
