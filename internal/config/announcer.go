package config

import "time"

// AnnouncerConfig configures the front-desk announcer daemon.
type AnnouncerConfig struct {
	Env        string
	LogLevel   string
	APIBaseURL string
	Email      string
	Password   string
	// Interval is the polling period; 30 seconds unless overridden.
	Interval time.Duration
	// RequestTimeout bounds each call to the API.
	RequestTimeout time.Duration
	PlayerCmd      string
	DedupMax       int
	// AutoStart makes the announcer trigger the reserved→started sweep on
	// every tick, like the staff dashboard does.
	AutoStart bool
	// PublishEvents sends announcement.played events to RabbitMQ.
	PublishEvents bool
}

func LoadAnnouncerConfig() AnnouncerConfig {
	LoadDotEnv()
	return AnnouncerConfig{
		Env:            envStr("APP_ENV", "dev"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		APIBaseURL:     envStr("ANNOUNCER_API_URL", "http://localhost:8080"),
		Email:          must("ANNOUNCER_EMAIL"),
		Password:       must("ANNOUNCER_PASSWORD"),
		Interval:       envDur("ANNOUNCER_INTERVAL", 30*time.Second),
		RequestTimeout: envDur("ANNOUNCER_REQUEST_TIMEOUT", 45*time.Second),
		PlayerCmd:      envStr("PLAYER_CMD", "mpg123 -q"),
		DedupMax:       envInt("ANNOUNCER_DEDUP_MAX", 4096),
		AutoStart:      envBool("ANNOUNCER_AUTO_START", true),
		PublishEvents:  envBool("ANNOUNCER_PUBLISH_EVENTS", false),
	}
}
