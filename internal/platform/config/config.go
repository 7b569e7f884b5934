package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvFloat is GetEnvInt for floating point values.
func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvDuration parses values like "15s" or "500ms".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// GetEnvList splits a comma separated value, dropping empty items.
func GetEnvList(key string, fallback []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Studio is the service configuration read from the environment.
type Studio struct {
	Port           string
	LogLevel       string
	LogFormat      string
	MaxDuration    float64
	SyncTolerance  float64
	CameraFacings  []string
	MediaDir       string
	PublicMediaURL string
	ThumbnailWidth int
	ProbeTimeout   time.Duration
	ChannelID      string
	ChannelName    string
	ChannelAvatar  string
}

// FromEnv reads the studio configuration, applying defaults.
func FromEnv() Studio {
	port := GetEnv("PORT", "8080")
	return Studio{
		Port:           port,
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		LogFormat:      GetEnv("LOG_FORMAT", "json"),
		MaxDuration:    GetEnvFloat("MAX_DURATION_SECONDS", 60),
		SyncTolerance:  GetEnvFloat("SYNC_TOLERANCE_SECONDS", 0.3),
		CameraFacings:  GetEnvList("CAMERA_FACINGS", []string{"user", "environment"}),
		MediaDir:       GetEnv("MEDIA_DIR", "./data"),
		PublicMediaURL: GetEnv("PUBLIC_MEDIA_URL", "http://localhost:"+port+"/media"),
		ThumbnailWidth: GetEnvInt("THUMBNAIL_WIDTH", 540),
		ProbeTimeout:   GetEnvDuration("PROBE_TIMEOUT", 15*time.Second),
		ChannelID:      GetEnv("CHANNEL_ID", "local"),
		ChannelName:    GetEnv("CHANNEL_NAME", "Local Studio"),
		ChannelAvatar:  GetEnv("CHANNEL_AVATAR", ""),
	}
}
