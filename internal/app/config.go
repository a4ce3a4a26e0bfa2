package app

import (
	"time"

	"github.com/krishkalaria12/echo-interview/internal/pkg/envutil"
)

type Config struct {
	HTTPAddr string

	Environment string
	Version     string

	TranscriptFetchTimeout time.Duration
	EnrichFetchTimeout     time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:               ":" + envutil.String("PORT", "8080"),
		Environment:            envutil.String("APP_ENV", "development"),
		Version:                envutil.String("APP_VERSION", "dev"),
		TranscriptFetchTimeout: envutil.Seconds("TRANSCRIPT_FETCH_TIMEOUT_SECONDS", 30*time.Second),
		EnrichFetchTimeout:     envutil.Seconds("ENRICH_FETCH_TIMEOUT_SECONDS", 30*time.Second),
	}
}
