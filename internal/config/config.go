// Package config loads crawl settings from the environment and
// validates them before any network or disk work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/monomonedula/evrostan/internal/imagery"
	"github.com/monomonedula/evrostan/internal/model"
)

// Persistence strategy names accepted by CRAWL_STRATEGY.
const (
	StrategySimple = "simple"
	StrategyGlued  = "glued"
)

type Config struct {
	APIKey  string
	BaseURL string

	Centre model.Coordinate
	OutDir string
	Side   int
	Step   int

	FOV    int
	Width  int
	Height int

	Strategy    string
	SeamWrap    bool
	KML         bool
	Concurrency int
	CacheSize   int
	HTTPTimeout time.Duration

	MetricsAddr string
	LogLevel    string
	LogConsole  bool
	LogSampleN  int
}

// FromEnv reads settings from the environment, falling back to an .env
// file in the working directory when present. Centre and OutDir have no
// environment form and are filled in from the command line.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:      getenv("STREETVIEW_API_KEY", ""),
		BaseURL:     getenv("STREETVIEW_BASE_URL", "https://maps.googleapis.com/maps/api"),
		Side:        getint("CRAWL_SIDE_METERS", 2000),
		Step:        getint("CRAWL_STEP_METERS", 30),
		FOV:         getint("CRAWL_FOV", 90),
		Width:       getint("CRAWL_IMAGE_WIDTH", 600),
		Height:      getint("CRAWL_IMAGE_HEIGHT", 400),
		Strategy:    getenv("CRAWL_STRATEGY", StrategySimple),
		SeamWrap:    getbool("CRAWL_SEAM_WRAP", true),
		KML:         getbool("CRAWL_KML", false),
		Concurrency: getint("CRAWL_CONCURRENCY", 1),
		CacheSize:   getint("RESOLVER_CACHE_SIZE", 65536),
		HTTPTimeout: getduration("HTTP_TIMEOUT", 30*time.Second),
		MetricsAddr: getenv("METRICS_ADDR", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogConsole:  getbool("LOG_CONSOLE", false),
		LogSampleN:  getint("LOG_SAMPLE_N", 0),
	}
}

// Validate rejects configurations that would fail midway through a
// crawl, before any request is sent or file written.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required (STREETVIEW_API_KEY)")
	}
	if c.OutDir == "" {
		return errors.New("output directory is required")
	}
	if c.Centre.Lat < -90 || c.Centre.Lat > 90 {
		return errors.New("centre latitude must be in [-90, 90]")
	}
	if c.Centre.Lng < -180 || c.Centre.Lng > 180 {
		return errors.New("centre longitude must be in [-180, 180]")
	}
	if c.Side < 0 {
		return errors.New("side must be >= 0 metres")
	}
	if c.Step <= 0 {
		return errors.New("step must be > 0 metres")
	}
	if err := imagery.ValidateFOV(c.FOV); err != nil {
		return err
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New("image size must be positive")
	}
	switch c.Strategy {
	case StrategySimple, StrategyGlued:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
