// Package config reads runtime settings from the environment.
package config

import (
	"net"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds every setting of the binary. Command-line flags override the
// values loaded here.
type Config struct {
	LogLevel logrus.Level

	OCRLanguage    string
	TessdataPrefix string
	OCRTimeout     time.Duration

	Workers   int
	OutputDir string

	DatabaseURL string
}

// Load reads a .env file from the working directory when one exists, then
// the environment. Malformed values are configuration errors.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit .env files. Missing files are ignored;
// variables already set in the environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "read %s", f)
		}
	}

	level, err := logrus.ParseLevel(getenvDefault("NUMBER_REGIONS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, errors.Wrap(err, "NUMBER_REGIONS_LOG_LEVEL")
	}
	timeout, err := time.ParseDuration(getenvDefault("NUMBER_REGIONS_OCR_TIMEOUT", "30s"))
	if err != nil {
		return nil, errors.Wrap(err, "NUMBER_REGIONS_OCR_TIMEOUT")
	}
	if timeout < 0 {
		return nil, errors.Errorf("NUMBER_REGIONS_OCR_TIMEOUT: negative duration %s", timeout)
	}
	workers, err := strconv.Atoi(getenvDefault("NUMBER_REGIONS_WORKERS", strconv.Itoa(runtime.NumCPU())))
	if err != nil {
		return nil, errors.Wrap(err, "NUMBER_REGIONS_WORKERS")
	}
	if workers < 1 {
		return nil, errors.Errorf("NUMBER_REGIONS_WORKERS: %d is not a positive worker count", workers)
	}

	return &Config{
		LogLevel:       level,
		OCRLanguage:    getenvDefault("NUMBER_REGIONS_OCR_LANGUAGE", "eng"),
		TessdataPrefix: strings.TrimSpace(os.Getenv("TESSDATA_PREFIX")),
		OCRTimeout:     timeout,
		Workers:        workers,
		OutputDir:      getenvDefault("NUMBER_REGIONS_OUTPUT_DIR", "number_regions"),
		DatabaseURL:    ResolveDSN(),
	}, nil
}

// ResolveDSN returns DATABASE_URL when set, otherwise a postgres URL built
// from POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DB, PGHOST and PGPORT.
func ResolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	user := getenvDefault("POSTGRES_USER", "numberregions")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "localhost")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "numberregions")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSN describes dsn for logs without its password.
func SafeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	return u.Redacted()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
