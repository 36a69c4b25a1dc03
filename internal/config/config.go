// Package config loads the shipper's configuration from the environment.
//
// The deploy target is a function runtime, so configuration arrives as
// environment variables set on the function, loaded once at startup.
// Config is declarative: it names the destination and the enrichment
// source, it does not construct clients.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config describes one deployment of the shipper.
type Config struct {
	// StreamName is the destination Kinesis stream. Required.
	StreamName string `json:"streamName"`

	// RoleARN, when set, is assumed for stream access. Used for
	// cross-account destination streams.
	RoleARN string `json:"roleARN,omitempty"`

	// MetadataBucket/MetadataPrefix locate the supplemental-field
	// objects. Empty bucket disables enrichment.
	MetadataBucket string `json:"metadataBucket,omitempty"`
	MetadataPrefix string `json:"metadataPrefix,omitempty"`

	// Publisher tuning; zero values use the stream's documented caps.
	MaxRecordsPerPut int     `json:"maxRecordsPerPut,omitempty"`
	MaxBytesPerPut   int     `json:"maxBytesPerPut,omitempty"`
	MaxAttempts      int     `json:"maxAttempts,omitempty"`
	PutsPerSec       float64 `json:"putsPerSec,omitempty"`
}

// FromEnv reads configuration from LOGSHIP_* environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		StreamName:     os.Getenv("LOGSHIP_STREAM_NAME"),
		RoleARN:        os.Getenv("LOGSHIP_ROLE_ARN"),
		MetadataBucket: os.Getenv("LOGSHIP_METADATA_BUCKET"),
		MetadataPrefix: os.Getenv("LOGSHIP_METADATA_PREFIX"),
	}
	if cfg.StreamName == "" {
		return nil, fmt.Errorf("LOGSHIP_STREAM_NAME is required")
	}

	var err error
	if cfg.MaxRecordsPerPut, err = intEnv("LOGSHIP_MAX_RECORDS_PER_PUT"); err != nil {
		return nil, err
	}
	if cfg.MaxBytesPerPut, err = intEnv("LOGSHIP_MAX_BYTES_PER_PUT"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = intEnv("LOGSHIP_MAX_ATTEMPTS"); err != nil {
		return nil, err
	}
	if cfg.PutsPerSec, err = floatEnv("LOGSHIP_PUTS_PER_SEC"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func floatEnv(name string) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
