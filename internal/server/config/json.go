package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"docvault/internal/flagx"
	"docvault/internal/timex"
)

// JsonConfig is the DTO for the optional JSON configuration file. Interval
// fields use timex.Duration so both "48h" strings and integer nanoseconds
// parse. Empty fields leave the current Config value untouched.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	JWTSecret             string         `json:"jwt_secret"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	ShareTTL              timex.Duration `json:"share_ttl"`
	MasterKeyHex          string         `json:"master_key_hex"`
	MasterPassphrase      string         `json:"master_passphrase"`
	MasterKeySalt         string         `json:"master_key_salt"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration from the file given via -c/-config, if any.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	apply(c, config)
	return nil
}

func apply(c *JsonConfig, config *Config) {
	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.JWTSecret != "" {
		config.JWTSecret = c.JWTSecret
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.ShareTTL.Duration != 0 {
		config.ShareTTL = time.Duration(c.ShareTTL.Duration)
	}
	if c.MasterKeyHex != "" {
		config.MasterKeyHex = c.MasterKeyHex
	}
	if c.MasterPassphrase != "" {
		config.MasterPassphrase = c.MasterPassphrase
	}
	if c.MasterKeySalt != "" {
		config.MasterKeySalt = c.MasterKeySalt
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
