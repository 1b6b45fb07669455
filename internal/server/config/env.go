package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// local .env file first if one exists. Key material is accepted only here
// and via the JSON file, never on the command line where it would show up
// in process listings.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, name string) {
		if v, ok := os.LookupEnv(name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&config.EndpointAddrHTTP, "ENDPOINT_ADDR_HTTP")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.JWTSecret, "JWT_SECRET")
	setDuration(&config.TokenValidityDuration, "TOKEN_VALIDITY_DURATION")
	setDuration(&config.ShareTTL, "SHARE_TTL")
	setString(&config.MasterKeyHex, "MASTER_KEY_HEX")
	setString(&config.MasterPassphrase, "MASTER_PASSPHRASE")
	setString(&config.MasterKeySalt, "MASTER_KEY_SALT")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}
