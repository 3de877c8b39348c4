package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays SECURECHAT_* environment variables onto cfg. Unset or
// unparsable values leave the current value in place.
func parseEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("SECURECHAT_DATABASE_DSN", &cfg.DatabaseDSN)
	setString("SECURECHAT_SESSION_SECRET", &cfg.SessionSecret)
	setString("SECURECHAT_PROFILE_KEY", &cfg.ProfileKeyB64)
	setString("SECURECHAT_S3_ROOT_USER", &cfg.S3RootUser)
	setString("SECURECHAT_S3_ROOT_PASSWORD", &cfg.S3RootPassword)
	setString("SECURECHAT_S3_BUCKET", &cfg.S3Bucket)
	setString("SECURECHAT_S3_REGION", &cfg.S3Region)
	setString("SECURECHAT_S3_BASE_ENDPOINT", &cfg.S3BaseEndpoint)

	if v, ok := os.LookupEnv("SECURECHAT_PBKDF2_ITERATIONS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PBKDF2Iterations = n
		}
	}
	if v, ok := os.LookupEnv("SECURECHAT_EXPIRY_SWEEP_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ExpirySweepInterval = d
		}
	}
}
