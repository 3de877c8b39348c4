package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/securechat/securechat/internal/flagx"
)

// duration wraps time.Duration so the JSON overlay accepts both "1m30s"
// strings and integer nanoseconds.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		d.Duration = time.Duration(v)
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return &json.UnsupportedTypeError{}
	}
}

// jsonConfig is the DTO for the optional JSON config file; its values are
// copied onto the runtime Config after unmarshalling.
type jsonConfig struct {
	DatabaseDSN         *string   `json:"database_dsn"`
	SessionSecret       *string   `json:"session_secret"`
	ProfileKeyB64       *string   `json:"profile_key"`
	PBKDF2Iterations    *int      `json:"pbkdf2_iterations"`
	ExpirySweepInterval *duration `json:"expiry_sweep_interval"`
	S3RootUser          *string   `json:"s3_root_user"`
	S3RootPassword      *string   `json:"s3_root_password"`
	S3Bucket            *string   `json:"s3_bucket"`
	S3Region            *string   `json:"s3_region"`
	S3BaseEndpoint      *string   `json:"s3_base_endpoint"`
}

// parseJSON loads overrides from the file named by the -c/-config flag.
// No flag means no JSON overlay. An unreadable or invalid file panics:
// a half-applied config is worse than not starting.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != nil {
		cfg.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SessionSecret != nil {
		cfg.SessionSecret = *c.SessionSecret
	}
	if c.ProfileKeyB64 != nil {
		cfg.ProfileKeyB64 = *c.ProfileKeyB64
	}
	if c.PBKDF2Iterations != nil {
		cfg.PBKDF2Iterations = *c.PBKDF2Iterations
	}
	if c.ExpirySweepInterval != nil {
		cfg.ExpirySweepInterval = c.ExpirySweepInterval.Duration
	}
	if c.S3RootUser != nil {
		cfg.S3RootUser = *c.S3RootUser
	}
	if c.S3RootPassword != nil {
		cfg.S3RootPassword = *c.S3RootPassword
	}
	if c.S3Bucket != nil {
		cfg.S3Bucket = *c.S3Bucket
	}
	if c.S3Region != nil {
		cfg.S3Region = *c.S3Region
	}
	if c.S3BaseEndpoint != nil {
		cfg.S3BaseEndpoint = *c.S3BaseEndpoint
	}
}
