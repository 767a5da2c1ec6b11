package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, int64(5<<20), cfg.Media.MaxBytes)
	assert.Equal(t, "blog-images", cfg.Media.Folder)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Driver: "mongo"},
		Media:    MediaConfig{Backend: "cloudinary", MaxBytes: 1},
		MQ:       MQConfig{Backend: "none"},
		Auth:     AuthConfig{TokenTTL: time.Hour},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), `unsupported DB_DRIVER "mongo"`)
	assert.Contains(t, err.Error(), `unsupported MEDIA_BACKEND "cloudinary"`)
}
