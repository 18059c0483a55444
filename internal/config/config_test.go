package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Contains(t, cfg.DSN, "gradflow")
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
env: production
jwt_secret: super-secret
allowed_origins:
  - gradflow.example.edu
  - "*.example.edu"
database:
  host: db.internal
  user: gf
  password: pw
  name: gradflow_prod
mail:
  enable: true
  host: smtp.example.edu
  from: noreply@example.edu
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.Equal(t, "gf:pw@tcp(db.internal:3306)/gradflow_prod?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN)
	assert.True(t, cfg.Mail.Enable)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not an int"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExplicitDSNWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`dsn: "custom:dsn@tcp(x:1)/y"`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom:dsn@tcp(x:1)/y", cfg.DSN)
}
