package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultRateWindow, cfg.RateWindow)
	assert.Equal(t, 120, cfg.RateLimits.Read)
	assert.Equal(t, 30, cfg.RateLimits.Write)
	assert.Equal(t, 10, cfg.RateLimits.Export)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("RATE_LIMIT_WRITE", "5")
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.RateLimits.Write)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestBareIntegerDurationMeansSeconds(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "45")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# backend settings
ENVIRONMENT=production
DATABASE_PATH=/var/lib/notbroke/notbroke.db
FRONTEND_URL="https://notbroke.example.com"
RATE_LIMIT_EXPORT=3
CACHE_DEFAULT_TTL=2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "/var/lib/notbroke/notbroke.db", cfg.DatabasePath)
	assert.Equal(t, "https://notbroke.example.com", cfg.FrontendURL)
	assert.Equal(t, 3, cfg.RateLimits.Export)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestProcessEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LISTEN_ADDR=:7000\n"), 0o600))
	t.Setenv("LISTEN_ADDR", ":7001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.ListenAddr)
}

func TestMissingEnvFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestProductionValidation(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_PATH", ":memory:")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory database")
	assert.Contains(t, err.Error(), "FRONTEND_URL")
}

func TestInvalidFrontendURLInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("FRONTEND_URL", "notbroke.example.com")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP/HTTPS")
}

func TestInvalidIntegerCollected(t *testing.T) {
	t.Setenv("RATE_LIMIT_READ", "lots")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_READ")
}

func TestInvalidDurationCollected(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "soon")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_DEFAULT_TTL")
}

func TestLowTTLWarns(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "100ms")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "very low")
}

func TestParseEnvBuffer(t *testing.T) {
	envMap := parseEnvBuffer([]byte(`
# comment
PLAIN=value
SINGLE='quoted value'
DOUBLE="another one"
EMPTYREF=${MISSING_VARIABLE_XYZ}
WITHDEF=${MISSING_VARIABLE_XYZ:-fallback}
CHAINED=${PLAIN}/suffix
`))
	assert.Equal(t, "value", envMap["PLAIN"])
	assert.Equal(t, "quoted value", envMap["SINGLE"])
	assert.Equal(t, "another one", envMap["DOUBLE"])
	assert.Equal(t, "${MISSING_VARIABLE_XYZ}", envMap["EMPTYREF"])
	assert.Equal(t, "fallback", envMap["WITHDEF"])
	assert.Equal(t, "value/suffix", envMap["CHAINED"])
}

func TestDequote(t *testing.T) {
	assert.Equal(t, "plain", dequote("plain"))
	assert.Equal(t, "quoted", dequote("'quoted'"))
	assert.Equal(t, "quoted", dequote(`"quoted"`))
	assert.Equal(t, `'mismatched"`, dequote(`'mismatched"`))
}
