package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into a fresh directory so stray .env or smartsim.yaml files don't leak in
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SMARTSIM_CONFIG", "")
	t.Setenv("SMARTSIM_STORAGE_PATH", "/tmp/smartsim-test.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3333", cfg.API.BaseURL)
	assert.Equal(t, "https://api.smsdev.com.br/v1/", cfg.SMS.BaseURL)
	assert.Equal(t, 9, cfg.SMS.MessageType)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "strict", cfg.Routes.Policy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SMARTSIM_API_URL", "http://api.test")
	t.Setenv("SMARTSIM_SMS_TYPE", "4")
	t.Setenv("SMARTSIM_HTTP_TIMEOUT", "5s")
	t.Setenv("SMARTSIM_STORAGE_DRIVER", "SQLITE")
	t.Setenv("SMARTSIM_STORAGE_PATH", "")
	t.Setenv("SMARTSIM_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SMARTSIM_ROUTE_POLICY", "inherit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://api.test", cfg.API.BaseURL)
	assert.Equal(t, 4, cfg.SMS.MessageType)
	assert.Equal(t, 5*time.Second, cfg.SMS.Timeout)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "storage.sqlite", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "inherit", cfg.Routes.Policy)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	yamlData := `
api:
  base_url: http://yaml.test
  timeout: 10s
storage:
  driver: memory
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(yamlData), 0644))
	t.Setenv("SMARTSIM_CONFIG", "")
	t.Setenv("SMARTSIM_STORAGE_DRIVER", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://yaml.test", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults
	assert.Equal(t, 9, cfg.SMS.MessageType)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad sms type", "SMARTSIM_SMS_TYPE", "nine"},
		{"bad timeout", "SMARTSIM_HTTP_TIMEOUT", "soon"},
		{"bad driver", "SMARTSIM_STORAGE_DRIVER", "etcd"},
		{"bad policy", "SMARTSIM_ROUTE_POLICY", "lenient"},
		{"no origins", "SMARTSIM_CORS_ORIGINS", " , "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("SMARTSIM_STORAGE_PATH", "/tmp/x.json")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
