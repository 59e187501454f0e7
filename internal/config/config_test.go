package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://securyflex@localhost/securyflex")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VERIFICATION_PORT", "")
	t.Setenv("VERIFICATION_GRPC_PORT", "")
	t.Setenv("SWEEP_INTERVAL_HOURS", "")
	t.Setenv("POLICY_FILE", "")
	t.Setenv("SAMPLE_CACHE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SampleCacheRedis, cfg.SampleCache)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "9093", cfg.GRPCPort)
	assert.Equal(t, 24, cfg.SweepIntervalHours)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
}

func TestLoad_RequiredVariables(t *testing.T) {
	tests := []struct {
		name  string
		db    string
		redis string
	}{
		{name: "missing database", db: "", redis: "redis://localhost"},
		{name: "missing redis", db: "postgres://localhost", redis: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tt.db)
			t.Setenv("REDIS_URL", tt.redis)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_SweepInterval(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{value: "6", want: 6},
		{value: "0", wantErr: true},
		{value: "-2", wantErr: true},
		{value: "daily", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("POLICY_FILE", "")
			t.Setenv("SWEEP_INTERVAL_HOURS", tt.value)

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.SweepIntervalHours)
		})
	}
}

func TestLoad_SampleCache(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "redis", want: SampleCacheRedis},
		{value: "memory", want: SampleCacheMemory},
		{value: "memcached", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("POLICY_FILE", "")
			t.Setenv("SAMPLE_CACHE", tt.value)

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.SampleCache)
		})
	}
}

func TestLoadPolicy_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
warning_window: 336h
gps:
  excellent_meters: 3
  verified_meters: 8
default_site_radius_meters: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, p.WarningWindow)
	assert.Equal(t, 3.0, p.GPS.ExcellentMeters)
	assert.Equal(t, 8.0, p.GPS.VerifiedMeters)
	assert.Equal(t, 50.0, p.GPS.LowAccuracyMeters, "unset keys keep defaults")
	assert.Equal(t, 100.0, p.GPS.FailedMeters, "unset keys keep defaults")
	assert.Equal(t, 250.0, p.DefaultSiteRadiusMeters)
	assert.Equal(t, 10*time.Minute, p.SampleTTL)
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unordered gps bands", content: "gps:\n  excellent_meters: 20\n  verified_meters: 10\n"},
		{name: "negative window", content: "warning_window: -1h\n"},
		{name: "zero radius", content: "default_site_radius_meters: 0\n"},
		{name: "not yaml", content: "gps: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadPolicy(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_PolicyFileFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SWEEP_INTERVAL_HOURS", "")
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_ttl: 2m\n"), 0644))
	t.Setenv("POLICY_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Policy.SampleTTL)
	assert.Equal(t, path, cfg.PolicyFile)
}
