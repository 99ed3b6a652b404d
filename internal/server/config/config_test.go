package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoad_DefaultsOnly(t *testing.T) {
	got, err := Load(nil)
	require.NoError(t, err)

	if diff := cmp.Diff(defaults(), got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.SecretKey, "auth is off by default")
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeTemp(t, "remote.json", `{
		"address": ":9999",
		"storage": "postgres",
		"database_dsn": "postgres://u:p@db/vax",
		"secret_key": "s3cret",
		"token_validity": "2h",
		"shutdown_timeout": 3000000000
	}`)

	got, err := Load([]string{"-c", path})
	require.NoError(t, err)

	want := defaults()
	want.Address = ":9999"
	want.Storage = StoragePostgres
	want.DatabaseDSN = "postgres://u:p@db/vax"
	want.SecretKey = "s3cret"
	want.TokenValidity = 2 * time.Hour
	want.ShutdownTimeout = 3 * time.Second

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLFileAndFlags(t *testing.T) {
	path := writeTemp(t, "remote.yaml", `
archive: s3
s3_bucket: audit
s3_base_endpoint: http://minio:9000/
log_level: debug
`)

	got, err := Load([]string{"-config=" + path, "-b", "override", "-t", "30", "-a", ":7000", "--unrelated", "x"})
	require.NoError(t, err)

	want := defaults()
	want.Archive = ArchiveS3
	want.S3Bucket = "override"
	want.S3BaseEndpoint = "http://minio:9000/"
	want.LogLevel = "debug"
	want.TokenValidity = 30 * time.Minute
	want.Address = ":7000"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := writeTemp(t, "bad.json", `{"address":`)
	badDuration := writeTemp(t, "dur.json", `{"token_validity":"soon"}`)

	cases := map[string][]string{
		"missing file":     {"-c", filepath.Join(t.TempDir(), "nope.json")},
		"malformed json":   {"-c", bad},
		"bad duration":     {"-c", badDuration},
		"bad minutes":      {"-t", "ages"},
		"unknown storage":  {"-m", "redis"},
		"unknown archive":  {"-x", "gcs"},
		"postgres w/o dsn": {"-m", "postgres", "-d="},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}
