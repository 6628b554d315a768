package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":              "www.example:9000",
		"database_dsn":                    "dsn",
		"access_secret_key":               "my_access_key",
		"refresh_secret_key":              "my_refresh_key",
		"jwt_signing_algorithm":           "HS512",
		"access_token_validity_duration":  "15m",
		"refresh_token_validity_duration": "168h",
		"aws_access_key_id":               "key",
		"aws_secret_access_key":           "secret",
		"aws_region":                      "region",
		"aws_base_endpoint":               "base_endpoint",
		"sqs_queue_name":                  "jobs",
		"s3_bucket":                       "bucket",
		"queue_wait_time":                 "10s",
		"worker_backoff":                  "5s",
		"object_store_timeout":            "30s",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "dsn", cfg.DatabaseDSN)
		assert.Equal(t, "my_access_key", cfg.AccessSecretKey)
		assert.Equal(t, "my_refresh_key", cfg.RefreshSecretKey)
		assert.Equal(t, "HS512", cfg.JWTSigningAlgorithm)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 168*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "key", cfg.AWSAccessKeyID)
		assert.Equal(t, "secret", cfg.AWSSecretAccessKey)
		assert.Equal(t, "region", cfg.AWSRegion)
		assert.Equal(t, "base_endpoint", cfg.AWSBaseEndpoint)
		assert.Equal(t, "jobs", cfg.SQSQueueName)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, 10*time.Second, cfg.QueueWaitTime)
		assert.Equal(t, 5*time.Second, cfg.WorkerBackoff)
		assert.Equal(t, 30*time.Second, cfg.ObjectStoreTimeout)
	})

	t.Run("no config flag leaves values untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrHTTP: "defaults:1234",
			DatabaseDSN:      "dsn",
			AccessSecretKey:  "key",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "dsn", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.AccessSecretKey)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
