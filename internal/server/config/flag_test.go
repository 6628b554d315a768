package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-s", "access-secret", "-f", "refresh-secret",
			"-t", "15", "-r", "10080", "-k", "key", "-p", "secret", "-g", "us-west-1",
			"-e", "http://endpoint", "-q", "jobs", "-b", "bucket",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				AccessSecretKey:              "access-secret",
				RefreshSecretKey:             "refresh-secret",
				AccessTokenValidityDuration:  15 * time.Minute,
				RefreshTokenValidityDuration: 10080 * time.Minute,
				AWSAccessKeyID:               "key",
				AWSSecretAccessKey:           "secret",
				AWSRegion:                    "us-west-1",
				AWSBaseEndpoint:              "http://endpoint",
				SQSQueueName:                 "jobs",
				S3Bucket:                     "bucket",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Equal(t, tt.expected, config)
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
