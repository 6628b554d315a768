package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/profiledoc/profiledoc/internal/flagx"
	"github.com/profiledoc/profiledoc/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessSecretKey              string         `json:"access_secret_key"`
	RefreshSecretKey             string         `json:"refresh_secret_key"`
	JWTSigningAlgorithm          string         `json:"jwt_signing_algorithm"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AWSAccessKeyID               string         `json:"aws_access_key_id"`
	AWSSecretAccessKey           string         `json:"aws_secret_access_key"`
	AWSRegion                    string         `json:"aws_region"`
	AWSBaseEndpoint              string         `json:"aws_base_endpoint"`
	SQSQueueName                 string         `json:"sqs_queue_name"`
	S3Bucket                     string         `json:"s3_bucket"`
	QueueWaitTime                timex.Duration `json:"queue_wait_time"`
	WorkerBackoff                timex.Duration `json:"worker_backoff"`
	ObjectStoreTimeout           timex.Duration `json:"object_store_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded and the Config is left untouched.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessSecretKey = c.AccessSecretKey
	config.RefreshSecretKey = c.RefreshSecretKey
	config.JWTSigningAlgorithm = c.JWTSigningAlgorithm
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.AWSAccessKeyID = c.AWSAccessKeyID
	config.AWSSecretAccessKey = c.AWSSecretAccessKey
	config.AWSRegion = c.AWSRegion
	config.AWSBaseEndpoint = c.AWSBaseEndpoint
	config.SQSQueueName = c.SQSQueueName
	config.S3Bucket = c.S3Bucket
	config.QueueWaitTime = time.Duration(c.QueueWaitTime.Duration)
	config.WorkerBackoff = time.Duration(c.WorkerBackoff.Duration)
	config.ObjectStoreTimeout = time.Duration(c.ObjectStoreTimeout.Duration)
}
