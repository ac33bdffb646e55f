/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/spf13/viper"
)

const ProposalEventsTopic string = "studiooh.proposal.exported"

// ProposalCfg is the global variable containing the runtime configuration
var ProposalCfg *ProposalConfig

var once sync.Once

// ProposalConfig represents the runtime configuration
type ProposalConfig struct {
	Hostname        string
	PublicPort      int
	MetricsPort     int
	PrivatePort     int
	Logging         *loggingConfig
	LogLevel        string
	Debug           bool
	DBConfig        dbConfig
	StorageConfig   storageConfig
	KafkaConfig     kafkaConfig
	AssetConfig     assetConfig
	ExportConfig    exportConfig
	OIDCConfig      oidcConfig
	OpenAPIFilePath string
	Psks            []string
}

type dbConfig struct {
	User     string
	Password string
	Hostname string
	Port     string
	Name     string
	SSLCfg   dbSSLConfig
}

type dbSSLConfig struct {
	RdsCa   *string
	SSLMode string
}

type storageConfig struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL is prepended to stored object paths (media photos, logos)
	// so that renderers can fetch them.
	PublicBaseURL string
	// AssetPrefixes limit which stored paths may be resolved.
	AssetPrefixes []string
}

type loggingConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	LogGroup        string
	Region          string
}

type kafkaConfig struct {
	KafkaBrokers   []string
	EventsTopic    string
	KafkaSSLConfig kafkaSSLConfig
}

type kafkaSSLConfig struct {
	KafkaCA       string
	KafkaUsername string
	KafkaPassword string
	SASLMechanism string
	Protocol      string
}

type assetConfig struct {
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	// FetchRPS limits outbound image fetches per second. Zero disables the limit.
	FetchRPS   float64
	FetchBurst int
	MaxBytes   int64
	MaxPixels  int
	// DeniedNetworks adds comma separated CIDRs to the built in list of
	// networks image URLs may not point at.
	DeniedNetworks       string
	AllowPrivateNetworks bool
	// client credentials for asset hosts that require a bearer token
	TokenURL     string
	ClientID     string
	ClientSecret string
}

type exportConfig struct {
	// Timeout bounds a whole export run. Zero means no timeout.
	Timeout    time.Duration
	ExpiryDays int
}

type oidcConfig struct {
	IssuerURL string
	ClientID  string
}

// Get returns the runtime configuration, building it on first use.
func Get() *ProposalConfig {
	once.Do(func() {
		ProposalCfg = load()
	})
	return ProposalCfg
}

func load() *ProposalConfig {
	options := viper.New()
	options.SetDefault("PublicPort", 8000)
	options.SetDefault("MetricsPort", 9000)
	options.SetDefault("PrivatePort", 10000)
	options.SetDefault("LogLevel", "INFO")
	options.SetDefault("Debug", false)
	options.SetDefault("OpenAPIFilePath", "./static/spec/openapi.json")
	options.SetDefault("psks", strings.Split(os.Getenv("PROPOSAL_PSKS"), ","))

	// DB defaults
	options.SetDefault("Database", "pgsql")
	options.SetDefault("PGSQL_USER", "postgres")
	options.SetDefault("PGSQL_PASSWORD", "postgres")
	options.SetDefault("PGSQL_HOSTNAME", "localhost")
	options.SetDefault("PGSQL_PORT", "15433")
	options.SetDefault("PGSQL_DATABASE", "postgres")

	// storage defaults
	options.SetDefault("AWS_BUCKET", "proposal-exports")
	options.SetDefault("MINIO_ENDPOINT", "http://localhost:9099")
	options.SetDefault("MINIO_ACCESS_KEY", "minio")
	options.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	options.SetDefault("MINIO_SSL", false)
	options.SetDefault("PUBLIC_ASSET_BASE_URL", "")
	options.SetDefault("ASSET_KEY_PREFIXES", "logos/,media/")

	// kafka defaults
	options.SetDefault("KAFKA_EVENTS_TOPIC", ProposalEventsTopic)
	options.SetDefault("KafkaBrokers", strings.Split(os.Getenv("KAFKA_BROKERS"), ","))

	// asset and export defaults
	options.SetDefault("ASSET_FETCH_TIMEOUT", 15*time.Second)
	options.SetDefault("ASSET_CACHE_TTL", 10*time.Minute)
	options.SetDefault("ASSET_FETCH_RPS", 20.0)
	options.SetDefault("ASSET_FETCH_BURST", 5)
	options.SetDefault("ASSET_MAX_BYTES", 20*1024*1024)
	options.SetDefault("ASSET_MAX_PIXELS", 32_000_000)
	options.SetDefault("ASSET_DENIED_NETWORKS", "")
	options.SetDefault("ASSET_ALLOW_PRIVATE_NETWORKS", false)
	options.SetDefault("ASSET_TOKEN_URL", "")
	options.SetDefault("ASSET_CLIENT_ID", "")
	options.SetDefault("ASSET_CLIENT_SECRET", "")
	options.SetDefault("EXPORT_TIMEOUT", time.Duration(0))
	options.SetDefault("EXPORT_EXPIRY_DAYS", 7)

	options.SetDefault("OIDC_ISSUER_URL", "")
	options.SetDefault("OIDC_CLIENT_ID", "")

	options.AutomaticEnv()
	for key, env := range map[string]string{
		"PublicPort":      "PUBLIC_PORT",
		"MetricsPort":     "METRICS_PORT",
		"PrivatePort":     "PRIVATE_PORT",
		"LogLevel":        "LOG_LEVEL",
		"Debug":           "DEBUG",
		"OpenAPIFilePath": "OPENAPI_FILE_PATH",
	} {
		_ = options.BindEnv(key, env)
	}

	if options.GetBool("Debug") {
		options.Set("LogLevel", "DEBUG")
	}

	kubenv := viper.New()
	kubenv.AutomaticEnv()

	config := &ProposalConfig{
		Hostname:        kubenv.GetString("Hostname"),
		PublicPort:      options.GetInt("PublicPort"),
		MetricsPort:     options.GetInt("MetricsPort"),
		PrivatePort:     options.GetInt("PrivatePort"),
		Debug:           options.GetBool("Debug"),
		LogLevel:        options.GetString("LogLevel"),
		OpenAPIFilePath: options.GetString("OpenAPIFilePath"),
		Psks:            options.GetStringSlice("psks"),
	}

	database := options.GetString("database")

	if database == "pgsql" {
		config.DBConfig = dbConfig{
			User:     options.GetString("PGSQL_USER"),
			Password: options.GetString("PGSQL_PASSWORD"),
			Hostname: options.GetString("PGSQL_HOSTNAME"),
			Port:     options.GetString("PGSQL_PORT"),
			Name:     options.GetString("PGSQL_DATABASE"),
			SSLCfg: dbSSLConfig{
				SSLMode: "prefer",
			},
		}
	}

	config.StorageConfig = storageConfig{
		Bucket:        options.GetString("AWS_BUCKET"),
		Endpoint:      options.GetString("MINIO_ENDPOINT"),
		AccessKey:     options.GetString("MINIO_ACCESS_KEY"),
		SecretKey:     options.GetString("MINIO_SECRET_KEY"),
		UseSSL:        options.GetBool("MINIO_SSL"),
		PublicBaseURL: options.GetString("PUBLIC_ASSET_BASE_URL"),
		AssetPrefixes: splitList(options.GetString("ASSET_KEY_PREFIXES")),
	}

	config.KafkaConfig = kafkaConfig{
		KafkaBrokers: options.GetStringSlice("KafkaBrokers"),
		EventsTopic:  options.GetString("KAFKA_EVENTS_TOPIC"),
	}

	config.AssetConfig = assetConfig{
		FetchTimeout:         options.GetDuration("ASSET_FETCH_TIMEOUT"),
		CacheTTL:             options.GetDuration("ASSET_CACHE_TTL"),
		FetchRPS:             options.GetFloat64("ASSET_FETCH_RPS"),
		FetchBurst:           options.GetInt("ASSET_FETCH_BURST"),
		MaxBytes:             options.GetInt64("ASSET_MAX_BYTES"),
		MaxPixels:            options.GetInt("ASSET_MAX_PIXELS"),
		DeniedNetworks:       options.GetString("ASSET_DENIED_NETWORKS"),
		AllowPrivateNetworks: options.GetBool("ASSET_ALLOW_PRIVATE_NETWORKS"),
		TokenURL:             options.GetString("ASSET_TOKEN_URL"),
		ClientID:             options.GetString("ASSET_CLIENT_ID"),
		ClientSecret:         options.GetString("ASSET_CLIENT_SECRET"),
	}

	config.ExportConfig = exportConfig{
		Timeout:    options.GetDuration("EXPORT_TIMEOUT"),
		ExpiryDays: options.GetInt("EXPORT_EXPIRY_DAYS"),
	}

	config.OIDCConfig = oidcConfig{
		IssuerURL: options.GetString("OIDC_ISSUER_URL"),
		ClientID:  options.GetString("OIDC_CLIENT_ID"),
	}

	if clowder.IsClowderEnabled() {
		cfg := clowder.LoadedConfig

		config.PublicPort = *cfg.PublicPort
		config.MetricsPort = cfg.MetricsPort
		config.PrivatePort = *cfg.PrivatePort

		config.DBConfig = dbConfig{
			User:     cfg.Database.Username,
			Password: cfg.Database.Password,
			Hostname: cfg.Database.Hostname,
			Port:     fmt.Sprint(cfg.Database.Port),
			Name:     cfg.Database.Name,
			SSLCfg: dbSSLConfig{
				SSLMode: cfg.Database.SslMode,
				RdsCa:   cfg.Database.RdsCa,
			},
		}

		bucket, ok := clowder.ObjectBuckets[config.StorageConfig.Bucket]
		if ok && cfg.ObjectStore != nil {
			config.StorageConfig.Bucket = bucket.Name
			config.StorageConfig.Endpoint = fmt.Sprintf("%s:%d", cfg.ObjectStore.Hostname, cfg.ObjectStore.Port)
			config.StorageConfig.UseSSL = cfg.ObjectStore.Tls
			if bucket.AccessKey != nil {
				config.StorageConfig.AccessKey = *bucket.AccessKey
			}
			if bucket.SecretKey != nil {
				config.StorageConfig.SecretKey = *bucket.SecretKey
			}
		}

		if cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
			config.KafkaConfig.KafkaBrokers = clowder.KafkaServers
			if topic, ok := clowder.KafkaTopics[ProposalEventsTopic]; ok {
				config.KafkaConfig.EventsTopic = topic.Name
			}
			broker := cfg.Kafka.Brokers[0]
			if broker.Authtype != nil {
				caPath, err := cfg.KafkaCa(broker)
				if err != nil {
					panic("Kafka CA failed to write")
				}
				config.KafkaConfig.KafkaSSLConfig = kafkaSSLConfig{
					KafkaUsername: *broker.Sasl.Username,
					KafkaPassword: *broker.Sasl.Password,
					SASLMechanism: "SCRAM-SHA-512",
					Protocol:      "sasl_ssl",
					KafkaCA:       caPath,
				}
			}
		}

		config.Logging = &loggingConfig{
			AccessKeyID:     cfg.Logging.Cloudwatch.AccessKeyId,
			SecretAccessKey: cfg.Logging.Cloudwatch.SecretAccessKey,
			LogGroup:        cfg.Logging.Cloudwatch.LogGroup,
			Region:          cfg.Logging.Cloudwatch.Region,
		}
	}

	return config
}

// splitList reads a comma separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
