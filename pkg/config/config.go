package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultEnvironment = "dev"
	DefaultRegion      = "us-west-2"
	DefaultRulesKey    = "interlink.rules"
	DefaultSnapshotKey = "snapshot.json"
)

type Settings struct {
	Environment string `mapstructure:"environment" validate:"required"`
	Region      string `mapstructure:"region" validate:"required"`
	Profile     string `mapstructure:"profile"`

	Log         LogSettings         `mapstructure:"log"`
	Store       StoreSettings       `mapstructure:"store"`
	Blob        BlobSettings        `mapstructure:"blob"`
	Rules       BlobLocation        `mapstructure:"rules"`
	Snapshot    BlobLocation        `mapstructure:"snapshot"`
	Aggregation AggregationSettings `mapstructure:"aggregation"`
	Server      ServerSettings      `mapstructure:"server"`
}

type LogSettings struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

type StoreSettings struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=dynamodb duckdb memory"`
	DuckDBPath      string        `mapstructure:"duckdb_path"`
	CallTimeout     time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"min=1"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff" validate:"gt=0"`
	ConsistentReads bool          `mapstructure:"consistent_reads"`
}

type BlobSettings struct {
	Backend string `mapstructure:"backend" validate:"oneof=s3 fs"`
	// Root is the directory standing in for buckets with the fs backend.
	Root string `mapstructure:"root"`
}

type BlobLocation struct {
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
}

type AggregationSettings struct {
	Interval  time.Duration `mapstructure:"interval" validate:"gt=0"`
	BatchSize int           `mapstructure:"batch_size" validate:"min=1"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Load builds settings from defaults, an optional config file and the
// environment, in increasing order of precedence.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SERVICEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &cfg, nil
}

// legacyEnv binds the bare variable names the deployed functions already
// use, alongside the SERVICEMAP_ prefixed form.
var legacyEnv = map[string][]string{
	"environment":       {"SERVICEMAP_ENVIRONMENT", "ENVIRONMENT"},
	"region":            {"SERVICEMAP_REGION", "REGION"},
	"profile":           {"SERVICEMAP_PROFILE", "AWS_PROFILE"},
	"log.level":         {"SERVICEMAP_LOG_LEVEL", "LOG_LEVEL"},
	"store.backend":     {"SERVICEMAP_STORE_BACKEND", "STORE_BACKEND"},
	"store.duckdb_path": {"SERVICEMAP_STORE_DUCKDB_PATH", "DUCKDB_PATH"},
	"rules.bucket":      {"SERVICEMAP_RULES_BUCKET", "RULES_BUCKET"},
	"rules.key":         {"SERVICEMAP_RULES_KEY", "RULES_KEY"},
	"snapshot.bucket":   {"SERVICEMAP_SNAPSHOT_BUCKET", "SNAPSHOT_BUCKET"},
	"snapshot.key":      {"SERVICEMAP_SNAPSHOT_KEY", "SNAPSHOT_KEY"},
	"server.host":       {"SERVICEMAP_SERVER_HOST", "SERVER_HOST"},
	"server.port":       {"SERVICEMAP_SERVER_PORT", "SERVER_PORT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("region", DefaultRegion)
	v.SetDefault("profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.backend", "dynamodb")
	v.SetDefault("store.duckdb_path", "service-map.db")
	v.SetDefault("store.call_timeout", 10*time.Second)
	v.SetDefault("store.max_attempts", 5)
	v.SetDefault("store.max_backoff", 20*time.Second)
	v.SetDefault("store.consistent_reads", true)
	v.SetDefault("blob.backend", "s3")
	v.SetDefault("blob.root", ".")
	v.SetDefault("rules.bucket", "")
	v.SetDefault("rules.key", DefaultRulesKey)
	v.SetDefault("snapshot.bucket", "")
	v.SetDefault("snapshot.key", DefaultSnapshotKey)
	v.SetDefault("aggregation.interval", time.Hour)
	v.SetDefault("aggregation.batch_size", 100)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
}

// TableName is the per-environment table holding one record kind,
// e.g. "dev-Assets".
func (s *Settings) TableName(kind entity.Kind) string {
	return fmt.Sprintf("%s-%s", s.Environment, kind)
}

func (s *Settings) Tables() map[entity.Kind]string {
	tables := make(map[entity.Kind]string, len(entity.Kinds))
	for _, kind := range entity.Kinds {
		tables[kind] = s.TableName(kind)
	}
	return tables
}

// StoreKey identifies the table set rule ingestion must serialize on.
func (s *Settings) StoreKey() string {
	if s.Store.Backend == "duckdb" {
		return fmt.Sprintf("%s:%s", s.Store.Backend, s.Store.DuckDBPath)
	}
	return fmt.Sprintf("%s:%s", s.Store.Backend, s.Environment)
}

// AWSConfig loads the SDK configuration with the store retry policy: the
// standard retryer backs off exponentially on throttling and transient
// errors up to MaxAttempts.
func (s *Settings) AWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithDefaultRegion(s.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = s.Store.MaxAttempts
				o.MaxBackoff = s.Store.MaxBackoff
			})
		}),
	}
	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}
