// Package config defines the runtime configuration for the forestwatch
// pipeline. Configuration is loaded once at process start and is immutable
// afterwards, following 12-factor conventions.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Missing required values or invalid formats fail the run before any
// external service is contacted.
package config

import (
	"time"

	"forestwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for credentials so they cannot leak through logs or JSON.
type SecretString = types.SecretString

// Config is the top-level configuration for the forestwatch pipeline.
// Components receive only the subsets they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"forestwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Analysis   AnalysisConfig
	Region     RegionConfig
	Imagery    ImageryConfig
	Vectorizer VectorizerConfig
	AWS        AWSConfig
	Output     OutputConfig

	// Build metadata is injected via ldflags, not env.
	Build BuildInfo
}

// AnalysisConfig holds the change-detection tuning parameters.
//
// DecreaseThreshold must be negative and IncreaseThreshold positive so the
// damage and recovery classifications can never overlap. LookbackDays must
// be at least the compositing window (15 days) or the baseline and current
// windows would overlap.
type AnalysisConfig struct {
	// ReferenceDate is the analysis end date as YYYY-MM-DD. Empty means
	// "today" per the process clock.
	ReferenceDate     string  `envconfig:"REFERENCE_DATE"`
	LookbackDays      int     `envconfig:"LOOKBACK_DAYS" default:"30" validate:"gte=15"`
	DecreaseThreshold float64 `envconfig:"DECREASE_THRESHOLD" default:"-0.15" validate:"lt=0"`
	IncreaseThreshold float64 `envconfig:"INCREASE_THRESHOLD" default:"0.10" validate:"gt=0"`
	CloudCeilingPct   float64 `envconfig:"CLOUD_CEILING_PCT" default:"20" validate:"gte=0,lte=100"`
	MinAreaAcres      float64 `envconfig:"MIN_AREA_ACRES" default:"2" validate:"gt=0"`
	Index             string  `envconfig:"ANALYSIS_INDEX" default:"ndvi" validate:"oneof=ndvi nbr"`
	ScaleMeters       float64 `envconfig:"SCALE_METERS" default:"30" validate:"gt=0"`
	MaxPixels         float64 `envconfig:"MAX_PIXELS" default:"1e8" validate:"gt=0"`
}

// RegionConfig holds the analysis area. A boundary file takes precedence;
// the bounding box is the fallback and defaults to the Red Lake reservation
// extent in northern Minnesota.
type RegionConfig struct {
	BoundaryFile string  `envconfig:"BOUNDARY_FILE"`
	BBoxWest     float64 `envconfig:"BBOX_WEST" default:"-95.5"`
	BBoxSouth    float64 `envconfig:"BBOX_SOUTH" default:"47.1"`
	BBoxEast     float64 `envconfig:"BBOX_EAST" default:"-94.0"`
	BBoxNorth    float64 `envconfig:"BBOX_NORTH" default:"48.3"`
}

// ImageryConfig holds the Copernicus Data Space credentials and endpoints
// for Sentinel-2 imagery. Provider "stub" swaps in the canned gateway for
// tests and dry runs.
type ImageryConfig struct {
	Provider     string       `envconfig:"IMAGERY_PROVIDER" default:"copernicus" validate:"oneof=copernicus stub"`
	ClientID     string       `envconfig:"CDSE_CLIENT_ID" validate:"required_if=Provider copernicus"`
	ClientSecret SecretString `envconfig:"CDSE_CLIENT_SECRET" validate:"required_if=Provider copernicus"`
	TokenURL     string       `envconfig:"CDSE_TOKEN_URL" default:"https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token" validate:"url"`
	BaseURL      string       `envconfig:"CDSE_BASE_URL" default:"https://sh.dataspace.copernicus.eu" validate:"url"`
	Collection   string       `envconfig:"IMAGERY_COLLECTION" default:"sentinel-2-l2a"`

	Timeout         time.Duration `envconfig:"IMAGERY_TIMEOUT" default:"120s"`
	TileConcurrency int           `envconfig:"IMAGERY_TILE_CONCURRENCY" default:"4" validate:"gte=1"`
}

// VectorizerConfig holds the mask-to-polygon service endpoint. Provider
// "stub" swaps in the canned vectorizer.
type VectorizerConfig struct {
	Provider string        `envconfig:"VECTORIZER_PROVIDER" default:"remote" validate:"oneof=remote stub"`
	BaseURL  string        `envconfig:"VECTORIZER_URL" validate:"required_if=Provider remote,omitempty,url"`
	APIKey   SecretString  `envconfig:"VECTORIZER_API_KEY"`
	Timeout  time.Duration `envconfig:"VECTORIZER_TIMEOUT" default:"60s"`
}

// AWSConfig holds regional settings plus the optional CloudWatch metrics
// switch used by the scheduled worker.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`

	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ForestWatch"`
}

// OutputConfig holds the alert document destination. The local path is
// always written; the S3 bucket is an optional additional publish target.
type OutputConfig struct {
	Path           string `envconfig:"OUTPUT_PATH" default:"output/alerts.json"`
	S3Bucket       string `envconfig:"OUTPUT_S3_BUCKET"`
	S3Prefix       string `envconfig:"OUTPUT_S3_PREFIX" default:"alerts"`
	ReportTopCount int    `envconfig:"REPORT_TOP_COUNT" default:"5" validate:"gt=0"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
