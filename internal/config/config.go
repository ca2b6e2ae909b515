// Package config centralises configuration parsing for the time report tooling.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
)

// FailurePolicy decides what happens when the aggregation for one person fails.
type FailurePolicy string

const (
	// FailurePolicyAbort stops the run on the first error.
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicySkip logs the failing person and continues.
	FailurePolicySkip FailurePolicy = "skip"
)

// Config captures runtime configuration values for the report tooling.
type Config struct {
	ConfigFile string `env:"TIMEREPORT_CONFIG_FILE"`

	MongoURI             string        `env:"TIMEREPORT_MONGO_URI"`
	MongoDatabase        string        `env:"TIMEREPORT_MONGO_DATABASE" envDefault:"zvms"`
	UsersCollection      string        `env:"TIMEREPORT_USERS_COLLECTION" envDefault:"users"`
	ActivitiesCollection string        `env:"TIMEREPORT_ACTIVITIES_COLLECTION" envDefault:"activities"`
	MongoConnectTimeout  time.Duration `env:"TIMEREPORT_MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	FixturePath          string        `env:"TIMEREPORT_FIXTURE"`
	Workers              int           `env:"TIMEREPORT_WORKERS" envDefault:"1"`
	FailurePolicy        FailurePolicy `env:"TIMEREPORT_FAILURE_POLICY" envDefault:"abort"`
	IncludeAbsent        bool          `env:"REPORT_INCLUDE_ABSENT" envDefault:"false"`
	OutputCSV            string        `env:"TIMEREPORT_OUTPUT_CSV" envDefault:"output.csv"`
	OutputEncodedCSV     string        `env:"TIMEREPORT_OUTPUT_ENCODED_CSV" envDefault:"gbk.csv"`
	OutputSpreadsheet    string        `env:"TIMEREPORT_OUTPUT_XLSX" envDefault:"output.xlsx"`
	TargetEncoding       string        `env:"TIMEREPORT_TARGET_ENCODING" envDefault:"gbk"`
	SheetName            string        `env:"TIMEREPORT_SHEET_NAME" envDefault:"Sheet1"`
	ArchivePostgresURL   string        `env:"TIMEREPORT_ARCHIVE_POSTGRES_URL"`
	KafkaBrokers         []string      `env:"TIMEREPORT_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic           string        `env:"TIMEREPORT_KAFKA_TOPIC" envDefault:"report_events"`
	PushgatewayURL       string        `env:"TIMEREPORT_PUSHGATEWAY_URL"`
	HTTPAddress          string        `env:"TIMEREPORT_HTTP_ADDRESS" envDefault:":8080"`
	JWTSecret            string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string        `env:"JWT_ISSUER"`
	LogMode              string        `env:"TIMEREPORT_LOG_MODE" envDefault:"dev"`
}

// legacyFile mirrors the config.json consumed by earlier versions of the exporter.
type legacyFile struct {
	Server string `json:"server"`
}

// Load reads environment variables into Config, falls back to the legacy config file for
// the Mongo URI, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MongoURI == "" && cfg.ConfigFile != "" {
		server, err := readLegacyServer(cfg.ConfigFile)
		if err != nil {
			return Config{}, err
		}
		cfg.MongoURI = server
	}
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.MongoURI == "" && c.FixturePath == "" {
		errs = append(errs, errors.New("one of TIMEREPORT_MONGO_URI, TIMEREPORT_CONFIG_FILE or TIMEREPORT_FIXTURE is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	switch c.FailurePolicy {
	case FailurePolicyAbort, FailurePolicySkip:
	default:
		errs = append(errs, fmt.Errorf("unknown failure policy %q", c.FailurePolicy))
	}
	if strings.TrimSpace(c.OutputCSV) == "" {
		errs = append(errs, errors.New("output csv path is required"))
	}
	if err := validateSheetName(c.SheetName); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateSheetName applies the xlsx worksheet naming rules. Empty selects the default sheet.
func validateSheetName(name string) error {
	if name == "" {
		return nil
	}
	if utf8.RuneCountInString(name) > 31 {
		return fmt.Errorf("sheet name %q exceeds 31 characters", name)
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return fmt.Errorf("sheet name %q contains one of : \\ / ? * [ ]", name)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("sheet name %q starts or ends with an apostrophe", name)
	}
	return nil
}

// KafkaEnabled reports whether run notifications should be published.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func readLegacyServer(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}
	var file legacyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("parse config file %s: %w", path, err)
	}
	if strings.TrimSpace(file.Server) == "" {
		return "", fmt.Errorf("config file %s: missing server", path)
	}
	return strings.TrimSpace(file.Server), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
