package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("TIMEREPORT_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "zvms", cfg.MongoDatabase)
	require.Equal(t, "users", cfg.UsersCollection)
	require.Equal(t, "activities", cfg.ActivitiesCollection)
	require.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	require.Equal(t, 1, cfg.Workers)
	require.Equal(t, FailurePolicyAbort, cfg.FailurePolicy)
	require.False(t, cfg.IncludeAbsent)
	require.Equal(t, "output.csv", cfg.OutputCSV)
	require.Equal(t, "gbk", cfg.TargetEncoding)
	require.False(t, cfg.KafkaEnabled())
}

func TestLoadReadsLegacyConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":" mongodb://legacy:27017 "}`), 0o600))
	t.Setenv("TIMEREPORT_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mongodb://legacy:27017", cfg.MongoURI)
}

func TestLoadPrefersEnvOverLegacyFile(t *testing.T) {
	t.Setenv("TIMEREPORT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("TIMEREPORT_MONGO_URI", "mongodb://env:27017")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mongodb://env:27017", cfg.MongoURI)
}

func TestLoadRejectsLegacyFileWithoutServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	t.Setenv("TIMEREPORT_CONFIG_FILE", path)

	_, err := Load()
	require.ErrorContains(t, err, "missing server")
}

func TestLoadSplitsKafkaBrokers(t *testing.T) {
	t.Setenv("TIMEREPORT_FIXTURE", "fixture.json")
	t.Setenv("TIMEREPORT_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.KafkaEnabled())
}

func TestValidate(t *testing.T) {
	valid := Config{MongoURI: "mongodb://x", Workers: 1, FailurePolicy: FailurePolicyAbort, OutputCSV: "out.csv"}
	require.NoError(t, valid.Validate())

	missingSource := valid
	missingSource.MongoURI = ""
	require.Error(t, missingSource.Validate())

	badWorkers := valid
	badWorkers.Workers = 0
	require.ErrorContains(t, badWorkers.Validate(), "workers")

	badPolicy := valid
	badPolicy.FailurePolicy = "retry"
	require.ErrorContains(t, badPolicy.Validate(), "retry")

	for _, sheet := range []string{
		"a sheet name that is far longer than thirty-one characters",
		"totals:2026",
		"q1/q2",
		"'quoted'",
	} {
		badSheet := valid
		badSheet.SheetName = sheet
		require.ErrorContains(t, badSheet.Validate(), "sheet name", sheet)
	}

	namedSheet := valid
	namedSheet.SheetName = "志愿时长"
	require.NoError(t, namedSheet.Validate())
}
