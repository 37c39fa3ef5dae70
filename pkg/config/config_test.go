package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csvparquet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("TEST_CREDS", "/secrets/gcs.json")
	path := writeConfig(t, `
writer:
  compression: zstd
  block_size: 1048576
input:
  delimiter: ";"
  skip_header: true
output:
  gcs_credentials_file: ${TEST_CREDS}
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zstd", cfg.Writer.Compression)
	assert.Equal(t, int64(1048576), cfg.Writer.BlockSize)
	assert.Equal(t, Default().Writer.PageSize, cfg.Writer.PageSize)
	assert.Equal(t, ";", cfg.Input.Delimiter)
	assert.True(t, cfg.Input.SkipHeader)
	assert.Equal(t, "/secrets/gcs.json", cfg.Output.GCSCredentialsFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"stderr"}, cfg.Logging.OutputPaths)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SELF_REF", "${SELF_REF}")
	t.Setenv("BUCKET", "data")

	assert.Equal(t, "a: ${SELF_REF}\nb: data/x\nc: \n",
		substituteEnvVars("a: ${SELF_REF}\nb: ${BUCKET}/x\nc: ${UNSET_CSVPARQUET_VAR}\n"))
	assert.Equal(t, "open ${ brace", substituteEnvVars("open ${ brace"))
}

func TestLoad_SelfReferencingEnvValue(t *testing.T) {
	t.Setenv("TEST_CREDS", "${TEST_CREDS}")
	path := writeConfig(t, "output:\n  gcs_credentials_file: ${TEST_CREDS}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${TEST_CREDS}", cfg.Output.GCSCredentialsFile)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CSVPARQUET_WRITER_COMPRESSION", "gzip")
	t.Setenv("CSVPARQUET_WRITER_SKIP_INVALID", "true")
	path := writeConfig(t, "writer:\n  compression: zstd\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gzip", cfg.Writer.Compression)
	assert.True(t, cfg.Writer.SkipInvalid)
}

func TestFlagsTakePrecedence(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("compression", "", "")
	require.NoError(t, flags.Parse([]string{"--compression=brotli"}))

	v := New()
	require.NoError(t, ReadFile(v, writeConfig(t, "writer:\n  compression: zstd\n")))
	require.NoError(t, v.BindPFlag("writer.compression", flags.Lookup("compression")))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "brotli", cfg.Writer.Compression)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(writeConfig(t, "writer: [unclosed\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = Load(writeConfig(t, "writer:\n  compression: lzo\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"block size":    func(c *Config) { c.Writer.BlockSize = 0 },
		"page size":     func(c *Config) { c.Writer.PageSize = -1 },
		"delimiter":     func(c *Config) { c.Input.Delimiter = ",," },
		"pipe":          func(c *Config) { c.Input.Delimiter = "|" },
		"input codec":   func(c *Config) { c.Input.Compression = "rar" },
		"log level":     func(c *Config) { c.Logging.Level = "chatty" },
		"sampling rate": func(c *Config) { c.Tracing.SamplingRate = 2 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestInputOptions(t *testing.T) {
	opts, err := InputConfig{Delimiter: `\t`, Compression: "zstd"}.Options()
	require.NoError(t, err)
	assert.Equal(t, '\t', opts.Delimiter)
	assert.Equal(t, compression.Zstd, opts.Compression)

	opts, err = InputConfig{Delimiter: ","}.Options()
	require.NoError(t, err)
	assert.Equal(t, compression.Algorithm(""), opts.Compression)
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Writer.Compression = "gzip"
	cfg.Metrics = MetricsConfig{Enabled: true, TextFile: "/var/lib/node_exporter/csvparquet.prom"}

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
