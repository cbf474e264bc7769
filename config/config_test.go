package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tempInputFile creates a file the CLI validation will accept as input.
func tempInputFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	return path
}

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	return &Config{
		CLI: &CLI{
			InputFile:      tempInputFile(t, "input.gz"),
			ReportInterval: 5 * time.Second,
		},
		TOML: &TOML{
			Config: &TOMLConfig{
				LogLevel:       DefaultLogLevel,
				BufferSize:     DefaultBufferSize,
				ReportInterval: DefaultReportInterval,
			},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(newTestConfig(t)))
}

func TestValidateNil(t *testing.T) {
	require.Error(t, Validate(nil))
}

func TestValidateMissingInput(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.InputFile = filepath.Join(t.TempDir(), "nope.gz")

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateInputIsDirectory(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.InputFile = t.TempDir()

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestValidateStdoutOutputConflict(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.Stdout = true
	cfg.CLI.OutputFile = "out.txt"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateReportIntervalBounds(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.ReportInterval = 10 * time.Millisecond
	require.Error(t, Validate(cfg))

	cfg.CLI.ReportInterval = 2 * time.Hour
	require.Error(t, Validate(cfg))
}

func TestValidateTOMLBounds(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.TOML.Config.BufferSize = MinBufferSize - 1
	require.Error(t, Validate(cfg))

	cfg = newTestConfig(t)
	cfg.TOML.Config.BufferSize = MaxBufferSize + 1
	require.Error(t, Validate(cfg))

	cfg = newTestConfig(t)
	cfg.TOML.Config.LogLevel = "trace"
	require.Error(t, Validate(cfg))
}

func TestOutputPathDefault(t *testing.T) {
	cfg := newTestConfig(t)

	path, err := cfg.OutputPath()
	require.NoError(t, err)
	assert.Equal(t, strippedSuffix(cfg.CLI.InputFile), path)
}

func strippedSuffix(in string) string {
	return in[:len(in)-len(GzipSuffix)]
}

func TestOutputPathExplicit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.OutputFile = "/tmp/custom.txt"

	path, err := cfg.OutputPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.txt", path)
}

func TestOutputPathNoSuffix(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.CLI.InputFile = tempInputFile(t, "input.tar")

	_, err := cfg.OutputPath()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use -o")
}

func TestReadTOMLMissingFileUsesDefaults(t *testing.T) {
	cfg, err := readTOML(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Config.LogLevel)
	assert.Equal(t, DefaultBufferSize, cfg.Config.BufferSize)
	assert.Equal(t, DefaultReportInterval, cfg.Config.ReportInterval)
}

func TestReadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puff.toml")

	contents := `[config]
log_level = "debug"
buffer_size = 1024
report_interval = "250ms"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := readTOML(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Config.LogLevel)
	assert.Equal(t, 1024, cfg.Config.BufferSize)
	assert.Equal(t, duration(250*time.Millisecond), cfg.Config.ReportInterval)
}

func TestReadTOMLRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puff.toml")

	contents := `[config]
buffer_size = 64
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := readTOML(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer_size")
}

func TestDurationRoundTrip(t *testing.T) {
	d := duration(1500 * time.Millisecond)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	var parsed duration

	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, d, parsed)
}
