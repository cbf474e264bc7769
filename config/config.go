package config

import (
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvVarPrefix = "PUFF"

	GzipSuffix = ".gz"

	DefaultLogLevel       = "info"
	DefaultBufferSize     = 64 * 1024
	DefaultReportInterval = duration(5 * time.Second)

	MinBufferSize     = 512
	MaxBufferSize     = 16 * 1024 * 1024
	MinReportInterval = duration(100 * time.Millisecond)
	MaxReportInterval = duration(1 * time.Hour)
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validLogLevels = map[string]struct{}{
		"debug": {},
		"info":  {},
		"warn":  {},
		"error": {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Config *TOMLConfig `toml:"config"`
}

type TOMLConfig struct {
	LogLevel       string   `toml:"log_level"`
	BufferSize     int      `toml:"buffer_size"`
	ReportInterval duration `toml:"report_interval"`
}

type CLI struct {
	InputFile      string        `kong:"arg,help='Gzip file to decompress',type='existingfile'"`
	OutputFile     string        `kong:"help='Path to write decompressed data to (default: input without .gz)',type='path',short='o'"`
	Stdout         bool          `kong:"help='Write decompressed data to stdout',short='c'"`
	Force          bool          `kong:"help='Overwrite the output file if it already exists',short='f'"`
	ConfigFile     string        `kong:"help='Path to an optional TOML config file',type='path',default='puff.toml',short='C'"`
	ReportInterval time.Duration `kong:"help='Interval to report progress',default='5s',short='r'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Quiet   bool             `kong:"help='Disable pre/post summary output',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

func NewConfig() (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs()
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	return &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}, nil
}

func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	return nil
}

// OutputPath resolves the destination path for the decompressed data. An
// explicit -o wins; otherwise the input path with its .gz suffix stripped.
func (c *Config) OutputPath() (string, error) {
	if c.CLI.OutputFile != "" {
		return c.CLI.OutputFile, nil
	}

	if !strings.HasSuffix(c.CLI.InputFile, GzipSuffix) {
		return "", errors.Errorf("input file %s has no %s suffix; use -o to name the output", c.CLI.InputFile, GzipSuffix)
	}

	return strings.TrimSuffix(c.CLI.InputFile, GzipSuffix), nil
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Config == nil {
		t.Config = &TOMLConfig{}
	}

	if t.Config.LogLevel == "" {
		t.Config.LogLevel = DefaultLogLevel
	}

	if t.Config.BufferSize == 0 {
		t.Config.BufferSize = DefaultBufferSize
	}

	if t.Config.ReportInterval == 0 {
		t.Config.ReportInterval = DefaultReportInterval
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if err := validateTOMLConfig(t.Config); err != nil {
		return errors.Wrap(err, "config error(s)")
	}

	return nil
}

func validateTOMLConfig(c *TOMLConfig) error {
	if c == nil {
		return errors.New("config cannot be empty")
	}

	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return errors.Errorf("config.log_level %s is invalid", c.LogLevel)
	}

	if c.BufferSize < MinBufferSize || c.BufferSize > MaxBufferSize {
		return errors.Errorf("config.buffer_size must be between %d and %d", MinBufferSize, MaxBufferSize)
	}

	if c.ReportInterval < MinReportInterval || c.ReportInterval > MaxReportInterval {
		return errors.Errorf("config.report_interval must be between %s and %s", MinReportInterval, MaxReportInterval)
	}

	return nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.InputFile == "" {
		return errors.New("input file cannot be empty")
	}

	info, err := os.Stat(cli.InputFile)
	if os.IsNotExist(err) {
		return errors.Errorf("input file %s does not exist", cli.InputFile)
	}

	if err == nil && info.IsDir() {
		return errors.Errorf("input file %s is a directory", cli.InputFile)
	}

	if cli.Stdout && cli.OutputFile != "" {
		return errors.New("-c and -o are mutually exclusive")
	}

	if cli.ReportInterval < time.Duration(MinReportInterval) || cli.ReportInterval > time.Duration(MaxReportInterval) {
		return errors.Errorf("report interval must be between %s and %s", MinReportInterval, MaxReportInterval)
	}

	return nil
}

func readCLIArgs() (*CLI, error) {
	cli := &CLI{}
	cli.Ctx = kong.Parse(cli,
		kong.Name("puff"),
		kong.Description("Decompressor for gzip (RFC 1952) files"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

func readTOML(file string) (*TOML, error) {
	tomlConfig := &TOML{}

	// The config file is optional; defaults apply when it's absent.
	data, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "error reading file")
		}
	} else {
		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	// Validate loaded config
	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return tomlConfig, nil
}

// Copied from https://www.kelche.co/blog/go/toml/
type duration time.Duration

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}

func (d duration) String() string {
	return time.Duration(d).String()
}
