package projcfg

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

const configFile = "drctl.toml"

type Config struct {
	Root  string      `toml:"-"`
	Cdk   CdkConfig   `toml:"cdk"`
	Aws   AwsConfig   `toml:"aws"`
	Drill DrillConfig `toml:"drill"`
}

type CdkConfig struct {
	Dir string `toml:"dir"`
	// Out is the cloud assembly directory relative to Dir.
	Out string `toml:"out"`
}

type AwsConfig struct {
	Profile string `toml:"profile"`
	// AcceleratorRegion is where the Global Accelerator API is served.
	AcceleratorRegion string `toml:"accelerator_region"`
}

type DrillConfig struct {
	Timeout      duration `toml:"timeout"`
	PollInterval duration `toml:"poll_interval"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = parsed
	return nil
}

func (c *Config) CdkDir() string {
	return filepath.Join(c.Root, c.Cdk.Dir)
}

func (c *Config) CdkOutDir() string {
	return filepath.Join(c.CdkDir(), c.Cdk.Out)
}

func (c *Config) DrillTimeout() time.Duration {
	return c.Drill.Timeout.Duration
}

func (c *Config) DrillPollInterval() time.Duration {
	return c.Drill.PollInterval.Duration
}

func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(wd)
}

// LoadFrom reads the config file found in dir or its closest parent.
func LoadFrom(dir string) (*Config, error) {
	root, err := findRoot(dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(filepath.Join(root, configFile), &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", configFile)
	}

	cfg.Root = root
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", configFile)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cdk.Out == "" {
		c.Cdk.Out = "cdk.out"
	}
	if c.Aws.AcceleratorRegion == "" {
		c.Aws.AcceleratorRegion = "us-west-2"
	}
	if c.Drill.Timeout.Duration == 0 {
		c.Drill.Timeout.Duration = 2 * time.Minute
	}
	if c.Drill.PollInterval.Duration == 0 {
		c.Drill.PollInterval.Duration = time.Second
	}
}

func (c *Config) validate() error {
	if c.Cdk.Dir == "" {
		return errors.New("cdk.dir is required")
	}
	if filepath.IsAbs(c.Cdk.Dir) {
		return errors.Newf("cdk.dir must be relative, got %q", c.Cdk.Dir)
	}
	if filepath.IsAbs(c.Cdk.Out) {
		return errors.Newf("cdk.out must be relative, got %q", c.Cdk.Out)
	}
	if c.Drill.PollInterval.Duration > c.Drill.Timeout.Duration {
		return errors.Newf("drill.poll_interval (%s) must not exceed drill.timeout (%s)",
			c.Drill.PollInterval.Duration, c.Drill.Timeout.Duration)
	}
	return nil
}

func findRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, configFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Newf("could not find %s in any parent directory", configFile)
		}
		dir = parent
	}
}
