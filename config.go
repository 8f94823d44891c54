package scripthost

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cryguy/scripthost/internal/core"
)

// Defaults applied by DefaultConfig.
const (
	DefaultBootstrapDocument = "__init__.js"
	DefaultOutputChannel     = "Scripts"
	DefaultExecutionTimeout  = 30 * time.Second
	DefaultMemoryLimitMB     = 256
)

// Config holds host configuration. The zero value of a field means "use the
// default" when loaded from YAML.
type Config struct {
	// ScriptsDir is the document search path. Empty means the scripts
	// directory next to the running executable.
	ScriptsDir string `yaml:"scripts_dir"`
	// BootstrapDocument is executed once while the engine initializes.
	BootstrapDocument string `yaml:"bootstrap_document"`
	// OutputChannel names the diagnostic channel of the extension object.
	OutputChannel string `yaml:"output_channel"`
	// OutputDB is the SQLite file persisting output channels, used by the
	// command line front end. Empty means output goes to stderr only.
	OutputDB string `yaml:"output_db"`
	// MemoryLimitMB caps the engine heap; 0 disables the limit.
	MemoryLimitMB int `yaml:"memory_limit_mb"`
	// ExecutionTimeout bounds a single evaluation, including the timers
	// and promises it leaves behind.
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		BootstrapDocument: DefaultBootstrapDocument,
		OutputChannel:     DefaultOutputChannel,
		MemoryLimitMB:     DefaultMemoryLimitMB,
		ExecutionTimeout:  DefaultExecutionTimeout,
	}
}

// Validate reports missing or out of range fields.
func (c Config) Validate() error {
	switch {
	case c.BootstrapDocument == "":
		return fmt.Errorf("%w: bootstrap_document is required", ErrInvalidConfig)
	case c.OutputChannel == "":
		return fmt.Errorf("%w: output_channel is required", ErrInvalidConfig)
	case c.MemoryLimitMB < 0:
		return fmt.Errorf("%w: memory_limit_mb must not be negative", ErrInvalidConfig)
	case c.ExecutionTimeout <= 0:
		return fmt.Errorf("%w: execution_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) engineConfig() core.EngineConfig {
	return core.EngineConfig{MemoryLimitMB: c.MemoryLimitMB}
}
