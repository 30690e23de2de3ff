package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	configDir   string = "fdb"
	configFile  string = "config.yml"
	historyFile string = "history"

	// DefaultMaxExamineBytes is the largest memory read the mem and x
	// commands perform when max-examine-bytes is unset.
	DefaultMaxExamineBytes = 4096
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases.
	Aliases map[string][]string `yaml:"aliases"`

	// PassSignals are delivered to the target without stopping it. When
	// unset the debugger passes SIGURG, SIGCHLD, SIGWINCH, SIGPROF and
	// SIGALRM, an empty list stops on every signal.
	PassSignals []int `yaml:"pass-signals"`

	// DisassembleFlavor is the assembly syntax used by the disassemble
	// command: intel, gnu or go.
	DisassembleFlavor string `yaml:"disassemble-flavor,omitempty"`

	// MaxExamineBytes limits the memory read by a single mem read or x
	// command.
	MaxExamineBytes *int `yaml:"max-examine-bytes,omitempty"`

	// DisableASLR launches programs with address space layout
	// randomization turned off.
	DisableASLR bool `yaml:"disable-aslr"`

	// Prompt color (3/4 bit color codes as defined
	// here: https://en.wikipedia.org/wiki/ANSI_escape_code#Colors), 0
	// leaves the prompt uncolored.
	PromptColor int `yaml:"prompt-color"`
}

// MaxExamine returns the effective max-examine-bytes value.
func (c *Config) MaxExamine() int {
	if c.MaxExamineBytes == nil || *c.MaxExamineBytes <= 0 {
		return DefaultMaxExamineBytes
	}
	return *c.MaxExamineBytes
}

// LoadConfig attempts to populate a Config object from the config.yml file.
// Errors are printed and produce the default configuration.
func LoadConfig() *Config {
	dir, err := GetConfigFilePath("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to get config file path: %v.\n", err)
		return &Config{}
	}
	c, err := LoadConfigFrom(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v.\n", err)
		return &Config{}
	}
	return c
}

// LoadConfigFrom reads dir/config.yml, creating dir and a default
// configuration file if they do not exist.
func LoadConfigFrom(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create config directory: %w", err)
	}
	fullConfigFile := filepath.Join(dir, configFile)

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			return nil, fmt.Errorf("error creating default config file: %w", err)
		}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %w", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to dir.
func SaveConfig(dir string, conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFile), out, 0600)
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %w", err)
	}
	if err := writeDefaultConfig(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("unable to write default configuration: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeDefaultConfig(f io.Writer) error {
	_, err := io.WriteString(f,
		`# Configuration file for the fdb debugger.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]

# Signals delivered to the program without stopping it. The empty list
# stops on every signal.
# pass-signals: [23, 17, 28, 27, 14]

# Assembly syntax of the disassemble command: intel, gnu or go.
# disassemble-flavor: intel

# Maximum number of bytes read by a single mem read or x command.
# max-examine-bytes: 4096

# Uncomment the following line to launch programs with address space
# layout randomization disabled.
# disable-aslr: true

# ANSI foreground color of the prompt, see
# https://en.wikipedia.org/wiki/ANSI_escape_code#3/4_bit
# prompt-color: 34
`)
	return err
}

// GetConfigFilePath gets the full path to the given config file name.
// Configuration lives in $XDG_CONFIG_HOME/fdb, or ~/.config/fdb.
func GetConfigFilePath(file string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, configDir, file), nil
}

// HistoryFilePath returns the path of the terminal history file.
func HistoryFilePath() (string, error) {
	return GetConfigFilePath(historyFile)
}
