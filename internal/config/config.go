// Package config loads bintype settings with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/bintype/internal/layout"
	"github.com/ColonelBlimp/bintype/internal/logging"
	"github.com/ColonelBlimp/bintype/internal/touch"
)

const (
	AppName       = "bintype"
	ConfigType    = "yaml"
	DefaultConfig = `# bintype configuration

# Signal filter
epsilon: 2              # Neighbourhood radius for smoothing and jump detection
deadzone: 8             # Readings at or below this are "no touch"
sample_range: 64        # Device readings lie in [0, sample_range)

# Touch classifier
idle_period: 3          # Synthesize a reading after this long without input
clock: frames           # Unit of idle_period: frames or seconds
tick_rate: 0            # Ticks per second; 0 steps once per received frame

# Layout
layout: squashed-qwerty # Built-in layout (see 'bintype layouts')
layout_file: ""         # TOML layout file, overrides layout when set
use_alternate: false    # Type the alternate character layer

# Disambiguation
max_results: 5          # Candidates shown per word
dictionary: ""          # Frequency list (term count per line)
dictionary_db: ""       # SQLite corpus built by 'bintype dict import'

# Device
source: serial          # serial, audio or stdin
serial_port: /dev/ttyACM0
baud_rate: 115200
device_index: -1        # Capture device for the audio source, -1 for default
sample_rate: 48000      # Capture sample rate in Hz
pilot_frequency: 600    # Pilot tone the slider attenuates, in Hz
block_size: 480         # Samples per level measurement
threshold: 0.1          # Normalized level at which the slider counts as touched
hysteresis: 2           # Consecutive blocks required to change presence
agc_enabled: false      # Normalize the level to the loudest tone seen
agc_attack: 0.1         # AGC attack rate (0.0-1.0)
agc_decay: 0.9995       # AGC peak decay per block (0.99-0.99999)
agc_warmup_blocks: 10   # Blocks used to calibrate the AGC peak

# Output
log_format: text        # text or json
debug: false            # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Signal filter
	Epsilon     uint `mapstructure:"epsilon"`
	Deadzone    uint `mapstructure:"deadzone"`
	SampleRange uint `mapstructure:"sample_range"`

	// Touch classifier
	IdlePeriod float64 `mapstructure:"idle_period"`
	Clock      string  `mapstructure:"clock"`
	TickRate   float64 `mapstructure:"tick_rate"`

	// Layout
	Layout       string `mapstructure:"layout"`
	LayoutFile   string `mapstructure:"layout_file"`
	UseAlternate bool   `mapstructure:"use_alternate"`

	// Disambiguation
	MaxResults   int    `mapstructure:"max_results"`
	Dictionary   string `mapstructure:"dictionary"`
	DictionaryDB string `mapstructure:"dictionary_db"`

	// Device
	Source          string  `mapstructure:"source"`
	SerialPort      string  `mapstructure:"serial_port"`
	BaudRate        int     `mapstructure:"baud_rate"`
	DeviceIndex     int     `mapstructure:"device_index"`
	SampleRate      float64 `mapstructure:"sample_rate"`
	PilotFrequency  float64 `mapstructure:"pilot_frequency"`
	BlockSize       int     `mapstructure:"block_size"`
	Threshold       float64 `mapstructure:"threshold"`
	Hysteresis      int     `mapstructure:"hysteresis"`
	AGCEnabled      bool    `mapstructure:"agc_enabled"`
	AGCAttack       float64 `mapstructure:"agc_attack"`
	AGCDecay        float64 `mapstructure:"agc_decay"`
	AGCWarmupBlocks int     `mapstructure:"agc_warmup_blocks"`

	// Output
	LogFormat string `mapstructure:"log_format"`
	Debug     bool   `mapstructure:"debug"`
}

// Sources lists the accepted values of the source setting.
var Sources = []string{"serial", "audio", "stdin"}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/bintype/
func Init() error {
	viper.SetDefault("epsilon", 2)
	viper.SetDefault("deadzone", 8)
	viper.SetDefault("sample_range", 64)
	viper.SetDefault("idle_period", 3)
	viper.SetDefault("clock", "frames")
	viper.SetDefault("tick_rate", 0)
	viper.SetDefault("layout", layout.SquashedQWERTY)
	viper.SetDefault("layout_file", "")
	viper.SetDefault("use_alternate", false)
	viper.SetDefault("max_results", 5)
	viper.SetDefault("dictionary", "")
	viper.SetDefault("dictionary_db", "")
	viper.SetDefault("source", "serial")
	viper.SetDefault("serial_port", "/dev/ttyACM0")
	viper.SetDefault("baud_rate", 115200)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("pilot_frequency", 600)
	viper.SetDefault("block_size", 480)
	viper.SetDefault("threshold", 0.1)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("agc_enabled", false)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_warmup_blocks", 10)
	viper.SetDefault("log_format", "text")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// .config.yaml wins over config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Signal filter and classifier
	if s.Epsilon == 0 {
		errs = append(errs, errors.New("epsilon must be positive"))
	}
	if s.Deadzone == 0 {
		errs = append(errs, errors.New("deadzone must be positive"))
	}
	if s.SampleRange < 2 {
		errs = append(errs, fmt.Errorf("sample_range must be at least 2, got %d", s.SampleRange))
	} else if s.Deadzone >= s.SampleRange {
		errs = append(errs, fmt.Errorf("deadzone (%d) must be below sample_range (%d)", s.Deadzone, s.SampleRange))
	}
	if s.IdlePeriod <= 0 {
		errs = append(errs, fmt.Errorf("idle_period must be positive, got %v", s.IdlePeriod))
	}
	if _, err := touch.ParseClock(s.Clock); err != nil {
		errs = append(errs, fmt.Errorf("clock: %w", err))
	}
	if s.TickRate < 0 || s.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate must be between 0 and 1000, got %v", s.TickRate))
	}

	// Layout
	if s.LayoutFile == "" {
		if _, err := layout.Builtin(s.Layout); err != nil {
			errs = append(errs, fmt.Errorf("layout: %w", err))
		}
	}

	// Disambiguation
	if s.MaxResults < 1 || s.MaxResults > 100 {
		errs = append(errs, fmt.Errorf("max_results must be between 1 and 100, got %d", s.MaxResults))
	}

	// Device
	if !slices.Contains(Sources, s.Source) {
		errs = append(errs, fmt.Errorf("source must be one of %v, got %q", Sources, s.Source))
	}
	if s.Source == "serial" {
		if s.SerialPort == "" {
			errs = append(errs, errors.New("serial_port is required for the serial source"))
		}
		if s.BaudRate <= 0 {
			errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate))
		}
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.PilotFrequency < 100 || s.PilotFrequency > 10000 {
		errs = append(errs, fmt.Errorf("pilot_frequency must be between 100 and 10000 Hz, got %v", s.PilotFrequency))
	}
	if s.PilotFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("pilot_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.PilotFrequency, s.SampleRate/2))
	}
	if s.BlockSize < 32 || s.BlockSize > 8192 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 8192, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 0 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 0 and 50, got %d", s.Hysteresis))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCWarmupBlocks < 0 || s.AGCWarmupBlocks > 1000 {
		errs = append(errs, fmt.Errorf("agc_warmup_blocks must be between 0 and 1000, got %d", s.AGCWarmupBlocks))
	}

	// Output
	if _, err := logging.ParseFormat(s.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("log_format: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
