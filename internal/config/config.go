package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BusConfig describes the RS-485 line.
type BusConfig struct {
	Device     string        `mapstructure:"device"`
	Driver     string        `mapstructure:"driver"`
	Speed      int           `mapstructure:"speed"`
	Framing    string        `mapstructure:"framing"`
	Options    []string      `mapstructure:"options"`
	Turnaround time.Duration `mapstructure:"turnaround"`
}

// ScanConfig controls scan timing and how often scans may run.
type ScanConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFrameLen int           `mapstructure:"maxFrameLen"`
	RateLimit   float64       `mapstructure:"rateLimit"`
	Burst       int           `mapstructure:"burst"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig configures the rotating log file.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// AdvertiseConfig controls the mDNS announcement of the HTTP API.
type AdvertiseConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Instance string `mapstructure:"instance"`
	Service  string `mapstructure:"service"`
	Domain   string `mapstructure:"domain"`
}

type Config struct {
	Bus       BusConfig       `mapstructure:"bus"`
	Scan      ScanConfig      `mapstructure:"scan"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Advertise AdvertiseConfig `mapstructure:"advertise"`
}

// Flags returns the command line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mswscan", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "configuration file")
	fs.StringP("device", "d", "", "serial device, !command or tcp:host[:port]")
	fs.String("driver", "", "serial driver (serport, tarm)")
	fs.IntP("speed", "b", 0, "baud rate")
	fs.String("framing", "", "character framing, e.g. 8N2")
	fs.DurationP("timeout", "t", 0, "response timeout")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("listen", "", "HTTP listen address")
	return fs
}

var flagKeys = map[string]string{
	"device":    "bus.device",
	"driver":    "bus.driver",
	"speed":     "bus.speed",
	"framing":   "bus.framing",
	"timeout":   "scan.timeout",
	"log-level": "logging.level",
	"listen":    "http.addr",
}

// Load reads the configuration from the file named by path,
// the environment (prefix MSW_) and flags that were set in fs.
// A missing file is not an error if path is empty.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mswscan")
		v.SetConfigName("mswscan")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("MSW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bus.driver", "serport")
	v.SetDefault("bus.speed", 9600)
	v.SetDefault("bus.framing", "8N2")
	v.SetDefault("bus.turnaround", "0s")

	v.SetDefault("scan.timeout", "100ms")
	v.SetDefault("scan.maxFrameLen", 10)
	v.SetDefault("scan.rateLimit", 1.0)
	v.SetDefault("scan.burst", 1)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("advertise.enable", false)
	v.SetDefault("advertise.instance", "mswscan")
	v.SetDefault("advertise.service", "_fastscan._tcp")
	v.SetDefault("advertise.domain", "local.")
}
