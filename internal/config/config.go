// Package config loads engine settings from flags, OPENGINE_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/born-ml/opengine/internal/backend/gpu"
	"github.com/born-ml/opengine/internal/parallel"
	"github.com/born-ml/opengine/internal/tensor"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	GPU     GPUConfig     `mapstructure:"gpu"`
	Log     LogConfig     `mapstructure:"log"`
}

type RuntimeConfig struct {
	Device   string `mapstructure:"device"`
	Workers  int    `mapstructure:"workers"`
	MinChunk int    `mapstructure:"min_chunk"`
}

type GPUConfig struct {
	Runtime          string `mapstructure:"runtime"`
	Memory           string `mapstructure:"memory"`
	MaxWorkGroupSize int    `mapstructure:"max_work_group_size"`
	QueueDepth       int    `mapstructure:"queue_depth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Runtime: RuntimeConfig{
			Device:   "cpu",
			Workers:  runtime.NumCPU(),
			MinChunk: parallel.DefaultConfig().MinChunkSize,
		},
		GPU: GPUConfig{
			Runtime:          gpu.RuntimeSoftware,
			Memory:           gpu.MemoryImage.String(),
			MaxWorkGroupSize: 256,
			QueueDepth:       64,
		},
		Log: LogConfig{
			Level: "warn",
			File:  "",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("runtime-device", defaults.Runtime.Device, "Device operators run on (cpu|simd|gpu)")
	fs.Int("runtime-workers", defaults.Runtime.Workers, "Goroutines host kernels split work across (1 disables)")
	fs.Int("runtime-min-chunk", defaults.Runtime.MinChunk, "Minimum elements per goroutine")
	fs.String("gpu-runtime", defaults.GPU.Runtime, "GPU runtime (software|webgpu)")
	fs.String("gpu-memory", defaults.GPU.Memory, "GPU memory model (image|buffer)")
	fs.Int("gpu-max-work-group-size", defaults.GPU.MaxWorkGroupSize, "Largest GPU work-group size")
	fs.Int("gpu-queue-depth", defaults.GPU.QueueDepth, "Commands the GPU queue holds before Enqueue blocks")
	fs.String("log-level", defaults.Log.Level, "Log level (trace|debug|info|warn|error)")
	fs.String("log-file", defaults.Log.File, "Also write logs to this file")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("OPENGINE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("opengine")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("runtime.device", c.Runtime.Device)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("runtime.min_chunk", c.Runtime.MinChunk)
	v.SetDefault("gpu.runtime", c.GPU.Runtime)
	v.SetDefault("gpu.memory", c.GPU.Memory)
	v.SetDefault("gpu.max_work_group_size", c.GPU.MaxWorkGroupSize)
	v.SetDefault("gpu.queue_depth", c.GPU.QueueDepth)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"runtime-device":          "runtime.device",
	"runtime-workers":         "runtime.workers",
	"runtime-min-chunk":       "runtime.min_chunk",
	"gpu-runtime":             "gpu.runtime",
	"gpu-memory":              "gpu.memory",
	"gpu-max-work-group-size": "gpu.max_work_group_size",
	"gpu-queue-depth":         "gpu.queue_depth",
	"log-level":               "log.level",
	"log-file":                "log.file",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that every enumerated setting parses.
func (c Config) Validate() error {
	if _, err := tensor.ParseDevice(c.Runtime.Device); err != nil {
		return fmt.Errorf("runtime.device: %w", err)
	}
	if _, err := gpu.ParseMemoryType(c.GPU.Memory); err != nil {
		return fmt.Errorf("gpu.memory: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.GPU.Runtime)) {
	case gpu.RuntimeSoftware, gpu.RuntimeWebGPU:
	default:
		return fmt.Errorf("gpu.runtime: invalid runtime %q (expected %s|%s)", c.GPU.Runtime, gpu.RuntimeSoftware, gpu.RuntimeWebGPU)
	}
	if c.GPU.MaxWorkGroupSize <= 0 {
		return fmt.Errorf("gpu.max_work_group_size: must be positive, got %d", c.GPU.MaxWorkGroupSize)
	}
	return nil
}

// Device returns the parsed runtime.device.
func (c Config) Device() (tensor.Device, error) {
	return tensor.ParseDevice(c.Runtime.Device)
}

// Parallel converts the runtime section into a loop-splitting config.
func (c Config) Parallel() parallel.Config {
	workers := max(c.Runtime.Workers, 1)
	return parallel.Config{
		Enabled:      workers > 1,
		NumWorkers:   workers,
		MinChunkSize: max(c.Runtime.MinChunk, 1),
	}
}

// GPUOptions converts the gpu section into runtime options.
func (c Config) GPUOptions() ([]gpu.Option, error) {
	mem, err := gpu.ParseMemoryType(c.GPU.Memory)
	if err != nil {
		return nil, err
	}
	return []gpu.Option{
		gpu.WithMemoryType(mem),
		gpu.WithMaxWorkGroupSize(uint32(max(c.GPU.MaxWorkGroupSize, 1))),
		gpu.WithQueueDepth(c.GPU.QueueDepth),
		gpu.WithParallel(c.Parallel()),
	}, nil
}

// OpenRuntime opens the configured GPU runtime.
func (c Config) OpenRuntime() (gpu.Runtime, error) {
	opts, err := c.GPUOptions()
	if err != nil {
		return nil, err
	}
	return gpu.Open(c.GPU.Runtime, opts...)
}
