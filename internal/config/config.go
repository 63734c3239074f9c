package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config path given on the command line.
const EnvPath = "SQUADSIM_CONFIG"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sim       SimConfig       `toml:"sim"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Location  LocationConfig  `toml:"location"`
	Scripting ScriptingConfig `toml:"scripting"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	Seed      uint64 `toml:"seed"` // 0 = random per session
	Maps      string `toml:"maps"` // YAML map table
	Map       string `toml:"map"`
	StartTime int64  // set at boot, not from config
}

type SimConfig struct {
	TickRate   time.Duration `toml:"tick_rate"`
	Agents     int           `toml:"agents"`
	SquadSize  int           `toml:"squad_size"`
	Observers  int           `toml:"observers"`
	MoveSpeed  float64       `toml:"move_speed"` // meters per second
	PathDelay  int           `toml:"path_delay"` // polls before a path job resolves
	GuardWatch time.Duration `toml:"guard_watch"`
}

type SchedulerConfig struct {
	StrategyInterval time.Duration `toml:"strategy_interval"`
}

type LocationConfig struct {
	MinCells              int           `toml:"min_cells"`
	MaxCellSize           float64       `toml:"max_cell_size"`
	Padding               float64       `toml:"padding"`
	Momentum              float64       `toml:"momentum"`
	Jitter                float64       `toml:"jitter"`
	PropagationRadius     float64       `toml:"propagation_radius"`
	PropagationStrength   float64       `toml:"propagation_strength"`
	ConvergenceInterval   time.Duration `toml:"convergence_interval"`
	ConvergenceRandomness float64       `toml:"convergence_randomness"` // 0..1 spread around the map values
}

type ScriptingConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type TelemetryConfig struct {
	DSN             string        `toml:"dsn"` // empty disables telemetry
	FlushTicks      int           `toml:"flush_ticks"`
	BufferSize      int           `toml:"buffer_size"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"` // empty disables the /metrics endpoint
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Path resolves the config file: the environment override wins over def.
func Path(def string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return def
}

func (c *Config) validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be positive, got %s", c.Sim.TickRate)
	}
	if c.Sim.SquadSize < 1 {
		return fmt.Errorf("sim.squad_size must be at least 1, got %d", c.Sim.SquadSize)
	}
	if c.Location.MinCells < 1 {
		return fmt.Errorf("location.min_cells must be at least 1, got %d", c.Location.MinCells)
	}
	if c.Location.MaxCellSize <= 0 {
		return fmt.Errorf("location.max_cell_size must be positive, got %g", c.Location.MaxCellSize)
	}
	if r := c.Location.ConvergenceRandomness; r < 0 || r > 1 {
		return fmt.Errorf("location.convergence_randomness must be within [0, 1], got %g", r)
	}
	return nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	cfg.Server.StartTime = time.Now().Unix()
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "squadsim",
			Maps: "data/yaml/maps.yaml",
			Map:  "factory",
		},
		Sim: SimConfig{
			TickRate:   100 * time.Millisecond,
			Agents:     24,
			SquadSize:  4,
			Observers:  1,
			MoveSpeed:  3.5,
			PathDelay:  2,
			GuardWatch: 15 * time.Second,
		},
		Scheduler: SchedulerConfig{
			StrategyInterval: 500 * time.Millisecond,
		},
		Location: LocationConfig{
			MinCells:              3,
			MaxCellSize:           50,
			Padding:               10,
			Momentum:              0.5,
			Jitter:                0.25,
			PropagationRadius:     2,
			PropagationStrength:   0.5,
			ConvergenceInterval:   time.Second,
			ConvergenceRandomness: 0.2,
		},
		Scripting: ScriptingConfig{
			Dir:       "scripts",
			HotReload: true,
		},
		Telemetry: TelemetryConfig{
			FlushTicks:      50,
			BufferSize:      4096,
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
