package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	// defaultPathName is the default config dir name
	defaultPathName = ".libra"
	// defaultPathRoot is the path to the default config dir location.
	defaultPathRoot = "~/" + defaultPathName
	// envDir is the environment variable used to change the path root.
	envDir = "LIBRA_PATH"
	// Config name
	configName = "libra.toml"
)

type Config struct {
	RepoRoot  string    `json:"repo_root"`
	Title     string    `json:"title"`
	Ulimit    uint64    `toml:"ulimit" json:"ulimit"`
	Log       Log       `toml:"log" json:"log"`
	Limiter   Limiter   `toml:"limiter" json:"limiter"`
	Mempool   Mempool   `toml:"mempool" json:"mempool"`
	Broadcast Broadcast `toml:"broadcast" json:"broadcast"`
	Validator Validator `toml:"validator" json:"validator"`
	Port      Port      `toml:"port" json:"port"`
	Monitor   Monitor   `toml:"monitor" json:"monitor"`
	PProf     PProf     `toml:"pprof" json:"pprof"`
	LocalID   string    `mapstructure:"local_id" toml:"local_id" json:"local_id"`
	Peers     []string  `toml:"peers" json:"peers"`
}

type Log struct {
	Level        string    `toml:"level" json:"level"`
	ReportCaller bool      `mapstructure:"report_caller" toml:"report_caller" json:"report_caller"`
	Module       LogModule `toml:"module" json:"module"`
}

type LogModule struct {
	Mempool   string `toml:"mempool" json:"mempool"`
	Broadcast string `toml:"broadcast" json:"broadcast"`
	Consensus string `toml:"consensus" json:"consensus"`
	Commit    string `toml:"commit" json:"commit"`
	Validator string `toml:"validator" json:"validator"`
	Reconfig  string `toml:"reconfig" json:"reconfig"`
	App       string `toml:"app" json:"app"`
}

type Limiter struct {
	Interval time.Duration `toml:"interval" json:"interval"`
	Quantum  int64         `toml:"quantum" json:"quantum"`
	Capacity int64         `toml:"capacity" json:"capacity"`
}

type Mempool struct {
	PoolSize        uint64        `mapstructure:"pool_size" toml:"pool_size" json:"pool_size"`
	AccountSlots    uint64        `mapstructure:"account_slots" toml:"account_slots" json:"account_slots"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout" toml:"lock_timeout" json:"lock_timeout"`
	ExpireSweepTick time.Duration `mapstructure:"expire_sweep_tick" toml:"expire_sweep_tick" json:"expire_sweep_tick"`
	TxSliceSize     uint64        `mapstructure:"tx_slice_size" toml:"tx_slice_size" json:"tx_slice_size"`
	TxSliceTimeout  time.Duration `mapstructure:"tx_slice_timeout" toml:"tx_slice_timeout" json:"tx_slice_timeout"`
}

type Broadcast struct {
	BatchSize        uint64        `mapstructure:"batch_size" toml:"batch_size" json:"batch_size"`
	Interval         time.Duration `toml:"interval" json:"interval"`
	BackoffBase      time.Duration `mapstructure:"backoff_base" toml:"backoff_base" json:"backoff_base"`
	BackoffCap       time.Duration `mapstructure:"backoff_cap" toml:"backoff_cap" json:"backoff_cap"`
	MaxUnackedBatch  int           `mapstructure:"max_unacked_batch" toml:"max_unacked_batch" json:"max_unacked_batch"`
	FailureThreshold int           `mapstructure:"failure_threshold" toml:"failure_threshold" json:"failure_threshold"`
	UnhealthyTick    time.Duration `mapstructure:"unhealthy_tick" toml:"unhealthy_tick" json:"unhealthy_tick"`
	LookbackFull     bool          `mapstructure:"lookback_full" toml:"lookback_full" json:"lookback_full"`
}

type Validator struct {
	GasFloor uint64 `mapstructure:"gas_floor" toml:"gas_floor" json:"gas_floor"`
}

type Port struct {
	Monitor int64 `toml:"monitor" json:"monitor"`
	PProf   int64 `toml:"pprof" json:"pprof"`
}

type Monitor struct {
	Enable bool `toml:"enable" json:"enable"`
}

type PProf struct {
	Enable   bool          `toml:"enable" json:"enable"`
	PType    string        `toml:"ptype" json:"ptype"`
	Mode     string        `toml:"mode" json:"mode"`
	Duration time.Duration `toml:"duration" json:"duration"`
}

func (c *Config) Bytes() ([]byte, error) {
	return json.Marshal(c)
}

func DefaultConfig() *Config {
	return &Config{
		Title:  "Libra mempool configuration file",
		Ulimit: 65535,
		Log: Log{
			Level: "info",
			Module: LogModule{
				Mempool:   "info",
				Broadcast: "info",
				Consensus: "info",
				Commit:    "info",
				Validator: "info",
				Reconfig:  "info",
				App:       "info",
			},
		},
		Limiter: Limiter{Interval: 50 * time.Millisecond, Quantum: 500, Capacity: 10000},
		Mempool: Mempool{
			PoolSize:        50000,
			AccountSlots:    100,
			LockTimeout:     500 * time.Millisecond,
			ExpireSweepTick: 30 * time.Second,
			TxSliceSize:     10,
			TxSliceTimeout:  100 * time.Millisecond,
		},
		Broadcast: Broadcast{
			BatchSize:        100,
			Interval:         200 * time.Millisecond,
			BackoffBase:      100 * time.Millisecond,
			BackoffCap:       10 * time.Second,
			MaxUnackedBatch:  10,
			FailureThreshold: 5,
			UnhealthyTick:    30 * time.Second,
			LookbackFull:     false,
		},
		Validator: Validator{GasFloor: 0},
		Port:      Port{Monitor: 40011, PProf: 40012},
		Monitor:   Monitor{Enable: true},
		PProf:     PProf{Enable: false, PType: "http", Mode: "cpu", Duration: 30 * time.Second},
	}
}

func UnmarshalConfig(repoRoot string) (*Config, error) {
	viper.SetConfigFile(filepath.Join(repoRoot, configName))
	viper.SetConfigType("toml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("LIBRA")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	config.RepoRoot = repoRoot

	return config, nil
}

// WatchConfig re-reads the config file on change and delivers the refreshed
// config on the returned channel. Only log levels are expected to change at
// runtime; structural fields require a restart.
func WatchConfig(repoRoot string) (<-chan *Config, error) {
	feed := make(chan *Config, 1)
	viper.OnConfigChange(func(in fsnotify.Event) {
		config, err := UnmarshalConfig(repoRoot)
		if err != nil {
			return
		}
		select {
		case feed <- config:
		default:
		}
	})
	viper.WatchConfig()
	return feed, nil
}

// PathRoot returns root path, priority is environment variable.
func PathRoot() (string, error) {
	dir := os.Getenv(envDir)
	var err error
	if len(dir) == 0 {
		dir, err = homedir.Expand(defaultPathRoot)
	}
	return dir, err
}

func PathRootWithDefault(path string) (string, error) {
	if len(path) == 0 {
		return PathRoot()
	}
	return path, nil
}
