// Package config loads coordinator and worker configuration from an
// optional YAML file, with defaults matching the spec and room for CLI
// flag overrides layered on top by cmd/.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hrcamilo11/godfs/pkg/types"
)

// Coordinator holds the coordinator daemon's configuration.
type Coordinator struct {
	ListenAddr         string        `yaml:"listen_addr"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	BlockSize          int64         `yaml:"block_size"`
	ReplicationFactor  int           `yaml:"replication_factor"`
	DeadInterval       time.Duration `yaml:"dead_interval"`
	ScanInterval       time.Duration `yaml:"scan_interval"`
	WALPath            string        `yaml:"wal_path"`
	LogLevel           string        `yaml:"log_level"`
	LogJSON            bool          `yaml:"log_json"`
}

// DefaultCoordinator returns a Coordinator config populated with the
// spec's defaults.
func DefaultCoordinator() Coordinator {
	return Coordinator{
		ListenAddr:        ":7070",
		MetricsAddr:       ":9100",
		BlockSize:         types.DefaultBlockSize,
		ReplicationFactor: types.DefaultReplicationFactor,
		DeadInterval:      types.DefaultDeadInterval,
		ScanInterval:      types.DefaultScanInterval,
		WALPath:           "",
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// LoadCoordinator reads YAML config from path, layering it over the
// defaults. An empty path is not an error; defaults are returned unchanged.
func LoadCoordinator(path string) (Coordinator, error) {
	cfg := DefaultCoordinator()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Worker holds the worker daemon's configuration.
type Worker struct {
	ID               string        `yaml:"id"`
	ListenAddr       string        `yaml:"listen_addr"`
	AdvertiseAddr    string        `yaml:"advertise_addr"`
	CoordinatorAddr  string        `yaml:"coordinator_addr"`
	DataDir          string        `yaml:"data_dir"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	LogLevel         string        `yaml:"log_level"`
	LogJSON          bool          `yaml:"log_json"`
}

// DefaultWorker returns a Worker config populated with the spec's defaults.
func DefaultWorker() Worker {
	return Worker{
		HeartbeatInterval: types.DefaultHeartbeatInterval,
		DataDir:           "./data",
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// LoadWorker reads YAML config from path, layering it over the defaults.
func LoadWorker(path string) (Worker, error) {
	cfg := DefaultWorker()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
