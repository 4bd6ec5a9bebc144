// Package config loads the recovery server's static configuration:
// bind address, board/sysinfo identity, storage device paths, console
// token, upload limits, and DHCP lease parameters.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FAILSAFE_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Built-in defaults
//
// When no configuration file is found, the built-in defaults are returned
// as they are and FAILSAFE_* variables are not consulted.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls logger behavior (see internal/logger.Config).
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig controls the HTTP recovery server and cooperative loop.
type ServerConfig struct {
	// ListenAddr is the TCP address the recovery HTTP server binds, e.g. ":80".
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Version is the firmware/bootloader version string served by /version.
	Version string `mapstructure:"version" yaml:"version"`

	// MaxUploadSize caps the body size of every request (an /upload
	// multipart body included); a larger body is rejected before parsing.
	MaxUploadSize int64 `mapstructure:"max_upload_size" yaml:"max_upload_size"`

	// ConsoleToken, when non-empty, gates /console/* endpoints.
	ConsoleToken string `mapstructure:"console_token" yaml:"console_token"`
}

// SysinfoConfig feeds the static parts of the /sysinfo response.
type SysinfoConfig struct {
	BoardModel      string `mapstructure:"board_model" yaml:"board_model"`
	BoardCompatible string `mapstructure:"board_compatible" yaml:"board_compatible"`
	CPUCompatible   string `mapstructure:"cpu_compatible" yaml:"cpu_compatible"`
	CPUClockHz      uint64 `mapstructure:"cpu_clock_hz" yaml:"cpu_clock_hz"`
	RAMSizeBytes    uint64 `mapstructure:"ram_size_bytes" yaml:"ram_size_bytes"`
}

// PartitionConfig names one addressable region of a storage device, mirroring
// storage.Partition but expressed in config terms (kind selects which
// facade table the entry belongs to).
type PartitionConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Kind   string `mapstructure:"kind" yaml:"kind"` // "mtd" or "mmc"
	Offset uint64 `mapstructure:"offset" yaml:"offset"`
	Size   uint64 `mapstructure:"size" yaml:"size"`
}

// StorageConfig names the backing devices the storage facade opens
// targets against.
type StorageConfig struct {
	// MTDDevicePath is the path (or simulated file, off-device) backing
	// the flash (MTD) targets.
	MTDDevicePath string `mapstructure:"mtd_device_path" yaml:"mtd_device_path"`
	// MMCDevicePath is the path backing the block (MMC) targets.
	MMCDevicePath string `mapstructure:"mmc_device_path" yaml:"mmc_device_path"`
	// EraseSize is the flash erase-block size in bytes.
	EraseSize uint32 `mapstructure:"erase_size" yaml:"erase_size"`
	// MTDSizeBytes and MMCSizeBytes size the in-memory reference devices
	// (see internal/storage.MemFlash/MemBlock) when no real MTD/MMC
	// driver is attached.
	MTDSizeBytes uint64 `mapstructure:"mtd_size_bytes" yaml:"mtd_size_bytes"`
	MMCSizeBytes uint64 `mapstructure:"mmc_size_bytes" yaml:"mmc_size_bytes"`
	// Partitions is the static partition table handed to the storage
	// facade at startup.
	Partitions []PartitionConfig `mapstructure:"partitions" yaml:"partitions"`
}

// DHCPConfig controls the minimal DHCPv4 responder.
type DHCPConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Interface  string        `mapstructure:"interface" yaml:"interface"`
	ServerIP   string        `mapstructure:"server_ip" yaml:"server_ip"`
	ClientIP   string        `mapstructure:"client_ip" yaml:"client_ip"`
	SubnetMask string        `mapstructure:"subnet_mask" yaml:"subnet_mask"`
	LeaseTime  time.Duration `mapstructure:"lease_time" yaml:"lease_time"`
}

// Config is the top-level recovery server configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Sysinfo SysinfoConfig `mapstructure:"sysinfo" yaml:"sysinfo"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	DHCP    DHCPConfig    `mapstructure:"dhcp" yaml:"dhcp"`
}

// Default returns the built-in defaults used when no config file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Server: ServerConfig{
			ListenAddr:    ":80",
			Version:       "failsafe-1.0",
			MaxUploadSize: 64 * 1024 * 1024,
		},
		Sysinfo: SysinfoConfig{
			BoardModel:      "generic",
			BoardCompatible: "mediatek,mt7986",
			CPUCompatible:   "arm,cortex-a53",
			CPUClockHz:      1_300_000_000,
			RAMSizeBytes:    512 * 1024 * 1024,
		},
		Storage: StorageConfig{
			MTDDevicePath: "/dev/mtd0",
			MMCDevicePath: "/dev/mmcblk0",
			EraseSize:     64 * 1024,
			MTDSizeBytes:  16 * 1024 * 1024,
			MMCSizeBytes:  64 * 1024 * 1024,
			Partitions: []PartitionConfig{
				{Name: "bootloader", Kind: "mtd", Offset: 0, Size: 256 * 1024},
				{Name: "env", Kind: "mtd", Offset: 256 * 1024, Size: 64 * 1024},
				{Name: "firmware", Kind: "mtd", Offset: 320 * 1024, Size: 16*1024*1024 - 320*1024},
				{Name: "data", Kind: "mmc", Offset: 0, Size: 64 * 1024 * 1024},
			},
		},
		DHCP: DHCPConfig{
			Enabled:    true,
			Interface:  "eth0",
			ServerIP:   "192.168.1.1",
			ClientIP:   "192.168.1.2",
			SubnetMask: "255.255.255.0",
			LeaseTime:  2 * time.Hour,
		},
	}
}

// Load reads configuration from a file (if present), lets environment
// variables prefixed FAILSAFE_ override the keys that file sets, and falls
// back to Default() values for everything else. Without a config file it
// returns Default() unchanged.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FAILSAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("failsafe")
		v.SetConfigType("yaml")
	}

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
