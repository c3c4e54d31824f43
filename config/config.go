package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RPCTokenEnv names the environment variable carrying the bearer token that
// guards mutating RPC methods. The token never lives in the config file.
const RPCTokenEnv = "XMBL_RPC_TOKEN"

type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	MirrorAddress  string `toml:"MirrorAddress"`
	DataDir        string `toml:"DataDir"`
	JournalPath    string `toml:"JournalPath"`
	MirrorDSN      string `toml:"MirrorDSN"`
	NetworkName    string `toml:"NetworkName"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(path, cfg)
	return cfg, nil
}

// RPCToken reads the bearer token from the environment.
func RPCToken() string {
	return strings.TrimSpace(os.Getenv(RPCTokenEnv))
}

func applyDefaults(path string, cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9464"
	}
	if strings.TrimSpace(cfg.MirrorAddress) == "" {
		cfg.MirrorAddress = ":8650"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir(path)
	}
	if strings.TrimSpace(cfg.JournalPath) == "" {
		cfg.JournalPath = filepath.Join(cfg.DataDir, "journal.db")
	}
	if strings.TrimSpace(cfg.MirrorDSN) == "" {
		cfg.MirrorDSN = filepath.Join(cfg.DataDir, "mirror.db")
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "xmbl-local"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(path, cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultDataDir(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "xmbl-data")
}
