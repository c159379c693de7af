package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

type Repo struct {
	Config *Config
}

func Load(repoRoot string) (*Repo, error) {
	config, err := UnmarshalConfig(repoRoot)
	if err != nil {
		return nil, err
	}

	return &Repo{Config: config}, nil
}

// Initialize writes the default config file into repoRoot.
func Initialize(repoRoot string) error {
	if err := os.MkdirAll(repoRoot, 0755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	data, err := toml.Marshal(*DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(filepath.Join(repoRoot, configName), data, 0644)
}

func Initialized(repoRoot string) bool {
	_, err := os.Stat(filepath.Join(repoRoot, configName))
	return err == nil
}
