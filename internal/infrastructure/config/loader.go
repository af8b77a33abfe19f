package config

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// GameConfig holds all loaded configurations
type GameConfig struct {
	Settings *Settings
	Screens  *ScreensConfig
	Flow     *FlowConfig
	Pools    *PoolsConfig
	Windows  *WindowsConfig
}

// Loader loads game configuration files using fs.FS interface
type Loader struct {
	fsys     fs.FS
	basePath string
}

// NewLoader creates a new config loader from filesystem path
func NewLoader(basePath string) *Loader {
	return &Loader{
		fsys:     os.DirFS(basePath),
		basePath: basePath,
	}
}

// NewFSLoader creates a new config loader from fs.FS
func NewFSLoader(fsys fs.FS, basePath string) *Loader {
	return &Loader{
		fsys:     fsys,
		basePath: basePath,
	}
}

func (l *Loader) loadYAML(name string, out any) error {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// LoadScreens loads screens.yaml
func (l *Loader) LoadScreens() (*ScreensConfig, error) {
	var cfg ScreensConfig
	if err := l.loadYAML("screens.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFlow loads flow.yaml
func (l *Loader) LoadFlow() (*FlowConfig, error) {
	var cfg FlowConfig
	if err := l.loadYAML("flow.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadPools loads pools.yaml
func (l *Loader) LoadPools() (*PoolsConfig, error) {
	var cfg PoolsConfig
	if err := l.loadYAML("pools.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWindows loads windows.yaml
func (l *Loader) LoadWindows() (*WindowsConfig, error) {
	var cfg WindowsConfig
	if err := l.loadYAML("windows.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAll loads every configuration file
func (l *Loader) LoadAll() (*GameConfig, error) {
	settings, err := l.LoadSettings()
	if err != nil {
		return nil, err
	}

	screens, err := l.LoadScreens()
	if err != nil {
		return nil, err
	}

	flow, err := l.LoadFlow()
	if err != nil {
		return nil, err
	}

	pools, err := l.LoadPools()
	if err != nil {
		return nil, err
	}

	windows, err := l.LoadWindows()
	if err != nil {
		return nil, err
	}

	return &GameConfig{
		Settings: settings,
		Screens:  screens,
		Flow:     flow,
		Pools:    pools,
		Windows:  windows,
	}, nil
}
