package config

// ScreensConfig is the root config for screens.yaml
type ScreensConfig struct {
	Screens []ScreenConfig `yaml:"screens"`
}

type ScreenConfig struct {
	ID                string           `yaml:"id"`
	Main              string           `yaml:"main"`
	Additive          []AdditiveConfig `yaml:"additive"`
	SoftCache         bool             `yaml:"soft_cache"`
	ShowLoadingScreen bool             `yaml:"show_loading_screen"`
	Preload           []string         `yaml:"preload"`
}

type AdditiveConfig struct {
	Key           string `yaml:"key"`
	UnloadOnClose bool   `yaml:"unload_on_close"`
}

// FlowConfig is the root config for flow.yaml
type FlowConfig struct {
	// Script is Lua run before conditions are compiled, for helper functions.
	Script      string             `yaml:"script"`
	Nodes       []NodeConfig       `yaml:"nodes"`
	Transitions []TransitionConfig `yaml:"transitions"`
}

type NodeConfig struct {
	// GUID is optional; nodes without one get a fresh GUID on every load.
	GUID   string `yaml:"guid"`
	Name   string `yaml:"name"`
	Screen string `yaml:"screen"`
}

type TransitionConfig struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Event     string `yaml:"event"`
	Mode      string `yaml:"mode"`
	Condition string `yaml:"condition"`
}

// PoolsConfig is the root config for pools.yaml
type PoolsConfig struct {
	Pools []PoolConfig `yaml:"pools"`
}

type PoolConfig struct {
	Template string `yaml:"template"`
	Category string `yaml:"category"`
	Preload  int    `yaml:"preload"`
	MaxSize  int    `yaml:"max_size"`
	MaxIdle  int    `yaml:"max_idle"`
	Overflow string `yaml:"overflow"`
}

// WindowsConfig is the root config for windows.yaml
type WindowsConfig struct {
	Windows []WindowConfig `yaml:"windows"`
}

type WindowConfig struct {
	Type          string `yaml:"type"`
	Asset         string `yaml:"asset"`
	Kind          string `yaml:"kind"`
	TransitionIn  string `yaml:"transition_in"`
	TransitionOut string `yaml:"transition_out"`
	BlockInput    *bool  `yaml:"block_input"`
	CloseOnBack   *bool  `yaml:"close_on_back"`
}
