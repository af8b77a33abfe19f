package config

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/younwookim/stagecraft/internal/domain/window"
	"github.com/younwookim/stagecraft/internal/infrastructure/logging"
)

// Settings is the root of settings.toml.
type Settings struct {
	Display DisplaySettings `toml:"display"`
	Logging logging.Config  `toml:"logging"`
	Windows WindowSettings  `toml:"windows"`
	Flow    FlowSettings    `toml:"flow"`
	Pool    PoolSettings    `toml:"pool"`
	Storage StorageSettings `toml:"storage"`
}

type DisplaySettings struct {
	Title        string `toml:"title"`
	ScreenWidth  int    `toml:"screen_width"`
	ScreenHeight int    `toml:"screen_height"`
	Scale        int    `toml:"scale"`
	TPS          int    `toml:"tps"`
}

// WindowSettings are the sorting tiers per window kind.
type WindowSettings struct {
	WindowBase  int `toml:"window_base"`
	PopupBase   int `toml:"popup_base"`
	OverlayBase int `toml:"overlay_base"`
	SystemBase  int `toml:"system_base"`
	Step        int `toml:"step"`
}

type FlowSettings struct {
	HistoryCapacity int  `toml:"history_capacity"`
	Persist         bool `toml:"persist"`
}

type PoolSettings struct {
	MaxIdle  int    `toml:"max_idle"`
	Overflow string `toml:"overflow"`
}

type StorageSettings struct {
	AppName string `toml:"app_name"`
}

// Sorting converts the tiers to a window.Sorting.
func (w WindowSettings) Sorting() window.Sorting {
	return window.Sorting{
		Base: map[window.Kind]int{
			window.KindWindow:  w.WindowBase,
			window.KindPopup:   w.PopupBase,
			window.KindOverlay: w.OverlayBase,
			window.KindSystem:  w.SystemBase,
		},
		Step: w.Step,
	}
}

// DefaultSettings returns the values used for anything settings.toml omits.
func DefaultSettings() *Settings {
	sorting := window.DefaultSorting()
	return &Settings{
		Display: DisplaySettings{
			Title:        "stagecraft",
			ScreenWidth:  320,
			ScreenHeight: 240,
			Scale:        2,
			TPS:          60,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
		Windows: WindowSettings{
			WindowBase:  sorting.Base[window.KindWindow],
			PopupBase:   sorting.Base[window.KindPopup],
			OverlayBase: sorting.Base[window.KindOverlay],
			SystemBase:  sorting.Base[window.KindSystem],
			Step:        sorting.Step,
		},
		Flow: FlowSettings{
			HistoryCapacity: 32,
			Persist:         true,
		},
		Pool: PoolSettings{
			MaxIdle:  64,
			Overflow: "expand",
		},
		Storage: StorageSettings{
			AppName: "stagecraft",
		},
	}
}

// LoadSettings reads a settings file from disk over the defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return parseSettings(data, path)
}

// LoadSettings loads settings.toml over the defaults.
func (l *Loader) LoadSettings() (*Settings, error) {
	data, err := fs.ReadFile(l.fsys, "settings.toml")
	if err != nil {
		return nil, fmt.Errorf("failed to read settings.toml: %w", err)
	}
	return parseSettings(data, "settings.toml")
}

func parseSettings(data []byte, name string) (*Settings, error) {
	cfg := DefaultSettings()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", name, err)
	}
	return cfg, nil
}
