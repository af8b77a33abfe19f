package config

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/domain/flow"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"github.com/younwookim/stagecraft/internal/domain/window"
)

// ErrInvalidConfig wraps every semantic error found while converting configs.
var ErrInvalidConfig = errors.New("invalid config")

// BuildRegistry converts screens.yaml into a screen registry.
func BuildRegistry(cfg *ScreensConfig) (*screen.Registry, error) {
	screens := make([]*screen.Screen, 0, len(cfg.Screens))
	for _, sc := range cfg.Screens {
		s := &screen.Screen{
			ID:                screen.ID(sc.ID),
			MainScene:         sc.Main,
			SoftCache:         sc.SoftCache,
			ShowLoadingScreen: sc.ShowLoadingScreen,
			PreloadTasks:      append([]string(nil), sc.Preload...),
		}
		for _, a := range sc.Additive {
			if a.Key == "" {
				return nil, fmt.Errorf("%w: screen %s has an additive scene without key", ErrInvalidConfig, sc.ID)
			}
			s.Additive = append(s.Additive, screen.AdditiveScene{Key: a.Key, UnloadOnClose: a.UnloadOnClose})
		}
		screens = append(screens, s)
	}
	return screen.NewRegistry(screens...)
}

// CompileFunc turns a condition expression into a flow condition.
type CompileFunc func(expr string) (flow.Condition, error)

// BuildGraph converts flow.yaml into a graph. Screens are looked up in reg.
// compile may be nil when no transition carries a condition.
func BuildGraph(cfg *FlowConfig, reg *screen.Registry, compile CompileFunc) (*flow.Graph, error) {
	nodes := make([]*flow.Node, 0, len(cfg.Nodes))
	byName := make(map[string]*flow.Node, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		if nc.Name == "" {
			return nil, fmt.Errorf("%w: flow node without name", ErrInvalidConfig)
		}
		if _, ok := byName[nc.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate flow node %s", ErrInvalidConfig, nc.Name)
		}
		n := &flow.Node{Name: nc.Name}
		if nc.GUID != "" {
			id, err := uuid.Parse(nc.GUID)
			if err != nil {
				return nil, fmt.Errorf("%w: node %s guid: %v", ErrInvalidConfig, nc.Name, err)
			}
			n.ID = id
		}
		if nc.Screen != "" {
			s, err := reg.Get(screen.ID(nc.Screen))
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", nc.Name, err)
			}
			n.Screen = s
		}
		nodes = append(nodes, n)
		byName[nc.Name] = n
	}

	// GUIDs are assigned by NewGraph, so transitions are resolved by name
	// after the graph has seen every node.
	type pending struct {
		from, to *flow.Node
		t        flow.Transition
	}
	var pend []pending
	for _, tc := range cfg.Transitions {
		from, ok := byName[tc.From]
		if !ok {
			return nil, fmt.Errorf("%w: transition %q from %s", flow.ErrNodeNotFound, tc.Event, tc.From)
		}
		to, ok := byName[tc.To]
		if !ok {
			return nil, fmt.Errorf("%w: transition %q to %s", flow.ErrNodeNotFound, tc.Event, tc.To)
		}
		if tc.Event == "" {
			return nil, fmt.Errorf("%w: transition %s -> %s without event", ErrInvalidConfig, tc.From, tc.To)
		}
		mode, ok := screen.ParseTransitionKind(tc.Mode)
		if !ok {
			return nil, fmt.Errorf("%w: transition %s -> %s mode %q", ErrInvalidConfig, tc.From, tc.To, tc.Mode)
		}
		t := flow.Transition{Event: tc.Event, Mode: mode}
		if tc.Condition != "" {
			if compile == nil {
				return nil, fmt.Errorf("%w: condition %q without a compiler", ErrInvalidConfig, tc.Condition)
			}
			cond, err := compile(tc.Condition)
			if err != nil {
				return nil, err
			}
			t.Condition = cond
		}
		pend = append(pend, pending{from: from, to: to, t: t})
	}

	for _, n := range nodes {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
	}
	transitions := make([]flow.Transition, 0, len(pend))
	for _, p := range pend {
		p.t.From, p.t.To = p.from.ID, p.to.ID
		transitions = append(transitions, p.t)
	}
	return flow.NewGraph(nodes, transitions)
}

// PoolConfig converts one pools.yaml entry.
func (p PoolConfig) PoolConfig() (pool.Config, error) {
	overflow, ok := pool.ParseOverflow(p.Overflow)
	if !ok {
		return pool.Config{}, fmt.Errorf("%w: pool %s overflow %q", ErrInvalidConfig, p.Template, p.Overflow)
	}
	return pool.Config{
		Preload:  p.Preload,
		MaxSize:  p.MaxSize,
		MaxIdle:  p.MaxIdle,
		Overflow: overflow,
	}, nil
}

// PoolConfig converts the [pool] settings into the defaults for lazily
// created pools.
func (p PoolSettings) PoolConfig() (pool.Config, error) {
	cfg := pool.DefaultConfig()
	overflow, ok := pool.ParseOverflow(p.Overflow)
	if !ok {
		return cfg, fmt.Errorf("%w: pool overflow %q", ErrInvalidConfig, p.Overflow)
	}
	cfg.MaxIdle = p.MaxIdle
	cfg.Overflow = overflow
	return cfg, nil
}

// Options converts one windows.yaml entry. Keys left out of the entry stay
// unset so the view's own defaults apply.
func (w WindowConfig) Options() (window.Options, error) {
	var o window.Options
	if w.Kind != "" {
		kind, ok := window.ParseKind(w.Kind)
		if !ok {
			return o, fmt.Errorf("%w: window %s kind %q", ErrInvalidConfig, w.Type, w.Kind)
		}
		o.Kind = &kind
	}
	if w.TransitionIn != "" {
		o.TransitionIn = &window.Descriptor{Preset: w.TransitionIn}
	}
	if w.TransitionOut != "" {
		o.TransitionOut = &window.Descriptor{Preset: w.TransitionOut}
	}
	o.BlockInput = w.BlockInput
	o.CloseOnBack = w.CloseOnBack
	return o, nil
}
