package main

import (
	"context"
	"fmt"
	"image/color"

	"github.com/younwookim/stagecraft/internal/application/game"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/application/replay"
	"github.com/younwookim/stagecraft/internal/application/scene"
	"github.com/younwookim/stagecraft/internal/application/screenflow"
	"github.com/younwookim/stagecraft/internal/application/screens"
	"github.com/younwookim/stagecraft/internal/application/state"
	"github.com/younwookim/stagecraft/internal/application/windows"
	"github.com/younwookim/stagecraft/internal/domain/flow"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"github.com/younwookim/stagecraft/internal/infrastructure/assets"
	"github.com/younwookim/stagecraft/internal/infrastructure/config"
	"github.com/younwookim/stagecraft/internal/infrastructure/input"
	"github.com/younwookim/stagecraft/internal/infrastructure/script"
	"github.com/younwookim/stagecraft/internal/infrastructure/storage"
	"github.com/younwookim/stagecraft/internal/infrastructure/transition"
	"github.com/younwookim/stagecraft/internal/infrastructure/ui"
	"go.uber.org/zap"
)

// Colors for rendering
var (
	colorBoot  = color.RGBA{20, 20, 30, 255}
	colorTitle = color.RGBA{40, 30, 70, 255}
	colorHome  = color.RGBA{26, 26, 46, 255}
	colorGame  = color.RGBA{20, 60, 40, 255}
	colorShop  = color.RGBA{70, 50, 20, 255}
	colorPause = color.RGBA{0, 0, 0, 160}
	colorHUD   = color.RGBA{60, 60, 60, 255}
	colorChat  = color.RGBA{40, 40, 90, 255}
	colorPanel = color.RGBA{200, 200, 220, 230}
	colorSpark = color.RGBA{255, 215, 0, 255}
	colorOther = color.RGBA{90, 90, 90, 255}
)

// sceneSpecs maps demo scene keys to how they are drawn.
var sceneSpecs = map[string]assets.SceneSpec{
	"boot":  {Color: colorBoot},
	"title": {Color: colorTitle},
	"home":  {Color: colorHome},
	"game":  {Color: colorGame},
	"shop":  {Color: colorShop},
	"pause": {Color: colorPause, Band: true, Y: 90, H: 60},
	"hud":   {Color: colorHUD, Band: true, Y: 0, H: 14},
	"chat":  {Color: colorChat, Band: true, Y: 200, H: 40},
}

// Template IDs of the demo's pooled objects.
const (
	templateSpark int64 = iota + 1
	templateWindow
	templateConfirm
)

// appOptions selects the storage and input of an App.
type appOptions struct {
	Backend  storage.Backend
	Back     input.BackSource
	Replayer *replay.Replayer
	Recorder *replay.Recorder
	Fresh    bool
}

// App is the wired demo.
type App struct {
	cfg     *config.GameConfig
	log     *zap.Logger
	assets  *assets.Loader
	pools   *pool.Manager
	scenes  *scene.Cache
	screens *screens.Manager
	windows *windows.Manager
	blocker *input.Blocker
	loading *ui.LoadingScreen
	engine  *script.Engine
	graph   *flow.Graph
	flow    *state.Flow
	store   *state.Store
	actor   *screenflow.Actor
	game    *game.Game
	sparks  *sparks
	spark   pool.Template
	fresh   bool
}

func newApp(ctx context.Context, cfg *config.GameConfig, log *zap.Logger, opts appOptions) (*App, error) {
	a := &App{cfg: cfg, log: log, fresh: opts.Fresh}

	registry, err := config.BuildRegistry(cfg.Screens)
	if err != nil {
		return nil, fmt.Errorf("failed to build screens: %w", err)
	}

	a.assets = assets.NewLoader(log)
	for _, id := range registry.IDs() {
		for _, key := range registry.MustGet(id).SceneKeys() {
			spec, ok := sceneSpecs[key]
			if !ok {
				spec = assets.SceneSpec{Color: colorOther}
			}
			a.assets.AddScene(key, spec)
		}
	}

	if err := a.buildPools(); err != nil {
		return nil, err
	}

	a.scenes = scene.NewCache(a.assets, log)
	a.loading = ui.NewLoadingScreen()
	a.screens = screens.NewManager(a.scenes, a.loading, log)
	a.screens.RegisterTask("warm_pools", screens.TaskFunc(a.warmPools))
	a.screens.RegisterTask("prefetch_windows", screens.TaskFunc(a.prefetchWindows))

	a.blocker = input.NewBlocker(log)
	a.windows = windows.NewManager(a.assets, a.pools.Host(), a.blocker, transition.NewFactory(),
		cfg.Settings.Windows.Sorting(), log)
	for _, wc := range cfg.Windows.Windows {
		o, err := wc.Options()
		if err != nil {
			return nil, err
		}
		a.windows.Register(wc.Type, windows.Spec{Asset: wc.Asset, Options: o})
	}

	a.engine = script.NewEngine(log)
	if cfg.Flow.Script != "" {
		if err := a.engine.Exec(cfg.Flow.Script); err != nil {
			return nil, err
		}
	}
	a.graph, err = config.BuildGraph(cfg.Flow, registry, a.compile)
	if err != nil {
		return nil, fmt.Errorf("failed to build flow: %w", err)
	}

	a.flow = state.NewFlow(a.graph.Start().ID, cfg.Settings.Flow.HistoryCapacity)
	if cfg.Settings.Flow.Persist {
		a.store = state.NewStore(opts.Backend)
	} else {
		a.store = state.NewStore(nil)
	}
	a.actor = screenflow.NewActor(ctx, a.screens, flow.NewResolver(a.graph), a.flow, log)
	a.actor.OnAdvanced = a.onAdvanced

	a.sparks = newSparks(a.pools, a.screens, a.spark, cfg.Settings.Display)
	a.game = game.New(ctx, game.Options{
		ScreenWidth:  cfg.Settings.Display.ScreenWidth,
		ScreenHeight: cfg.Settings.Display.ScreenHeight,
		TPS:          cfg.Settings.Display.TPS,
		Pools:        a.pools,
		Scenes:       a.scenes,
		Windows:      a.windows,
		Flow:         a.actor,
		Back:         opts.Back,
		Blocker:      a.blocker,
		Loading:      a.loading,
		Replayer:     opts.Replayer,
		Recorder:     opts.Recorder,
		Log:          log,

		StopAfterReplay: opts.Replayer != nil,
	})
	a.game.OnUpdate = a.sparks.update
	a.game.Overlays = a.sparks.drawables
	return a, nil
}

func (a *App) buildPools() error {
	defaults, err := a.cfg.Settings.Pool.PoolConfig()
	if err != nil {
		return err
	}
	a.pools = pool.NewManager(a.log, defaults)

	templates := map[string]pool.Template{
		"spark":  ui.NewSparkTemplate(templateSpark, colorSpark),
		"window": ui.NewPanelTemplate(templateWindow, ui.PanelStyle{Title: "window", Width: 160, Height: 100, Color: colorPanel}),
	}
	a.assets.AddAsset("window", templates["window"])
	a.assets.AddAsset("confirm", ui.NewPanelTemplate(templateConfirm, ui.PanelStyle{Title: "confirm? (esc)", Width: 120, Height: 48, Color: colorPanel}))
	a.assets.AddAsset("spark", templates["spark"])
	a.spark = templates["spark"]

	for _, pc := range a.cfg.Pools.Pools {
		tmpl, ok := templates[pc.Template]
		if !ok {
			return fmt.Errorf("%w: unknown pool template %s", config.ErrInvalidConfig, pc.Template)
		}
		cfg, err := pc.PoolConfig()
		if err != nil {
			return err
		}
		a.pools.Register(tmpl, cfg, pc.Category)
	}
	return nil
}

func (a *App) compile(expr string) (flow.Condition, error) {
	c, err := a.engine.Compile(expr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// warmPools tops up every configured pool to its preload size.
func (a *App) warmPools(ctx context.Context) error {
	for _, pc := range a.cfg.Pools.Pools {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmpl, err := a.assets.LoadAsset(ctx, pc.Template)
		if err != nil {
			return err
		}
		t, ok := tmpl.(pool.Template)
		if !ok {
			continue
		}
		st, _ := a.pools.Stats(t)
		if st.Idle+st.Active >= pc.Preload {
			continue
		}
		// idle instances are taken first, so spawning up to the preload
		// size and returning everything leaves exactly that many
		objs := make([]pool.Object, 0, pc.Preload-st.Active)
		for range pc.Preload - st.Active {
			if obj := a.pools.Spawn(t, pool.Pose{}, nil); obj != nil {
				objs = append(objs, obj)
			}
		}
		for _, obj := range objs {
			a.pools.Despawn(obj, 0)
		}
	}
	return nil
}

// prefetchWindows loads every window template once.
func (a *App) prefetchWindows(ctx context.Context) error {
	for _, wc := range a.cfg.Windows.Windows {
		key := wc.Asset
		if key == "" {
			key = wc.Type
		}
		if _, err := a.assets.LoadAsset(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) onAdvanced(from, to *flow.Node, event string) {
	a.log.Info("flow advanced",
		zap.String("from", nodeName(from)),
		zap.String("to", nodeName(to)),
		zap.String("event", event))
	if err := a.store.Save(a.flow); err != nil {
		a.log.Warn("failed to save flow state", zap.Error(err))
	}
}

func nodeName(n *flow.Node) string {
	if n == nil {
		return "<none>"
	}
	return n.Name
}

// Start enters the first screen: the saved node when one was restored,
// otherwise the graph's start node.
func (a *App) Start(ctx context.Context) (screen.Result, error) {
	if !a.fresh {
		restored, err := a.store.Load(a.flow)
		if err != nil {
			a.log.Warn("ignoring saved flow state", zap.Error(err))
		}
		if restored && err == nil {
			return a.actor.Resume(ctx)
		}
	}
	return a.actor.Start(ctx)
}

// Close stops navigation and releases the script VM.
func (a *App) Close() {
	if err := a.game.Close(); err != nil {
		a.log.Warn("game shutdown", zap.Error(err))
	}
	a.actor.Close()
	a.engine.Close()
}
