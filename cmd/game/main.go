package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/younwookim/stagecraft/internal/application/replay"
	"github.com/younwookim/stagecraft/internal/infrastructure/config"
	"github.com/younwookim/stagecraft/internal/infrastructure/input"
	"github.com/younwookim/stagecraft/internal/infrastructure/logging"
	"github.com/younwookim/stagecraft/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// BootEvent leaves the boot screen once the first frame runs.
const BootEvent = "booted"

func main() {
	// Parse command line flags
	recordFlag := flag.String("record", "", "Record flow events to file (e.g., -record replay.json)")
	replayFlag := flag.String("replay", "", "Replay flow events from file")
	configFlag := flag.String("config", "", "Load configs from this directory instead of the embedded ones")
	freshFlag := flag.Bool("fresh", false, "Ignore the saved flow state")
	flag.Parse()

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Settings.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := appOptions{
		Backend: storage.Open(cfg.Settings.Storage.AppName, logger),
		Back:    input.Keyboard{},
		Fresh:   *freshFlag,
	}
	if *replayFlag != "" {
		data, err := replay.LoadReplay(*replayFlag)
		if err != nil {
			logger.Fatal("failed to load replay", zap.String("file", *replayFlag), zap.Error(err))
		}
		opts.Replayer = replay.NewReplayer(*data)
		opts.Fresh = true
		logger.Info("replaying", zap.String("file", *replayFlag), zap.Int("frames", data.Frames))
	} else if *recordFlag != "" {
		// recorded sessions always start fresh so replays line up
		opts.Recorder = replay.NewRecorder(startNode(cfg))
		opts.Fresh = true
		defer saveRecording(logger, opts.Recorder, *recordFlag)
		logger.Info("recording enabled", zap.String("file", *recordFlag))
	}

	app, err := newApp(ctx, cfg, logger, opts)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}
	defer app.Close()

	onUpdate := app.game.OnUpdate
	app.game.OnUpdate = func(dt float64) {
		app.pollKeys(ctx)
		onUpdate(dt)
	}

	go func() {
		if _, err := app.Start(ctx); err != nil {
			logger.Error("failed to enter first screen", zap.Error(err))
			return
		}
		app.game.Trigger(BootEvent)
	}()

	// Set up ebiten
	d := cfg.Settings.Display
	ebiten.SetWindowSize(d.ScreenWidth*d.Scale, d.ScreenHeight*d.Scale)
	ebiten.SetWindowTitle(d.Title)
	ebiten.SetTPS(d.TPS)

	// Run game
	if err := ebiten.RunGame(app.game); err != nil {
		logger.Error("game stopped", zap.Error(err))
	}
}

// loadConfig reads every config file from dir, or from the embedded configs
// when dir is empty.
func loadConfig(dir string) (*config.GameConfig, error) {
	if dir != "" {
		return config.NewLoader(dir).LoadAll()
	}
	fsys, err := fs.Sub(configFS, "configs")
	if err != nil {
		return nil, err
	}
	return config.NewFSLoader(fsys, "configs").LoadAll()
}

func startNode(cfg *config.GameConfig) string {
	if len(cfg.Flow.Nodes) == 0 {
		return ""
	}
	return cfg.Flow.Nodes[0].Name
}

// saveRecording saves the recording to file
func saveRecording(logger *zap.Logger, rec *replay.Recorder, filename string) {
	if filename == "" {
		filename = replay.GenerateFilename()
	}
	if err := rec.Save(filename); err != nil {
		logger.Error("failed to save recording", zap.Error(err))
		return
	}
	logger.Info("recording saved", zap.String("file", filename), zap.Int("frames", rec.FrameCount()))
}
