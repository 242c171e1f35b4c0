package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/config"
	"github.com/banshee-data/livestack/internal/dispatch"
	"github.com/banshee-data/livestack/internal/imaging"
	"github.com/banshee-data/livestack/internal/journal"
	"github.com/banshee-data/livestack/internal/monitoring"
	"github.com/banshee-data/livestack/internal/session"
	"github.com/banshee-data/livestack/internal/timeutil"
	"github.com/banshee-data/livestack/internal/version"
)

const simulatorDriver = "simulator"

var (
	configPath    = flag.String("config", "", "Path to a JSON config file")
	driver        = flag.String("driver", "", "Camera driver name (\"simulator\" for the built-in camera)")
	driverPath    = flag.String("driver-path", "", "Directory holding libols_driver_<name>.so")
	driverConfig  = flag.String("driver-config", "", "Configuration string passed to the driver")
	cameraID      = flag.Int("camera", 0, "Driver registry id (0 is the most recently loaded driver)")
	externalOpt   = flag.Int("external-option", 0, "Option passed to the driver factory")
	streamFormat  = flag.String("format", "", "Stream format, e.g. raw16:1920x1080@30 (default: first advertised)")
	dataDir       = flag.String("data-dir", "", "Data directory for sessions and calibration frames")
	journalPath   = flag.String("journal", "", "Path to the session journal database")
	plateSolve    = flag.Bool("plate-solve", false, "Attach a plate-solving consumer")
	statsInterval = flag.String("stats-interval", "", "How often to log dispatch counters (0 disables)")
	trace         = flag.Bool("trace", false, "Enable per-frame trace logging")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(cfg, set)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var traceOut io.Writer
	if *trace {
		traceOut = os.Stdout
	}
	setLogWriters(os.Stderr, os.Stdout, traceOut)
	log.Printf("%s starting", version.String())

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

// applyFlags copies explicitly set flags over the file configuration.
func applyFlags(cfg *config.Config, set map[string]bool) {
	if set["driver"] {
		cfg.Driver = driver
	}
	if set["driver-path"] {
		cfg.DriverPath = driverPath
	}
	if set["driver-config"] {
		cfg.DriverConfig = driverConfig
	}
	if set["camera"] {
		cfg.CameraID = cameraID
	}
	if set["external-option"] {
		cfg.ExternalOption = externalOpt
	}
	if set["format"] {
		cfg.StreamFormat = streamFormat
	}
	if set["data-dir"] {
		cfg.DataDir = dataDir
	}
	if set["journal"] {
		cfg.JournalPath = journalPath
	}
	if set["plate-solve"] {
		cfg.PlateSolve = plateSolve
	}
	if set["stats-interval"] {
		cfg.StatsInterval = statsInterval
	}
}

func setLogWriters(ops, diag, trace io.Writer) {
	camera.SetLogWriters(ops, diag, trace)
	dispatch.SetLogWriters(ops, diag, trace)
	journal.SetLogWriters(ops, diag)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := camera.NewRegistry(camera.DLLoader{})
	defer registry.Close()

	cam, err := openCamera(registry, cfg)
	if err != nil {
		return err
	}

	dir := cfg.GetDataDir()
	for _, sub := range []string{"stacked", "calibration"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := journal.Open(cfg.GetJournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	live := newLiveSnapshot(filepath.Join(dir, "live.jpg"), time.Second)
	p := newPipeline(imaging.Codec{}, store, cfg.GetPlateSolve(), live.write)
	// the recorder must outlive the signal context to drain its queue
	p.start(context.Background())

	actor := camera.NewActor(cam)
	actorCtx, stopActor := context.WithCancel(context.Background())
	actorDone := make(chan struct{})
	go func() {
		defer close(actorDone)
		if err := actor.Run(actorCtx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("camera actor: %v", err)
		}
	}()
	defer func() {
		stopActor()
		<-actorDone
	}()

	format, err := chooseFormat(ctx, actor, cfg)
	if err != nil {
		p.shutdown()
		return err
	}
	if err := actor.StartStream(ctx, format, p.push); err != nil {
		p.shutdown()
		return fmt.Errorf("start stream %s: %w", format, err)
	}
	log.Printf("streaming %s from driver %s", format, cfg.GetDriver())

	con := &console{
		sessions: session.NewManager(dir, actor, p.input),
		cam:      actor,
		status:   p.status,
		quit:     stop,
	}
	go con.serve(ctx, os.Stdin, os.Stdout)
	go monitoring.Report(ctx, timeutil.RealClock{}, "dispatch", cfg.GetStatsInterval(), p.status)

	<-ctx.Done()
	log.Print("shutting down")
	if err := actor.StopStream(context.Background()); err != nil {
		monitoring.Logf("stop stream: %v", err)
	}
	p.shutdown()
	log.Printf("pipeline stopped: %s", p.status())
	return nil
}

// openCamera returns the camera named by the configuration. Native drivers
// are loaded through the registry so plugin, entry point and configuration
// problems surface at startup.
func openCamera(registry *camera.Registry, cfg *config.Config) (camera.Camera, error) {
	name := cfg.GetDriver()
	if name == simulatorDriver {
		return camera.NewSimulator(), nil
	}
	if err := registry.LoadDriver(name, cfg.GetDriverPath(), cfg.GetDriverConfig()); err != nil {
		return nil, err
	}
	log.Printf("loaded drivers %v", registry.Drivers())
	handle, err := registry.Get(cfg.GetCameraID(), cfg.GetExternalOption())
	if err != nil {
		return nil, err
	}
	// Driver handles are C++ camera objects and the plugin ABI exports no
	// destructor, so the handle stays allocated until the process exits.
	// Loading it still validates the plugin, its entry points and config.
	return nil, fmt.Errorf("%w: driver %s returned handle %p but has no Go camera binding", camera.ErrCamera, name, handle)
}

func chooseFormat(ctx context.Context, actor *camera.Actor, cfg *config.Config) (camera.StreamFormat, error) {
	if f, ok := cfg.GetStreamFormat(); ok {
		return f, nil
	}
	var formats []camera.StreamFormat
	err := actor.Do(ctx, func(c camera.Camera) error {
		var err error
		formats, err = c.StreamFormats()
		return err
	})
	if err != nil {
		return camera.StreamFormat{}, fmt.Errorf("list stream formats: %w", err)
	}
	if len(formats) == 0 {
		return camera.StreamFormat{}, fmt.Errorf("%w: camera advertises no stream formats", camera.ErrCamera)
	}
	return formats[0], nil
}
