package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"github.com/gbflame/gbflame/flame/callstack"
	"github.com/gbflame/gbflame/flame/driver"
	"github.com/gbflame/gbflame/flame/replay"
	"github.com/gbflame/gbflame/flame/symtab"
	"github.com/gbflame/gbflame/flame/trace"
	"github.com/gbflame/gbflame/jeebie"
	"github.com/gbflame/gbflame/jeebie/debug"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbflame"
	app.Usage = "reconstruct a Game Boy ROM's call tree into a Speedscope trace"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to the ROM file (required)"},
		cli.StringFlag{Name: "map", Usage: "path to a linker map file"},
		cli.StringFlag{Name: "input", Usage: "path to a replay script (JSON)"},
		cli.IntFlag{Name: "start-frame", Usage: "first frame included in the trace", Value: 0},
		cli.IntFlag{Name: "frames", Usage: "number of frames to run", Value: 60},
		cli.StringFlag{Name: "capture-mode", Usage: "all, exit, or none", Value: "none"},
		cli.StringSliceFlag{Name: "disable-interrupt", Usage: "interrupt index (0-4) to mask off, repeatable"},
		cli.StringFlag{Name: "out", Usage: "output trace path (JSON)", Value: "trace.json"},
		cli.StringFlag{Name: "capture-dir", Usage: "directory to write frame captures to"},
		cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("gbflame failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	romPath := c.String("rom")
	if romPath == "" {
		return fmt.Errorf("gbflame: --rom is required")
	}

	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}

	dmg, err := jeebie.NewWithFile(romPath)
	if err != nil {
		return fmt.Errorf("gbflame: load ROM: %w", err)
	}
	dmg.SetDisabledInterrupts(cfg.disabledInterrupts)

	symbols := loadSymbolMap(c.String("map"))
	script, err := loadScript(c.String("input"))
	if err != nil {
		return fmt.Errorf("gbflame: load replay script: %w", err)
	}

	names := make([]string, len(symbols.Symbols))
	for i, s := range symbols.Symbols {
		names[i] = s.Name
	}

	emitter := trace.NewEmitter(names)
	resolver := symtab.NewResolver(symtab.BuildRegions(symbols))
	engine := callstack.NewEngine(symbols, resolver, emitter)

	clock := &driver.Clock{}
	dmg.SetInstructionHook(func(opcode uint8, pc uint16, cycles int) {
		at := clock.Tick(cycles)
		engine.HandleInstruction(opcode, pc, dmg.CurrentROMBank(), at)
	})
	dmg.SetInterruptHook(func(index uint8) {
		engine.HandleInterrupt(index, clock.Global())
	})

	var capturer driver.FrameCapturer
	if cfg.captureMode != driver.CaptureNone {
		capturer = newPNGCapturer(dmg, c.String("capture-dir"))
	}

	d := driver.New(dmg, capturer, clock, engine, emitter, script, driver.Config{
		StartFrame:  cfg.startFrame,
		Frames:      cfg.frames,
		CaptureMode: cfg.captureMode,
	}, logProgress)

	doc, err := d.Run()
	if err != nil {
		return fmt.Errorf("gbflame: run: %w", err)
	}

	return writeTrace(c.String("out"), doc)
}

type config struct {
	startFrame         int
	frames             int
	captureMode        driver.CaptureMode
	disabledInterrupts uint8
}

func parseConfig(c *cli.Context) (config, error) {
	mode, err := parseCaptureMode(c.String("capture-mode"))
	if err != nil {
		return config{}, err
	}

	var mask uint8
	for _, s := range c.StringSlice("disable-interrupt") {
		idx, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || idx < 0 || idx > 4 {
			return config{}, fmt.Errorf("gbflame: invalid --disable-interrupt value %q (want 0-4)", s)
		}
		mask |= 1 << uint(idx)
	}

	frames := c.Int("frames")
	if frames <= 0 {
		return config{}, fmt.Errorf("gbflame: --frames must be positive")
	}

	return config{
		startFrame:         c.Int("start-frame"),
		frames:             frames,
		captureMode:        mode,
		disabledInterrupts: mask,
	}, nil
}

func parseCaptureMode(s string) (driver.CaptureMode, error) {
	switch s {
	case "all":
		return driver.CaptureAll, nil
	case "exit":
		return driver.CaptureExit, nil
	case "none", "":
		return driver.CaptureNone, nil
	default:
		return 0, fmt.Errorf("gbflame: invalid --capture-mode %q (want all, exit, or none)", s)
	}
}

// loadSymbolMap reads the linker map at path. A missing or unreadable map
// is non-fatal: the run continues with only the fixed interrupt vectors.
func loadSymbolMap(path string) *symtab.SymbolMap {
	if path == "" {
		return symtab.Empty()
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("could not open map file, continuing with interrupt vectors only", "path", path, "error", err)
		return symtab.Empty()
	}
	defer f.Close()

	symbols, err := symtab.Parse(f)
	if err != nil {
		slog.Warn("could not parse map file, continuing with interrupt vectors only", "path", path, "error", err)
		return symtab.Empty()
	}
	return symbols
}

func loadScript(path string) (replay.Script, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return replay.Load(f)
}

func logProgress(done, total int) {
	if done%30 == 0 || done == total {
		slog.Debug("frame progress", "completed", done, "total", total)
	}
}

func writeTrace(path string, doc *trace.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gbflame: create output: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("gbflame: write trace: %w", err)
	}
	slog.Info("trace written", "path", path)
	return nil
}

// pngCapturer saves the emulator's current framebuffer as a deterministically
// named PNG under dir, one file per emulated frame index.
type pngCapturer struct {
	dmg *jeebie.DMG
	dir string
}

func newPNGCapturer(dmg *jeebie.DMG, dir string) *pngCapturer {
	if dir == "" {
		dir = "captures"
	}
	return &pngCapturer{dmg: dmg, dir: dir}
}

func (p *pngCapturer) Capture(frameIndex int) (string, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}

	path := filepath.Join(p.dir, fmt.Sprintf("frame_%06d.png", frameIndex))
	frame := p.dmg.CurrentFrame()
	if err := debug.SaveFramePNGTo(frame, path); err != nil {
		return "", err
	}
	return path, nil
}
