// Command vkreplay replays a fossilize-format pipeline database against
// a Vulkan driver (the built-in in-memory stub unless a real binding is
// wired in), priming the driver's pipeline cache and reporting progress
// through an optional shared control block.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/vkreplay/vkreplay"
	"github.com/vkreplay/vkreplay/driver"
	"github.com/vkreplay/vkreplay/internal/config"
	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/control"
	"github.com/vkreplay/vkreplay/internal/logging"
)

// Exit codes. 0 covers replays that completed even with invalid
// entries — those are counted in the Summary, not fatal. Anything else
// is a hard startup or I/O failure.
const (
	exitOK        = 0
	exitUsage     = 2
	exitReplayErr = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("vkreplay", flag.ContinueOnError)

	var (
		numThreads       = fs.Int("num-threads", 0, "Override worker count; 0 means auto")
		shmemFD          = fs.Int("shmem-fd", -1, "Attach the control-block shared memory at this fd")
		enableValidation = fs.Bool("enable-validation", false, "Enable Vulkan validation layers (collaborator concern, unused by this core)")
		deviceIndex      = fs.Int("device-index", 0, "Physical device selector (collaborator concern, unused by this core)")
		progress         = fs.Bool("progress", false, "Enable progress display")
		configPath       = fs.String("config", "", "Optional JSONC config file overlaying these flags' defaults")
		jsonReportPath   = fs.String("json-report", "", "Write a final JSON summary to this path")
		verbose          = fs.Bool("v", false, "Verbose (debug) logging")
	)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	flags := config.Flags{
		NumThreads:       *numThreads,
		ShmemFD:          *shmemFD,
		EnableValidation: *enableValidation,
		DeviceIndex:      *deviceIndex,
		Progress:         *progress,
		JSONReportPath:   *jsonReportPath,
	}

	if *configPath != "" {
		overlay, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
		merged := overlay.ApplyDefaults(flags)
		if !fs.Changed("num-threads") {
			flags.NumThreads = merged.NumThreads
		}
		if !fs.Changed("shmem-fd") {
			flags.ShmemFD = merged.ShmemFD
		}
		if !fs.Changed("enable-validation") {
			flags.EnableValidation = merged.EnableValidation
		}
		if !fs.Changed("device-index") {
			flags.DeviceIndex = merged.DeviceIndex
		}
		if !fs.Changed("progress") {
			flags.Progress = merged.Progress
		}
		if !fs.Changed("json-report") {
			flags.JSONReportPath = merged.JSONReportPath
		}
	}

	positional := fs.Args()
	if len(positional) == 0 {
		fmt.Fprintln(os.Stderr, "vkreplay: at least one database file path is required")
		return exitUsage
	}
	dbPath := positional[0]

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	data, err := os.ReadFile(dbPath)
	if err != nil {
		logger.Error("failed to read database file", "path", dbPath, "error", err)
		return exitReplayErr
	}

	var controlMem []byte
	processSlot := 0
	if flags.ShmemFD >= 0 {
		var closeMem func() error
		controlMem, closeMem, err = control.MmapFD(uintptr(flags.ShmemFD))
		if err != nil {
			logger.Error("failed to attach control block shared memory", "fd", flags.ShmemFD, "error", err)
			return exitReplayErr
		}
		defer closeMem()
		processSlot = os.Getpid() % constants.MaxProcessSlots
	}

	stub := driver.NewStubDriver()

	params := vkreplay.DefaultParams()
	params.NumThreads = flags.NumThreads

	options := vkreplay.DefaultOptions()
	options.Driver = stub
	options.Logger = logger
	options.ProcessSlot = processSlot
	options.ControlBlockMemory = controlMem

	replayer, err := vkreplay.NewReplayer(params, options)
	if err != nil {
		logger.Error("failed to construct replayer", "error", err)
		return exitReplayErr
	}

	if flags.EnableValidation {
		logger.Debug("--enable-validation is a collaborator concern; this core does not configure Vulkan validation layers")
	}
	if flags.DeviceIndex != 0 {
		logger.Debug("--device-index is a collaborator concern; this core does not select a physical device", "index", flags.DeviceIndex)
	}

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go dumpStacksOnSignal(stackDumpCh, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if flags.Progress {
		logger.Info("replaying database", "path", dbPath, "num_threads", params.NumThreads)
	}

	start := time.Now()
	summary, err := replayer.Replay(ctx, data)
	if err != nil {
		logger.Error("replay failed", "error", err)
		return exitReplayErr
	}

	logger.Info("replay complete",
		"duration", time.Since(start),
		"total", summary.TotalEntries,
		"created", summary.Created,
		"destroyed", summary.Destroyed,
		"invalid", summary.Invalid)

	if flags.Progress {
		for tag, ts := range summary.PerTag {
			logger.Info("per-tag summary", "tag", tag, "total", ts.Total, "created", ts.Created, "invalid", ts.Invalid)
		}
	}

	if flags.JSONReportPath != "" {
		if err := writeJSONReport(flags.JSONReportPath, summary); err != nil {
			logger.Error("failed to write json report", "path", flags.JSONReportPath, "error", err)
			return exitReplayErr
		}
	}

	return exitOK
}

func dumpStacksOnSignal(ch <-chan os.Signal, logger *logging.Logger) {
	for range ch {
		logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

		filename := fmt.Sprintf("vkreplay-stacks-%s.txt", strings.ReplaceAll(time.Now().Format(time.RFC3339), ":", "-"))
		if f, err := os.Create(filename); err == nil {
			fmt.Fprintf(f, "Goroutine stack dump at %s\nProcess ID: %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
			f.Write(buf[:n])
			fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
			pprof.Lookup("goroutine").WriteTo(f, 2)
			f.Close()
			logger.Info("stack trace written to file", "file", filename)
		}
	}
}

func writeJSONReport(path string, summary *vkreplay.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}
