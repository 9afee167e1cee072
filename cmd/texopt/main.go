// Package main is the texopt CLI entry point: `texopt <input_or_data_root>
// <output_root> <texsize> <normalsize>` (spec.md §6.1).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/texopt/texopt/internal/gameconfig"
	"github.com/texopt/texopt/internal/nlog"
	"github.com/texopt/texopt/internal/pipeline"
	"github.com/texopt/texopt/internal/sysinfo"
	"github.com/texopt/texopt/internal/xstats"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: texopt [-v level] [-workers-a n] [-workers-b n] [-config path] <input_or_data_root> <output_root> <texsize> <normalsize>")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("texopt", flag.ContinueOnError)
	nlog.InitFlags(fs)
	workersA := fs.Int("workers-a", sysinfo.NumCPU(), "Stage-A (mesh scan) worker pool size")
	workersB := fs.Int("workers-b", 1, "Stage-B (texture resize) worker pool size")
	configPath := fs.String("config", "", "override the discovered Skyrim.ini path")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 4 {
		usage()
		return 1
	}

	dataRoot := rest[0]
	outputRoot := rest[1]
	texSize, err := strconv.Atoi(rest[2])
	if err != nil || texSize <= 0 {
		fmt.Fprintf(os.Stderr, "texopt: texsize must be a positive integer, got %q\n", rest[2])
		return 1
	}
	normalSize, err := strconv.Atoi(rest[3])
	if err != nil || normalSize <= 0 {
		fmt.Fprintf(os.Stderr, "texopt: normalsize must be a positive integer, got %q\n", rest[3])
		return 1
	}

	paths := gameconfig.DefaultPaths()
	paths.DataRoot = dataRoot
	if *configPath != "" {
		paths.SkyrimINI = *configPath
	}

	cfg := pipeline.Config{
		DataRoot:   dataRoot,
		OutputRoot: outputRoot,
		TexSize:    texSize,
		NormalSize: normalSize,
		WorkersA:   *workersA,
		WorkersB:   *workersB,
		GameConfig: paths,
	}

	stats := xstats.New()
	nlog.Infof("run %s starting: workers-a=%d workers-b=%d", stats.RunID(), cfg.WorkersA, cfg.WorkersB)
	stats.StartDiskSampling()
	defer stats.StopDiskSampling()

	installSignalHandler()

	if err := pipeline.Run(cfg, stats); err != nil {
		nlog.Errorf("texopt: fatal: %+v", err)
		return 1
	}
	nlog.Infof("run %s complete", stats.RunID())
	return 0
}

// installSignalHandler makes SIGINT/SIGTERM visible in the log before the
// process exits; the pipeline has no mid-run cancellation hook in its
// specified core (spec.md §5: "no external cancellation input"), so this
// is observability only, not graceful shutdown.
func installSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		nlog.Warningf("texopt: received %v, finishing in-flight batches before exit is not supported by the current run", sig)
		os.Exit(1)
	}()
}
