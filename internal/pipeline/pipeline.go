// Package pipeline implements the pipeline driver (C6): initializes
// pools, feeds bounded batches of work to each worker's queue, waits for
// drain, and transitions from Stage A to Stage B (spec.md §4.6).
package pipeline

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/gameconfig"
	"github.com/texopt/texopt/internal/meshsize"
	"github.com/texopt/texopt/internal/nlog"
	"github.com/texopt/texopt/internal/resize"
	"github.com/texopt/texopt/internal/sourceindex"
	"github.com/texopt/texopt/internal/texsource"
	"github.com/texopt/texopt/internal/xstats"
)

const stageBBatchSize = 2
const pollInterval = time.Millisecond

// Config carries the CLI arguments and worker-pool overrides (spec.md
// §4.6 step 1, SPEC_FULL.md §6.1).
type Config struct {
	DataRoot   string
	OutputRoot string
	TexSize    int
	NormalSize int
	WorkersA   int
	WorkersB   int
	GameConfig gameconfig.Paths
}

// Run executes the full two-stage pipeline lifecycle (spec.md §4.6 steps
// 2-8). A configuration error (missing archive, unreadable game config)
// is returned wrapped with a stack trace via pkg/errors so cmd/texopt's
// top-level handler can log it and exit 1; per-item errors never
// propagate here. Texture-stage skips and failures are counted in stats;
// mesh parse failures are logged by the Stage-A pool and are not counted
// in stats.
func Run(cfg Config, stats *xstats.Stats) error {
	archivePaths, err := cfg.GameConfig.ArchiveList()
	if err != nil {
		return errors.WithStack(fmt.Errorf("pipeline: discovering archives: %w", err))
	}

	nlog.Infof("indexing %d archives and loose tree %s", len(archivePaths), cfg.DataRoot)
	idx, err := sourceindex.Build(archivePaths, cfg.DataRoot)
	if err != nil {
		return errors.WithStack(err)
	}
	nlog.Infof("indexed %d in-scope meshes", idx.Len())

	aggregate := runStageA(idx, cfg.WorkersA, stats)
	nlog.Infof("stage A done: %d textures sized", len(aggregate))

	resolved, err := texsource.Resolve(aggregate, cfg.DataRoot, archivePaths)
	if err != nil {
		return errors.WithStack(err)
	}
	nlog.Infof("resolved %d texture sources", len(resolved))

	runStageB(resolved, aggregate, cfg, stats)
	nlog.Infof("%s", stats.Summary(xstats.StageMesh))
	nlog.Infof("%s", stats.Summary(xstats.StageTexture))
	return nil
}

func runStageA(idx *sourceindex.Index, workers int, stats *xstats.Stats) map[cos.PathKey]meshsize.SizeRecord {
	entries := idx.Entries()
	stats.SetRemaining(xstats.StageMesh, len(entries))
	pool := meshsize.NewPool(workers)
	return pool.Run(entries)
}

// stageBItem pairs a resolved source with its Stage-A sizing signal, the
// unit fed through Stage B's worker queues.
type stageBItem struct {
	path   cos.PathKey
	source texsource.Source
	radius float32
}

func runStageB(resolved map[cos.PathKey]texsource.Source, aggregate map[cos.PathKey]meshsize.SizeRecord, cfg Config, stats *xstats.Stats) {
	items := make([]stageBItem, 0, len(resolved))
	for path, src := range resolved {
		items = append(items, stageBItem{path: path, source: src, radius: aggregate[path].Radius})
	}
	stats.SetRemaining(xstats.StageTexture, len(items))

	workers := cfg.WorkersB
	if workers < 1 {
		workers = 1
	}
	queues := make([]chan stageBItem, workers)
	for i := range queues {
		queues[i] = make(chan stageBItem, stageBBatchSize)
	}

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		queue := queues[i]
		g.Go(func() error {
			for item := range queue {
				processStageBItem(item, cfg, stats)
			}
			return nil
		})
	}

	feedStageB(queues, items)
	for _, q := range queues {
		close(q)
	}
	_ = g.Wait() // worker goroutines never return an error; errgroup only provides the join
}

func feedStageB(queues []chan stageBItem, items []stageBItem) {
	i := 0
	next := 0
	for i < len(items) {
		q := queues[next]
		if len(q) == 0 {
			for n := 0; n < stageBBatchSize && i < len(items); n++ {
				q <- items[i]
				i++
			}
		}
		next = (next + 1) % len(queues)
		if next == 0 {
			time.Sleep(pollInterval)
		}
	}
}

func processStageBItem(item stageBItem, cfg Config, stats *xstats.Stats) {
	bytes, err := item.source.Load()
	if err != nil {
		nlog.Errorf("pipeline: %s: load source: %v", item.path, err)
		stats.IncFailed(xstats.StageTexture)
		return
	}
	res := resize.Process(resize.Item{
		Path:       item.path,
		Bytes:      bytes,
		Radius:     item.radius,
		OutputDir:  cfg.OutputRoot,
		TexSize:    uint64(cfg.TexSize),
		NormalSize: uint64(cfg.NormalSize),
	})
	switch {
	case res.Skipped:
		stats.IncSkipped(xstats.StageTexture)
	case res.Failed:
		stats.IncFailed(xstats.StageTexture)
	}
}
