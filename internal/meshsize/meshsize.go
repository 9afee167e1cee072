// Package meshsize implements the mesh-size aggregator (C2, Stage A): a
// worker pool that parses each mesh buffer, walks its shapes, reads texture
// slots and bounding-sphere radii, and folds them into a shared texture ->
// (max radius, representative mesh) aggregate (spec.md §4.2).
//
// Concurrency discipline: per-worker shard + deterministic merge after
// join (spec.md §9's own suggested alternative to a lock-guarded map),
// mirroring the teacher's ext/dsort per-target partial aggregation +
// final-merge shape.
package meshsize

import (
	"sync/atomic"
	"time"

	"github.com/texopt/texopt/internal/cos"
	"github.com/texopt/texopt/internal/nif"
	"github.com/texopt/texopt/internal/nlog"
	"github.com/texopt/texopt/internal/sourceindex"
)

// SizeRecord is a texture's maximum observed on-screen-prominence signal
// (spec.md §3).
type SizeRecord struct {
	Radius             float32
	RepresentativeMesh cos.PathKey
}

const batchSize = 25
const pollInterval = time.Millisecond

// Pool runs Stage A: N workers, each with its own input queue and its own
// aggregate shard, fed in round-robin batches by Run's driver loop
// (spec.md §4.6 step 4).
type Pool struct {
	workers int
	queues  []chan *sourceindex.Entry
	shards  []map[cos.PathKey]SizeRecord
	running int32
	errs    cos.Errs
}

// NewPool creates a Stage-A pool sized to workers (spec.md §4.6: "Stage A
// uses many workers... sys.NumCPU()-sized").
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		queues:  make([]chan *sourceindex.Entry, workers),
		shards:  make([]map[cos.PathKey]SizeRecord, workers),
	}
	for i := range p.queues {
		p.queues[i] = make(chan *sourceindex.Entry, batchSize)
		p.shards[i] = make(map[cos.PathKey]SizeRecord)
	}
	return p
}

// Run drives Stage A to completion: starts the workers, round-robin feeds
// batches of up to 25 entries into whichever queue is currently empty,
// sleeping 1ms between polls, then joins and merges shards into a single
// aggregate (spec.md §4.6 steps 3-6).
func (p *Pool) Run(entries []*sourceindex.Entry) map[cos.PathKey]SizeRecord {
	atomic.StoreInt32(&p.running, 1)

	done := make(chan struct{})
	for i := 0; i < p.workers; i++ {
		go p.work(i, done)
	}

	p.feed(entries)

	atomic.StoreInt32(&p.running, 0)
	for i := 0; i < p.workers; i++ {
		<-done
	}

	if p.errs.Cnt() > 0 {
		nlog.Errorf("meshsize: mesh parse failures (%d distinct error(s) kept): %v", p.errs.Cnt(), p.errs.Error())
	}
	return p.merge()
}

// feed round-robins batches of up to batchSize entries into any queue that
// is currently empty (the backpressure mechanism named in spec.md §4.6).
func (p *Pool) feed(entries []*sourceindex.Entry) {
	i := 0
	next := 0
	for i < len(entries) {
		q := p.queues[next]
		if len(q) == 0 {
			for n := 0; n < batchSize && i < len(entries); n++ {
				q <- entries[i]
				i++
			}
		}
		next = (next + 1) % p.workers
		if next == 0 {
			time.Sleep(pollInterval)
		}
	}
	for _, q := range p.queues {
		close(q)
	}
}

// work is one Stage-A worker's pull loop: pull an entry, parse it, fold
// its shapes into this worker's shard, free the payload, repeat -- until
// running is cleared and its queue is drained (spec.md §4.2 "Termination").
func (p *Pool) work(idx int, done chan<- struct{}) {
	shard := p.shards[idx]
	queue := p.queues[idx]
	for {
		select {
		case entry, ok := <-queue:
			if !ok {
				done <- struct{}{}
				return
			}
			p.processEntry(shard, entry)
		default:
			if atomic.LoadInt32(&p.running) == 0 {
				// Drain whatever remains before exiting (spec.md §4.2,
				// §5: "drain their queue before exiting").
				for entry := range queue {
					p.processEntry(shard, entry)
				}
				done <- struct{}{}
				return
			}
			time.Sleep(pollInterval)
		}
	}
}

func (p *Pool) processEntry(shard map[cos.PathKey]SizeRecord, entry *sourceindex.Entry) {
	defer entry.Payload.Free()

	if entry.Payload.Empty() {
		nlog.Errorf("meshsize: %s: empty payload", entry.Path)
		return
	}
	mesh, err := nif.Load(entry.Payload.Bytes())
	if err != nil {
		p.errs.Add(err)
		nlog.Errorf("meshsize: %s: %v", entry.Path, err)
		return
	}

	for _, shape := range mesh.Shapes() {
		shader := mesh.ShaderOf(shape)
		if shader == nil {
			continue
		}
		radius := shape.Bounds().Radius
		for i := 0; i < 20; i++ {
			slot := shader.TextureSlot(i)
			if slot == "" {
				continue
			}
			key := cos.FoldPath(slot)
			cur, exists := shard[key]
			if !exists || radius > cur.Radius {
				shard[key] = SizeRecord{Radius: radius, RepresentativeMesh: entry.Path}
			}
		}
	}
}

// merge combines every worker's shard into one aggregate, iterating shards
// in worker-index order and keeping the strictly-greater radius; ties go
// to the first (lowest-index) shard seen, the deterministic arbitrary
// tie-break spec.md invariant 2 permits.
func (p *Pool) merge() map[cos.PathKey]SizeRecord {
	out := make(map[cos.PathKey]SizeRecord)
	for _, shard := range p.shards {
		for key, rec := range shard {
			cur, exists := out[key]
			if !exists || rec.Radius > cur.Radius {
				out[key] = rec
			}
		}
	}
	return out
}
