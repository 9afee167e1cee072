// Package xstats is the run-observability collaborator: a Prometheus
// CounterVec/GaugeVec tracking meshes/textures remaining, skipped, and
// failed, a once-per-second disk I/O sampler, and a shortid-generated run
// ID attached to every log line (SPEC_FULL.md §4.6, mirroring the
// teacher's ext/dsort ManagerUUID run-correlation convention).
//
// These counters are never exposed over HTTP: spec.md §7 explicitly rules
// out a machine-readable report, so client_golang's registry here is used
// purely as an in-process counting structure, read back only for the final
// plain-text summary line.
package xstats

import (
	"fmt"
	"time"

	"github.com/lufia/iostat"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/teris-io/shortid"

	"github.com/texopt/texopt/internal/nlog"
)

// Stage names used as the CounterVec/GaugeVec "stage" label.
const (
	StageMesh    = "mesh"
	StageTexture = "texture"
)

// Stats holds every counter this run tracks, plus the disk I/O sampler.
type Stats struct {
	runID string

	remaining *prometheus.GaugeVec
	skipped   *prometheus.CounterVec
	failed    *prometheus.CounterVec

	diskStop chan struct{}
	diskDone chan struct{}
}

// New creates a fresh run's stats, generating a shortid run ID for log
// correlation (mirroring the teacher's ManagerUUID convention).
func New() *Stats {
	id, err := shortid.Generate()
	if err != nil {
		id = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	nlog.SetRunID(id)

	return &Stats{
		runID: id,
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "texopt_items_remaining",
			Help: "items left to process in the current stage",
		}, []string{"stage"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "texopt_items_skipped_total",
			Help: "items skipped via sidecar cache hit",
		}, []string{"stage"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "texopt_items_failed_total",
			Help: "items that failed parse/decode/encode",
		}, []string{"stage"}),
	}
}

func (s *Stats) RunID() string { return s.runID }

func (s *Stats) SetRemaining(stage string, n int) { s.remaining.WithLabelValues(stage).Set(float64(n)) }
func (s *Stats) IncSkipped(stage string)           { s.skipped.WithLabelValues(stage).Inc() }
func (s *Stats) IncFailed(stage string)            { s.failed.WithLabelValues(stage).Inc() }

func (s *Stats) skippedValue(stage string) float64 { return counterValue(s.skipped.WithLabelValues(stage)) }
func (s *Stats) failedValue(stage string) float64  { return counterValue(s.failed.WithLabelValues(stage)) }

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Summary renders the final plain-text line for a stage: its skipped and
// failed counts. The remaining-items gauge is not part of it
// (spec.md §7: "no machine-readable report").
func (s *Stats) Summary(stage string) string {
	return fmt.Sprintf("%s: %d skipped, %d failed", stage, int(s.skippedValue(stage)), int(s.failedValue(stage)))
}

var diskPollInterval = time.Second

// StartDiskSampling samples disk I/O counters once per second while the
// pipeline runs, logging at V(2) (SPEC_FULL.md §4.6). It degrades silently
// if the platform sampler is unavailable.
func (s *Stats) StartDiskSampling() {
	s.diskStop = make(chan struct{})
	s.diskDone = make(chan struct{})
	go func() {
		defer close(s.diskDone)
		for {
			select {
			case <-s.diskStop:
				return
			case <-time.After(diskPollInterval):
				if !nlog.V(2) {
					continue
				}
				drives, err := iostat.ReadDriveStats()
				if err != nil {
					continue
				}
				for _, d := range drives {
					nlog.InfoDepth(0, fmt.Sprintf("[%s] disk %s: reads=%d writes=%d", s.runID, d.Name, d.ReadCount, d.WriteCount))
				}
			}
		}
	}()
}

// StopDiskSampling halts the background sampler goroutine.
func (s *Stats) StopDiskSampling() {
	if s.diskStop == nil {
		return
	}
	close(s.diskStop)
	<-s.diskDone
}
