// Package runner owns the live world: it drives the tick loop, executes
// queued agent batches, and periodically publishes observations to the
// bridge. It is the only writer of the world value.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"citymayor.ai/internal/bridge"
	"citymayor.ai/internal/persistence/obslog"
	"citymayor.ai/internal/protocol"
	"citymayor.ai/internal/sim/citysim"
	"citymayor.ai/internal/sim/executor"
	"citymayor.ai/internal/sim/grid"
	"citymayor.ai/internal/sim/observe"
)

// Metrics is a point-in-time snapshot for the /metrics endpoint.
type Metrics struct {
	Tick           uint64
	Speed          int
	Money          int
	QueueDepth     int
	Subscribers    int
	StepMS         float64
	BatchesApplied uint64
}

type Runner struct {
	bridge *bridge.Bridge
	log    *log.Logger

	tickInterval time.Duration
	publishEvery uint64

	archive *obslog.Writer // optional

	mu             sync.Mutex
	world          *grid.World
	lastStepMS     float64
	batchesApplied uint64
}

func New(w *grid.World, b *bridge.Bridge, tickInterval time.Duration, publishEvery int, logger *log.Logger) *Runner {
	if publishEvery <= 0 {
		publishEvery = 20
	}
	return &Runner{
		bridge:       b,
		log:          logger,
		tickInterval: tickInterval,
		publishEvery: uint64(publishEvery),
		world:        w,
	}
}

// SetArchive attaches the optional observation archive.
func (r *Runner) SetArchive(w *obslog.Writer) { r.archive = w }

// World returns the current world value. Callers must treat it as
// read-only.
func (r *Runner) World() *grid.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world
}

func (r *Runner) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Metrics{
		Tick:           r.world.Tick,
		Speed:          r.world.Speed,
		Money:          r.world.Money,
		QueueDepth:     r.bridge.QueueLen(),
		Subscribers:    r.bridge.Stream().Subscribers(),
		StepMS:         r.lastStepMS,
		BatchesApplied: r.batchesApplied,
	}
}

// Run blocks until ctx is done. Each iteration drains the whole batch
// queue, advances the world by its speed, and publishes an observation
// every publishEvery ticks of progress. A drained batch always forces a
// publish, even when the world is paused: seeing the (possibly
// unchanged) world on the next observation is the agent's only
// confirmation that its batch was processed.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	r.publish()

	var lastPublished uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		start := time.Now()

		r.mu.Lock()
		world := r.world
		r.mu.Unlock()

		applied := false
		for {
			batch, ok := r.bridge.DequeueBatch()
			if !ok {
				break
			}
			world = executor.Apply(world, batch, citysim.Step)
			r.announceBatch(batch)
			applied = true
			r.mu.Lock()
			r.batchesApplied++
			r.mu.Unlock()
		}

		for i := 0; i < world.Speed; i++ {
			world = citysim.Step(world)
		}

		r.mu.Lock()
		r.world = world
		r.lastStepMS = float64(time.Since(start).Microseconds()) / 1000
		r.mu.Unlock()

		if applied || world.Tick >= lastPublished+r.publishEvery {
			r.publish()
			lastPublished = world.Tick
		}
	}
}

func (r *Runner) publish() {
	r.mu.Lock()
	world := r.world
	r.mu.Unlock()

	obs := observe.Build(world)
	r.bridge.SetObservation(obs)

	if r.archive != nil {
		if err := r.archive.Append(obs); err != nil {
			r.log.Printf("obs archive: %v", err)
		}
	}
}

// announceBatch posts a short action summary to the public chat log so
// watchers can follow along.
func (r *Runner) announceBatch(batch protocol.Batch) {
	summary := fmt.Sprintf("applied %d action(s)", len(batch.Actions))
	if batch.Reason != "" {
		summary = fmt.Sprintf("%s: %s", summary, batch.Reason)
	}
	r.bridge.AddMessage(protocol.MsgAction, summary)
}
