// Package pipeline wires framepipe stages together over a bus.
//
// Each stage runs in its own goroutine, consuming one topic and
// publishing to another. Frames are delivered to a stage strictly one at
// a time, which provides the serialization Stage.OnFrame requires, and
// subscriptions are latest-wins, so a slow stage processes the most
// recent frame rather than falling behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framepipe"
	"github.com/gogpu/framepipe/bus"
)

// ErrRunning is returned when mutating a pipeline that has been started.
var ErrRunning = errors.New("pipeline: already running")

// node is one stage with its subscription.
type node struct {
	name  string
	stage *framepipe.Stage
	recv  *bus.Receiver
}

// Pipeline runs a set of stages as bus subscribers.
type Pipeline struct {
	mu      sync.Mutex
	bus     *bus.Bus
	nodes   []*node
	running bool
}

// New creates a pipeline over the given bus.
func New(b *bus.Bus) *Pipeline {
	return &Pipeline{bus: b}
}

// AddStage registers a stage that consumes inTopic and publishes to
// outTopic. The name identifies the subscription and the stage in logs.
func (p *Pipeline) AddStage(name string, t framepipe.Transform, inTopic, outTopic string, opts ...framepipe.StageOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunning
	}
	recv, err := p.bus.Subscribe(inTopic, name)
	if err != nil {
		return fmt.Errorf("pipeline: subscribe %q on %q: %w", name, inTopic, err)
	}

	opts = append(opts, framepipe.WithStageName(name))
	p.nodes = append(p.nodes, &node{
		name:  name,
		stage: framepipe.NewStage(t, p.bus.Publisher(outTopic), opts...),
		recv:  recv,
	})
	return nil
}

// Run starts every stage loop and blocks until the context is canceled
// or the bus is closed, then waits for all loops to drain.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrRunning
	}
	p.running = true
	nodes := p.nodes
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, n := range nodes {
		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			runNode(ctx, n)
		}(n)
	}
	wg.Wait()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return ctx.Err()
}

// runNode is the serialized delivery loop for one stage.
func runNode(ctx context.Context, n *node) {
	for {
		frame, err := n.recv.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				framepipe.Logger().Debug("stage loop stopped",
					"stage", n.name, "reason", err)
			}
			return
		}
		n.stage.OnFrame(frame)
	}
}
