package connect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/handleid"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/scheduler"
)

// Pair is a candidate connection found by ClosestPair.
type Pair struct {
	Source   handleid.Address
	Target   handleid.Address
	Distance float64
}

// ClosestPair returns the closest output/input pair on different nodes whose
// handles are at most threshold apart. At least one side of the pair must
// belong to a dragging node. accept filters candidates; a nil accept admits
// every pair. Ties keep the first pair found in node order.
func ClosestPair(nodes []*model.Node, dragging map[string]bool, threshold float64, accept func(src, dst handleid.Address) bool) (Pair, bool) {
	var best Pair
	found := false

	for _, from := range nodes {
		if from.Data == nil {
			continue
		}
		for _, out := range from.Data.Handles.Output {
			outPos := from.HandlePosition(out)
			for _, to := range nodes {
				if to.ID == from.ID || to.Data == nil {
					continue
				}
				if !dragging[from.ID] && !dragging[to.ID] {
					continue
				}
				for _, in := range to.Data.Handles.Input {
					d := outPos.Distance(to.HandlePosition(in))
					if d > threshold || (found && d >= best.Distance) {
						continue
					}
					src := handleid.Source(from.ID, out.Key)
					dst := handleid.Target(to.ID, in.Key)
					if accept != nil && !accept(src, dst) {
						continue
					}
					best = Pair{Source: src, Target: dst, Distance: d}
					found = true
				}
			}
		}
	}
	return best, found
}

// Proximity implements the modifier-drag auto-connect gesture.
//
// The check loop runs only while the modifier is held and at least one node
// is being dragged. Losing focus or visibility resets both flags
// unconditionally so the loop can never stay stuck on.
type Proximity struct {
	engine *Engine
	cfg    config.Proximity
	logger *slog.Logger

	mu       sync.Mutex
	modifier bool
	dragging map[string]bool
	grace    *time.Timer
	interval *scheduler.Interval
}

// NewProximity creates an idle proximity connector.
func NewProximity(ctx context.Context, engine *Engine, cfg config.Proximity) *Proximity {
	p := &Proximity{
		engine:   engine,
		cfg:      cfg,
		logger:   ctxlog.FromContext(ctx).With("component", "proximity"),
		dragging: make(map[string]bool),
	}
	p.interval = scheduler.NewInterval(cfg.Interval, func() { p.Check() })
	return p
}

// ModifierDown records that the auto-connect modifier is held.
func (p *Proximity) ModifierDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modifier = true
	p.syncLocked()
}

// ModifierUp stops the check loop. An ongoing drag stays tracked so pressing
// the modifier again resumes checking.
func (p *Proximity) ModifierUp() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modifier = false
	p.syncLocked()
}

// DragStart marks the given nodes as being dragged.
func (p *Proximity) DragStart(nodeIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopGraceLocked()
	for _, id := range nodeIDs {
		p.dragging[id] = true
	}
	p.syncLocked()
}

// DragEnd ends the drag after the release grace period, which leaves room for
// a modifier pressed just after the pointer was released.
func (p *Proximity) DragEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopGraceLocked()
	if p.cfg.ReleaseGrace <= 0 {
		p.clearDragLocked()
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(p.cfg.ReleaseGrace, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.grace != timer {
			return
		}
		p.grace = nil
		p.clearDragLocked()
	})
	p.grace = timer
}

// Blur resets the gesture when the window loses focus.
func (p *Proximity) Blur() {
	p.reset("blur")
}

// Hidden resets the gesture when the editor becomes invisible.
func (p *Proximity) Hidden() {
	p.reset("hidden")
}

// Active reports whether the check loop is running.
func (p *Proximity) Active() bool {
	return p.interval.Running()
}

// Close stops the loop and waits for an in-flight check to finish.
func (p *Proximity) Close() {
	p.reset("close")
	p.interval.Wait()
}

func (p *Proximity) reset(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopGraceLocked()
	p.modifier = false
	p.dragging = make(map[string]bool)
	p.syncLocked()
	p.logger.Debug("Proximity state reset.", "reason", reason)
}

// Check samples the handles around the dragged nodes and connects the closest
// eligible pair, if any.
func (p *Proximity) Check() (*model.Edge, bool) {
	p.mu.Lock()
	if !p.modifier || len(p.dragging) == 0 {
		p.mu.Unlock()
		return nil, false
	}
	dragging := make(map[string]bool, len(p.dragging))
	for id := range p.dragging {
		dragging[id] = true
	}
	p.mu.Unlock()

	nodes := p.neighbourhood(dragging)
	pair, ok := ClosestPair(nodes, dragging, p.cfg.Threshold, func(src, dst handleid.Address) bool {
		return p.engine.CanConnect(src, dst) && !p.engine.WouldConnectionResultInCycle(src.NodeID, dst.NodeID)
	})
	if !ok {
		return nil, false
	}

	edge, ok := p.engine.connect(originProximity, pair.Source, pair.Target)
	if ok {
		p.logger.Debug("Proximity connection made.", "source", pair.Source.String(), "target", pair.Target.String(), "distance", pair.Distance)
	}
	return edge, ok
}

// neighbourhood returns the nodes within the configured radius of any
// dragged node, dragged nodes included, in store order.
func (p *Proximity) neighbourhood(dragging map[string]bool) []*model.Node {
	all := p.engine.store.Nodes()

	var anchors []model.Position
	for _, n := range all {
		if dragging[n.ID] {
			anchors = append(anchors, n.Position)
		}
	}

	var near []*model.Node
	for _, n := range all {
		if dragging[n.ID] {
			near = append(near, n)
			continue
		}
		for _, a := range anchors {
			if n.Position.Distance(a) <= p.cfg.Radius {
				near = append(near, n)
				break
			}
		}
	}
	return near
}

func (p *Proximity) clearDragLocked() {
	p.dragging = make(map[string]bool)
	p.syncLocked()
}

func (p *Proximity) stopGraceLocked() {
	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
}

func (p *Proximity) syncLocked() {
	if p.modifier && len(p.dragging) > 0 {
		p.interval.Start()
		return
	}
	p.interval.Stop()
}
