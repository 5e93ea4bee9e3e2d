package connect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/handleid"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// sourceAt places a node whose output handle sits at (x+200, y+50).
func sourceAt(id string, x, y float64) *model.Node {
	out := testutil.Out("out", cty.String)
	out.Offset = model.Position{X: 200, Y: 50}
	n := testutil.Node(id, out)
	n.Position = model.Position{X: x, Y: y}
	return n
}

// targetAt places a node whose input handle sits at (x, y+50).
func targetAt(id string, x, y float64) *model.Node {
	in := testutil.In("in", cty.String)
	in.Offset = model.Position{X: 0, Y: 50}
	n := testutil.Node(id, in)
	n.Position = model.Position{X: x, Y: y}
	return n
}

func testProximityConfig() config.Proximity {
	return config.Proximity{
		Interval:     5 * time.Millisecond,
		Threshold:    32,
		Radius:       500,
		ReleaseGrace: 20 * time.Millisecond,
	}
}

func TestClosestPair(t *testing.T) {
	nodes := []*model.Node{
		sourceAt("src", 0, 0),
		targetAt("near", 210, 0),
		targetAt("nearer", 205, 0),
		targetAt("far", 260, 0),
	}

	t.Run("picks the closest pair", func(t *testing.T) {
		pair, ok := ClosestPair(nodes, map[string]bool{"src": true}, 32, nil)
		require.True(t, ok)
		assert.Equal(t, "nearer", pair.Target.NodeID)
		assert.InDelta(t, 5.0, pair.Distance, 1e-9)
	})

	t.Run("accept filters candidates", func(t *testing.T) {
		pair, ok := ClosestPair(nodes, map[string]bool{"src": true}, 32, func(_, dst handleid.Address) bool {
			return dst.NodeID != "nearer"
		})
		require.True(t, ok)
		assert.Equal(t, "near", pair.Target.NodeID)
	})

	t.Run("ignores pairs between idle nodes", func(t *testing.T) {
		_, ok := ClosestPair(nodes, map[string]bool{"far": true}, 32, func(_, dst handleid.Address) bool {
			return dst.NodeID == "nearer"
		})
		assert.False(t, ok)
	})
}

func TestProximityThreshold(t *testing.T) {
	testCases := []struct {
		name     string
		distance float64
		want     bool
	}{
		{"31px connects", 31, true},
		{"32px connects", 32, true},
		{"33px does not connect", 33, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nodes := []*model.Node{sourceAt("src", 0, 0), targetAt("dst", 200+tc.distance, 0)}
			engine, store, _ := newTestEngine(t, nodes, nil)
			ctx, _ := testutil.Context(t)
			p := NewProximity(ctx, engine, testProximityConfig())
			defer p.Close()

			p.mu.Lock()
			p.modifier = true
			p.dragging["src"] = true
			p.mu.Unlock()

			_, ok := p.Check()
			assert.Equal(t, tc.want, ok)
			assert.Equal(t, tc.want, len(store.Edges()) == 1)
		})
	}
}

func TestProximity_SkipsCyclicPairs(t *testing.T) {
	a := sourceAt("a", 0, 0)
	a.Data.Handles.Input = []model.Handle{testutil.In("in", cty.String)}
	b := targetAt("b", 220, 0)
	b.Data.Handles.Output = []model.Handle{testutil.Out("out", cty.String)}

	engine, store, _ := newTestEngine(t, []*model.Node{a, b}, []*model.Edge{testutil.Link("b", "a")})
	ctx, _ := testutil.Context(t)
	p := NewProximity(ctx, engine, testProximityConfig())
	defer p.Close()

	p.mu.Lock()
	p.modifier = true
	p.dragging["a"] = true
	p.mu.Unlock()

	_, ok := p.Check()
	assert.False(t, ok)
	assert.Len(t, store.Edges(), 1)
}

func TestProximity_Gesture(t *testing.T) {
	nodes := []*model.Node{sourceAt("src", 0, 0), targetAt("dst", 220, 0), targetAt("other", 215, 400)}
	engine, store, _ := newTestEngine(t, nodes, nil)
	ctx, _ := testutil.Context(t)
	p := NewProximity(ctx, engine, testProximityConfig())
	defer p.Close()

	p.DragStart("src")
	assert.False(t, p.Active(), "dragging without the modifier does nothing")

	p.ModifierDown()
	assert.True(t, p.Active())
	require.Eventually(t, func() bool { return len(store.Edges()) == 1 }, time.Second, time.Millisecond)

	// The loop keeps running: moving the dragged node near another input
	// makes a second connection in the same gesture.
	require.NoError(t, store.MoveNode("src", model.Position{X: 0, Y: 400}))
	require.Eventually(t, func() bool { return len(store.Edges()) == 2 }, time.Second, time.Millisecond)

	p.ModifierUp()
	assert.False(t, p.Active())
}

func TestProximity_ReleaseGrace(t *testing.T) {
	engine, _, _ := newTestEngine(t, []*model.Node{sourceAt("src", 0, 0)}, nil)
	ctx, _ := testutil.Context(t)
	p := NewProximity(ctx, engine, testProximityConfig())
	defer p.Close()

	p.DragStart("src")
	p.DragEnd()
	p.ModifierDown()
	assert.True(t, p.Active(), "modifier pressed within the grace period still activates")

	require.Eventually(t, func() bool { return !p.Active() }, time.Second, time.Millisecond)
}

func TestProximity_BlurAndHiddenReset(t *testing.T) {
	engine, _, _ := newTestEngine(t, []*model.Node{sourceAt("src", 0, 0)}, nil)
	ctx, _ := testutil.Context(t)
	p := NewProximity(ctx, engine, testProximityConfig())
	defer p.Close()

	for name, reset := range map[string]func(){"blur": p.Blur, "hidden": p.Hidden} {
		t.Run(name, func(t *testing.T) {
			p.DragStart("src")
			p.ModifierDown()
			require.True(t, p.Active())

			reset()
			assert.False(t, p.Active())

			// The modifier flag was cleared too: a new drag alone stays idle.
			p.DragStart("src")
			assert.False(t, p.Active())
			p.DragEnd()
		})
	}
}
