package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/nodeflow/internal/ctxlog"
)

// State is the lifecycle of a Loader.
type State int

const (
	StateInitial State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher retrieves the flat price list.
type Fetcher interface {
	GetModelPrices(ctx context.Context) ([]ModelPrice, error)
}

// Loader fetches the price list once and freezes the resulting Maps.
// Concurrent callers of Load share a single fetch. A failed fetch moves the
// loader to StateError; the next Load retries.
type Loader struct {
	fetcher      Fetcher
	defaultPrice float64
	logger       *slog.Logger

	mu    sync.Mutex
	state State
	maps  *Maps
	err   error
	done  chan struct{}
}

// NewLoader creates a loader in StateInitial.
func NewLoader(ctx context.Context, fetcher Fetcher, defaultPrice float64) *Loader {
	return &Loader{
		fetcher:      fetcher,
		defaultPrice: defaultPrice,
		logger:       ctxlog.FromContext(ctx).With("component", "pricing"),
	}
}

// Load returns the price maps, fetching them on first use.
func (l *Loader) Load(ctx context.Context) (*Maps, error) {
	l.mu.Lock()
	switch l.state {
	case StateLoaded:
		m := l.maps
		l.mu.Unlock()
		return m, nil
	case StateLoading:
		done := l.done
		l.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.maps, l.err
	}

	l.state = StateLoading
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	l.logger.Debug("Loading model prices.")
	prices, err := l.fetcher.GetModelPrices(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(done)
	if err != nil {
		l.state = StateError
		l.err = fmt.Errorf("failed to load model prices: %w", err)
		l.logger.Error("Model prices could not be loaded.", "error", err)
		return nil, l.err
	}
	l.state = StateLoaded
	l.maps = NewMaps(prices, l.defaultPrice)
	l.err = nil
	l.logger.Debug("Model prices loaded.", "models", len(prices))
	return l.maps, nil
}

// State reports the loader state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Maps returns the loaded maps, if any.
func (l *Loader) Maps() (*Maps, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maps, l.state == StateLoaded
}
