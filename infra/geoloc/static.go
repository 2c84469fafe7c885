package geoloc

import (
	"context"
	"sync"
	"time"

	coregeoloc "github.com/resqlink/resqlink/core/geoloc"
	"github.com/resqlink/resqlink/core/model"
)

// StaticProvider is a geoloc.Provider fed by explicit Set calls. It stands in
// for a device GPS in tests and for the CLI, where the fix comes from flags.
type StaticProvider struct {
	mu  sync.RWMutex
	loc model.Location
	set bool
}

// NewStaticProvider creates a provider with no fix.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// Set records the current fix.
func (p *StaticProvider) Set(loc model.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc.CapturedAt = time.Now()
	p.loc = loc
	p.set = true
}

// CurrentLocation returns the latest fix or ErrNoFix.
func (p *StaticProvider) CurrentLocation(_ context.Context) (model.Location, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.set {
		return model.Location{}, coregeoloc.ErrNoFix
	}
	return p.loc, nil
}

// LocationUpdates emits the current fix on every tick. Ticks without a fix
// are skipped.
func (p *StaticProvider) LocationUpdates(ctx context.Context, interval time.Duration) (<-chan model.Location, func(), error) {
	out := make(chan model.Location, 4)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				loc, err := p.CurrentLocation(ctx)
				if err != nil {
					continue
				}
				select {
				case out <- loc:
				default:
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }
	return out, cancel, nil
}
