package api

import (
	"context"
	"sync"

	"github.com/samcharles93/nmtdecode/internal/inference"
)

type EngineProvider interface {
	WithEngine(ctx context.Context, fn func(engine inference.Engine) error) error
}

// LockedEngineProvider hands out a single engine to one caller at a time.
type LockedEngineProvider struct {
	engine inference.Engine
	mu     sync.Mutex
}

func NewLockedEngineProvider(engine inference.Engine) *LockedEngineProvider {
	return &LockedEngineProvider{engine: engine}
}

func (p *LockedEngineProvider) WithEngine(ctx context.Context, fn func(engine inference.Engine) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(p.engine)
}

func (p *LockedEngineProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Close()
}
