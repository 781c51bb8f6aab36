package execution

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"lucy/internal/routing"
)

// collector records outcomes in the order they complete.
type collector struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (c *collector) add(o outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

// runParallel fans out one task per target and joins on all of them. Tasks
// never return an error to the group, so one failure does not cancel its
// siblings; the request context still cancels everything.
func (e *Engine) runParallel(ctx context.Context, decision routing.Decision, query string, qctx map[string]any) []outcome {
	var g errgroup.Group
	c := &collector{}
	for _, d := range decision.Targets() {
		g.Go(func() error {
			c.add(e.invoke(ctx, d, decision.Strategy, query, qctx))
			return nil
		})
	}
	_ = g.Wait()
	return c.outcomes
}
