package ai_test

import (
	"context"
	"sync"

	"github.com/robalyx/guildpulse/internal/ai"
)

// fakeGenerator returns canned text or an error and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ ai.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)

	return g.text, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.prompts)
}
