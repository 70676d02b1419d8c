// Package useragent provides a randomized User-Agent header source.
//
// A single Generator is shared by every request of a harvest run. Calls may
// come from any goroutine and carry no ordering guarantees.
package useragent

import (
	"math/rand/v2"
	"sync"
)

// Provider supplies a User-Agent header value for each outbound request.
type Provider interface {
	Random() string
}

// defaultAgents is a small pool of current desktop browser identities.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
}

// Generator picks a random entry from a fixed pool of User-Agent strings.
type Generator struct {
	mu     sync.Mutex
	agents []string
	rng    *rand.Rand
}

// New creates a generator over agents. An empty pool falls back to the
// built-in browser list.
func New(agents ...string) *Generator {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	pool := make([]string, len(agents))
	copy(pool, agents)

	return &Generator{
		agents: pool,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeeded creates a deterministic generator, used in tests.
func NewSeeded(seed uint64, agents ...string) *Generator {
	g := New(agents...)
	g.rng = rand.New(rand.NewPCG(seed, seed))
	return g
}

// Random returns one User-Agent string.
func (g *Generator) Random() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agents[g.rng.IntN(len(g.agents))]
}

// Static always returns the same value.
type Static string

// Random implements Provider.
func (s Static) Random() string { return string(s) }
