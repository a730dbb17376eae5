// Package question produces trivia questions from a registry of generators
// backed by a static fact pack.
package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/victornm/trivia/internal/domain"
)

var ErrEmptyRegistry = errors.New("question: registry is empty")

type Config struct {
	Facts *Facts
	// Registry defaults to DefaultRegistry.
	Registry []Generator
	// Rand defaults to a randomly seeded PCG source.
	Rand *rand.Rand
}

type Source struct {
	facts    *Facts
	registry []Generator

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSource(c Config) *Source {
	s := &Source{
		facts:    c.Facts,
		registry: c.Registry,
		rnd:      c.Rand,
	}

	if s.facts == nil {
		s.facts = &Facts{}
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return s
}

// Produce builds a question from the generator at forced, or from a
// uniformly random generator when forced is nil or out of range.
func (s *Source) Produce(ctx context.Context, forced *int) (domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return domain.Question{}, err
	}

	if len(s.registry) == 0 {
		return domain.Question{}, ErrEmptyRegistry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.rnd.IntN(len(s.registry))
	if forced != nil && *forced >= 0 && *forced < len(s.registry) {
		i = *forced
	}

	g := s.registry[i]
	q, err := g.Generate(s.rnd, s.facts)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question: generate %s: %w", g.Name, err)
	}
	if len(q.Answers) == 0 {
		return domain.Question{}, fmt.Errorf("question: generate %s: %w", g.Name, ErrNoFacts)
	}

	q.Generator = g.Name
	return q, nil
}

// Names returns the generator names in registry order; the position of a
// name is the index accepted by Produce.
func (s *Source) Names() []string {
	names := make([]string, 0, len(s.registry))
	for _, g := range s.registry {
		names = append(names, g.Name)
	}

	return names
}
