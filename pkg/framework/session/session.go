// Package session deduplicates kernel module loading within one audio
// session. Each Session owns its own set of installed modules; nothing is
// shared between sessions.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/kernelhost/pkg/framework/debug"
	"github.com/justyntemme/kernelhost/pkg/kernel"
)

// Loader produces a module, typically by compiling or reading it.
type Loader func(ctx context.Context) (kernel.Module, error)

// Session is the install cache of one audio context.
type Session struct {
	logger *debug.Logger

	mu        sync.RWMutex
	installed map[string]kernel.Module
	group     singleflight.Group
}

// New creates an empty session. A nil logger uses the default logger.
func New(logger *debug.Logger) *Session {
	if logger == nil {
		logger = debug.Default()
	}
	return &Session{logger: logger, installed: make(map[string]kernel.Module)}
}

// Load returns the module installed under name, running loader once if it
// is not installed yet. Concurrent calls for the same name share one loader
// run, which uses the context of the first caller. A failed load is not
// cached.
func (s *Session) Load(ctx context.Context, name string, loader Loader) (kernel.Module, error) {
	if m, ok := s.Module(name); ok {
		return m, nil
	}

	ch := s.group.DoChan(name, func() (interface{}, error) {
		if m, ok := s.Module(name); ok {
			return m, nil
		}
		m, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("loader for %s returned no module", name)
		}
		s.mu.Lock()
		s.installed[name] = m
		s.mu.Unlock()
		s.logger.Debug("installed module %s", name)
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, res.Err)
		}
		return res.Val.(kernel.Module), nil
	}
}

// Module returns an installed module.
func (s *Session) Module(name string) (kernel.Module, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.installed[name]
	return m, ok
}

// Installed returns the installed names, sorted.
func (s *Session) Installed() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.installed))
	for name := range s.installed {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Forget removes name so the next Load runs its loader again.
func (s *Session) Forget(name string) {
	s.mu.Lock()
	delete(s.installed, name)
	s.mu.Unlock()
	s.group.Forget(name)
}
