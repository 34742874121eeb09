package sim

import (
	"log"
	"sort"
	"strings"
)

// A Bundle is a named set of signals. Names are hierarchical, with dots
// separating the scopes, as in "mem.raddr".
type Bundle struct {
	engine  Engine
	prefix  string
	signals map[string]*Signal
}

// NewBundle creates an empty bundle whose signals are driven on the engine.
func NewBundle(engine Engine) *Bundle {
	return &Bundle{
		engine:  engine,
		signals: make(map[string]*Signal),
	}
}

func (b *Bundle) fullName(name string) string {
	if b.prefix == "" {
		return name
	}

	return b.prefix + "." + name
}

// Add creates a signal under the bundle's scope. Adding a name twice panics.
func (b *Bundle) Add(name string, width int) *Signal {
	full := b.fullName(name)
	if _, found := b.signals[full]; found {
		log.Panicf("signal %s already exists", full)
	}

	s := NewSignal(b.engine, full, width)
	b.signals[full] = s

	return s
}

// Alias makes an existing signal also reachable under another name. It
// models two ports wired to the same net.
func (b *Bundle) Alias(name string, s *Signal) {
	full := b.fullName(name)
	if _, found := b.signals[full]; found {
		log.Panicf("signal %s already exists", full)
	}

	b.signals[full] = s
}

// Signal looks up a signal by its name relative to the bundle's scope.
func (b *Bundle) Signal(name string) (*Signal, bool) {
	s, found := b.signals[b.fullName(name)]
	return s, found
}

// MustSignal looks up a signal and panics if it does not exist.
func (b *Bundle) MustSignal(name string) *Signal {
	s, found := b.Signal(name)
	if !found {
		log.Panicf("signal %s not found", b.fullName(name))
	}

	return s
}

// Scope returns a view of the bundle in which names are relative to the
// given sub-scope. Signals added to the view are shared with the bundle.
func (b *Bundle) Scope(name string) *Bundle {
	return &Bundle{
		engine:  b.engine,
		prefix:  b.fullName(name),
		signals: b.signals,
	}
}

// Names returns the sorted names of all the signals under the bundle's
// scope, relative to the scope.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.signals))

	for full := range b.signals {
		if b.prefix == "" {
			names = append(names, full)
			continue
		}

		if strings.HasPrefix(full, b.prefix+".") {
			names = append(names, strings.TrimPrefix(full, b.prefix+"."))
		}
	}

	sort.Strings(names)

	return names
}
