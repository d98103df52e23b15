// Package screens holds the storefront's screen controllers. A controller is a dependency
// tuple, a Reconcile function that turns a dependency change into effects, pure view builders
// over a store snapshot, and handlers for user actions. Nothing here performs I/O.
package screens

import (
	"fmt"
	"strings"
	"sync"

	"finitefield.org/hanko-storefront/internal/effects"
)

// Lifecycle remembers the dependencies of the last reconcile pass of one mounted screen.
// Mount forgets them so the next pass behaves like a first render.
type Lifecycle[D comparable] struct {
	mu   sync.Mutex
	prev *D
}

// Mount starts a new screen instance.
func (l *Lifecycle[D]) Mount() {
	l.mu.Lock()
	l.prev = nil
	l.mu.Unlock()
}

// Pass records cur and calls reconcile with the previous dependencies.
func (l *Lifecycle[D]) Pass(cur D, reconcile func(prev *D, cur D) []effects.Effect) []effects.Effect {
	l.mu.Lock()
	prev := l.prev
	next := cur
	l.prev = &next
	l.mu.Unlock()
	return reconcile(prev, cur)
}

func unchanged[D comparable](prev *D, cur D) bool {
	return prev != nil && *prev == cur
}

// ValidationError lists form fields that failed the required check. Nothing is dispatched
// when it is returned.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Has reports whether the named field failed.
func (e *ValidationError) Has(field string) bool {
	if e == nil {
		return false
	}
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
