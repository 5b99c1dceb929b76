package audio

import (
	"context"
	"strings"
	"sync"
)

// GestureKind names a user interaction able to unlock audio.
type GestureKind string

const (
	GestureClick      GestureKind = "click"
	GestureKeydown    GestureKind = "keydown"
	GestureTouchstart GestureKind = "touchstart"
)

// UnlockGestures are the interactions that resume the tone resource.
var UnlockGestures = []GestureKind{GestureClick, GestureKeydown, GestureTouchstart}

// ParseGesture normalizes a client supplied gesture name.
func ParseGesture(value string) (GestureKind, bool) {
	kind := GestureKind(strings.ToLower(strings.TrimSpace(value)))
	for _, g := range UnlockGestures {
		if g == kind {
			return kind, true
		}
	}
	return "", false
}

// GestureListener handles a gesture dispatched by a UI surface.
type GestureListener func(ctx context.Context, kind GestureKind)

// Gestures routes user gestures to listeners.
type Gestures struct {
	mu        sync.Mutex
	next      int
	listeners map[GestureKind]map[int]GestureListener
}

// NewGestures creates an empty gesture bus.
func NewGestures() *Gestures {
	return &Gestures{listeners: make(map[GestureKind]map[int]GestureListener)}
}

// Listen registers fn for kind and returns a remover.
func (g *Gestures) Listen(kind GestureKind, fn GestureListener) func() {
	if g == nil || fn == nil {
		return func() {}
	}
	g.mu.Lock()
	id := g.next
	g.next++
	if g.listeners[kind] == nil {
		g.listeners[kind] = make(map[int]GestureListener)
	}
	g.listeners[kind][id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners[kind], id)
			g.mu.Unlock()
		})
	}
}

// Dispatch invokes the listeners registered for kind.
func (g *Gestures) Dispatch(ctx context.Context, kind GestureKind) {
	if g == nil {
		return
	}
	g.mu.Lock()
	targets := make([]GestureListener, 0, len(g.listeners[kind]))
	for _, fn := range g.listeners[kind] {
		targets = append(targets, fn)
	}
	g.mu.Unlock()
	for _, fn := range targets {
		fn(ctx, kind)
	}
}

// Len reports listeners registered across all kinds.
func (g *Gestures) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, set := range g.listeners {
		total += len(set)
	}
	return total
}
