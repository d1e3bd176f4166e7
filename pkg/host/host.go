package host

import (
	"context"
	"sync"
)

// InfoHandler answers an information query. It receives the result produced
// so far (nil when none) and returns the result to pass on.
type InfoHandler func(ctx context.Context, result *PluginInformation, action string, args InfoArgs) *PluginInformation

// UpdateHandler inspects and returns the update transient.
type UpdateHandler func(ctx context.Context, transient *Transient) *Transient

// Host is the registration surface a plugin host exposes to updaters.
type Host interface {
	// OnQueryInfo registers a handler for plugin information queries.
	OnQueryInfo(h InfoHandler)

	// OnCheckUpdate registers a handler for the periodic update scan.
	OnCheckUpdate(h UpdateHandler)

	// Environment returns the host description.
	Environment() Environment
}

// Registry is an in-process Host. Handlers run in registration order and
// each receives the previous handler's output.
type Registry struct {
	env Environment

	mu     sync.RWMutex
	info   []InfoHandler
	update []UpdateHandler
}

// NewRegistry creates an empty Registry for env.
func NewRegistry(env Environment) *Registry {
	return &Registry{env: env}
}

// OnQueryInfo implements Host.
func (r *Registry) OnQueryInfo(h InfoHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = append(r.info, h)
}

// OnCheckUpdate implements Host.
func (r *Registry) OnCheckUpdate(h UpdateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.update = append(r.update, h)
}

// Environment implements Host.
func (r *Registry) Environment() Environment {
	return r.env
}

// QueryInfo runs the information chain, starting from a nil result.
func (r *Registry) QueryInfo(ctx context.Context, action string, args InfoArgs) *PluginInformation {
	r.mu.RLock()
	handlers := append([]InfoHandler(nil), r.info...)
	r.mu.RUnlock()

	var result *PluginInformation
	for _, h := range handlers {
		result = h(ctx, result, action, args)
	}
	return result
}

// CheckUpdate runs the update chain over transient.
func (r *Registry) CheckUpdate(ctx context.Context, transient *Transient) *Transient {
	r.mu.RLock()
	handlers := append([]UpdateHandler(nil), r.update...)
	r.mu.RUnlock()

	for _, h := range handlers {
		transient = h(ctx, transient)
	}
	return transient
}

// Handlers returns the number of registered info and update handlers.
func (r *Registry) Handlers() (info, update int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.info), len(r.update)
}
