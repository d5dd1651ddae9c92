package arbiter

import (
	"context"

	"github.com/zoobzio/zyn"
)

// Provider is the generative text boundary used by stages 2-5. It matches
// the zyn.Provider interface, so any zyn provider plugs in directly.
//
// Unlike a lazily-constructed client singleton, a Provider is explicitly
// constructed and injected into the engine at construction time; its
// lifecycle (creation, refresh, teardown) is owned by the composition
// root.
type Provider interface {
	Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error)
	Name() string
}
