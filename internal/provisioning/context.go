package provisioning

import (
	"context"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/platform/execx"
	"github.com/imamik/nodeprep/internal/state"
)

// Context wraps the dependencies shared by every stage and phase of a run.
type Context struct {
	context.Context
	Config   *config.Config
	Store    *state.Store
	Runner   execx.Runner
	Observer Observer

	// Interactive allows prompts (device choice, fallback confirmation).
	// False in automated mode.
	Interactive bool

	// FromHook marks an invocation triggered by the boot resume hook or a
	// parent orchestrator; it suppresses the interactive reboot confirmation.
	FromHook bool
}

// NewContext assembles a provisioning context.
func NewContext(ctx context.Context, cfg *config.Config, store *state.Store, runner execx.Runner, obs Observer) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Store:    store,
		Runner:   runner,
		Observer: obs,
	}
}
