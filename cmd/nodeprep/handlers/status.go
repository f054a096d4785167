package handlers

import (
	"errors"
	"fmt"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/node"
	"github.com/imamik/nodeprep/internal/state"
	"github.com/imamik/nodeprep/internal/ui"
)

// Status renders the persisted stage and phase records without mutating
// anything. It does not take the run lock: record files are replaced
// atomically, so a concurrent run can never expose a torn read, and the
// status query stays usable while provisioning is in flight.
func Status(configPath string) (string, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return "", err
	}
	store := state.NewStore(cfg)

	views := make([]ui.StageView, 0)
	for _, stage := range node.Stages(node.Deps{}) {
		rec, err := store.Stage(stage.Name())
		if err != nil {
			return "", err
		}
		phases, err := store.Phases(stage.Name())
		if err != nil {
			return "", err
		}
		views = append(views, ui.StageView{Record: rec, Phases: phases})
	}

	running := false
	if probe, err := state.Acquire(cfg.LockPath()); errors.Is(err, state.ErrLocked) {
		running = true
	} else if err == nil {
		probe.Release()
	}

	out := ui.RenderStatus(cfg.Hostname, views, store.SentinelExists())
	if running {
		out += fmt.Sprintln("a provisioning run is currently active")
	}
	return out, nil
}
