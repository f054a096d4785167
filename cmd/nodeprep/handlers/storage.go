package handlers

import (
	"context"
	"errors"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/node"
	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/state"
)

// StorageOptions carries the storage command's flags.
type StorageOptions struct {
	ConfigPath string
	Yes        bool
	Device     string
	Pool       string
}

// Storage runs the storage stage alone: resolve a backing source for the
// data directory and materialize it. Useful for preparing storage ahead of
// a full provisioning run; the later run observes the satisfied target and
// skips the work.
func Storage(ctx context.Context, opts StorageOptions) error {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Device != "" {
		cfg.PinnedDevice = opts.Device
		cfg.PinnedPool = ""
	}
	if opts.Pool != "" {
		cfg.PinnedPool = opts.Pool
		cfg.PinnedDevice = ""
	}

	if err := checkPreflight(); err != nil {
		return err
	}

	lock, err := state.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	obs, closeObs, err := newObserver(cfg.Hostname, cfg.EventLogPath())
	if err != nil {
		return err
	}
	defer closeObs()

	pctx := provisioning.NewContext(ctx, cfg, state.NewStore(cfg), newRunner(), obs)
	pctx.Interactive = !opts.Yes && isTerminal()

	stages := node.Stages(newDeps(pctx, pctx.Interactive))
	for _, stage := range stages {
		if stage.Name() != "storage" {
			continue
		}
		rec, err := pctx.Store.Stage(stage.Name())
		if err != nil {
			return err
		}
		if rec.Status == state.StageComplete {
			obs.Event(provisioning.Event{
				Type: provisioning.EventStageSkipped, Unit: stage.Name(),
				Severity: provisioning.SeverityInfo, Message: "already complete, skipped",
			})
			return nil
		}
		if err := pctx.Store.SetStage(stage.Name(), state.StageRunning); err != nil {
			return err
		}
		if err := stage.Provision(pctx); err != nil {
			if perr := pctx.Store.SetStage(stage.Name(), state.StageFailed); perr != nil {
				obs.Warnf("recording failure: %v", perr)
			}
			return err
		}
		return pctx.Store.SetStage(stage.Name(), state.StageComplete)
	}
	return errors.New("storage stage not found")
}
