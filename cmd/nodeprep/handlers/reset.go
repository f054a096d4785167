package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/state"
	"github.com/imamik/nodeprep/internal/ui"
)

var confirmReset = func() (bool, error) {
	return ui.Confirm("Clear all provisioning state? The next run re-provisions from scratch.")
}

// Reset clears every persisted record, the completion sentinel and the boot
// resume hook. Installed software, the data volume and its mount-table entry
// are deliberately left alone; removing those is a manual operation.
func Reset(ctx context.Context, configPath string, yes bool) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	if !yes && isTerminal() {
		ok, err := confirmReset()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
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

	store := state.NewStore(cfg)
	if err := store.Reset(); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}

	pctx := provisioning.NewContext(ctx, cfg, store, newRunner(), obs)
	if err := newHook().Uninstall(pctx); err != nil {
		obs.Warnf("removing resume hook: %v", err)
	}
	fmt.Println("Provisioning state cleared.")
	return nil
}
