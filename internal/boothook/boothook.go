// Package boothook arms a systemd oneshot unit that re-invokes provisioning
// after every boot until the completion sentinel exists.
package boothook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/nodeprep/internal/provisioning"
)

const unitName = "nodeprep-resume.service"

const unitTemplate = `[Unit]
Description=Resume nodeprep provisioning after boot
After=network-online.target
Wants=network-online.target

[Service]
Type=oneshot
ExecStart=%s provision --resume --from-hook

[Install]
WantedBy=multi-user.target
`

// SystemdHook implements provisioning.Hook on systemd.
type SystemdHook struct {
	// UnitDir is where the unit file lives. Defaults to /etc/systemd/system.
	UnitDir string

	// Executable is the binary the unit invokes. Defaults to the current one.
	Executable string
}

// New returns a hook with live-host defaults.
func New() *SystemdHook {
	exe, err := os.Executable()
	if err != nil {
		exe = "/usr/local/bin/nodeprep"
	}
	return &SystemdHook{UnitDir: "/etc/systemd/system", Executable: exe}
}

func (h *SystemdHook) unitPath() string {
	return filepath.Join(h.UnitDir, unitName)
}

// Installed reports whether the unit file is present.
func (h *SystemdHook) Installed() bool {
	_, err := os.Stat(h.unitPath())
	return err == nil
}

// Install writes the unit and enables it. Idempotent: an unchanged unit file
// skips the rewrite and daemon-reload, but enable always runs so a manually
// disabled hook is re-armed.
func (h *SystemdHook) Install(ctx *provisioning.Context) error {
	content := fmt.Sprintf(unitTemplate, h.Executable)

	existing, err := os.ReadFile(h.unitPath())
	if err == nil && string(existing) == content {
		if _, err := ctx.Runner.Run(ctx, "systemctl", "enable", unitName); err != nil {
			return fmt.Errorf("enable %s: %w", unitName, err)
		}
		return nil
	}

	if err := os.MkdirAll(h.UnitDir, 0o755); err != nil {
		return err
	}
	tmp := h.unitPath() + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, h.unitPath()); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if _, err := ctx.Runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if _, err := ctx.Runner.Run(ctx, "systemctl", "enable", unitName); err != nil {
		return fmt.Errorf("enable %s: %w", unitName, err)
	}
	return nil
}

// Uninstall disables and removes the unit. Uninstalling an absent hook is a
// no-op.
func (h *SystemdHook) Uninstall(ctx *provisioning.Context) error {
	if !h.Installed() {
		return nil
	}
	if _, err := ctx.Runner.Run(ctx, "systemctl", "disable", unitName); err != nil {
		ctx.Observer.Warnf("disable %s: %v", unitName, err)
	}
	if err := os.Remove(h.unitPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if _, err := ctx.Runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}
