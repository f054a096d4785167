package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/storage"
	"github.com/imamik/nodeprep/internal/util/retry"
)

// Deps bundles the collaborators the stages delegate to.
type Deps struct {
	Packages PackageInstaller
	Driver   DriverInstaller
	Toolkit  ToolkitConfigurer
	Validate Validator
	Fetch    Fetcher

	// NewSelector builds the storage selector against the current context.
	// Injected so the storage stage stays testable without a live host.
	NewSelector func(ctx *provisioning.Context) *storage.Selector
}

// Stages returns the provisioning stages in their declared order.
func Stages(deps Deps) []provisioning.Stage {
	return []provisioning.Stage{
		&storageStage{deps},
		&packagesStage{deps},
		&driverStage{deps},
		&toolkitStage{deps},
		&validateStage{deps},
	}
}

// storageStage backs the managed data directory with durable storage.
type storageStage struct{ deps Deps }

func (s *storageStage) Name() string                              { return "storage" }
func (s *storageStage) RequiresReboot() bool                      { return false }
func (s *storageStage) Ready(*provisioning.Context) (bool, error) { return true, nil }

func (s *storageStage) Provision(ctx *provisioning.Context) error {
	return provisioning.RunPhases(ctx, s.Name(), []provisioning.Phase{
		{
			Name: "provision-data-volume",
			// The decision re-derives itself from the mount table, so a lost
			// record heals here without touching storage again.
			SkipIf: func(ctx *provisioning.Context) (bool, error) {
				return storage.IsMountpoint(ctx, ctx.Runner, ctx.Config.MountTarget), nil
			},
			Body: func(ctx *provisioning.Context) error {
				_, err := s.deps.NewSelector(ctx).Setup(ctx)
				return err
			},
		},
		{
			Name: "data-layout",
			Body: func(ctx *provisioning.Context) error {
				for _, sub := range []string{"datasets", "models", "scratch"} {
					if err := os.MkdirAll(filepath.Join(ctx.Config.MountTarget, sub), 0o755); err != nil {
						return err
					}
				}
				return nil
			},
		},
	})
}

// packagesStage installs the base packages the driver installer needs.
type packagesStage struct{ deps Deps }

func (s *packagesStage) Name() string                              { return "base-packages" }
func (s *packagesStage) RequiresReboot() bool                      { return false }
func (s *packagesStage) Ready(*provisioning.Context) (bool, error) { return true, nil }

func (s *packagesStage) Provision(ctx *provisioning.Context) error {
	return provisioning.RunPhases(ctx, s.Name(), []provisioning.Phase{
		{
			Name: "refresh-index",
			Body: func(ctx *provisioning.Context) error {
				return retry.WithExponentialBackoff(ctx, func() error {
					return s.deps.Packages.RefreshIndex(ctx)
				}, retry.WithMaxRetries(2))
			},
		},
		{
			Name: "install-packages",
			SkipIf: func(ctx *provisioning.Context) (bool, error) {
				return s.deps.Packages.Installed(ctx, ctx.Config.BasePackages...)
			},
			Body: func(ctx *provisioning.Context) error {
				return s.deps.Packages.Install(ctx, ctx.Config.BasePackages...)
			},
		},
	})
}

// driverStage fetches, verifies and installs the GPU driver. Loading the new
// kernel module needs a reboot, so the stage is flagged accordingly and its
// readiness probe is how a resumed run proves the reboot took effect.
type driverStage struct{ deps Deps }

func (s *driverStage) Name() string         { return "gpu-driver" }
func (s *driverStage) RequiresReboot() bool { return true }

func (s *driverStage) Ready(ctx *provisioning.Context) (bool, error) {
	return s.deps.Driver.Ready(ctx)
}

func (s *driverStage) artifactPath(ctx *provisioning.Context) string {
	return filepath.Join(ctx.Config.ArtifactsDir(), "driver.run")
}

func (s *driverStage) Provision(ctx *provisioning.Context) error {
	return provisioning.RunPhases(ctx, s.Name(), []provisioning.Phase{
		{
			Name: "fetch-driver",
			Body: func(ctx *provisioning.Context) error {
				if ctx.Config.DriverURL == "" {
					return fmt.Errorf("driver_url not configured")
				}
				return s.deps.Fetch.Fetch(ctx, ctx.Config.DriverURL, ctx.Config.DriverSHA256, s.artifactPath(ctx))
			},
		},
		{
			Name: "install-driver",
			SkipIf: func(ctx *provisioning.Context) (bool, error) {
				version, err := s.deps.Driver.InstalledVersion(ctx)
				if err != nil {
					return false, err
				}
				return version != "" && (ctx.Config.DriverVersion == "" || version == ctx.Config.DriverVersion), nil
			},
			Body: func(ctx *provisioning.Context) error {
				return s.deps.Driver.Install(ctx, s.artifactPath(ctx))
			},
		},
	})
}

// toolkitStage wires the container runtime to the installed driver.
type toolkitStage struct{ deps Deps }

func (s *toolkitStage) Name() string                              { return "container-toolkit" }
func (s *toolkitStage) RequiresReboot() bool                      { return false }
func (s *toolkitStage) Ready(*provisioning.Context) (bool, error) { return true, nil }

func (s *toolkitStage) Provision(ctx *provisioning.Context) error {
	return provisioning.RunPhases(ctx, s.Name(), []provisioning.Phase{
		{
			Name:   "configure-runtime",
			SkipIf: func(ctx *provisioning.Context) (bool, error) { return s.deps.Toolkit.Configured(ctx) },
			Body:   func(ctx *provisioning.Context) error { return s.deps.Toolkit.Configure(ctx) },
		},
	})
}

// validateStage exercises every accelerator; the phase succeeds only when
// all units pass.
type validateStage struct{ deps Deps }

func (s *validateStage) Name() string                              { return "validate" }
func (s *validateStage) RequiresReboot() bool                      { return false }
func (s *validateStage) Ready(*provisioning.Context) (bool, error) { return true, nil }

func (s *validateStage) Provision(ctx *provisioning.Context) error {
	return provisioning.RunPhases(ctx, s.Name(), []provisioning.Phase{
		{
			Name: "validate-gpus",
			Body: func(ctx *provisioning.Context) error { return s.deps.Validate.ValidateAll(ctx) },
		},
	})
}

// DefaultDeps wires the shell-out collaborators for a live host.
func DefaultDeps(ctx *provisioning.Context, interactive bool, choose storage.ChooseFunc, confirm storage.ConfirmFunc) Deps {
	return Deps{
		Packages: &AptInstaller{Runner: ctx.Runner},
		Driver:   &RunfileDriverInstaller{Runner: ctx.Runner, Version: ctx.Config.DriverVersion},
		Toolkit:  &CTKConfigurer{Runner: ctx.Runner},
		Validate: &SMIValidator{Runner: ctx.Runner},
		Fetch:    NewFetcher(),
		NewSelector: func(ctx *provisioning.Context) *storage.Selector {
			return &storage.Selector{
				Config:      ctx.Config,
				Runner:      ctx.Runner,
				Observer:    ctx.Observer,
				Interactive: interactive,
				Choose:      choose,
				Confirm:     confirm,
			}
		},
	}
}
