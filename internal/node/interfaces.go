// Package node defines the provisioning stages for a bare-metal GPU compute
// node and the collaborator interfaces their phase bodies call.
//
// The stage bodies own ordering and idempotence bookkeeping; the domain
// work (package installation, driver installation, toolkit configuration,
// GPU validation) lives behind the interfaces below.
package node

import "context"

// PackageInstaller installs OS packages.
type PackageInstaller interface {
	// RefreshIndex updates the package index. Retried on transient failure.
	RefreshIndex(ctx context.Context) error

	// Install installs the named packages. Installing an already-installed
	// package is a no-op.
	Install(ctx context.Context, packages ...string) error

	// Installed reports whether every named package is present.
	Installed(ctx context.Context, packages ...string) (bool, error)
}

// DriverInstaller installs the GPU driver.
type DriverInstaller interface {
	// Install runs the driver installer from the fetched artifact.
	Install(ctx context.Context, artifactPath string) error

	// InstalledVersion returns the active driver version, or "" when no
	// driver is loaded.
	InstalledVersion(ctx context.Context) (string, error)

	// Ready probes whether the driver is loaded and the GPUs answer. This
	// is the post-reboot readiness check for the driver stage.
	Ready(ctx context.Context) (bool, error)
}

// ToolkitConfigurer wires the container runtime to the GPU driver.
type ToolkitConfigurer interface {
	// Configure applies the container toolkit configuration.
	Configure(ctx context.Context) error

	// Configured reports whether the toolkit is already wired up.
	Configured(ctx context.Context) (bool, error)
}

// Validator exercises the accelerators after everything is installed.
// Implementations may validate devices in parallel; the caller only sees
// the combined result.
type Validator interface {
	// ValidateAll runs every per-device validation and returns the logical
	// AND of the outcomes: any failing unit fails the whole call.
	ValidateAll(ctx context.Context) error
}

// Fetcher downloads artifacts and verifies them against pinned checksums
// before anyone may trust them.
type Fetcher interface {
	// Fetch downloads url to destPath and verifies its SHA-256 digest
	// against sha256hex. A mismatch is fatal in every mode: the file is
	// removed and the error is never retried.
	Fetch(ctx context.Context, url, sha256hex, destPath string) error
}
