package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/nodeprep/internal/platform/execx"
	"github.com/imamik/nodeprep/internal/util/async"
)

// AptInstaller implements PackageInstaller on apt.
type AptInstaller struct {
	Runner execx.Runner
}

// RefreshIndex implements PackageInstaller.
func (a *AptInstaller) RefreshIndex(ctx context.Context) error {
	_, err := a.Runner.Run(ctx, "apt-get", "update", "-q")
	return err
}

// Install implements PackageInstaller.
func (a *AptInstaller) Install(ctx context.Context, packages ...string) error {
	args := append([]string{"install", "-y", "-q"}, packages...)
	_, err := a.Runner.Run(ctx, "apt-get", args...)
	return err
}

// Installed implements PackageInstaller.
func (a *AptInstaller) Installed(ctx context.Context, packages ...string) (bool, error) {
	for _, pkg := range packages {
		if _, err := a.Runner.Run(ctx, "dpkg-query", "-W", "-f", "${Status}", pkg); err != nil {
			return false, nil
		}
	}
	return true, nil
}

// RunfileDriverInstaller implements DriverInstaller via the vendor .run
// installer.
type RunfileDriverInstaller struct {
	Runner  execx.Runner
	Version string // expected driver version, "" accepts any
}

// Install implements DriverInstaller.
func (d *RunfileDriverInstaller) Install(ctx context.Context, artifactPath string) error {
	_, err := d.Runner.Run(ctx, "sh", artifactPath, "--silent", "--no-questions")
	if err != nil {
		return fmt.Errorf("driver installer: %w", err)
	}
	return nil
}

// InstalledVersion implements DriverInstaller.
func (d *RunfileDriverInstaller) InstalledVersion(ctx context.Context) (string, error) {
	res, err := d.Runner.Run(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
	if err != nil {
		return "", nil
	}
	lines := strings.Fields(strings.TrimSpace(string(res.Stdout)))
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// Ready implements DriverInstaller: the kernel module answers and, when a
// version is pinned, the loaded driver matches it.
func (d *RunfileDriverInstaller) Ready(ctx context.Context) (bool, error) {
	version, err := d.InstalledVersion(ctx)
	if err != nil || version == "" {
		return false, nil
	}
	if d.Version != "" && version != d.Version {
		return false, nil
	}
	return true, nil
}

// CTKConfigurer implements ToolkitConfigurer via nvidia-ctk.
type CTKConfigurer struct {
	Runner execx.Runner
}

// Configure implements ToolkitConfigurer.
func (c *CTKConfigurer) Configure(ctx context.Context) error {
	if _, err := c.Runner.Run(ctx, "nvidia-ctk", "runtime", "configure", "--runtime=containerd"); err != nil {
		return fmt.Errorf("toolkit configure: %w", err)
	}
	_, err := c.Runner.Run(ctx, "systemctl", "restart", "containerd")
	return err
}

// Configured implements ToolkitConfigurer.
func (c *CTKConfigurer) Configured(ctx context.Context) (bool, error) {
	res, err := c.Runner.Run(ctx, "grep", "-l", "nvidia", "/etc/containerd/config.toml")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(string(res.Stdout)) != "", nil
}

// SMIValidator implements Validator with per-GPU checks run concurrently.
// The core only observes the combined outcome.
type SMIValidator struct {
	Runner execx.Runner
}

// ValidateAll implements Validator.
func (v *SMIValidator) ValidateAll(ctx context.Context) error {
	res, err := v.Runner.Run(ctx, "nvidia-smi", "--query-gpu=index", "--format=csv,noheader")
	if err != nil {
		return fmt.Errorf("enumerating GPUs: %w", err)
	}
	indices := strings.Fields(strings.TrimSpace(string(res.Stdout)))
	if len(indices) == 0 {
		return fmt.Errorf("no GPUs visible to the driver")
	}

	tasks := make([]async.Task, 0, len(indices))
	for _, idx := range indices {
		tasks = append(tasks, async.Task{
			Name: "gpu " + idx,
			Func: func(ctx context.Context) error { return v.validateOne(ctx, idx) },
		})
	}
	if err := async.RunAll(ctx, tasks); err != nil {
		return fmt.Errorf("gpu validation: %w", err)
	}
	return nil
}

func (v *SMIValidator) validateOne(ctx context.Context, index string) error {
	_, err := v.Runner.Run(ctx, "nvidia-smi", "-i", index, "--query-gpu=utilization.gpu,memory.total,temperature.gpu", "--format=csv,noheader")
	return err
}
