package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/imamik/nodeprep/internal/platform/execx"
)

// Format creates the filesystem on device. The force flag variants are
// required because a selected device may carry a stale, unmounted filesystem
// the operator chose to overwrite.
func Format(ctx context.Context, runner execx.Runner, device, filesystem string) error {
	var args []string
	switch filesystem {
	case "ext4":
		args = []string{"-F", device}
	case "xfs":
		args = []string{"-f", device}
	default:
		return fmt.Errorf("unsupported filesystem %q", filesystem)
	}
	if _, err := runner.Run(ctx, "mkfs."+filesystem, args...); err != nil {
		return fmt.Errorf("format %s as %s: %w", device, filesystem, err)
	}
	return nil
}

// UUID resolves the persistent filesystem identifier of device, the key the
// mount-table entry survives device renumbering by.
func UUID(ctx context.Context, runner execx.Runner, device string) (string, error) {
	res, err := runner.Run(ctx, "blkid", "-s", "UUID", "-o", "value", device)
	if err != nil {
		return "", fmt.Errorf("blkid %s: %w", device, err)
	}
	id := strings.TrimSpace(string(res.Stdout))
	if id == "" {
		return "", fmt.Errorf("no UUID reported for %s", device)
	}
	return id, nil
}

// Mount mounts target via its mount-table entry.
func Mount(ctx context.Context, runner execx.Runner, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	if _, err := runner.Run(ctx, "mount", target); err != nil {
		return fmt.Errorf("mount %s: %w", target, err)
	}
	return nil
}

// IsMountpoint probes whether target is a distinct mount.
func IsMountpoint(ctx context.Context, runner execx.Runner, target string) bool {
	_, err := runner.Run(ctx, "findmnt", "--noheadings", "--mountpoint", target)
	return err == nil
}

// statfsFree is swapped in tests; Statfs needs a live filesystem.
var statfsFree = func(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil //nolint:unconvert // field widths differ across platforms
}

// FreeBytes returns the usable free space at path.
func FreeBytes(path string) (uint64, error) {
	return statfsFree(path)
}
