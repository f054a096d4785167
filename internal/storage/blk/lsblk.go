// Package blk enumerates whole-disk block devices via lsblk.
package blk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/nodeprep/internal/platform/execx"
)

// ErrNoLsblk means the host has no lsblk binary.
var ErrNoLsblk = errors.New("lsblk not found")

// ListUnused returns disks with no partitions and no active mount anywhere
// on the device. Removable media are excluded. A device carrying an
// existing (unmounted) filesystem is included with a warning so callers can
// surface it before reformatting.
func ListUnused(ctx context.Context, runner execx.Runner) ([]Device, error) {
	if !runner.LookPath("lsblk") {
		return nil, ErrNoLsblk
	}
	res, err := runner.Run(ctx, "lsblk", "--bytes", "--json", "-o", "NAME,PATH,SIZE,TYPE,MOUNTPOINT,FSTYPE,RM")
	if err != nil {
		return nil, err
	}
	var tree rawTree
	if err := json.Unmarshal(res.Stdout, &tree); err != nil {
		return nil, fmt.Errorf("lsblk json: %w", err)
	}

	out := []Device{}
	for _, d := range tree.Blockdevices {
		if d.Type != "disk" {
			continue
		}
		if d.RM != nil && *d.RM {
			continue
		}
		if len(d.Children) > 0 || mounted(d) {
			continue
		}
		dev := Device{
			Name:      d.Name,
			Path:      firstNonEmpty(d.Path, "/dev/"+d.Name),
			SizeBytes: normalizeSize(d.Size),
			FSType:    d.FSType,
		}
		if d.FSType != "" {
			dev.Warnings = append(dev.Warnings, "existing-filesystem")
		}
		out = append(out, dev)
	}
	return out, nil
}

// mounted reports whether the device or any descendant holds a mountpoint.
func mounted(d rawDevice) bool {
	if d.Mountpoint != nil && *d.Mountpoint != "" {
		return true
	}
	for _, c := range d.Children {
		if mounted(c) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeSize(v any) uint64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case json.Number:
		n, _ := t.Int64()
		if n < 0 {
			return 0
		}
		return uint64(n)
	default:
		return 0
	}
}
