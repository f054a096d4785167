// Package lvm enumerates LVM volume groups and carves logical volumes.
package lvm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/nodeprep/internal/platform/execx"
)

// ErrNoLVM means the host has no LVM tooling installed.
var ErrNoLVM = errors.New("lvm tools not found")

// Pool is one volume group with allocatable free capacity.
type Pool struct {
	Name      string
	SizeBytes uint64
	FreeBytes uint64
}

// vgs --reportformat json shape.
type vgsReport struct {
	Report []struct {
		VG []struct {
			Name string `json:"vg_name"`
			Size string `json:"vg_size"`
			Free string `json:"vg_free"`
		} `json:"vg"`
	} `json:"report"`
}

// ListPools returns volume groups with non-zero free capacity.
func ListPools(ctx context.Context, runner execx.Runner) ([]Pool, error) {
	if !runner.LookPath("vgs") {
		return nil, ErrNoLVM
	}
	res, err := runner.Run(ctx, "vgs", "--reportformat", "json", "--units", "b", "--nosuffix", "-o", "vg_name,vg_size,vg_free")
	if err != nil {
		return nil, err
	}
	var report vgsReport
	if err := json.Unmarshal(res.Stdout, &report); err != nil {
		return nil, fmt.Errorf("vgs json: %w", err)
	}

	out := []Pool{}
	for _, r := range report.Report {
		for _, vg := range r.VG {
			p := Pool{
				Name:      vg.Name,
				SizeBytes: parseBytes(vg.Size),
				FreeBytes: parseBytes(vg.Free),
			}
			if p.FreeBytes == 0 {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// VolumeExists reports whether pool/lvName already exists.
func VolumeExists(ctx context.Context, runner execx.Runner, pool, lvName string) bool {
	_, err := runner.Run(ctx, "lvs", "--noheadings", pool+"/"+lvName)
	return err == nil
}

// CreateVolume carves a logical volume of sizeBytes named lvName from pool
// and returns its device path. The volume is not formatted. An existing
// volume with that name is reused: a crash between lvcreate and mount must
// not wedge the next run on a name collision.
func CreateVolume(ctx context.Context, runner execx.Runner, pool, lvName string, sizeBytes uint64) (string, error) {
	if sizeBytes == 0 {
		return "", fmt.Errorf("refusing to create zero-size volume in %s", pool)
	}
	path := "/dev/" + pool + "/" + lvName
	if VolumeExists(ctx, runner, pool, lvName) {
		return path, nil
	}
	_, err := runner.Run(ctx, "lvcreate", "--yes", "--name", lvName, "--size", fmt.Sprintf("%db", sizeBytes), pool)
	if err != nil {
		return "", fmt.Errorf("lvcreate %s/%s: %w", pool, lvName, err)
	}
	return path, nil
}

func parseBytes(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
