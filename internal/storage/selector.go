package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/platform/execx"
	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/storage/blk"
	"github.com/imamik/nodeprep/internal/storage/lvm"
)

// Selector resolves and materializes backing storage for the managed
// directory. Choose and Confirm are consulted only in interactive mode;
// automated mode picks the largest candidate and auto-grants the root
// filesystem fallback.
type Selector struct {
	Config      *config.Config
	Runner      execx.Runner
	Observer    provisioning.Observer
	Interactive bool
	Choose      ChooseFunc
	Confirm     ConfirmFunc
}

// provider is one step of the priority decision tree. Resolve returns a nil
// Decision to signal "no candidate here" and fall through.
type provider struct {
	name    string
	resolve func(ctx context.Context) (*Decision, error)
}

func (s *Selector) providers() []provider {
	return []provider{
		{"existing-mount", s.existingMount},
		{"raw-device", s.rawDevice},
		{"volume-pool", s.volumePool},
		{"root-fallback", s.rootFallback},
	}
}

// Select walks the decision tree and returns the first decision.
func (s *Selector) Select(ctx context.Context) (*Decision, error) {
	for _, p := range s.providers() {
		d, err := p.resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		if d != nil {
			s.Observer.Event(provisioning.Event{
				Type:     provisioning.EventStorageDecision,
				Unit:     "storage/select",
				Severity: provisioning.SeverityInfo,
				Message:  fmt.Sprintf("backing source resolved via %s", p.name),
				Fields:   map[string]string{"kind": string(d.Kind), "device": d.Device, "pool": d.Pool},
			})
			return d, nil
		}
	}
	return nil, ErrNoCandidate
}

// Setup resolves a decision and brings the target to its decided state:
// allocate (pools), format, record in the mount table keyed by filesystem
// UUID, mount, and check free space. Idempotent: an already-satisfied
// target resolves as KindExisting and mutates nothing.
func (s *Selector) Setup(ctx context.Context) (*Decision, error) {
	d, err := s.Select(ctx)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case KindExisting:
		return d, s.checkFreeSpace(d.Target)
	case KindRootFS:
		if err := os.MkdirAll(d.Target, 0o755); err != nil {
			return nil, err
		}
		return d, s.checkFreeSpace(d.Target)
	case KindPool:
		dev, err := lvm.CreateVolume(ctx, s.Runner, d.Pool, "data", d.AllocBytes)
		if err != nil {
			return nil, err
		}
		d.Device = dev
	case KindDevice:
		// Device path already resolved.
	}

	if err := Format(ctx, s.Runner, d.Device, d.Filesystem); err != nil {
		return nil, err
	}
	id, err := UUID(ctx, s.Runner, d.Device)
	if err != nil {
		return nil, err
	}
	if _, err := EnsureFstabEntry(s.Config.FstabPath, id, d.Target, d.Filesystem); err != nil {
		return nil, fmt.Errorf("mount table: %w", err)
	}
	if err := Mount(ctx, s.Runner, d.Target); err != nil {
		return nil, err
	}
	return d, s.checkFreeSpace(d.Target)
}

// existingMount satisfies priority step 1: a target that is already a
// distinct mount is the decision, with no further mutation.
func (s *Selector) existingMount(ctx context.Context) (*Decision, error) {
	if !IsMountpoint(ctx, s.Runner, s.Config.MountTarget) {
		return nil, nil
	}
	return &Decision{Kind: KindExisting, Target: s.Config.MountTarget, Filesystem: s.Config.Filesystem}, nil
}

// rawDevice satisfies priority step 2. A pinned pool bypasses device
// selection entirely; the pin is resolved (or fails) in the pool step.
func (s *Selector) rawDevice(ctx context.Context) (*Decision, error) {
	if s.Config.PinnedPool != "" {
		return nil, nil
	}
	devices, err := blk.ListUnused(ctx, s.Runner)
	if errors.Is(err, blk.ErrNoLsblk) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(devices))
	for _, d := range devices {
		candidates = append(candidates, Candidate{
			Kind: KindDevice, ID: d.Name, Path: d.Path, TotalBytes: d.SizeBytes, Warnings: d.Warnings,
		})
	}

	pick, err := s.pick(candidates, s.Config.PinnedDevice, func(c Candidate) uint64 { return c.TotalBytes },
		"select a block device for "+s.Config.MountTarget)
	if err != nil || pick == nil {
		return nil, err
	}
	return &Decision{Kind: KindDevice, Device: pick.Path, Target: s.Config.MountTarget, Filesystem: s.Config.Filesystem}, nil
}

// volumePool satisfies priority step 3. The new volume takes a fixed
// fraction of the chosen pool's free capacity.
func (s *Selector) volumePool(ctx context.Context) (*Decision, error) {
	pools, err := lvm.ListPools(ctx, s.Runner)
	if errors.Is(err, lvm.ErrNoLVM) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(pools))
	for _, p := range pools {
		candidates = append(candidates, Candidate{
			Kind: KindPool, ID: p.Name, TotalBytes: p.SizeBytes, FreeBytes: p.FreeBytes,
		})
	}

	pick, err := s.pick(candidates, s.Config.PinnedPool, func(c Candidate) uint64 { return c.FreeBytes },
		"select a volume pool for "+s.Config.MountTarget)
	if err != nil || pick == nil {
		return nil, err
	}
	alloc := uint64(float64(pick.FreeBytes) * config.PoolAllocFraction)
	return &Decision{
		Kind: KindPool, Pool: pick.ID, AllocBytes: alloc,
		Target: s.Config.MountTarget, Filesystem: s.Config.Filesystem,
	}, nil
}

// rootFallback satisfies priority step 4: proceed on the root filesystem,
// warned and confirmed. Automated mode auto-grants.
func (s *Selector) rootFallback(context.Context) (*Decision, error) {
	free, err := FreeBytes("/")
	if err != nil {
		free = 0
	}
	s.Observer.Warnf("no dedicated storage found; %s will live on the root filesystem (%.1f GiB free)",
		s.Config.MountTarget, float64(free)/(1<<30))

	if s.Interactive {
		ok, err := s.Confirm(fmt.Sprintf("Use the root filesystem for %s?", s.Config.MountTarget))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
	}
	return &Decision{Kind: KindRootFS, Target: s.Config.MountTarget, Filesystem: s.Config.Filesystem}, nil
}

// pick applies the shared selection rule for steps 2 and 3: a pinned
// identifier overrides everything, automated mode takes the largest by
// capacity (byte-exact, ties by identifier ascending), interactive mode
// delegates to Choose with an explicit skip.
func (s *Selector) pick(candidates []Candidate, pinned string, capacity func(Candidate) uint64, prompt string) (*Candidate, error) {
	if pinned != "" {
		for i, c := range candidates {
			if c.ID == pinned || c.Path == pinned {
				return &candidates[i], nil
			}
		}
		return nil, fmt.Errorf("pinned candidate %q not found among %d candidates", pinned, len(candidates))
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if s.Interactive && s.Choose != nil {
		choice, skip, err := s.Choose(prompt, candidates)
		if err != nil {
			return nil, err
		}
		if skip {
			return nil, nil
		}
		return choice, nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if capacity(sorted[i]) != capacity(sorted[j]) {
			return capacity(sorted[i]) > capacity(sorted[j])
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &sorted[0], nil
}

// checkFreeSpace warns (never fails) when the mounted target has less
// usable space than the configured minimum.
func (s *Selector) checkFreeSpace(target string) error {
	free, err := FreeBytes(target)
	if err != nil {
		s.Observer.Warnf("free space check on %s: %v", target, err)
		return nil
	}
	if free < s.Config.MinFreeBytes {
		s.Observer.Warnf("%s has %.1f GiB free, below the %.1f GiB minimum",
			target, float64(free)/(1<<30), float64(s.Config.MinFreeBytes)/(1<<30))
	}
	return nil
}
