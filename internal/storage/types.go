// Package storage chooses and prepares durable backing storage for the
// managed data directory.
//
// The decision tree is an ordered chain of candidate providers, first match
// wins: an already-mounted target, then raw unused block devices, then LVM
// pool capacity, then the root filesystem as a confirmed fallback. The
// decision itself is never persisted; its durable proof is the fstab entry
// plus a live mountpoint probe, which makes re-runs self-healing.
package storage

import "errors"

// Kind classifies the resolved backing source.
type Kind string

const (
	// KindExisting means the target is already a distinct mount; no mutation.
	KindExisting Kind = "existing"
	// KindDevice means a raw block device was selected.
	KindDevice Kind = "device"
	// KindPool means a logical volume is carved from an LVM volume group.
	KindPool Kind = "pool"
	// KindRootFS means no dedicated storage; the root filesystem backs the target.
	KindRootFS Kind = "rootfs"
)

// Candidate is one selectable backing source, computed fresh from the live
// environment on every run.
type Candidate struct {
	Kind       Kind
	ID         string // device name (sdb) or volume group name
	Path       string // device path; empty for pools
	TotalBytes uint64
	FreeBytes  uint64 // pools: allocatable capacity
	Warnings   []string
}

// Decision is the resolved backing source for the managed directory.
type Decision struct {
	Kind       Kind
	Pool       string // KindPool: owning volume group
	Device     string // device path to format; filled after allocation for pools
	AllocBytes uint64 // KindPool: size of the volume to carve
	Filesystem string
	Target     string
}

// Selection failure modes, fatal to the owning stage.
var (
	ErrNoCandidate = errors.New("no viable storage candidate")
	ErrDeclined    = errors.New("storage fallback declined")
)

// ChooseFunc presents candidates interactively. It returns the chosen
// candidate, or skip=true to fall through to the next provider.
type ChooseFunc func(prompt string, candidates []Candidate) (choice *Candidate, skip bool, err error)

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(prompt string) (bool, error)
