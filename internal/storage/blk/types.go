package blk

// Raw JSON representation from lsblk --bytes --json.
type rawTree struct {
	Blockdevices []rawDevice `json:"blockdevices"`
}

type rawDevice struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	Size       any         `json:"size"` // number (bytes) with --bytes
	Type       string      `json:"type"`
	Mountpoint *string     `json:"mountpoint,omitempty"`
	FSType     string      `json:"fstype,omitempty"`
	RM         *bool       `json:"rm,omitempty"`
	Children   []rawDevice `json:"children,omitempty"`
}

// Device is a normalized whole-disk block device.
type Device struct {
	Name      string
	Path      string
	SizeBytes uint64
	FSType    string
	Warnings  []string
}
