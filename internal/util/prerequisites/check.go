// Package prerequisites verifies that the host tools provisioning shells
// out to are actually installed before any stage runs.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool is one host binary provisioning may invoke.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required marks tools every run needs. Optional tools only enable
	// extra storage paths (volume pools) and their absence is not an error.
	Required bool

	// Description explains what the tool is used for.
	Description string
}

// BaseTools returns the tools every provisioning run shells out to.
func BaseTools() []Tool {
	return []Tool{
		{Name: "lsblk", Required: true, Description: "Enumerates block devices for storage selection"},
		{Name: "findmnt", Required: true, Description: "Probes whether the data target is already mounted"},
		{Name: "blkid", Required: true, Description: "Reads filesystem UUIDs for persistent mount entries"},
		{Name: "systemctl", Required: true, Description: "Manages the resume hook unit and reboots"},
		{Name: "apt-get", Required: true, Description: "Installs base packages"},
	}
}

// PoolTools returns the tools the volume-pool storage path needs. Hosts
// without them simply never offer pool-backed storage.
func PoolTools() []Tool {
	return []Tool{
		{Name: "vgs", Required: false, Description: "Lists volume groups with free capacity"},
		{Name: "lvcreate", Required: false, Description: "Carves logical volumes from a pool"},
	}
}

// CheckResult is the outcome for a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults aggregates the outcomes for a tool set.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// Err returns an error naming every missing required tool, or nil.
func (r *CheckResults) Err() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, tool.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check looks up every tool in PATH.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}
	for _, tool := range tools {
		result := CheckResult{Tool: tool}
		if path, err := exec.LookPath(tool.Name); err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}
		results.Results = append(results.Results, result)
	}
	return results
}

// CheckBase checks the tools every run requires.
func CheckBase() *CheckResults {
	return Check(BaseTools())
}
