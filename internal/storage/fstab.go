package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureFstabEntry appends a UUID-keyed mount entry to the persistent mount
// table unless one for that UUID already exists. Returns whether an entry
// was added. The rewrite is atomic (temp file + rename).
func EnsureFstabEntry(fstabPath, uuid, target, filesystem string) (bool, error) {
	data, err := os.ReadFile(fstabPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	key := "UUID=" + uuid
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == key {
			return false, nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += fmt.Sprintf("%s %s %s defaults,nofail 0 2\n", key, target, filesystem)

	tmp := fstabPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, fstabPath); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	_ = fsyncDir(filepath.Dir(fstabPath))
	return true, nil
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
