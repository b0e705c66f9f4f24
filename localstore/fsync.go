package localstore

import (
	"fmt"
	"os"
)

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) // #nosec G304 -- path is inside the staging dir
	if err != nil {
		return fmt.Errorf("localstore: write %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("localstore: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("localstore: sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("localstore: close %s: %w", path, err)
	}
	return nil
}

// syncDir flushes a directory entry change. Best effort: some platforms
// cannot fsync directories.
func syncDir(dir string) {
	f, err := os.Open(dir) // #nosec G304
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
