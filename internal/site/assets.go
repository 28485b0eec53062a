package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	appLog "onevents/internal/log"
)

// CopyAssets copies each directory of dirs into dst under its base name.
// Missing source directories are skipped.
func CopyAssets(dst string, dirs ...string) error {
	for _, src := range dirs {
		info, err := os.Stat(src)
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("asset dir missing, skipped", "dir", src)
			continue
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("asset %s is not a directory", src)
		}

		target := filepath.Join(dst, filepath.Base(filepath.Clean(src)))
		if err := os.CopyFS(target, os.DirFS(src)); err != nil {
			return fmt.Errorf("copy assets %s: %w", src, err)
		}
		appLog.Debug("assets copied", "from", src, "to", target)
	}
	return nil
}
