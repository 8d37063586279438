package storagepath

import (
	"errors"
	"os"
	"path/filepath"
)

// CacheDir returns <base>/<name>, creating it if needed.
// An empty base resolves to the user cache directory of the platform.
func CacheDir(base, name string) (string, error) {
	if base == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}

		base = userCacheDir
	}

	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	return dir, nil
}

var ErrUnsupported = errors.New("usable space probing is not supported on this platform")
