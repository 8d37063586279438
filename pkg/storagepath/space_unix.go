//go:build linux || darwin

package storagepath

import "golang.org/x/sys/unix"

// UsableSpace returns the number of bytes available to an unprivileged
// user on the filesystem holding dir.
func UsableSpace(dir string) (int64, error) {
	var stats unix.Statfs_t
	if err := unix.Statfs(dir, &stats); err != nil {
		return 0, err
	}

	return int64(stats.Bavail) * int64(stats.Bsize), nil
}
