//go:build !linux && !darwin

package storagepath

func UsableSpace(dir string) (int64, error) {
	return 0, ErrUnsupported
}
