//go:build !linux

package fsops

func renameNoReplace(src, dst string) error {
	return renameChecked(src, dst)
}
