package build

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// CollectSources expands directories into the .java files below them.
// File entries are kept as given. The result is sorted and deduplicated.
func CollectSources(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, derrors.FileSystemError("stat", root, err)
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsJavaSource(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, derrors.FileSystemError("walk", root, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// IsJavaSource reports whether path names a Java source file.
func IsJavaSource(path string) bool {
	return strings.HasSuffix(path, ".java")
}
