package path

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var SkipDirs = []string{".git", ".github", ".vscode", "node_modules", "target", "vendor", ".venv", "dbt_packages"}

// GetAllFilesWithSuffix walks the tree under root and returns every file whose
// name ends with one of the given suffixes.
func GetAllFilesWithSuffix(fs afero.Fs, root string, suffixes []string) ([]string, error) {
	var paths []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if slices.Contains(SkipDirs, info.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		for _, s := range suffixes {
			if strings.HasSuffix(path, s) {
				paths = append(paths, path)
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking directory %s", root)
	}

	slices.Sort(paths)
	return paths, nil
}

// GetProjectRootFromModel climbs up from a model file until it finds the
// directory holding one of the project definition files.
func GetProjectRootFromModel(modelPath string, projectDefinitionFiles []string) (string, error) {
	absoluteModelPath, err := filepath.Abs(modelPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert model path to absolute path")
	}

	currentFolder := absoluteModelPath
	rootPath := filepath.VolumeName(currentFolder) + string(os.PathSeparator)
	for currentFolder != rootPath && currentFolder != "/" {
		for _, definitionFile := range projectDefinitionFiles {
			tryPath := filepath.Join(currentFolder, definitionFile)
			if _, err := os.Stat(tryPath); err == nil {
				return currentFolder, nil
			}
		}

		currentFolder = filepath.Dir(currentFolder)
	}

	return "", errors.New("cannot find a project the given model belongs to, are you sure this model is part of a project?")
}
