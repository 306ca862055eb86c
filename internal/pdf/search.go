package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
)

// Library discovers article PDFs in a directory and resolves article ids to paths.
// An article id is the PDF's path relative to the directory, with forward slashes.
type Library struct {
	directory string
	validator *Validator
	exclude   []string
}

// NewLibrary creates a library rooted at directory
func NewLibrary(directory string, maxFileSize int64) *Library {
	return &Library{
		directory: directory,
		validator: NewValidator(maxFileSize),
	}
}

// Exclude keeps the given directories out of FindArticles, such as an export directory
// nested under the library root
func (l *Library) Exclude(dirs ...string) {
	for _, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			l.exclude = append(l.exclude, filepath.Clean(abs))
		}
	}
}

// Directory returns the library root
func (l *Library) Directory() string {
	return l.directory
}

// Validator returns the validator used for article files
func (l *Library) Validator() *Validator {
	return l.validator
}

// isPathWithinDirectory checks if a path is within the specified directory
func isPathWithinDirectory(path, directory string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	absDir, err := filepath.Abs(directory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve directory: %w", err)
	}

	// Evaluate any symlinks to get the real path
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		realPath = absPath
	}

	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate directory symlinks: %w", err)
	}

	realPath = filepath.Clean(realPath)
	realDir = filepath.Clean(realDir)

	// Add a separator to the directory to ensure exact match
	if !strings.HasSuffix(realDir, string(filepath.Separator)) {
		realDir += string(filepath.Separator)
	}

	return strings.HasPrefix(realPath, realDir) || realPath == strings.TrimSuffix(realDir, string(filepath.Separator)), nil
}

// FindArticles lists every PDF under the library root, sorted by article id.
// Hidden and excluded directories are skipped, and so are files that fail the quick size checks.
func (l *Library) FindArticles() ([]FileInfo, error) {
	if l.directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if _, err := os.Stat(l.directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", l.directory)
	}

	absDirectory, err := filepath.Abs(l.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	var files []FileInfo
	err = filepath.WalkDir(absDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		withinDir, err := isPathWithinDirectory(path, absDirectory)
		if err != nil || !withinDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			if slices.Contains(l.exclude, filepath.Clean(path)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isPDFFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if err := l.validator.ValidateFileInfo(path, info); err != nil {
			return nil
		}

		rel, err := filepath.Rel(absDirectory, path)
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			ArticleID:    filepath.ToSlash(rel),
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ArticleID < files[j].ArticleID })
	return files, nil
}

// ArticleIDs returns the ids of every article in the library
func (l *Library) ArticleIDs() ([]string, error) {
	files, err := l.FindArticles()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ArticleID
	}
	return ids, nil
}

// Resolve returns the absolute path of an article, refusing ids that escape the library root
func (l *Library) Resolve(articleID string) (string, error) {
	if strings.TrimSpace(articleID) == "" {
		return "", errors.New(errors.ErrorTypeValidation, "article id cannot be empty")
	}
	if filepath.IsAbs(articleID) {
		return "", errors.New(errors.ErrorTypeValidation, "article id must be relative to the article directory").
			WithArticle(articleID)
	}

	path := filepath.Join(l.directory, filepath.FromSlash(articleID))
	within, err := isPathWithinDirectory(path, l.directory)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypePDF, err, "cannot resolve article").WithArticle(articleID)
	}
	if !within {
		return "", errors.New(errors.ErrorTypeValidation, "article is outside the article directory").
			WithArticle(articleID)
	}
	return path, nil
}
