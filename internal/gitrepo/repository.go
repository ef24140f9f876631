package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	repositoryNotFoundMessageConstant       = "not a git repository"
	referenceNotSymbolicMessageConstant     = "reference is not symbolic"
	repositoryPathResolveErrorTemplate      = "failed to resolve path %q: %w"
	repositoryNotFoundErrorTemplateConstant = "%q: %w"
	repositoryOpenErrorTemplateConstant     = "failed to open repository at %q: %w"
	referenceLookupErrorTemplateConstant    = "failed to read reference %s: %w"
	referenceNotSymbolicTemplateConstant    = "%s: %w"
	bareHeadFileNameConstant                = "HEAD"
	bareObjectsDirectoryNameConstant        = "objects"
	bareReferencesDirectoryNameConstant     = "refs"
)

// ErrRepositoryNotFound indicates no repository exists at or above the requested path.
var ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)

// ErrReferenceNotSymbolic indicates a reference holds an object hash where a symbolic target was expected.
var ErrReferenceNotSymbolic = errors.New(referenceNotSymbolicMessageConstant)

// Repository is a read-only handle on a discovered repository.
type Repository struct {
	repository    *git.Repository
	rootDirectory string
}

// Open discovers the repository containing path. A work tree found through a .git entry wins over
// an enclosing bare repository.
func Open(path string) (*Repository, error) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return nil, fmt.Errorf(repositoryPathResolveErrorTemplate, path, absoluteError)
	}

	repository, openError := git.PlainOpenWithOptions(absolutePath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return openBare(absolutePath)
		}
		return nil, fmt.Errorf(repositoryOpenErrorTemplateConstant, absolutePath, openError)
	}

	return &Repository{repository: repository, rootDirectory: resolveRootDirectory(repository, absolutePath)}, nil
}

// openBare walks from absolutePath towards the filesystem root and opens the first bare repository layout.
func openBare(absolutePath string) (*Repository, error) {
	for directory := absolutePath; ; {
		if hasBareLayout(directory) {
			repository, openError := git.PlainOpen(directory)
			switch {
			case openError == nil:
				return &Repository{repository: repository, rootDirectory: directory}, nil
			case !errors.Is(openError, git.ErrRepositoryNotExists):
				return nil, fmt.Errorf(repositoryOpenErrorTemplateConstant, directory, openError)
			}
		}

		parent := filepath.Dir(directory)
		if parent == directory {
			return nil, fmt.Errorf(repositoryNotFoundErrorTemplateConstant, absolutePath, ErrRepositoryNotFound)
		}
		directory = parent
	}
}

func hasBareLayout(directory string) bool {
	headInfo, headError := os.Stat(filepath.Join(directory, bareHeadFileNameConstant))
	if headError != nil || !headInfo.Mode().IsRegular() {
		return false
	}
	for _, name := range []string{bareObjectsDirectoryNameConstant, bareReferencesDirectoryNameConstant} {
		info, statError := os.Stat(filepath.Join(directory, name))
		if statError != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// RootDirectory returns the top-level directory of the work tree, or the repository directory itself for bare repositories.
func (repository *Repository) RootDirectory() string {
	return repository.rootDirectory
}

// SymbolicTarget returns the name a symbolic reference points to.
// A missing reference reports found as false without an error.
func (repository *Repository) SymbolicTarget(name plumbing.ReferenceName) (string, bool, error) {
	reference, found, lookupError := repository.lookup(name)
	if lookupError != nil || !found {
		return "", found, lookupError
	}
	if reference.Type() != plumbing.SymbolicReference {
		return "", true, fmt.Errorf(referenceNotSymbolicTemplateConstant, name, ErrReferenceNotSymbolic)
	}
	return reference.Target().String(), true, nil
}

// ReferenceExists reports whether a reference with the given name is present, symbolic or not.
func (repository *Repository) ReferenceExists(name plumbing.ReferenceName) (bool, error) {
	_, found, lookupError := repository.lookup(name)
	return found, lookupError
}

func (repository *Repository) lookup(name plumbing.ReferenceName) (*plumbing.Reference, bool, error) {
	reference, referenceError := repository.repository.Reference(name, false)
	switch {
	case referenceError == nil:
		return reference, true, nil
	case errors.Is(referenceError, plumbing.ErrReferenceNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf(referenceLookupErrorTemplateConstant, name, referenceError)
	}
}

func resolveRootDirectory(repository *git.Repository, fallbackPath string) string {
	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil || worktree.Filesystem == nil {
		return fallbackPath
	}
	return worktree.Filesystem.Root()
}
