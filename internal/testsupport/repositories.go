package testsupport

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	fixtureFileNameConstant          = "README.md"
	fixtureFileContentConstant       = "fixture\n"
	fixtureCommitMessageConstant     = "initial"
	fixtureAuthorNameConstant        = "Fixture Author"
	fixtureAuthorEmailConstant       = "fixture@example.com"
	gitExecutableNameConstant        = "git"
	gitMissingSkipMessageConstant    = "git executable not available"
	gitConfigGlobalEnvironmentName   = "GIT_CONFIG_GLOBAL"
	gitConfigNoSystemEnvironmentName = "GIT_CONFIG_NOSYSTEM"
	gitTerminalPromptEnvironmentName = "GIT_TERMINAL_PROMPT"
	gitBareCloneFlagConstant         = "--bare"
)

// InitRepository creates a repository in directory whose HEAD points at branchName and which holds one commit.
func InitRepository(testInstance testing.TB, directory string, branchName string) *git.Repository {
	testInstance.Helper()

	repository, initError := git.PlainInitWithOptions(directory, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branchName)},
	})
	if initError != nil {
		testInstance.Fatalf("init repository in %s: %v", directory, initError)
	}

	CommitFile(testInstance, repository, directory)
	return repository
}

// InitEmptyRepository creates a repository in directory without any commits.
func InitEmptyRepository(testInstance testing.TB, directory string) *git.Repository {
	testInstance.Helper()

	repository, initError := git.PlainInit(directory, false)
	if initError != nil {
		testInstance.Fatalf("init repository in %s: %v", directory, initError)
	}
	return repository
}

// CommitFile writes the fixture file into the work tree and commits it on the current branch.
func CommitFile(testInstance testing.TB, repository *git.Repository, directory string) plumbing.Hash {
	testInstance.Helper()

	if writeError := os.WriteFile(filepath.Join(directory, fixtureFileNameConstant), []byte(fixtureFileContentConstant), 0o600); writeError != nil {
		testInstance.Fatalf("write fixture file: %v", writeError)
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		testInstance.Fatalf("open worktree: %v", worktreeError)
	}
	if _, addError := worktree.Add(fixtureFileNameConstant); addError != nil {
		testInstance.Fatalf("stage fixture file: %v", addError)
	}

	commitHash, commitError := worktree.Commit(fixtureCommitMessageConstant, &git.CommitOptions{
		Author: &object.Signature{Name: fixtureAuthorNameConstant, Email: fixtureAuthorEmailConstant, When: time.Unix(1700000000, 0).UTC()},
	})
	if commitError != nil {
		testInstance.Fatalf("commit fixture file: %v", commitError)
	}
	return commitHash
}

// SetSymbolicReference writes name as a symbolic reference to target.
func SetSymbolicReference(testInstance testing.TB, repository *git.Repository, name string, target string) {
	testInstance.Helper()

	reference := plumbing.NewSymbolicReference(plumbing.ReferenceName(name), plumbing.ReferenceName(target))
	if setError := repository.Storer.SetReference(reference); setError != nil {
		testInstance.Fatalf("set symbolic reference %s: %v", name, setError)
	}
}

// SetHashReference writes name as a direct reference to hash.
func SetHashReference(testInstance testing.TB, repository *git.Repository, name string, hash plumbing.Hash) {
	testInstance.Helper()

	if setError := repository.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), hash)); setError != nil {
		testInstance.Fatalf("set reference %s: %v", name, setError)
	}
}

// RemoveReference deletes name, whether it is stored loose or packed.
func RemoveReference(testInstance testing.TB, repository *git.Repository, name string) {
	testInstance.Helper()

	if removeError := repository.Storer.RemoveReference(plumbing.ReferenceName(name)); removeError != nil {
		testInstance.Fatalf("remove reference %s: %v", name, removeError)
	}
}

// RenameBranch moves refs/heads/from to refs/heads/to and repoints HEAD.
func RenameBranch(testInstance testing.TB, repository *git.Repository, from string, to string) {
	testInstance.Helper()

	branchReference, referenceError := repository.Reference(plumbing.NewBranchReferenceName(from), true)
	if referenceError != nil {
		testInstance.Fatalf("read branch %s: %v", from, referenceError)
	}
	SetHashReference(testInstance, repository, plumbing.NewBranchReferenceName(to).String(), branchReference.Hash())
	SetSymbolicReference(testInstance, repository, plumbing.HEAD.String(), plumbing.NewBranchReferenceName(to).String())
	RemoveReference(testInstance, repository, plumbing.NewBranchReferenceName(from).String())
}

// RequireGit skips the test when the git executable cannot be found.
func RequireGit(testInstance testing.TB) {
	testInstance.Helper()

	if _, lookupError := exec.LookPath(gitExecutableNameConstant); lookupError != nil {
		testInstance.Skip(gitMissingSkipMessageConstant)
	}
}

// CloneWithGit clones source into destination using the git executable and reopens the clone with go-git.
func CloneWithGit(testInstance testing.TB, source string, destination string) *git.Repository {
	testInstance.Helper()
	return cloneWithGit(testInstance, source, destination)
}

// CloneBareWithGit creates a bare clone of source at destination using the git executable.
func CloneBareWithGit(testInstance testing.TB, source string, destination string) *git.Repository {
	testInstance.Helper()
	return cloneWithGit(testInstance, source, destination, gitBareCloneFlagConstant)
}

func cloneWithGit(testInstance testing.TB, source string, destination string, flags ...string) *git.Repository {
	testInstance.Helper()
	RequireGit(testInstance)

	arguments := append([]string{"clone", "--quiet"}, flags...)
	cloneCommand := exec.Command(gitExecutableNameConstant, append(arguments, source, destination)...)
	cloneCommand.Env = IsolatedGitEnvironment()
	if output, cloneError := cloneCommand.CombinedOutput(); cloneError != nil {
		testInstance.Fatalf("git clone %s: %v\n%s", source, cloneError, output)
	}

	repository, openError := git.PlainOpen(destination)
	if openError != nil {
		testInstance.Fatalf("open clone %s: %v", destination, openError)
	}
	return repository
}

// IsolatedGitEnvironment returns the process environment with user and system git configuration disabled.
func IsolatedGitEnvironment() []string {
	return append(os.Environ(),
		gitConfigGlobalEnvironmentName+"="+os.DevNull,
		gitConfigNoSystemEnvironmentName+"=1",
		gitTerminalPromptEnvironmentName+"=0",
	)
}
