package gitrepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/temirov/git-default-branch/internal/gitrepo"
	"github.com/temirov/git-default-branch/internal/testsupport"
)

func TestOpenDiscoversRepositoryFromNestedDirectory(t *testing.T) {
	repositoryDirectory := t.TempDir()
	testsupport.InitRepository(t, repositoryDirectory, "main")

	nestedDirectory := filepath.Join(repositoryDirectory, "docs", "guides")
	require.NoError(t, os.MkdirAll(nestedDirectory, 0o755))

	repository, openError := gitrepo.Open(nestedDirectory)
	require.NoError(t, openError)

	expectedRoot, evalError := filepath.EvalSymlinks(repositoryDirectory)
	require.NoError(t, evalError)
	actualRoot, evalError := filepath.EvalSymlinks(repository.RootDirectory())
	require.NoError(t, evalError)
	require.Equal(t, expectedRoot, actualRoot)
}

func TestOpenDiscoversBareRepository(t *testing.T) {
	sourceDirectory := t.TempDir()
	testsupport.InitRepository(t, sourceDirectory, "main")

	bareDirectory := filepath.Join(t.TempDir(), "mirror.git")
	testsupport.CloneBareWithGit(t, sourceDirectory, bareDirectory)

	testCases := []struct {
		name string
		path string
	}{
		{name: "RepositoryDirectory", path: bareDirectory},
		{name: "NestedDirectory", path: filepath.Join(bareDirectory, "refs", "heads")},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			repository, openError := gitrepo.Open(testCase.path)
			require.NoError(t, openError)

			expectedRoot, evalError := filepath.EvalSymlinks(bareDirectory)
			require.NoError(t, evalError)
			actualRoot, evalError := filepath.EvalSymlinks(repository.RootDirectory())
			require.NoError(t, evalError)
			require.Equal(t, expectedRoot, actualRoot)

			exists, existsError := repository.ReferenceExists(gitrepo.LocalBranchReferenceName("main"))
			require.NoError(t, existsError)
			require.True(t, exists)
		})
	}
}

func TestOpenReportsMissingRepository(t *testing.T) {
	_, openError := gitrepo.Open(t.TempDir())
	require.ErrorIs(t, openError, gitrepo.ErrRepositoryNotFound)
}

func TestSymbolicTarget(t *testing.T) {
	repositoryDirectory := t.TempDir()
	repository := testsupport.InitRepository(t, repositoryDirectory, "main")
	headReference, headError := repository.Head()
	require.NoError(t, headError)

	testsupport.SetSymbolicReference(t, repository, "refs/remotes/origin/HEAD", "refs/remotes/origin/trunk")
	testsupport.SetHashReference(t, repository, "refs/remotes/upstream/HEAD", headReference.Hash())

	opened, openError := gitrepo.Open(repositoryDirectory)
	require.NoError(t, openError)

	testCases := []struct {
		name           string
		reference      plumbing.ReferenceName
		expectedTarget string
		expectedFound  bool
		expectedError  error
	}{
		{name: "Symbolic", reference: gitrepo.RemoteHeadReferenceName("origin"), expectedTarget: "refs/remotes/origin/trunk", expectedFound: true},
		{name: "Direct", reference: gitrepo.RemoteHeadReferenceName("upstream"), expectedFound: true, expectedError: gitrepo.ErrReferenceNotSymbolic},
		{name: "Missing", reference: gitrepo.RemoteHeadReferenceName("fork"), expectedFound: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			target, found, lookupError := opened.SymbolicTarget(testCase.reference)
			require.Equal(t, testCase.expectedFound, found)
			if testCase.expectedError != nil {
				require.ErrorIs(t, lookupError, testCase.expectedError)
				return
			}
			require.NoError(t, lookupError)
			require.Equal(t, testCase.expectedTarget, target)
		})
	}
}

func TestReferenceExists(t *testing.T) {
	repositoryDirectory := t.TempDir()
	testsupport.InitRepository(t, repositoryDirectory, "master")

	opened, openError := gitrepo.Open(repositoryDirectory)
	require.NoError(t, openError)

	exists, existsError := opened.ReferenceExists(gitrepo.LocalBranchReferenceName("master"))
	require.NoError(t, existsError)
	require.True(t, exists)

	exists, existsError = opened.ReferenceExists(gitrepo.LocalBranchReferenceName("main"))
	require.NoError(t, existsError)
	require.False(t, exists)
}

func TestReferenceNameHelpers(t *testing.T) {
	require.Equal(t, plumbing.ReferenceName("refs/remotes/upstream/HEAD"), gitrepo.RemoteHeadReferenceName("upstream"))
	require.Equal(t, "refs/remotes/upstream/", gitrepo.RemoteBranchPrefix("upstream"))
	require.Equal(t, plumbing.ReferenceName("refs/heads/main"), gitrepo.LocalBranchReferenceName("main"))
}

func TestValidateRemoteName(t *testing.T) {
	require.NoError(t, gitrepo.ValidateRemoteName("origin"))
	require.NoError(t, gitrepo.ValidateRemoteName("team/upstream"))
	require.Error(t, gitrepo.ValidateRemoteName("bad..name"))
	require.Error(t, gitrepo.ValidateRemoteName(".hidden"))
}
