package defaultbranch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/temirov/git-default-branch/internal/gitrepo"
)

const (
	defaultRemoteNameConstant                       = "origin"
	remoteHeadNotSymbolicMessageConstant            = "remote HEAD is not a symbolic reference"
	invalidReferenceTextMessageConstant             = "remote HEAD target is not valid text"
	unexpectedReferencePrefixMessageConstant        = "remote HEAD target has an unexpected prefix"
	defaultBranchNotFoundMessageConstant            = "could not determine default branch"
	invalidRemoteNameMessageConstant                = "invalid remote name"
	remoteHeadRefresherNotConfiguredMessageConstant = "remote HEAD refresher not configured"
	invalidRemoteNameErrorTemplateConstant          = "%w: %v"
	remoteHeadReadErrorTemplateConstant             = "unable to read %s: %w"
	unexpectedPrefixErrorTemplateConstant           = "%w: %q does not start with %q"
	emptyBranchErrorTemplateConstant                = "%w: %q names no branch"
	invalidTextErrorTemplateConstant                = "%w: %q"
	localBranchReadErrorTemplateConstant            = "unable to read local branch %s: %w"
	notSymbolicErrorTemplateConstant                = "%s: %w"
	repositoryPathFieldNameConstant                 = "repository_path"
	remoteFieldNameConstant                         = "remote"
	referenceFieldNameConstant                      = "reference"
	sourceFieldNameConstant                         = "source"
	branchFieldNameConstant                         = "branch"
	remoteHeadMissingMessageConstant                = "Remote HEAD reference not found"
	remoteHeadRefreshFailedMessageConstant          = "Remote HEAD refresh failed, continuing with local branches"
	localBranchMissingMessageConstant               = "Local branch candidate not found"
	defaultBranchResolvedMessageConstant            = "Resolved default branch"
)

// Source identifies which resolution step produced a branch name.
type Source string

// Resolution sources in the order they are attempted.
const (
	SourceRemoteHead          Source = "remote-head"
	SourceRefreshedRemoteHead Source = "refreshed-remote-head"
	SourceLocalBranch         Source = "local-branch"
)

// localBranchCandidates lists the conventional default branch names checked when no remote HEAD exists.
var localBranchCandidates = []string{"main", "master"}

var (
	// ErrRepositoryNotFound indicates no repository exists at or above the requested path.
	ErrRepositoryNotFound = gitrepo.ErrRepositoryNotFound
	// ErrRemoteHeadNotSymbolic indicates the remote HEAD holds an object hash instead of a branch name.
	ErrRemoteHeadNotSymbolic = errors.New(remoteHeadNotSymbolicMessageConstant)
	// ErrInvalidReferenceText indicates the remote HEAD target is not valid UTF-8.
	ErrInvalidReferenceText = errors.New(invalidReferenceTextMessageConstant)
	// ErrUnexpectedReferencePrefix indicates the remote HEAD target lies outside the remote's namespace.
	ErrUnexpectedReferencePrefix = errors.New(unexpectedReferencePrefixMessageConstant)
	// ErrDefaultBranchNotFound indicates every resolution step came up empty.
	ErrDefaultBranchNotFound = errors.New(defaultBranchNotFoundMessageConstant)
	// ErrInvalidRemoteName indicates the remote name cannot form a reference name.
	ErrInvalidRemoteName = errors.New(invalidRemoteNameMessageConstant)
	// ErrRemoteHeadRefresherNotConfigured indicates a refresh was requested without a refresher.
	ErrRemoteHeadRefresherNotConfigured = errors.New(remoteHeadRefresherNotConfiguredMessageConstant)
)

// ServiceDependencies describes the collaborators used by Service.
type ServiceDependencies struct {
	Logger    *zap.Logger
	Refresher RemoteHeadRefresher
}

// Options configures a single resolution.
type Options struct {
	RepositoryPath    string
	RemoteName        string
	RefreshRemoteHead bool
}

// Result describes a resolved default branch.
type Result struct {
	BranchName     string
	Source         Source
	RepositoryRoot string
}

// Service resolves the default branch of a local clone.
type Service struct {
	logger    *zap.Logger
	refresher RemoteHeadRefresher
}

// NewService constructs a Service. A nil logger is replaced with a no-op logger.
func NewService(dependencies ServiceDependencies) *Service {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, refresher: dependencies.Refresher}
}

// Resolve determines the default branch of the repository at or above options.RepositoryPath.
func (service *Service) Resolve(executionContext context.Context, options Options) (Result, error) {
	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}
	if validationError := gitrepo.ValidateRemoteName(remoteName); validationError != nil {
		return Result{}, fmt.Errorf(invalidRemoteNameErrorTemplateConstant, ErrInvalidRemoteName, validationError)
	}
	if options.RefreshRemoteHead && service.refresher == nil {
		return Result{}, ErrRemoteHeadRefresherNotConfigured
	}

	repository, openError := gitrepo.Open(options.RepositoryPath)
	if openError != nil {
		return Result{}, openError
	}
	repositoryRoot := repository.RootDirectory()
	logger := service.logger.With(
		zap.String(repositoryPathFieldNameConstant, repositoryRoot),
		zap.String(remoteFieldNameConstant, remoteName),
	)

	branchName, found, remoteHeadError := readRemoteHead(repository, remoteName)
	if remoteHeadError != nil {
		return Result{}, remoteHeadError
	}
	if found {
		return service.resolved(logger, repositoryRoot, branchName, SourceRemoteHead), nil
	}
	logger.Debug(remoteHeadMissingMessageConstant, zap.String(referenceFieldNameConstant, gitrepo.RemoteHeadReferenceName(remoteName).String()))

	if options.RefreshRemoteHead {
		if refreshError := service.refresher.RefreshRemoteHead(executionContext, repositoryRoot, remoteName); refreshError != nil {
			logger.Warn(remoteHeadRefreshFailedMessageConstant, zap.Error(refreshError))
		}

		refreshedRepository, reopenError := gitrepo.Open(repositoryRoot)
		if reopenError != nil {
			return Result{}, reopenError
		}
		repository = refreshedRepository

		branchName, found, remoteHeadError = readRemoteHead(repository, remoteName)
		if remoteHeadError != nil {
			return Result{}, remoteHeadError
		}
		if found {
			return service.resolved(logger, repositoryRoot, branchName, SourceRefreshedRemoteHead), nil
		}
	}

	for _, candidate := range localBranchCandidates {
		referenceName := gitrepo.LocalBranchReferenceName(candidate)
		exists, existsError := repository.ReferenceExists(referenceName)
		if existsError != nil {
			return Result{}, fmt.Errorf(localBranchReadErrorTemplateConstant, candidate, existsError)
		}
		if exists {
			return service.resolved(logger, repositoryRoot, candidate, SourceLocalBranch), nil
		}
		logger.Debug(localBranchMissingMessageConstant, zap.String(referenceFieldNameConstant, referenceName.String()))
	}

	return Result{}, ErrDefaultBranchNotFound
}

func (service *Service) resolved(logger *zap.Logger, repositoryRoot string, branchName string, source Source) Result {
	logger.Debug(defaultBranchResolvedMessageConstant,
		zap.String(branchFieldNameConstant, branchName),
		zap.String(sourceFieldNameConstant, string(source)),
	)
	return Result{BranchName: branchName, Source: source, RepositoryRoot: repositoryRoot}
}

// readRemoteHead returns the branch refs/remotes/<remote>/HEAD points at.
// A missing reference reports found as false.
func readRemoteHead(repository *gitrepo.Repository, remoteName string) (string, bool, error) {
	referenceName := gitrepo.RemoteHeadReferenceName(remoteName)
	target, found, lookupError := repository.SymbolicTarget(referenceName)
	if lookupError != nil {
		if errors.Is(lookupError, gitrepo.ErrReferenceNotSymbolic) {
			return "", true, fmt.Errorf(notSymbolicErrorTemplateConstant, referenceName, ErrRemoteHeadNotSymbolic)
		}
		return "", false, fmt.Errorf(remoteHeadReadErrorTemplateConstant, referenceName, lookupError)
	}
	if !found {
		return "", false, nil
	}

	branchName, parseError := BranchNameFromRemoteTarget(target, remoteName)
	if parseError != nil {
		return "", true, parseError
	}
	return branchName, true, nil
}

// BranchNameFromRemoteTarget strips refs/remotes/<remote>/ from target and returns the branch name that remains.
func BranchNameFromRemoteTarget(target string, remoteName string) (string, error) {
	if !utf8.ValidString(target) {
		return "", fmt.Errorf(invalidTextErrorTemplateConstant, ErrInvalidReferenceText, target)
	}
	prefix := gitrepo.RemoteBranchPrefix(remoteName)
	branchName, hasPrefix := strings.CutPrefix(target, prefix)
	if !hasPrefix {
		return "", fmt.Errorf(unexpectedPrefixErrorTemplateConstant, ErrUnexpectedReferencePrefix, target, prefix)
	}
	if len(branchName) == 0 {
		return "", fmt.Errorf(emptyBranchErrorTemplateConstant, ErrUnexpectedReferencePrefix, target)
	}
	return branchName, nil
}
