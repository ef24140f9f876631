package defaultbranch

import (
	"context"
	"errors"
	"fmt"

	"github.com/temirov/git-default-branch/internal/execshell"
)

const (
	gitRemoteSubcommandConstant             = "remote"
	gitSetHeadSubcommandConstant            = "set-head"
	gitSetHeadAutoFlagConstant              = "--auto"
	gitTerminalPromptEnvironmentConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant  = "0"
	gitExecutorNotConfiguredMessageConstant = "git executor not configured"
	remoteHeadRefreshErrorTemplateConstant  = "unable to refresh %s/HEAD: %w"
)

// ErrGitExecutorNotConfigured indicates the refresher was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)

// RemoteHeadRefresher asks the remote for its default branch and records it as refs/remotes/<remote>/HEAD.
type RemoteHeadRefresher interface {
	RefreshRemoteHead(executionContext context.Context, repositoryRoot string, remoteName string) error
}

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitRemoteHeadRefresher refreshes the remote HEAD with git remote set-head --auto.
type GitRemoteHeadRefresher struct {
	executor GitExecutor
}

// NewGitRemoteHeadRefresher constructs a GitRemoteHeadRefresher.
func NewGitRemoteHeadRefresher(executor GitExecutor) (*GitRemoteHeadRefresher, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &GitRemoteHeadRefresher{executor: executor}, nil
}

// RefreshRemoteHead runs git remote set-head <remote> --auto in repositoryRoot with terminal prompts disabled.
func (refresher *GitRemoteHeadRefresher) RefreshRemoteHead(executionContext context.Context, repositoryRoot string, remoteName string) error {
	_, executionError := refresher.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitSetHeadSubcommandConstant, remoteName, gitSetHeadAutoFlagConstant},
		WorkingDirectory: repositoryRoot,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentConstant: gitTerminalPromptDisabledValueConstant,
		},
	})
	if executionError != nil {
		return fmt.Errorf(remoteHeadRefreshErrorTemplateConstant, remoteName, executionError)
	}
	return nil
}
