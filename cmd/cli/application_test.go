package cli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/git-default-branch/internal/defaultbranch"
	"github.com/temirov/git-default-branch/internal/execshell"
	"github.com/temirov/git-default-branch/internal/testsupport"
	"github.com/temirov/git-default-branch/internal/utils"
)

const (
	testConfigurationFileNameConstant    = "config.yaml"
	testRemoteEnvironmentVariableName    = "GITDEFAULTBRANCH_TOOLS_DEFAULT_BRANCH_REMOTE"
	testRefreshEnvironmentVariableName   = "GITDEFAULTBRANCH_TOOLS_DEFAULT_BRANCH_REFRESH_REMOTE_HEAD"
	testMissingRemoteStandardErrorSample = "error: No such remote 'origin'"
)

type recordingCommandRunner struct {
	commands []execshell.ShellCommand
	err      error
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	if runner.err != nil {
		return execshell.ExecutionResult{}, runner.err
	}
	return execshell.ExecutionResult{ExitCode: 2, StandardError: testMissingRemoteStandardErrorSample}, nil
}

type applicationRun struct {
	standardOutput string
	standardError  string
	runner         *recordingCommandRunner
	err            error
}

func runApplication(testInstance *testing.T, arguments ...string) applicationRun {
	testInstance.Helper()
	return runApplicationWithRunner(testInstance, &recordingCommandRunner{}, arguments...)
}

func runApplicationWithRunner(testInstance *testing.T, runner *recordingCommandRunner, arguments ...string) applicationRun {
	testInstance.Helper()
	isolateConfiguration(testInstance)

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer

	application := NewApplication()
	application.rootCommand.SetOut(&standardOutput)
	application.rootCommand.SetErr(&standardError)
	application.loggerFactory = utils.NewLoggerFactoryWithOutput(&standardError)
	application.commandRunner = runner

	executionError := application.ExecuteWithArguments(arguments)
	return applicationRun{
		standardOutput: standardOutput.String(),
		standardError:  standardError.String(),
		runner:         runner,
		err:            executionError,
	}
}

func isolateConfiguration(testInstance *testing.T) {
	testInstance.Helper()

	testInstance.Setenv("XDG_CONFIG_HOME", testInstance.TempDir())
	previousWorkingDirectory, getwdError := os.Getwd()
	require.NoError(testInstance, getwdError)
	require.NoError(testInstance, os.Chdir(testInstance.TempDir()))
	testInstance.Cleanup(func() { _ = os.Chdir(previousWorkingDirectory) })
}

func TestApplicationPrintsDefaultBranch(t *testing.T) {
	testCases := []struct {
		name           string
		prepare        func(testInstance *testing.T, directory string)
		arguments      []string
		expectedOutput string
	}{
		{
			name: "LocalMain",
			prepare: func(testInstance *testing.T, directory string) {
				testsupport.InitRepository(testInstance, directory, "main")
			},
			expectedOutput: "main\n",
		},
		{
			name: "LocalMaster",
			prepare: func(testInstance *testing.T, directory string) {
				testsupport.InitRepository(testInstance, directory, "master")
			},
			expectedOutput: "master\n",
		},
		{
			name: "OriginHead",
			prepare: func(testInstance *testing.T, directory string) {
				repository := testsupport.InitRepository(testInstance, directory, "main")
				testsupport.SetSymbolicReference(testInstance, repository, "refs/remotes/origin/HEAD", "refs/remotes/origin/default")
			},
			expectedOutput: "default\n",
		},
		{
			name: "RemoteFlag",
			prepare: func(testInstance *testing.T, directory string) {
				repository := testsupport.InitRepository(testInstance, directory, "main")
				testsupport.SetSymbolicReference(testInstance, repository, "refs/remotes/origin/HEAD", "refs/remotes/origin/default")
				testsupport.SetSymbolicReference(testInstance, repository, "refs/remotes/upstream/HEAD", "refs/remotes/upstream/trunk")
			},
			arguments:      []string{"-r", "upstream"},
			expectedOutput: "trunk\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			repositoryDirectory := t.TempDir()
			testCase.prepare(t, repositoryDirectory)

			arguments := append([]string{"--dir", repositoryDirectory}, testCase.arguments...)
			run := runApplication(t, arguments...)
			require.NoError(t, run.err)
			require.Equal(t, testCase.expectedOutput, run.standardOutput)
			require.Empty(t, run.standardError)
		})
	}
}

func TestApplicationFailuresLeaveStandardOutputEmpty(t *testing.T) {
	testCases := []struct {
		name            string
		prepare         func(testInstance *testing.T, directory string)
		expectedError   error
		expectedMessage string
	}{
		{
			name:          "NotARepository",
			prepare:       func(*testing.T, string) {},
			expectedError: defaultbranch.ErrRepositoryNotFound,
		},
		{
			name: "NoDefaultBranch",
			prepare: func(testInstance *testing.T, directory string) {
				testsupport.InitRepository(testInstance, directory, "develop")
			},
			expectedError:   defaultbranch.ErrDefaultBranchNotFound,
			expectedMessage: "could not determine default branch",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			repositoryDirectory := t.TempDir()
			testCase.prepare(t, repositoryDirectory)

			run := runApplication(t, "--dir", repositoryDirectory)
			require.ErrorIs(t, run.err, testCase.expectedError)
			if len(testCase.expectedMessage) > 0 {
				require.EqualError(t, run.err, testCase.expectedMessage)
			}
			require.Empty(t, run.standardOutput)
		})
	}
}

func TestApplicationRefreshesRemoteHeadByDefault(t *testing.T) {
	repositoryDirectory := t.TempDir()
	testsupport.InitRepository(t, repositoryDirectory, "main")

	run := runApplication(t, "--dir", repositoryDirectory)
	require.NoError(t, run.err)
	require.Equal(t, "main\n", run.standardOutput)

	require.Len(t, run.runner.commands, 1)
	refreshCommand := run.runner.commands[0]
	require.Equal(t, execshell.CommandGit, refreshCommand.Name)
	require.Equal(t, []string{"remote", "set-head", "origin", "--auto"}, refreshCommand.Details.Arguments)
	require.Equal(t, "0", refreshCommand.Details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestApplicationMissingGitExecutableKeepsStandardErrorEmpty(t *testing.T) {
	repositoryDirectory := t.TempDir()
	testsupport.InitRepository(t, repositoryDirectory, "main")

	run := runApplicationWithRunner(t, &recordingCommandRunner{err: exec.ErrNotFound}, "--dir", repositoryDirectory)
	require.NoError(t, run.err)
	require.Equal(t, "main\n", run.standardOutput)
	require.Empty(t, run.standardError)
	require.Len(t, run.runner.commands, 1)
}

func TestApplicationRefreshToggle(t *testing.T) {
	testCases := []struct {
		name                string
		arguments           []string
		environment         map[string]string
		expectedInvocations int
	}{
		{name: "SeparateValue", arguments: []string{"--refresh-remote-head", "no"}, expectedInvocations: 0},
		{name: "InlineValue", arguments: []string{"--refresh-remote-head=false"}, expectedInvocations: 0},
		{name: "BareFlag", arguments: []string{"--refresh-remote-head"}, expectedInvocations: 1},
		{name: "Environment", environment: map[string]string{testRefreshEnvironmentVariableName: "false"}, expectedInvocations: 0},
		{name: "FlagOverridesEnvironment", arguments: []string{"--refresh-remote-head", "yes"}, environment: map[string]string{testRefreshEnvironmentVariableName: "false"}, expectedInvocations: 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			for environmentName, environmentValue := range testCase.environment {
				t.Setenv(environmentName, environmentValue)
			}
			repositoryDirectory := t.TempDir()
			testsupport.InitRepository(t, repositoryDirectory, "master")

			arguments := append([]string{"--dir", repositoryDirectory}, testCase.arguments...)
			run := runApplication(t, arguments...)
			require.NoError(t, run.err)
			require.Equal(t, "master\n", run.standardOutput)
			require.Len(t, run.runner.commands, testCase.expectedInvocations)
		})
	}
}

func TestApplicationConfigurationSources(t *testing.T) {
	repositoryDirectory := t.TempDir()
	repository := testsupport.InitRepository(t, repositoryDirectory, "main")
	testsupport.SetSymbolicReference(t, repository, "refs/remotes/upstream/HEAD", "refs/remotes/upstream/trunk")
	testsupport.SetSymbolicReference(t, repository, "refs/remotes/fork/HEAD", "refs/remotes/fork/stable")

	t.Run("Environment", func(t *testing.T) {
		t.Setenv(testRemoteEnvironmentVariableName, "upstream")

		run := runApplication(t, "--dir", repositoryDirectory)
		require.NoError(t, run.err)
		require.Equal(t, "trunk\n", run.standardOutput)
	})

	t.Run("ConfigurationFile", func(t *testing.T) {
		configurationPath := filepath.Join(t.TempDir(), testConfigurationFileNameConstant)
		configurationContent := "tools:\n  default_branch:\n    remote: fork\n    repository_path: " + repositoryDirectory + "\n"
		require.NoError(t, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))

		run := runApplication(t, "--config", configurationPath)
		require.NoError(t, run.err)
		require.Equal(t, "stable\n", run.standardOutput)
	})

	t.Run("FlagOverridesConfigurationFile", func(t *testing.T) {
		configurationPath := filepath.Join(t.TempDir(), testConfigurationFileNameConstant)
		configurationContent := "tools:\n  default_branch:\n    remote: fork\n"
		require.NoError(t, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))

		run := runApplication(t, "--config", configurationPath, "--dir", repositoryDirectory, "--remote", "upstream")
		require.NoError(t, run.err)
		require.Equal(t, "trunk\n", run.standardOutput)
	})
}

func TestApplicationExpandsHomeDirectory(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	repository := testsupport.InitRepository(t, filepath.Join(homeDirectory, "project"), "main")
	testsupport.SetSymbolicReference(t, repository, "refs/remotes/origin/HEAD", "refs/remotes/origin/stable")

	configurationContent := "tools:\n  default_branch:\n    repository_path: ~/project\n"
	require.NoError(t, os.WriteFile(filepath.Join(homeDirectory, testConfigurationFileNameConstant), []byte(configurationContent), 0o600))

	t.Run("Flag", func(t *testing.T) {
		run := runApplication(t, "--dir", "~/project")
		require.NoError(t, run.err)
		require.Equal(t, "stable\n", run.standardOutput)
	})

	t.Run("ConfigurationFile", func(t *testing.T) {
		run := runApplication(t, "--config", "~/"+testConfigurationFileNameConstant)
		require.NoError(t, run.err)
		require.Equal(t, "stable\n", run.standardOutput)
	})
}

func TestApplicationLogsOnlyToStandardError(t *testing.T) {
	testCases := []struct {
		name             string
		logFormat        string
		expectedFragment string
	}{
		{name: "Structured", logFormat: "structured", expectedFragment: `"msg":"Resolved default branch"`},
		{name: "Console", logFormat: "console", expectedFragment: "Detecting default branch of origin remote for "},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			repositoryDirectory := t.TempDir()
			testsupport.InitRepository(t, repositoryDirectory, "main")

			run := runApplication(t, "--dir", repositoryDirectory, "--log-level", "debug", "--log-format", testCase.logFormat)
			require.NoError(t, run.err)
			require.Equal(t, "main\n", run.standardOutput)
			require.Contains(t, run.standardError, testCase.expectedFragment)
		})
	}
}

func TestApplicationRejectsInvalidLogLevel(t *testing.T) {
	repositoryDirectory := t.TempDir()
	testsupport.InitRepository(t, repositoryDirectory, "main")

	run := runApplication(t, "--dir", repositoryDirectory, "--log-level", "verbose")
	require.ErrorContains(t, run.err, "unable to create logger")
	require.Empty(t, run.standardOutput)
}

func TestApplicationRejectsPositionalArguments(t *testing.T) {
	run := runApplication(t, "unexpected")
	require.Error(t, run.err)
	require.Empty(t, run.standardOutput)
}

func TestApplicationVersionFlag(t *testing.T) {
	run := runApplication(t, "--version")
	require.NoError(t, run.err)
	require.Equal(t, "git-default-branch version: dev\n", run.standardOutput)
	require.Empty(t, run.runner.commands)
}
