package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/git-default-branch/internal/defaultbranch"
	"github.com/temirov/git-default-branch/internal/execshell"
	"github.com/temirov/git-default-branch/internal/ui"
	"github.com/temirov/git-default-branch/internal/utils"
	flagutils "github.com/temirov/git-default-branch/internal/utils/flags"
	pathutils "github.com/temirov/git-default-branch/internal/utils/path"
)

const (
	applicationNameConstant                   = "git-default-branch"
	applicationShortDescriptionConstant       = "Print the default branch of a local Git clone"
	applicationLongDescriptionConstant        = "git-default-branch reads the remote-tracking HEAD of a clone, optionally refreshes it from the remote, and falls back to a local main or master branch."
	applicationVersionTemplateConstant        = "{{.Name}} version: {{.Version}}\n"
	configFileFlagNameConstant                = "config"
	configFileFlagUsageConstant               = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                  = "log-level"
	logLevelFlagUsageConstant                 = "Override the configured log level."
	logFormatFlagNameConstant                 = "log-format"
	logFormatFlagUsageConstant                = "Override the configured log format (structured or console)."
	repositoryPathFlagNameConstant            = "dir"
	repositoryPathFlagShorthandConstant       = "d"
	repositoryPathFlagUsageConstant           = "Repository directory, or any directory inside it."
	remoteNameFlagNameConstant                = "remote"
	remoteNameFlagShorthandConstant           = "r"
	remoteNameFlagUsageConstant               = "Remote whose HEAD names the default branch."
	refreshRemoteHeadFlagNameConstant         = "refresh-remote-head"
	refreshRemoteHeadFlagUsageConstant        = "Run git remote set-head --auto when the remote HEAD is missing."
	commonConfigurationKeyConstant            = "common"
	commonLogLevelConfigKeyConstant           = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant          = commonConfigurationKeyConstant + ".log_format"
	toolsConfigurationKeyConstant             = "tools"
	defaultBranchConfigurationKeyConstant     = toolsConfigurationKeyConstant + ".default_branch"
	environmentPrefixConstant                 = "GITDEFAULTBRANCH"
	configurationNameConstant                 = "config"
	configurationTypeConstant                 = "yaml"
	configurationInitializedMessageConstant   = "configuration initialized"
	configurationLogLevelFieldConstant        = "log_level"
	configurationLogFormatFieldConstant       = "log_format"
	configurationFileFieldConstant            = "config_file"
	configurationLoadErrorTemplateConstant    = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant       = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant           = "unable to flush logger: %w"
	executorCreationErrorTemplateConstant     = "unable to create git executor: %w"
	refresherCreationErrorTemplateConstant    = "unable to create remote HEAD refresher: %w"
	outputWriteErrorTemplateConstant          = "unable to write branch name: %w"
	resolutionRequestedMessageConstant        = "resolving default branch"
	logFieldRepositoryPathConstant            = "repository_path"
	logFieldRemoteConstant                    = "remote"
	logFieldRefreshRemoteHeadConstant         = "refresh_remote_head"
	loggerNotInitializedMessageConstant       = "logger not initialized"
	defaultCommonLogLevelConstant             = utils.LogLevelError
	defaultCommonLogFormatConstant            = utils.LogFormatStructured
	applicationConfigurationDirectoryConstant = applicationNameConstant
)

// Version is the build version reported by --version. Release builds set it with -ldflags "-X".
var Version = "dev"

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds tool-specific configuration.
type ApplicationToolsConfiguration struct {
	DefaultBranch defaultbranch.CommandConfiguration `mapstructure:"default_branch"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand                *cobra.Command
	configurationLoader        *utils.ConfigurationLoader
	loggerFactory              *utils.LoggerFactory
	commandRunner              execshell.CommandRunner
	homeExpander               *pathutils.HomeExpander
	logger                     *zap.Logger
	configuration              ApplicationConfiguration
	configurationMetadata      utils.LoadedConfiguration
	configurationFilePath      string
	logLevelFlagValue          string
	logFormatFlagValue         string
	repositoryPathFlagValue    string
	remoteNameFlagValue        string
	refreshRemoteHeadFlagValue bool
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		utils.DefaultConfigurationSearchPaths(applicationConfigurationDirectoryConstant),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		commandRunner:       execshell.NewOSCommandRunner(),
		homeExpander:        pathutils.NewHomeExpander(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetVersionTemplate(applicationVersionTemplateConstant)
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	defaults := defaultbranch.DefaultCommandConfiguration()
	cobraCommand.Flags().StringVarP(&application.repositoryPathFlagValue, repositoryPathFlagNameConstant, repositoryPathFlagShorthandConstant, defaults.RepositoryPath, repositoryPathFlagUsageConstant)
	cobraCommand.Flags().StringVarP(&application.remoteNameFlagValue, remoteNameFlagNameConstant, remoteNameFlagShorthandConstant, defaults.RemoteName, remoteNameFlagUsageConstant)
	flagutils.AddToggleFlag(cobraCommand.Flags(), &application.refreshRemoteHeadFlagValue, refreshRemoteHeadFlagNameConstant, "", defaults.RefreshRemoteHead, refreshRemoteHeadFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command with the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the root command with the provided arguments and ensures logger flushing.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	normalizedArguments := flagutils.NormalizeToggleArguments(application.rootCommand.Flags(), arguments)
	if normalizedArguments == nil {
		normalizedArguments = []string{}
	}
	application.rootCommand.SetArgs(normalizedArguments)

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(defaultCommonLogLevelConstant),
		commonLogFormatConfigKeyConstant: string(defaultCommonLogFormatConstant),
	}
	for configurationKey, configurationValue := range defaultbranch.DefaultConfigurationValues(defaultBranchConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	configurationFilePath := application.homeExpander.Expand(strings.TrimSpace(application.configurationFilePath))
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	application.applyDefaultBranchFlags(command)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(strings.TrimSpace(application.configuration.Common.LogLevel)),
		utils.LogFormat(strings.TrimSpace(application.configuration.Common.LogFormat)),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) applyDefaultBranchFlags(command *cobra.Command) {
	if command == nil {
		return
	}

	defaultBranchConfiguration := &application.configuration.Tools.DefaultBranch
	if command.Flags().Changed(repositoryPathFlagNameConstant) {
		defaultBranchConfiguration.RepositoryPath = application.repositoryPathFlagValue
	}
	if command.Flags().Changed(remoteNameFlagNameConstant) {
		defaultBranchConfiguration.RemoteName = application.remoteNameFlagValue
	}
	if command.Flags().Changed(refreshRemoteHeadFlagNameConstant) {
		defaultBranchConfiguration.RefreshRemoteHead = application.refreshRemoteHeadFlagValue
	}
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) commandEventObserver() execshell.CommandEventObserver {
	if application.humanReadableLoggingEnabled() {
		return ui.NewConsoleCommandEventLogger(application.logger)
	}
	return nil
}

func (application *Application) runRootCommand(command *cobra.Command) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	options := application.configuration.Tools.DefaultBranch.Options()
	options.RepositoryPath = application.homeExpander.Expand(options.RepositoryPath)
	application.logger.Debug(
		resolutionRequestedMessageConstant,
		zap.String(logFieldRepositoryPathConstant, options.RepositoryPath),
		zap.String(logFieldRemoteConstant, options.RemoteName),
		zap.Bool(logFieldRefreshRemoteHeadConstant, options.RefreshRemoteHead),
	)

	executor, executorError := execshell.NewShellExecutor(application.logger, application.commandRunner, application.commandEventObserver())
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}
	refresher, refresherError := defaultbranch.NewGitRemoteHeadRefresher(executor)
	if refresherError != nil {
		return fmt.Errorf(refresherCreationErrorTemplateConstant, refresherError)
	}

	service := defaultbranch.NewService(defaultbranch.ServiceDependencies{
		Logger:    application.logger,
		Refresher: refresher,
	})

	result, resolveError := service.Resolve(command.Context(), options)
	if resolveError != nil {
		return resolveError
	}

	if _, writeError := fmt.Fprintln(command.OutOrStdout(), result.BranchName); writeError != nil {
		return fmt.Errorf(outputWriteErrorTemplateConstant, writeError)
	}
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
