package defaultbranch

import "strings"

const (
	configurationRemoteKeyConstant            = "remote"
	configurationRepositoryPathKeyConstant    = "repository_path"
	configurationRefreshRemoteHeadKeyConstant = "refresh_remote_head"
	configurationKeySeparatorConstant         = "."
	defaultRepositoryPathConstant             = "."
)

// CommandConfiguration captures configuration values for default branch resolution.
type CommandConfiguration struct {
	RemoteName        string `mapstructure:"remote"`
	RepositoryPath    string `mapstructure:"repository_path"`
	RefreshRemoteHead bool   `mapstructure:"refresh_remote_head"`
}

// DefaultCommandConfiguration provides baseline configuration values for default branch resolution.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RemoteName:        defaultRemoteNameConstant,
		RepositoryPath:    defaultRepositoryPathConstant,
		RefreshRemoteHead: true,
	}
}

// DefaultConfigurationValues returns the defaults keyed beneath rootKey for registration with the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRemoteKeyConstant:            defaults.RemoteName,
		rootKey + configurationKeySeparatorConstant + configurationRepositoryPathKeyConstant:    defaults.RepositoryPath,
		rootKey + configurationKeySeparatorConstant + configurationRefreshRemoteHeadKeyConstant: defaults.RefreshRemoteHead,
	}
}

// Sanitize trims values and restores defaults for blank fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaultRemoteNameConstant
	}

	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPathConstant
	}

	return sanitized
}

// Options converts the configuration into resolution options.
func (configuration CommandConfiguration) Options() Options {
	sanitized := configuration.Sanitize()
	return Options{
		RepositoryPath:    sanitized.RepositoryPath,
		RemoteName:        sanitized.RemoteName,
		RefreshRemoteHead: sanitized.RefreshRemoteHead,
	}
}
