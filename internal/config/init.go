package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultConfigurationTemplate = `snapshot:
  mode: smart
  depth: 2
  limit: 16000
  max_files: 10
  clipboard: false
paths:
  exclude: []
  use_gitignore: true
  use_ignore: true
  include_git: false
tokens:
  enabled: false
  model: gpt-4o
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration to the requested
// target and returns the destination path.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}

	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			currentDirectory, workingDirectoryError := os.Getwd()
			if workingDirectoryError != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", workingDirectoryError)
			}
			workingDirectory = currentDirectory
		}
		destinationPath = filepath.Join(workingDirectory, ConfigFileName)
	case InitTargetGlobal:
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", homeError)
		}
		globalDirectory := filepath.Join(homeDirectory, GlobalConfigDirectoryName)
		if mkdirError := os.MkdirAll(globalDirectory, 0o755); mkdirError != nil {
			return "", fmt.Errorf("create global configuration directory: %w", mkdirError)
		}
		destinationPath = filepath.Join(globalDirectory, GlobalConfigFileName)
	default:
		return "", fmt.Errorf("unsupported configuration target %q", target)
	}

	if !options.Force {
		if _, statError := os.Stat(destinationPath); statError == nil {
			return "", fmt.Errorf("configuration already exists at %s", destinationPath)
		}
	}
	if writeError := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), 0o644); writeError != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, writeError)
	}
	return destinationPath, nil
}

// StateDatabasePath returns the location of the durable state database.
func StateDatabasePath() (string, error) {
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", homeError)
	}
	return filepath.Join(homeDirectory, GlobalConfigDirectoryName, StateDatabaseFileName), nil
}
