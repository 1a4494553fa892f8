package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctxsnap/ctxsnap/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initGlobalFlagName   = "global"
	initGlobalFlagDescr  = "write the global configuration instead of a local one"
	initForceFlagName    = "force"
	initForceFlagDescr   = "overwrite an existing configuration file"

	initializedMessageFormat = "configuration written to %s\n"
)

func createInitCommand() *cobra.Command {
	var writeGlobal bool
	var forceOverwrite bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			destinationPath, initializeError := config.InitializeConfiguration(config.InitOptions{
				Target: target,
				Force:  forceOverwrite,
			})
			if initializeError != nil {
				return initializeError
			}
			fmt.Printf(initializedMessageFormat, destinationPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&writeGlobal, initGlobalFlagName, false, initGlobalFlagDescr)
	initCommand.Flags().BoolVar(&forceOverwrite, initForceFlagName, false, initForceFlagDescr)
	return initCommand
}
