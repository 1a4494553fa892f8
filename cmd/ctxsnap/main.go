package main

import (
	"fmt"

	"github.com/ctxsnap/ctxsnap/internal/cli"
	"github.com/ctxsnap/ctxsnap/internal/utils"
)

// main is the entry point for the ctxsnap command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger()
	if loggerInitializationError != nil {
		panic(fmt.Errorf("logger initialization failed: %w", loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal("application execution failed: " + applicationExecutionError.Error())
	}
}
