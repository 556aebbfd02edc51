package cmd

import (
	"fmt"
	"os"

	apperrors "transfer-reconciliation-service/pkg/errors"
	"transfer-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler translates engine errors into operator-friendly messages
// and process exit codes
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints the error and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("command failed")

	if engineErr, ok := apperrors.AsEngineError(err); ok {
		return h.handleEngineError(engineErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) handleEngineError(err *apperrors.EngineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := h.categoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) categoryHelp(category apperrors.Category) string {
	switch category {
	case apperrors.CategorySource:
		return "The run was aborted before any record was modified. Fix the source and re-run."
	case apperrors.CategoryConfiguration:
		return "Check flag values and the config file. Run 'reconciler reconcile --help' for valid ranges."
	case apperrors.CategoryValidation:
		return "One or more records failed validation. Inspect the named field in the source data."
	default:
		return ""
	}
}
