package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	switch GetCategory(err) {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryInternal, CategoryParse:
		return 10 // Internal error
	case CategoryCompile, CategoryFileSystem:
		return 11 // Build error
	case CategoryProcess, CategoryRuntime, CategoryStore:
		return 12 // Runtime error
	case CategoryCycle:
		return 13 // Unbuildable cycle
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display. Detailed errors
// (compiler diagnostics) are printed in full and in order; everything else
// is a single summary line.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var detailed Detailed
	if stderrors.As(err, &detailed) {
		lines := detailed.Details()
		if a.verbose {
			return err.Error() + "\n" + strings.Join(lines, "\n")
		}
		return strings.Join(lines, "\n")
	}

	var be *BuildError
	if stderrors.As(err, &be) {
		return a.formatBuildError(be)
	}

	if a.verbose {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("%s: %v", GetCategory(err), err)
}

// formatBuildError formats a BuildError for display.
func (a *CLIErrorAdapter) formatBuildError(err *BuildError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	switch GetCategory(err) {
	case CategoryInternal, CategoryParse, CategoryRuntime, CategoryStore:
		return true
	case CategoryCompile:
		// diagnostics are already printed in full
		return false
	}

	var be *BuildError
	if stderrors.As(err, &be) {
		return be.Severity == SeverityFatal
	}
	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	var be *BuildError
	if stderrors.As(err, &be) {
		level := a.slogLevelFromSeverity(be.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(be.Category)),
		}
		for k, v := range be.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if be.Cause != nil {
			attrs = append(attrs, slog.String("cause", be.Cause.Error()))
		}

		a.logger.LogAttrs(context.Background(), level, be.Message, attrs...)
		return
	}

	a.logger.Error("Build error", "category", string(GetCategory(err)), "error", err)
}

// slogLevelFromSeverity converts BuildError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
