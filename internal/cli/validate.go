package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecore/internal/compiler"
)

// SceneError is a validation error attributed to a scene. Scene is empty
// for errors raised while loading the directory.
type SceneError struct {
	Scene string `json:"scene,omitempty"`
	compiler.ValidationError
}

// SceneWarning is a cycle warning attributed to a scene.
type SceneWarning struct {
	Scene string `json:"scene"`
	compiler.CycleWarning
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Scenes   []string       `json:"scenes"`
	Errors   []SceneError   `json:"errors,omitempty"`
	Warnings []SceneWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate scene declarations without emitting IR",
		Long: `Validate CUE scene declarations against the built-in node kinds.

Checks that every type asks only for interfaces its kind supports, that
field values decode to their field types, and that every route connects
an existing eventOut to an eventIn of the same type. Route cycles are
reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := ValidateSpecsDir(specsDir, formatter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateSpecsDir compiles and validates every scene in a directory. The
// returned error reports a directory that could not be loaded; validation
// problems are reported in the result.
func ValidateSpecsDir(specsDir string, formatter *OutputFormatter) (*ValidationResult, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		return nil, loadErrors[0]
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Scenes: []string{}}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, SceneError{ValidationError: loadErrorToValidation(err)})
	}

	for _, spec := range loadResult.Scenes {
		formatter.VerboseLog("Validating scene: %s", spec.Name)
		result.Scenes = append(result.Scenes, spec.Name)

		for _, ve := range compiler.ValidateWithKinds(&spec, reg) {
			result.Errors = append(result.Errors, SceneError{Scene: spec.Name, ValidationError: ve})
		}
		for _, w := range compiler.AnalyzeCycles(spec) {
			result.Warnings = append(result.Warnings, SceneWarning{Scene: spec.Name, CycleWarning: w})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		ve := compiler.ValidationError{Field: "load", Message: loadErr.Message, Code: loadErr.Code}
		if loadErr.Pos.IsValid() {
			ve.Line = loadErr.Pos.Line()
		}
		return ve
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d scene(s))\n", len(result.Scenes))
	printWarnings(formatter, result.Warnings)
	return nil
}

func printWarnings(formatter *OutputFormatter, warnings []SceneWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer)
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s: %s\n", w.Scene, w.Message)
		for _, r := range w.Routes {
			fmt.Fprintf(formatter.Writer, "    %s\n", r)
		}
	}
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Errors {
		prefix := e.Scene
		if prefix == "" {
			prefix = "specs"
		}
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", prefix, e.Line)
		} else {
			fmt.Fprintln(formatter.Writer, prefix)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	printWarnings(formatter, result.Warnings)

	return failure
}
