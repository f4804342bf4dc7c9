package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dhd/internal/catalog"
	"github.com/roach88/dhd/internal/gate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Address string // optional typed coordinates to check against the catalog
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool           `json:"valid"`
	Catalog      string         `json:"catalog"`
	Destinations int            `json:"destinations"`
	Address      *AddressCheck  `json:"address,omitempty"`
	Errors       []CatalogIssue `json:"errors,omitempty"`
}

// CatalogIssue is one problem found in a catalog definition.
type CatalogIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// AddressCheck reports how typed coordinates would dial.
type AddressCheck struct {
	Input       string           `json:"input"`
	Coordinates string           `json:"coordinates,omitempty"`
	Error       string           `json:"error,omitempty"`
	Destination string           `json:"destination,omitempty"`
	Suggestions []SuggestionView `json:"suggestions,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [catalog-dir]",
		Short: "Validate the destination catalog",
		Long: `Validate a CUE destination catalog without dialing.

Checks the definitions against the catalog schema, rejects duplicate ids
and addresses, and enforces address lengths. Without an argument the
configured catalog.dir is used, or the built-in catalog when unset.

With --address, the coordinates are also checked against the configured
pattern and resolved against the catalog; near misses are suggested.

Examples:
  dhd validate ./catalog
  dhd validate --address "GDC AFE"
  dhd validate ./catalog --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.Config.Catalog.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(opts, dir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "address", "", "check typed coordinates against the catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result := ValidationResult{Catalog: dir}
	if dir == "" {
		result.Catalog = "(built-in)"
	}
	formatter.VerboseLog("Loading catalog %s", result.Catalog)

	cat, err := loadCatalog(dir)
	if err != nil {
		var loadErr *catalog.LoadError
		if !errors.As(err, &loadErr) {
			// Missing directory, no files: nothing to validate.
			return outputValidateError(formatter, "E_CATALOG_LOAD", err)
		}
		result.Errors = append(result.Errors, issueFromLoadError(loadErr))
		return outputValidation(formatter, result)
	}

	result.Valid = true
	result.Destinations = cat.Len()
	formatter.VerboseLog("Catalog holds %d destination(s)", cat.Len())

	if opts.Address != "" {
		check, err := checkAddress(opts, cat)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid address settings", err)
		}
		result.Address = check
	}
	return outputValidation(formatter, result)
}

// checkAddress validates the typed coordinates and resolves them.
func checkAddress(opts *ValidateOptions, cat *catalog.Catalog) (*AddressCheck, error) {
	v, err := opts.Config.Validator()
	if err != nil {
		return nil, err
	}

	check := &AddressCheck{Input: opts.Address}
	coords, err := v.Validate(opts.Address)
	if err != nil {
		var gerr *gate.Error
		if errors.As(err, &gerr) {
			check.Error = string(gerr.Code)
		} else {
			check.Error = err.Error()
		}
		return check, nil
	}

	check.Coordinates = coords.String()
	if d, ok := cat.Resolve(coords); ok {
		check.Destination = d.ID
		return check, nil
	}
	for _, s := range cat.Nearest(coords, 3) {
		check.Suggestions = append(check.Suggestions, SuggestionView{
			ID:       s.Destination.ID,
			Name:     s.Destination.Name,
			Address:  s.Destination.Address.String(),
			Distance: s.Distance,
		})
	}
	return check, nil
}

func issueFromLoadError(e *catalog.LoadError) CatalogIssue {
	issue := CatalogIssue{Field: e.Field, Message: e.Message}
	if e.Pos.IsValid() {
		issue.File = e.Pos.Filename()
		issue.Line = e.Pos.Line()
	}
	return issue
}

// outputValidation renders the result. An invalid catalog or a rejected
// address is a check failure (exit 1).
func outputValidation(f *OutputFormatter, result ValidationResult) error {
	failed := !result.Valid || (result.Address != nil && (result.Address.Error != "" || result.Address.Destination == ""))

	if f.JSON() {
		var err error
		if failed {
			err = f.Fail("E_VALIDATION", validationMessage(result), result, "")
		} else {
			err = f.Respond(CLIResponse{Status: "ok", Data: result})
		}
		if err != nil {
			return err
		}
	} else {
		renderValidation(f, result)
	}

	if failed {
		return NewExitError(ExitFailure, validationMessage(result))
	}
	return nil
}

func renderValidation(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	if !result.Valid {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗ catalog invalid:"), result.Catalog)
		for _, issue := range result.Errors {
			if issue.Line > 0 {
				fmt.Fprintf(w, "  %s:%d: %s: %s\n", issue.File, issue.Line, issue.Field, issue.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", issue.Field, issue.Message)
			}
		}
		return
	}

	fmt.Fprintf(w, "%s %s (%d destinations)\n", okStyle.Render("✓ catalog valid:"), result.Catalog, result.Destinations)

	check := result.Address
	if check == nil {
		return
	}
	switch {
	case check.Error != "":
		fmt.Fprintf(w, "%s %q: %s\n", failStyle.Render("✗ address rejected"), check.Input, check.Error)
	case check.Destination != "":
		fmt.Fprintf(w, "%s %s -> %s\n", okStyle.Render("✓ address"), check.Coordinates, check.Destination)
	default:
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗ no destination at"), check.Coordinates)
		for _, s := range check.Suggestions {
			fmt.Fprintf(w, "  %s %s %s (distance %d)\n", idColumn.Render(s.ID), nameColumn.Render(s.Name), s.Address, s.Distance)
		}
	}
}

func validationMessage(result ValidationResult) string {
	switch {
	case !result.Valid:
		return fmt.Sprintf("catalog has %d error(s)", len(result.Errors))
	case result.Address != nil && result.Address.Error != "":
		return "address rejected: " + result.Address.Error
	case result.Address != nil && result.Address.Destination == "":
		return "address resolves to no destination"
	}
	return ""
}

// outputValidateError reports a catalog that could not be loaded at all.
func outputValidateError(f *OutputFormatter, code string, err error) error {
	if encErr := f.Error(code, err.Error(), nil); encErr != nil {
		return encErr
	}
	return WrapExitError(ExitCommandError, "failed to load catalog", err)
}
