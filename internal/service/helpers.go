package service

import "fmt"

// formatValidationErrors folds a document's problems into one error listing
// each on its own line.
func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("sequence validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
