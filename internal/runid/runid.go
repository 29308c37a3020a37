// Package runid generates the campaign identifiers the CLI stamps on
// fuzz runs before handing them to internal/store or internal/dashboard.
package runid

import "github.com/google/uuid"

// New returns a fresh random campaign ID.
func New() string {
	return uuid.New().String()
}
