// Package project contains the pure business logic for project registration.
// This is part of the Functional Core - no I/O, only pure functions.
package project

import "fmt"

// GenerateProjectID generates a project ID from the current max number.
// The format is PROJ-XXX where XXX is a zero-padded 3-digit number.
func GenerateProjectID(currentMax int) string {
	return fmt.Sprintf("PROJ-%03d", currentMax+1)
}
