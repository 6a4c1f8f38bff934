package tracker

import "fmt"

// GenerateTrackerID generates a tracker ID from the current max number.
// The format is WF-XXX where XXX is a zero-padded 3-digit number.
func GenerateTrackerID(currentMax int) string {
	return fmt.Sprintf("WF-%03d", currentMax+1)
}
