package pipeline

import (
	"fmt"
	"time"
)

// IntegrityError reports raw data that is internally inconsistent, such
// as a behavior event ending before it starts. These are never silently
// repaired; the prescribed recovery is fixing the input and re-running.
type IntegrityError struct {
	DeployID string
	Start    time.Time
	End      time.Time
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity error for deployment %s (event %s..%s): %s",
		e.DeployID,
		e.Start.UTC().Format(time.RFC3339),
		e.End.UTC().Format(time.RFC3339),
		e.Reason)
}
