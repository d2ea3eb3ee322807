package ingest

import "strings"

// ValidationError signals a rejected upload: a file that is not parseable CSV
// or one whose header misses required columns. The pipeline guarantees no
// rows were written when it returns one.
type ValidationError struct {
	Message        string
	MissingColumns []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingColumns) > 0 {
		return e.Message + ": " + strings.Join(e.MissingColumns, ", ")
	}
	return e.Message
}
