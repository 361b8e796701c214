package importer

import "github.com/google/uuid"

// newID mints a surrogate key the same way every store upsert does when
// handed a blank ID. The importer pre-assigns ids for rows it builds so
// its own in-memory bookkeeping (default-release tracking, credit lists)
// can reference them before the write lands.
func newID() string {
	return uuid.New().String()
}
