package storage

// NotFoundError reports that no task exists with the requested id.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return "task not found: " + e.ID
}

// NotFound marks the error for detection at the API boundary.
func (NotFoundError) NotFound() {}
