package service

// ValidationError carries one message per failing input field, keyed by the
// external field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation error"
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) any() bool {
	return len(e.Fields) > 0
}

// ForbiddenError is returned when the caller is not the owner of the task it
// is trying to act on. The message distinguishes modification from deletion.
type ForbiddenError struct {
	msg string
}

func (e *ForbiddenError) Error() string {
	return e.msg
}

var (
	ErrForbiddenModify = &ForbiddenError{msg: "Vous n'êtes pas autorisé à modifier cette tâche"}
	ErrForbiddenDelete = &ForbiddenError{msg: "Vous n'êtes pas autorisé à supprimer cette tâche"}
)

// StorageError wraps a blob store failure so handlers can report it without
// echoing internals.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
