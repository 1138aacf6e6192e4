package restore

import "fmt"

// MissingTemplateError reports that the target environment has no credential
// template for a logical key a workflow depends on. It is fatal for that
// workflow's subtree only; unrelated subtrees keep restoring.
type MissingTemplateError struct {
	Key         string
	Environment string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("no credential template for %q in environment %q", e.Key, e.Environment)
}

// CreateRejectedError reports that the target server rejected creation of a
// resource. It aborts the run and triggers this-run rollback.
type CreateRejectedError struct {
	Kind     string
	SourceID string
	Name     string
	Err      error
}

func (e *CreateRejectedError) Error() string {
	return fmt.Sprintf("failed to create %s %q (source id %s): %v", e.Kind, e.Name, e.SourceID, e.Err)
}

func (e *CreateRejectedError) Unwrap() error {
	return e.Err
}
