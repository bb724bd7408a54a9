package work

import (
	"errors"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/store"
)

// Policy decides what Enqueue does when work with the same name exists.
type Policy int

// Existing work policies
const (
	// ExistingWorkReplace cancels the existing work and enqueues the new one.
	ExistingWorkReplace Policy = iota
	// ExistingWorkKeep leaves the existing work alone and drops the new one.
	ExistingWorkKeep
)

// Request is a one-shot unit of background work.
type Request struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Tag             string            `json:"tag"`
	Kind            string            `json:"kind"`
	Input           map[string]string `json:"input"`
	RunAt           time.Time         `json:"run_at"`
	Attempts        int               `json:"attempts"`
	RequiresNetwork bool              `json:"requires_network"`
}

func (r Request) toModel() *store.WorkRequest {
	return &store.WorkRequest{
		ID:              r.ID,
		Name:            r.Name,
		Tag:             r.Tag,
		Kind:            r.Kind,
		Input:           r.Input,
		RunAt:           r.RunAt,
		Attempts:        r.Attempts,
		RequiresNetwork: r.RequiresNetwork,
	}
}

func fromModel(m store.WorkRequest) Request {
	return Request{
		ID:              m.ID,
		Name:            m.Name,
		Tag:             m.Tag,
		Kind:            m.Kind,
		Input:           m.Input,
		RunAt:           m.RunAt,
		Attempts:        m.Attempts,
		RequiresNetwork: m.RequiresNetwork,
	}
}

// permanentError marks a worker failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the manager drops the work instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
