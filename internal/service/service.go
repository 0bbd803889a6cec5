// Package service implements the catalog's search and work-detail use
// cases on top of the collection API and the shared cache.Store.
//
// Every lookup checks the store first; a miss goes to the API, converts
// the raw record and writes the result back. Concurrent misses for the
// same key share a single API call.
package service

import (
	"context"

	"metcatalog/internal/errors"
	"metcatalog/internal/metapi"
)

// Fetcher supplies raw collection records. *metapi.Client implements it.
type Fetcher interface {
	Departments(ctx context.Context) ([]metapi.Department, error)
	Object(ctx context.Context, id int) (*metapi.Object, error)
	Search(ctx context.Context, query string, departmentID *int) ([]int, error)
	ObjectsByDepartment(ctx context.Context, deptID int) ([]int, error)
}

var _ Fetcher = (*metapi.Client)(nil)

// Service-level failures. They are classified invalid so callers can show
// them to the user as input problems.
var (
	ErrInvalidDepartment  = errors.New("invalid department")
	ErrInvalidNationality = errors.New("invalid nationality")
	ErrTooManyFailures    = errors.New("too many works could not be loaded")
)

// Result limits: how many ids of a result list are resolved into works.
const (
	departmentLimit  = 20
	nationalityLimit = 30
	artistLimit      = 25
)
