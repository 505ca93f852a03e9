package store

import "errors"

var (
	ErrNameRequired     = errors.New("name required")
	ErrStoreNotFound    = errors.New("store not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrSuiteNotFound    = errors.New("suite not found")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)
