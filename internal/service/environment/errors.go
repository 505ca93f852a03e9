package environment

import "errors"

var (
	ErrInvalidStatus      = errors.New("invalid environment status")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrScenarioNotFound   = errors.New("scenario not found in environment")
	ErrBugNotFound        = errors.New("bug not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrSuiteNotFound      = errors.New("suite not found")
	ErrNameRequired       = errors.New("environment name required")
	ErrNoScenariosInSuite = errors.New("suite has no scenarios")
)
