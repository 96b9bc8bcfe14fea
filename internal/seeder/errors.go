package seeder

import "errors"

var (
	ErrInvalidRange         = errors.New("invalid range")
	ErrNoBucketMatched      = errors.New("no bucket matched")
	ErrRegistryPrecondition = errors.New("registry precondition unmet")
	ErrInvalidProfile       = errors.New("invalid size profile")
)
