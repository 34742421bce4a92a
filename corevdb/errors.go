package corevdb

import "github.com/xDarkicex/corevdb/internal/coreerr"

// Error is the public error type every Session operation returns on
// failure; it is simply the shared core taxonomy re-exported so callers
// never need to import an internal package to inspect an error code.
type Error = coreerr.Error

// Code re-exports the core's error code enum (§4.9).
type Code = coreerr.Code

// Error codes, re-exported for callers doing errors.Is-style checks via
// IsCode below.
const (
	CodeDimensionMismatch    = coreerr.DimensionMismatch
	CodeDuplicateId          = coreerr.DuplicateId
	CodeNotFound             = coreerr.NotFound
	CodeNotTrained           = coreerr.NotTrained
	CodeInsufficientTraining = coreerr.InsufficientTrainingData
	CodeInvalidSchema        = coreerr.InvalidSchema
	CodeSchemaViolation      = coreerr.SchemaViolation
	CodeMissingField         = coreerr.MissingField
	CodeInvalidFilter        = coreerr.InvalidFilter
	CodeStorageError         = coreerr.StorageError
	CodeIntegrityError       = coreerr.IntegrityError
	CodeIncompatibleVersion  = coreerr.IncompatibleVersion
	CodeSessionDestroyed     = coreerr.SessionDestroyed
	CodeInvalidConfig        = coreerr.InvalidConfig
)

// IsCode reports whether err carries the given core error code.
func IsCode(err error, code Code) bool {
	return coreerr.Is(err, code)
}
