package types

import "errors"

// Validation errors. The operation was rejected and nothing was mutated.
var (
	ErrInvalidName       = errors.New("name must not be empty or contain \"/\"")
	ErrNameCollision     = errors.New("name already used by a sibling")
	ErrInvalidImportance = errors.New("importance must be between 0 and 4")
	ErrInvalidRange      = errors.New("range start is after range end")
	ErrInvalidItem       = errors.New("invalid item")
	ErrNotAFile          = errors.New("item is not a file")
	ErrNotAFolder        = errors.New("item is not a folder")
	ErrRootItem          = errors.New("operation not allowed on the root")
	ErrNotTextFile       = errors.New("file type does not hold text content")
	ErrNoPendingMove     = errors.New("no file selected to move")
	ErrEmptyQuery        = errors.New("search query must not be empty")
	ErrPasswordRequired  = errors.New("password must not be empty")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrAlreadyLocked     = errors.New("file is already locked")
	ErrNotLocked         = errors.New("file is not locked")
	ErrNoDigest          = errors.New("file has no previous password")
)

// Authentication errors.
var (
	ErrAuthFailed   = errors.New("wrong password")
	ErrAuthRequired = errors.New("file is locked")
)

// ErrCapacity is returned when a collision rename runs out of attempts.
var ErrCapacity = errors.New("too many items with the same name")

// Repository and store errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrInvalidID       = errors.New("invalid item ID")
	ErrNotPersisted    = errors.New("item was not persisted")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Backup errors.
var (
	ErrBackupExists  = errors.New("backup file already exists")
	ErrInvalidBackup = errors.New("invalid backup payload")
)

// IsRejection reports whether err is a validation, authentication or
// capacity error, i.e. a rejected request rather than a storage failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidName, ErrNameCollision, ErrInvalidImportance, ErrInvalidRange,
		ErrInvalidItem, ErrNotAFile, ErrNotAFolder, ErrRootItem, ErrNotTextFile,
		ErrNoPendingMove, ErrEmptyQuery, ErrPasswordRequired, ErrPasswordMismatch,
		ErrAlreadyLocked, ErrNotLocked, ErrNoDigest, ErrAuthFailed, ErrAuthRequired,
		ErrCapacity, ErrNotFound, ErrBackupExists, ErrInvalidBackup,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
