package pipeline

import (
	"errors"
	"fmt"

	"github.com/fpang/asset-labeler/internal/trigger"
)

var (
	// ErrNotReady reports that an asset's file URL did not appear within the
	// polling budget.
	ErrNotReady = errors.New("asset file not ready")

	// ErrTooLarge reports that an image exceeds the detector size limit.
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrNoURL reports that an asset has no processed file.
	ErrNoURL = errors.New("asset has no file URL")

	// ErrUnsupportedFormat reports image bytes in a format that can be
	// neither sent nor converted.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// NotReadyError is returned when polling exhausts its attempts.
type NotReadyError struct {
	Ref      trigger.AssetCreateEvent
	Attempts int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("asset %s/%s not ready after %d attempts", e.Ref.SpaceID, e.Ref.AssetID, e.Attempts)
}

// Is matches ErrNotReady.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// CollaboratorError wraps a failure of the CMS, the detector or the index,
// tagged with the asset it concerned.
type CollaboratorError struct {
	Op      string
	SpaceID string
	AssetID string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s (space %s, asset %s): %v", e.Op, e.SpaceID, e.AssetID, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// WriteError is returned when the index rejects a record.
type WriteError struct {
	ObjectID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write index record %s: %v", e.ObjectID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
