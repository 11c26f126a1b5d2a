package domain

import "errors"

var (
	// ErrModelNotFound means no seasonal model is registered for the product.
	ErrModelNotFound = errors.New("seasonal model not found")
	// ErrSnapshotMissing means no feature row exists for the product.
	ErrSnapshotMissing = errors.New("feature snapshot missing")
	// ErrArtifactLoad means the shared feature model or scaler could not be loaded.
	ErrArtifactLoad = errors.New("shared artifact load failed")
	// ErrInsufficientHorizon means a forecast is shorter than the reorder window.
	ErrInsufficientHorizon = errors.New("forecast horizon shorter than reorder window")
	// ErrStockMissing means the current-stock lookup has no row for the product.
	ErrStockMissing = errors.New("current stock missing")
	// ErrProductNotFound means the catalog does not know the product.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidInput marks rejected arguments.
	ErrInvalidInput = errors.New("invalid input")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrModelNotFound, "model_not_found"},
	{ErrSnapshotMissing, "snapshot_missing"},
	{ErrArtifactLoad, "artifact_load_error"},
	{ErrInsufficientHorizon, "insufficient_horizon"},
	{ErrStockMissing, "stock_missing"},
	{ErrProductNotFound, "not_found"},
	{ErrInvalidInput, "invalid_input"},
}

// ErrorKind returns a stable short name for err, or "internal" when err does
// not wrap one of the package errors.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return "internal"
}

// IsNotFound reports whether err should surface as "not found" on a single
// product lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrSnapshotMissing)
}
