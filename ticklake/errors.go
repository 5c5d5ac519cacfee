package ticklake

import "fmt"

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a generated key is absent from storage.
	// Datasets are sparse, so the downloader skips these silently.
	ErrNotFound = errNotFound{}

	// ErrUnknownDataset indicates a dataset name the metadata service
	// does not know about.
	ErrUnknownDataset = errUnknownDataset{}
)

type errNotFound struct{}

func (errNotFound) Error() string { return "object not found" }

type errUnknownDataset struct{}

func (errUnknownDataset) Error() string { return "unknown dataset" }

// RangeError indicates an invalid or disallowed selection: an inverted
// range, a range straddling more than one storage partition, or a
// selection that cannot drive the template's placeholders. It is always
// raised before any network call.
type RangeError struct {
	Msg string
}

func (e *RangeError) Error() string {
	return "ticklake: " + e.Msg
}

// DestinationError indicates the download destination is missing or not a
// directory. It is raised before any key is generated.
type DestinationError struct {
	Path string
	Err  error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("ticklake: destination %q: %v", e.Path, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

// QuotaError indicates the cumulative downloaded bytes went over the
// configured budget. Fetching stops, but bytes already written are kept.
type QuotaError struct {
	Limit int64
	Used  int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("ticklake: download quota exceeded: %d of %d bytes", e.Used, e.Limit)
}

// TransportError wraps a storage failure other than a missing object.
// The downloader fails fast on the first one.
type TransportError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ticklake: fetch %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PlaceholderError indicates a filler was asked to render a placeholder
// outside the axis it owns.
type PlaceholderError struct {
	Placeholder Placeholder
	Axis        Axis
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("ticklake: placeholder %q does not belong to the %s axis", string(e.Placeholder), e.Axis)
}
