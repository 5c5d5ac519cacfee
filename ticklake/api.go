// Package ticklake exposes remote market datasets stored in object storage
// as downloadable resources.
//
// A dataset declares its object layout as a path-format string whose
// segments may be symbolic placeholders (trade date, ticker symbol, futures
// trading code). Ticklake expands a caller's selection of dates, symbols,
// and contract expirations into the concrete set of object keys, then
// downloads those keys within a byte quota, mirroring the key hierarchy
// into a local directory.
//
// Key generation is pure computation and safe for concurrent use. Download
// orchestration fetches keys concurrently through an ObjectStore
// implementation; see the internal/s3 package for the S3-backed store.
package ticklake

import "context"

// -----------------------------------------------------------------------------
// Object storage
// -----------------------------------------------------------------------------

// ObjectStore abstracts the storage backend holding dataset files.
//
// Implementations must distinguish a missing object (ErrNotFound) from
// transport failures, and are responsible for their own timeouts and
// retries.
type ObjectStore interface {
	// Exists reports whether key is present in bucket.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Fetch downloads bucket/key into localPath, creating parent
	// directories as needed, and returns the number of bytes written.
	// Returns ErrNotFound when the object does not exist.
	Fetch(ctx context.Context, bucket, key, localPath string) (int64, error)
}

// -----------------------------------------------------------------------------
// Dataset metadata
// -----------------------------------------------------------------------------

// DatasetMetadata describes where a dataset lives and how its objects are
// named. It is supplied by a MetadataProvider, typically backed by the
// metadata service REST API.
type DatasetMetadata struct {
	// ID is the dataset's stable text identifier.
	ID string

	// BucketFormat names the storage container. It may itself contain
	// date placeholders for per-year or per-day bucket layouts
	// (e.g. "us-equity-1min-taq-yyyy").
	BucketFormat string

	// PathFormat declares the object key layout inside the bucket
	// (e.g. "yyyymmdd/s/sss.csv.gz").
	PathFormat string

	// CSVColumns lists the column names of headerless CSV datasets,
	// in file order. Empty for non-CSV datasets.
	CSVColumns []string
}

// MetadataProvider supplies per-dataset storage metadata.
//
// Implementations should return ErrUnknownDataset for names the service
// does not know about.
type MetadataProvider interface {
	DatasetMetadata(ctx context.Context, id string) (DatasetMetadata, error)
}
