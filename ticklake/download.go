package ticklake

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// defaultWorkers bounds concurrent fetches. Daily per-symbol datasets can
// expand to thousands of small objects, so serial fetching is too slow,
// but the metadata service's S3 buckets throttle aggressive callers.
const defaultWorkers = 8

// -----------------------------------------------------------------------------
// Downloader
// -----------------------------------------------------------------------------

// Downloader resolves a dataset's storage layout, expands a selection
// into object keys, and mirrors the keys found in storage into a local
// directory within a byte quota.
type Downloader struct {
	meta    MetadataProvider
	store   ObjectStore
	quota   *Quota
	workers int
	log     zerolog.Logger
}

// DownloadOption configures a Downloader.
type DownloadOption func(*Downloader)

// WithQuota replaces the downloader's per-instance quota. Passing the
// same Quota to several downloaders enforces one shared budget.
func WithQuota(q *Quota) DownloadOption {
	return func(d *Downloader) { d.quota = q }
}

// WithWorkers sets the number of concurrent fetch workers. Non-positive
// values mean the default.
func WithWorkers(n int) DownloadOption {
	return func(d *Downloader) { d.workers = n }
}

// WithLogger attaches a structured logger. The default discards all
// events.
func WithLogger(log zerolog.Logger) DownloadOption {
	return func(d *Downloader) { d.log = log }
}

// NewDownloader creates a Downloader over a metadata provider and an
// object store. Defaults: a fresh 1 TiB quota, 8 workers, no logging.
func NewDownloader(meta MetadataProvider, store ObjectStore, opts ...DownloadOption) (*Downloader, error) {
	if meta == nil {
		return nil, errors.New("ticklake: metadata provider is required")
	}
	if store == nil {
		return nil, errors.New("ticklake: object store is required")
	}
	d := &Downloader{
		meta:    meta,
		store:   store,
		quota:   NewQuota(0),
		workers: defaultWorkers,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = defaultWorkers
	}
	return d, nil
}

// Result summarizes one download batch.
type Result struct {
	// Files is the number of objects fetched and written locally.
	Files int

	// Skipped is the number of generated keys absent from storage.
	Skipped int

	// Bytes is the total bytes written.
	Bytes int64
}

// Download mirrors every object of the dataset matching the selection
// into destDir, preserving the key's /-separated hierarchy.
//
// Validation happens before any network call: destDir must be an existing
// directory (DestinationError), and the date range must fit the dataset's
// bucket partitioning (RangeError for a two-year range against a
// bucket-per-year dataset). Keys absent from storage are skipped; a
// selection that matches nothing completes with an empty Result and no
// error. Once cumulative bytes exceed the quota, no new fetch starts and
// the call returns a QuotaError alongside the partial Result. Any other
// storage failure fails the batch fast with a TransportError; files
// already mirrored are kept.
func (d *Downloader) Download(ctx context.Context, datasetID, destDir string, sel Selection) (*Result, error) {
	info, err := os.Stat(destDir)
	if err != nil {
		return nil, &DestinationError{Path: destDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DestinationError{Path: destDir, Err: errors.New("not a directory")}
	}

	md, err := d.meta.DatasetMetadata(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("ticklake: dataset %q metadata: %w", datasetID, err)
	}

	bucket, err := resolveBucket(md.BucketFormat, sel)
	if err != nil {
		return nil, err
	}

	keys, err := GenerateKeys(md.PathFormat, sel)
	if err != nil {
		return nil, err
	}

	log := d.log.With().Str("dataset", datasetID).Str("bucket", bucket).Logger()
	res, err := d.fetchAll(ctx, log, bucket, keys, destDir)
	if err != nil {
		log.Warn().Err(err).Int("files", res.Files).Int64("bytes", res.Bytes).Msg("download aborted")
		return res, err
	}
	log.Info().Int("files", res.Files).Int("skipped", res.Skipped).Int64("bytes", res.Bytes).Msg("download complete")
	return res, nil
}

// resolveBucket renders the dataset's bucket name for a selection.
//
// Unlike object keys, bucket names join their parts with dashes, so date
// placeholders are matched as substrings (e.g. "us-equity-1min-taq-yyyy").
// A yyyymmdd placeholder partitions storage per day, a yyyy placeholder
// per year. The selection's date range must stay inside one partition,
// since a single batch downloads from a single bucket.
func resolveBucket(bucketFormat string, sel Selection) (string, error) {
	perDay := strings.Contains(bucketFormat, string(PlaceholderDate))
	withoutDate := strings.ReplaceAll(bucketFormat, string(PlaceholderDate), "")
	perYear := strings.Contains(withoutDate, string(PlaceholderYear))

	if perDay && !sel.Dates.Start.Equal(sel.Dates.End) {
		return "", &RangeError{Msg: "date range spans more than one daily bucket"}
	}
	if perYear && sel.Dates.Start.Year() != sel.Dates.End.Year() {
		return "", &RangeError{Msg: "date range spans more than one yearly bucket"}
	}

	name := strings.ReplaceAll(bucketFormat, string(PlaceholderDate), sel.Dates.Start.Format(dayLayout))
	name = strings.ReplaceAll(name, string(PlaceholderYear), strconv.Itoa(sel.Dates.Start.Year()))
	return name, nil
}

// fetchAll drains the key sequence through a bounded worker pool.
func (d *Downloader) fetchAll(ctx context.Context, log zerolog.Logger, bucket string, keys iter.Seq[string], destDir string) (*Result, error) {
	res := &Result{}
	if d.quota.Exhausted() {
		return res, &QuotaError{Limit: d.quota.Limit(), Used: d.quota.Used()}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	go func() {
		defer close(jobs)
		for key := range keys {
			select {
			case jobs <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				// Drain remaining keys without fetching once the batch is
				// failing or the budget is spent.
				if ctx.Err() != nil || d.quota.Exhausted() {
					continue
				}
				local := filepath.Join(destDir, filepath.FromSlash(key))
				n, err := d.store.Fetch(ctx, bucket, key, local)
				switch {
				case errors.Is(err, ErrNotFound):
					mu.Lock()
					res.Skipped++
					mu.Unlock()
					log.Debug().Str("key", key).Msg("not in storage, skipped")
				case err != nil:
					fail(&TransportError{Bucket: bucket, Key: key, Err: err})
					cancel()
				default:
					mu.Lock()
					res.Files++
					res.Bytes += n
					mu.Unlock()
					log.Debug().Str("key", key).Int64("bytes", n).Msg("fetched")
					if qerr := d.quota.Add(n); qerr != nil {
						// In-flight fetches may still finish; no new ones start.
						fail(qerr)
					}
				}
			}
		}()
	}
	wg.Wait()

	return res, firstErr
}
