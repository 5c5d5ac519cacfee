package ticklake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type fakeMetadata struct {
	datasets map[string]DatasetMetadata
	calls    int
}

func (f *fakeMetadata) DatasetMetadata(_ context.Context, id string) (DatasetMetadata, error) {
	f.calls++
	md, ok := f.datasets[id]
	if !ok {
		return DatasetMetadata{}, fmt.Errorf("dataset %q: %w", id, ErrUnknownDataset)
	}
	return md, nil
}

// fakeStore mirrors objects from an in-memory bucket/key map onto disk.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
	fetched []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		fail:    make(map[string]error),
	}
}

func (s *fakeStore) seed(bucket, key string, data []byte) {
	s.objects[bucket+"/"+key] = data
}

func (s *fakeStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+key]
	return ok, nil
}

func (s *fakeStore) Fetch(_ context.Context, bucket, key, localPath string) (int64, error) {
	full := bucket + "/" + key

	s.mu.Lock()
	failErr := s.fail[full]
	data, ok := s.objects[full]
	if failErr == nil && ok {
		s.fetched = append(s.fetched, full)
	}
	s.mu.Unlock()

	if failErr != nil {
		return 0, failErr
	}
	if !ok {
		return 0, ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func newTestDownloader(t *testing.T, meta *fakeMetadata, store *fakeStore, opts ...DownloadOption) *Downloader {
	t.Helper()
	d, err := NewDownloader(meta, store, opts...)
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	return d
}

func equityMetadata() *fakeMetadata {
	return &fakeMetadata{datasets: map[string]DatasetMetadata{
		"eq_taq_1min": {
			ID:           "eq_taq_1min",
			BucketFormat: "us-equity-1min-taq-yyyy",
			PathFormat:   "yyyymmdd/s/sss.csv.gz",
			CSVColumns:   []string{"timestamp", "price", "size"},
		},
	}}
}

// -----------------------------------------------------------------------------
// Download
// -----------------------------------------------------------------------------

func TestDownloadMirrorsKeyHierarchy(t *testing.T) {
	store := newFakeStore()
	store.seed("us-equity-1min-taq-2023", "20230703/A/AAPL.csv.gz", []byte("aapl ticks"))
	store.seed("us-equity-1min-taq-2023", "20230703/M/MSFT.csv.gz", []byte("msft"))
	d := newTestDownloader(t, equityMetadata(), store)

	dest := t.TempDir()
	sel := NewSelection([]string{"AAPL", "MSFT"}, SingleDay(day(2023, time.July, 3)))
	res, err := d.Download(context.Background(), "eq_taq_1min", dest, sel)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Files != 2 || res.Skipped != 0 {
		t.Errorf("Result = %+v, want 2 files", res)
	}
	if res.Bytes != int64(len("aapl ticks")+len("msft")) {
		t.Errorf("Bytes = %d", res.Bytes)
	}

	got, err := os.ReadFile(filepath.Join(dest, "20230703", "A", "AAPL.csv.gz"))
	if err != nil {
		t.Fatalf("mirrored file: %v", err)
	}
	if string(got) != "aapl ticks" {
		t.Errorf("mirrored content = %q", got)
	}
}

func TestDownloadMissingDestination(t *testing.T) {
	meta := equityMetadata()
	d := newTestDownloader(t, meta, newFakeStore())

	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	_, err := d.Download(context.Background(), "eq_taq_1min", "/no/such/dir", sel)
	var de *DestinationError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DestinationError", err)
	}
	if meta.calls != 0 {
		t.Error("destination must be validated before any metadata call")
	}
}

func TestDownloadDestinationIsFile(t *testing.T) {
	d := newTestDownloader(t, equityMetadata(), newFakeStore())
	dest := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	_, err := d.Download(context.Background(), "eq_taq_1min", dest, sel)
	var de *DestinationError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DestinationError", err)
	}
}

func TestDownloadUnknownDataset(t *testing.T) {
	d := newTestDownloader(t, equityMetadata(), newFakeStore())
	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	_, err := d.Download(context.Background(), "no_such_dataset", t.TempDir(), sel)
	if !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("err = %v, want ErrUnknownDataset", err)
	}
}

func TestDownloadSkipsMissingObjects(t *testing.T) {
	store := newFakeStore()
	store.seed("us-equity-1min-taq-2023", "20230703/A/AAPL.csv.gz", []byte("data"))
	d := newTestDownloader(t, equityMetadata(), store)

	// Weekend days generate keys with no matching objects.
	sel := NewSelection([]string{"AAPL"}, mustRange(t, "20230701", "20230703"))
	res, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Files != 1 || res.Skipped != 2 {
		t.Errorf("Result = %+v, want 1 file and 2 skipped", res)
	}
}

func TestDownloadNothingMatches(t *testing.T) {
	d := newTestDownloader(t, equityMetadata(), newFakeStore())
	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	res, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	if err != nil {
		t.Fatalf("a selection matching nothing is not an error: %v", err)
	}
	if res.Files != 0 || res.Bytes != 0 || res.Skipped != 1 {
		t.Errorf("Result = %+v, want empty with 1 skipped", res)
	}
}

func TestDownloadYearlyBucketSpan(t *testing.T) {
	store := newFakeStore()
	d := newTestDownloader(t, equityMetadata(), store)

	sel := NewSelection([]string{"AAPL"}, mustRange(t, "20231229", "20240102"))
	_, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RangeError", err)
	}
	if len(store.fetched) != 0 {
		t.Error("bucket span must be validated before any fetch")
	}
}

func TestDownloadDailyBucketSpan(t *testing.T) {
	meta := &fakeMetadata{datasets: map[string]DatasetMetadata{
		"daily_ds": {
			ID:           "daily_ds",
			BucketFormat: "dataset-yyyymmdd",
			PathFormat:   "sss.csv.gz",
		},
	}}
	d := newTestDownloader(t, meta, newFakeStore())

	sel := NewSelection([]string{"AAPL"}, mustRange(t, "20230703", "20230704"))
	_, err := d.Download(context.Background(), "daily_ds", t.TempDir(), sel)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RangeError", err)
	}
}

func TestDownloadResolvesYearlyBucket(t *testing.T) {
	store := newFakeStore()
	store.seed("us-equity-1min-taq-2023", "20230703/A/AAPL.csv.gz", []byte("data"))
	d := newTestDownloader(t, equityMetadata(), store)

	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	if _, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(store.fetched) != 1 || store.fetched[0] != "us-equity-1min-taq-2023/20230703/A/AAPL.csv.gz" {
		t.Errorf("fetched = %v, want the rendered 2023 bucket", store.fetched)
	}
}

func TestDownloadQuotaExceeded(t *testing.T) {
	store := newFakeStore()
	for _, sym := range []string{"AAA", "BBB", "CCC", "DDD"} {
		store.seed("us-equity-1min-taq-2023", "20230703/"+sym[:1]+"/"+sym+".csv.gz", make([]byte, 10))
	}
	d := newTestDownloader(t, equityMetadata(), store,
		WithQuota(NewQuota(25)), WithWorkers(1))

	sel := NewSelection([]string{"AAA", "BBB", "CCC", "DDD"}, SingleDay(day(2023, time.July, 3)))
	res, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want QuotaError", err)
	}
	// The fetch that crossed the budget still counts; later keys never start.
	if res.Files != 3 {
		t.Errorf("Files = %d, want 3", res.Files)
	}
}

func TestDownloadSharedQuotaAcrossCalls(t *testing.T) {
	store := newFakeStore()
	store.seed("us-equity-1min-taq-2023", "20230703/A/AAPL.csv.gz", make([]byte, 10))
	q := NewQuota(10)
	d := newTestDownloader(t, equityMetadata(), store, WithQuota(q))

	sel := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))
	if _, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// The budget is spent; a second call must not fetch anything.
	res, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("second call err = %v, want QuotaError", err)
	}
	if res.Files != 0 {
		t.Errorf("second call Files = %d, want 0", res.Files)
	}
}

func TestDownloadTransportFailureFailsFast(t *testing.T) {
	store := newFakeStore()
	store.seed("us-equity-1min-taq-2023", "20230703/A/AAPL.csv.gz", []byte("kept"))
	store.fail["us-equity-1min-taq-2023/20230704/A/AAPL.csv.gz"] = errors.New("connection reset")

	meta := equityMetadata()
	meta.datasets["eq_taq_1min"] = DatasetMetadata{
		ID:         "eq_taq_1min",
		PathFormat: "yyyymmdd/s/sss.csv.gz",
		// Literal bucket so the multi-day range is allowed.
		BucketFormat: "us-equity-1min-taq-2023",
	}
	d := newTestDownloader(t, meta, store, WithWorkers(1))

	dest := t.TempDir()
	sel := NewSelection([]string{"AAPL"}, mustRange(t, "20230703", "20230705"))
	res, err := d.Download(context.Background(), "eq_taq_1min", dest, sel)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if te.Key != "20230704/A/AAPL.csv.gz" {
		t.Errorf("TransportError.Key = %q", te.Key)
	}
	// Files mirrored before the failure are kept.
	if res.Files != 1 {
		t.Errorf("Files = %d, want 1", res.Files)
	}
	if _, statErr := os.Stat(filepath.Join(dest, "20230703", "A", "AAPL.csv.gz")); statErr != nil {
		t.Errorf("file mirrored before the failure should be kept: %v", statErr)
	}
}

func TestDownloadConcurrentWorkers(t *testing.T) {
	store := newFakeStore()
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF", "GGG", "HHH"}
	for _, sym := range symbols {
		store.seed("us-equity-1min-taq-2023", "20230703/"+sym[:1]+"/"+sym+".csv.gz", []byte(sym))
	}
	d := newTestDownloader(t, equityMetadata(), store, WithWorkers(4))

	sel := NewSelection(symbols, SingleDay(day(2023, time.July, 3)))
	res, err := d.Download(context.Background(), "eq_taq_1min", t.TempDir(), sel)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Files != len(symbols) {
		t.Errorf("Files = %d, want %d", res.Files, len(symbols))
	}

	sort.Strings(store.fetched)
	if len(store.fetched) != len(symbols) {
		t.Errorf("each key should be fetched exactly once, got %v", store.fetched)
	}
}

func TestNewDownloaderValidation(t *testing.T) {
	if _, err := NewDownloader(nil, newFakeStore()); err == nil {
		t.Error("nil metadata provider should be rejected")
	}
	if _, err := NewDownloader(equityMetadata(), nil); err == nil {
		t.Error("nil store should be rejected")
	}
}

func TestResolveBucket(t *testing.T) {
	sel2023 := NewSelection([]string{"AAPL"}, SingleDay(day(2023, time.July, 3)))

	tests := []struct {
		name    string
		format  string
		sel     Selection
		want    string
		wantErr bool
	}{
		{"literal", "my-bucket", sel2023, "my-bucket", false},
		{"per year", "us-equity-1min-taq-yyyy", sel2023, "us-equity-1min-taq-2023", false},
		{"per day", "archive-yyyymmdd", sel2023, "archive-20230703", false},
		{
			"per year span",
			"us-equity-1min-taq-yyyy",
			NewSelection([]string{"AAPL"}, mustRange(t, "20231229", "20240102")),
			"",
			true,
		},
		{
			"per day span",
			"archive-yyyymmdd",
			NewSelection([]string{"AAPL"}, mustRange(t, "20230703", "20230704")),
			"",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveBucket(tt.format, tt.sel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveBucket(%q) err = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveBucket(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}
