package ticklake

import (
	"errors"
	"sync"
	"testing"
)

func TestNewQuotaDefaults(t *testing.T) {
	if got := NewQuota(0).Limit(); got != DefaultDownloadLimit {
		t.Errorf("zero limit should fall back to default, got %d", got)
	}
	if got := NewQuota(-5).Limit(); got != DefaultDownloadLimit {
		t.Errorf("negative limit should fall back to default, got %d", got)
	}
	if got := NewQuota(HardDownloadLimit + 1).Limit(); got != HardDownloadLimit {
		t.Errorf("limit above hard cap should clamp, got %d", got)
	}
	if got := NewQuota(1024).Limit(); got != 1024 {
		t.Errorf("limit = %d, want 1024", got)
	}
}

func TestQuotaAdd(t *testing.T) {
	q := NewQuota(100)
	if err := q.Add(60); err != nil {
		t.Fatalf("Add within budget: %v", err)
	}
	if q.Exhausted() {
		t.Error("60 of 100 bytes is not exhausted")
	}

	if err := q.Add(40); err != nil {
		t.Fatalf("Add exactly to the limit: %v", err)
	}
	if !q.Exhausted() {
		t.Error("100 of 100 bytes is exhausted")
	}

	err := q.Add(1)
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want QuotaError", err)
	}
	if qe.Used != 101 || qe.Limit != 100 {
		t.Errorf("QuotaError = %+v", qe)
	}
	// Transferred bytes are never rolled back.
	if q.Used() != 101 {
		t.Errorf("Used = %d, want 101", q.Used())
	}
}

func TestQuotaConcurrentAdds(t *testing.T) {
	q := NewQuota(1 << 30)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = q.Add(1)
			}
		}()
	}
	wg.Wait()
	if q.Used() != 5000 {
		t.Errorf("Used = %d, want 5000", q.Used())
	}
}
