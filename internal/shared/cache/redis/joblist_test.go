package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"workio/internal/shared/model"
)

func testCache(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	s, err := NewStoreFromURL(url)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		s.InvalidateJobList(context.Background())
		s.Close()
	})
	return s
}

func TestJobListRoundTrip(t *testing.T) {
	s := testCache(t)
	ctx := context.Background()

	// 空缓存未命中
	got, err := s.GetJobList(ctx)
	if err != nil {
		t.Fatalf("GetJobList: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cache miss, got %d entries", len(got))
	}

	jobs := []*model.JobWithCompany{
		{
			Job: model.Job{
				ID: "job-1", Title: "Backend Engineer", Location: "Remote",
				CompanyID: "usr-r1", Visible: true, Date: time.Now().UTC().Truncate(time.Millisecond),
			},
			Company: &model.PublicUser{ID: "usr-r1", Name: "Acme"},
		},
	}
	if err := s.SetJobList(ctx, jobs); err != nil {
		t.Fatalf("SetJobList: %v", err)
	}

	got, err = s.GetJobList(ctx)
	if err != nil {
		t.Fatalf("GetJobList after set: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 cached job, got %d", len(got))
	}
	if got[0].ID != "job-1" || got[0].Company == nil || got[0].Company.Name != "Acme" {
		t.Errorf("cached entry mismatch: %+v", got[0])
	}
}

func TestInvalidateJobList(t *testing.T) {
	s := testCache(t)
	ctx := context.Background()

	if err := s.SetJobList(ctx, []*model.JobWithCompany{{Job: model.Job{ID: "job-1"}}}); err != nil {
		t.Fatalf("SetJobList: %v", err)
	}
	if err := s.InvalidateJobList(ctx); err != nil {
		t.Fatalf("InvalidateJobList: %v", err)
	}

	got, err := s.GetJobList(ctx)
	if err != nil {
		t.Fatalf("GetJobList: %v", err)
	}
	if got != nil {
		t.Error("cache should be empty after invalidation")
	}
}
