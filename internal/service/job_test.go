package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/provider"
)

func newTestJobService(p *fakeProvider) (*JobService, *JobStore) {
	store := NewJobStore()
	enrich := NewEnrichmentService(p, logger.GetDefault())
	svc := NewJobService(store, p, enrich, logger.GetDefault(), JobConfig{
		PublicHost: "storage.googleapis.com",
	})
	return svc, store
}

// waitForState polls the store until the job leaves pending or the
// deadline passes.
func waitForState(t *testing.T, store *JobStore, jobID string, want domain.JobState) domain.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(jobID)
		if ok && rec.State == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := store.Get(jobID)
	t.Fatalf("job %s never reached state %s, last seen %+v", jobID, want, rec)
	return domain.JobRecord{}
}

func TestStatus_UnknownJob(t *testing.T) {
	svc, _ := newTestJobService(&fakeProvider{})

	_, err := svc.Status(context.Background(), "job-never-created")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestJobService(&fakeProvider{})

	var validationErr *domain.ValidationError

	_, err := svc.Create(context.Background(), &domain.VideoJobRequest{})
	if !errors.As(err, &validationErr) {
		t.Errorf("empty request: expected validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), &domain.VideoJobRequest{Image: []byte("junk")})
	if !errors.As(err, &validationErr) {
		t.Errorf("non-image payload: expected validation error, got %v", err)
	}
}

func TestCreate_PendingVisibleImmediately(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "op-1",
	}
	svc, _ := newTestJobService(p)

	jobID, err := svc.Create(context.Background(), &domain.VideoJobRequest{Image: testPNG(t, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The pending record is inserted synchronously with Create, so a
	// poll racing the background pipeline can never see not-found.
	status, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status == "" {
		t.Error("expected a status for a freshly created job")
	}
	if status.StartedAt.IsZero() {
		t.Error("expected a start time")
	}
}

func TestProcess_DispatchesGeneration(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "operations/op-42",
	}
	svc, store := newTestJobService(p)

	img := testPNG(t, 11)
	jobID, err := svc.Create(context.Background(), &domain.VideoJobRequest{
		Image:           img,
		Prompt:          "make it cinematic",
		DurationSeconds: 100, // clamped to the max
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := waitForState(t, store, jobID, domain.JobStateActive)
	if rec.OperationRef != "operations/op-42" {
		t.Errorf("unexpected operation ref %q", rec.OperationRef)
	}
	if rec.Metadata["annotation_description"] == "" {
		t.Error("expected the annotation description in job metadata")
	}

	p.mu.Lock()
	genReq := p.lastGenerate
	p.mu.Unlock()
	if genReq.Prompt != "make it cinematic" {
		t.Errorf("custom prompt must win, got %q", genReq.Prompt)
	}
	if genReq.DurationSeconds != 8 {
		t.Errorf("expected duration clamped to 8, got %d", genReq.DurationSeconds)
	}
}

func TestProcess_EnrichesBothImages(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "op-2",
	}
	svc, store := newTestJobService(p)

	jobID, err := svc.Create(context.Background(), &domain.VideoJobRequest{
		Image:       testPNG(t, 12),
		EndingImage: testPNG(t, 13),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, store, jobID, domain.JobStateActive)

	describes, _, generates, _ := p.calls()
	if describes != 2 {
		t.Errorf("expected both images described, got %d calls", describes)
	}
	if generates != 1 {
		t.Errorf("expected one dispatch, got %d", generates)
	}

	p.mu.Lock()
	genReq := p.lastGenerate
	p.mu.Unlock()
	if len(genReq.SecondaryFrame) == 0 {
		t.Error("expected the ending frame in the generation request")
	}
	if !strings.HasPrefix(genReq.Prompt, "Animate") {
		t.Errorf("expected the fallback prompt, got %q", genReq.Prompt)
	}
}

func TestStatus_WaitingWhilePendingAndActive(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "op-3",
		pollResult:   &provider.PollResult{Done: false},
	}
	svc, store := newTestJobService(p)

	jobID, _ := svc.Create(context.Background(), &domain.VideoJobRequest{Image: testPNG(t, 14)})
	waitForState(t, store, jobID, domain.JobStateActive)

	status, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != domain.StatusWaiting {
		t.Errorf("incomplete operation must report waiting, got %s", status.Status)
	}
	if status.EndedAt != nil || status.VideoURL != "" {
		t.Error("waiting status must carry no end time or URL")
	}
}

func TestStatus_PipelineFailureIsPermanent(t *testing.T) {
	p := &fakeProvider{describeErr: errors.New("model overloaded")}
	svc, store := newTestJobService(p)

	jobID, _ := svc.Create(context.Background(), &domain.VideoJobRequest{Image: testPNG(t, 15)})
	waitForState(t, store, jobID, domain.JobStateFailed)

	for i := 0; i < 2; i++ {
		status, err := svc.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("poll %d: unexpected error: %v", i, err)
		}
		if status.Status != domain.StatusError {
			t.Fatalf("poll %d: expected error status, got %s", i, status.Status)
		}
		if !strings.Contains(status.Error, "model overloaded") {
			t.Errorf("poll %d: expected captured message, got %q", i, status.Error)
		}
	}
}

func TestStatus_DoneWithNormalizedURLAndIdempotentRepoll(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "op-4",
		pollResult: &provider.PollResult{
			Done:      true,
			ResultURI: "gs://krafity-videos/videos/out.mp4",
		},
	}
	svc, store := newTestJobService(p)

	jobID, _ := svc.Create(context.Background(), &domain.VideoJobRequest{Image: testPNG(t, 16)})
	waitForState(t, store, jobID, domain.JobStateActive)

	first, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != domain.StatusDone {
		t.Fatalf("expected done, got %s", first.Status)
	}
	wantURL := "https://storage.googleapis.com/krafity-videos/videos/out.mp4"
	if first.VideoURL != wantURL {
		t.Errorf("expected normalized URL %q, got %q", wantURL, first.VideoURL)
	}
	if first.EndedAt == nil {
		t.Error("done status must carry an end time")
	}

	// A terminal status is re-pollable: a client that misses the first
	// done response does not lose the result.
	second, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != domain.StatusDone || second.VideoURL != wantURL {
		t.Errorf("re-poll must repeat the terminal status, got %+v", second)
	}

	// The second poll answers from the store, not the provider.
	_, _, _, polls := p.calls()
	if polls != 1 {
		t.Errorf("expected a single provider poll, got %d", polls)
	}
}

func TestStatus_PollFailureSurfacesToCaller(t *testing.T) {
	p := &fakeProvider{
		describeText: "No annotations. Clean image.",
		generateRef:  "op-5",
		pollErr:      errors.New("operation lookup failed"),
	}
	svc, store := newTestJobService(p)

	jobID, _ := svc.Create(context.Background(), &domain.VideoJobRequest{Image: testPNG(t, 17)})
	waitForState(t, store, jobID, domain.JobStateActive)

	_, err := svc.Status(context.Background(), jobID)
	var collabErr *domain.CollaboratorError
	if !errors.As(err, &collabErr) {
		t.Fatalf("expected collaborator error, got %v", err)
	}

	// The job stays active; a later poll can still succeed.
	rec, _ := store.Get(jobID)
	if rec.State != domain.JobStateActive {
		t.Errorf("job must remain active after a failed poll, got %s", rec.State)
	}
}
