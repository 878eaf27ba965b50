package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/logger"
)

func newTestEnrichment(p *fakeProvider) *EnrichmentService {
	return NewEnrichmentService(p, logger.GetDefault())
}

func TestIsCleanDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		clean       bool
	}{
		{
			name:        "explicit no annotations",
			description: "There are no annotations in this image.",
			clean:       true,
		},
		{
			name:        "annotated image",
			description: "A red arrow points to the door.",
			clean:       false,
		},
		{
			name:        "empty description",
			description: "",
			clean:       true,
		},
		{
			name:        "whitespace only",
			description: "   \n\t",
			clean:       true,
		},
		{
			name:        "mixed case deny phrase",
			description: "The picture Does Not Contain any overlays.",
			clean:       true,
		},
		{
			name:        "clean image phrase",
			description: "No annotations. Clean image.",
			clean:       true,
		},
		{
			name:        "caption described",
			description: `A caption at the bottom reads "hello world".`,
			clean:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCleanDescription(tt.description); got != tt.clean {
				t.Errorf("IsCleanDescription(%q) = %v, want %v", tt.description, got, tt.clean)
			}
		})
	}
}

func TestEnrich_CleanImageSkipsCleanup(t *testing.T) {
	p := &fakeProvider{describeText: "No annotations. Clean image."}
	svc := newTestEnrichment(p)
	img := testPNG(t, 1)

	frame, description, err := svc.Enrich(context.Background(), img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame, img) {
		t.Error("clean image must pass through unchanged")
	}
	if description != "No annotations. Clean image." {
		t.Errorf("description must be retained, got %q", description)
	}

	_, cleanups, _, _ := p.calls()
	if cleanups != 0 {
		t.Errorf("clean image must not trigger cleanup, got %d calls", cleanups)
	}
}

func TestEnrich_AnnotatedImageCleaned(t *testing.T) {
	cleaned := testPNG(t, 9)
	p := &fakeProvider{
		describeText:  "A red arrow points to the door.",
		cleanupResult: cleaned,
	}
	svc := newTestEnrichment(p)

	frame, description, err := svc.Enrich(context.Background(), testPNG(t, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame, cleaned) {
		t.Error("annotated image must be replaced by the cleaned frame")
	}
	if description != "A red arrow points to the door." {
		t.Errorf("descriptions must survive cleanup, got %q", description)
	}

	_, cleanups, _, _ := p.calls()
	if cleanups != 1 {
		t.Errorf("expected exactly one cleanup call, got %d", cleanups)
	}
}

func TestEnrich_RepeatBytesHitCache(t *testing.T) {
	p := &fakeProvider{describeText: "No annotations. Clean image."}
	svc := newTestEnrichment(p)
	img := testPNG(t, 3)

	if _, _, err := svc.Enrich(context.Background(), img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Enrich(context.Background(), img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	describes, _, _, _ := p.calls()
	if describes != 1 {
		t.Errorf("identical bytes must describe once, got %d calls", describes)
	}
}

func TestEnrich_InvalidImage(t *testing.T) {
	svc := newTestEnrichment(&fakeProvider{})

	_, _, err := svc.Enrich(context.Background(), []byte("not an image"))
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnrich_ProviderFailure(t *testing.T) {
	p := &fakeProvider{describeErr: errors.New("quota exceeded")}
	svc := newTestEnrichment(p)

	_, _, err := svc.Enrich(context.Background(), testPNG(t, 4))
	var collabErr *domain.CollaboratorError
	if !errors.As(err, &collabErr) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}
