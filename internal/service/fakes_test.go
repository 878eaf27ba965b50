package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/krafity/krafity/internal/provider"
)

// fakeProvider is a scriptable generation provider for tests.
type fakeProvider struct {
	mu sync.Mutex

	describeText string
	describeErr  error

	cleanupResult []byte
	cleanupErr    error

	generateRef string
	generateErr error

	pollResult *provider.PollResult
	pollErr    error

	describeCalls int
	cleanupCalls  int
	generateCalls int
	pollCalls     int

	lastGenerate *provider.GenerateRequest
}

func (f *fakeProvider) Describe(ctx context.Context, image []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls++
	return f.describeText, f.describeErr
}

func (f *fakeProvider) Cleanup(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalls++
	return f.cleanupResult, f.cleanupErr
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastGenerate = req
	return f.generateRef, f.generateErr
}

func (f *fakeProvider) Poll(ctx context.Context, operationRef string) (*provider.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	return f.pollResult, f.pollErr
}

func (f *fakeProvider) calls() (describe, cleanup, generate, poll int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.describeCalls, f.cleanupCalls, f.generateCalls, f.pollCalls
}

// fakeObjectStore records uploads and serves deterministic URLs.
type fakeObjectStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.uploads[key] = data
	f.mu.Unlock()
	return f.PublicURL(key), nil
}

func (f *fakeObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.uploads[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://storage.example.com/test-bucket/" + key
}

func (f *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.uploads[key]
	return ok, nil
}

// testPNG returns a small valid PNG whose pixel value varies with seed,
// so distinct seeds produce distinct content hashes.
func testPNG(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: seed, G: 128, B: 255 - seed, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
