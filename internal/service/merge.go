package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/metrics"
	"github.com/krafity/krafity/internal/storage"
)

// mergeContentType is the content type of merged output objects.
const mergeContentType = "video/mp4"

// stderrTailBytes bounds the amount of transcoder diagnostics attached
// to a failure.
const stderrTailBytes = 4096

// commandRunner executes the transcoder, feeding it stdin and returning
// captured stdout and stderr. Injectable for tests.
type commandRunner func(ctx context.Context, binary string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)

// MergeConfig holds configuration for the merge pipeline.
type MergeConfig struct {
	FFmpegBinary string
	Timeout      time.Duration
}

// MergeService concatenates remotely hosted video segments into a single
// clip by streaming a concat directive through ffmpeg and persisting the
// result to the object store. Each invocation is a single-shot
// subprocess run, fully isolated from concurrent merges.
type MergeService struct {
	store  storage.ObjectStore
	cfg    MergeConfig
	run    commandRunner
	logger *logger.Logger
}

// NewMergeService creates a new merge service.
func NewMergeService(store storage.ObjectStore, log *logger.Logger, cfg MergeConfig) *MergeService {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &MergeService{
		store:  store,
		cfg:    cfg,
		run:    runPipedCommand,
		logger: log,
	}
}

// WithCommandRunner injects a custom command runner for tests.
func (s *MergeService) WithCommandRunner(r commandRunner) {
	if r != nil {
		s.run = r
	}
}

func (s *MergeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Merge concatenates the ordered segment URLs and returns the public URL
// of the persisted result. A single segment passes through unchanged
// with no transcoder invoked.
func (s *MergeService) Merge(ctx context.Context, segmentURLs []string, ownerID string) (string, error) {
	if len(segmentURLs) == 0 {
		return "", domain.ErrNoSegments
	}
	if ownerID == "" {
		return "", domain.NewValidationError("owner id required")
	}
	if len(segmentURLs) == 1 {
		return segmentURLs[0], nil
	}

	start := time.Now()
	merged, err := s.concatenate(ctx, segmentURLs)
	if err != nil {
		metrics.Merges.WithLabelValues("error").Inc()
		return "", err
	}

	key := fmt.Sprintf("videos/%s/merged_%s.mp4", ownerID, uuid.New().String())
	publicURL, err := s.store.Upload(ctx, key, bytes.NewReader(merged), int64(len(merged)), mergeContentType)
	if err != nil {
		metrics.Merges.WithLabelValues("error").Inc()
		return "", domain.NewCollaboratorError("object store", err)
	}

	metrics.Merges.WithLabelValues("ok").Inc()
	metrics.MergeDuration.Observe(time.Since(start).Seconds())

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldSegments:   len(segmentURLs),
		logger.FieldOwnerID:    ownerID,
		logger.FieldSize:       len(merged),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Merged video segments")

	return publicURL, nil
}

// concatenate streams a concat demuxer directive through ffmpeg and
// returns the re-packaged output. Remote segments are fetched by ffmpeg
// itself, so nothing but the final clip is held in memory.
func (s *MergeService) concatenate(ctx context.Context, segmentURLs []string) ([]byte, error) {
	var directive strings.Builder
	for _, url := range segmentURLs {
		fmt.Fprintf(&directive, "file '%s'\n", url)
	}

	// Stream copy into a fragmented MP4: stdout is not seekable, so the
	// regular moov-at-end layout cannot be written to a pipe.
	args := []string{
		"-protocol_whitelist", "file,http,https,tcp,tls,fd",
		"-f", "concat",
		"-safe", "0",
		"-i", "-",
		"-c", "copy",
		"-f", "mp4",
		"-movflags", "frag_keyframe+empty_moov",
		"-",
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stdout, stderr, err := s.run(runCtx, s.cfg.FFmpegBinary, args, strings.NewReader(directive.String()))
	if err != nil {
		return nil, domain.NewCollaboratorError("transcoder",
			fmt.Errorf("%w: %s", err, tail(stderr, stderrTailBytes)))
	}

	return stdout, nil
}

// runPipedCommand starts the binary with stdin, stdout and stderr piped.
// The stdin writer and both output drains run concurrently: draining
// stdout while stdin is still being written is what keeps a full output
// pipe from deadlocking against a full input pipe.
func runPipedCommand(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	var stdout, stderr bytes.Buffer
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stdinPipe.Close()
		if _, err := io.Copy(stdinPipe, stdin); err != nil {
			return fmt.Errorf("failed to write stdin: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		return nil, stderr.Bytes(), fmt.Errorf("%s exited: %w", binary, waitErr)
	}
	if copyErr != nil {
		return nil, stderr.Bytes(), copyErr
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// tail returns at most n trailing bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
