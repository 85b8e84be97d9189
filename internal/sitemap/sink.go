package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// documentPattern matches every document a batch run can produce.
const documentPattern = "sitemap*.xml"

// RenderFunc writes one document.
type RenderFunc func(w io.Writer) error

// Sink is where rendered documents land: files for batch runs, memory for
// HTTP responses.
type Sink interface {
	WriteDocument(ctx context.Context, name string, render RenderFunc) error
}

// Committer is implemented by sinks that hold documents back until the run
// that produced them succeeds.
type Committer interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// FileSink writes documents into a staging directory under dir. Commit moves
// them into dir in write order and then removes sitemap documents left over
// from earlier runs; Abort discards them, leaving the previous output
// untouched.
type FileSink struct {
	fs  afero.Fs
	dir string

	mu      sync.Mutex
	staging string
	written []string
}

func NewFileSink(fs afero.Fs, dir string) (*FileSink, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &FileSink{fs: fs, dir: dir}, nil
}

func (s *FileSink) Dir() string {
	return s.dir
}

func (s *FileSink) WriteDocument(ctx context.Context, name string, render RenderFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staging == "" {
		staging, err := afero.TempDir(s.fs, s.dir, ".staging-")
		if err != nil {
			return fmt.Errorf("failed to create staging directory: %w", err)
		}
		s.staging = staging
	}

	f, err := s.fs.Create(filepath.Join(s.staging, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	buf := bufio.NewWriterSize(f, 64*1024)
	writeErr := render(buf)
	if writeErr == nil {
		writeErr = buf.Flush()
	}
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", name, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", name, closeErr)
	}

	s.written = append(s.written, name)
	return nil
}

func (s *FileSink) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.written {
		if err := s.fs.Rename(filepath.Join(s.staging, name), filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", name, err)
		}
	}
	s.prune()
	return s.reset()
}

// prune removes sitemap documents in dir that this run did not write, such as
// trailing shards of a larger previous run. Failures are logged only: the new
// index no longer references those files.
func (s *FileSink) prune() {
	keep := make(map[string]struct{}, len(s.written))
	for _, name := range s.written {
		keep[name] = struct{}{}
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		log.Warnf("⚠️ Failed to list %s for stale documents: %v", s.dir, err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(documentPattern, name); !ok {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil {
			log.Warnf("⚠️ Failed to remove stale document %s: %v", name, err)
			continue
		}
		log.Infof("🧹 Removed stale document %s", name)
	}
}

func (s *FileSink) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reset()
}

func (s *FileSink) reset() error {
	staging := s.staging
	s.staging = ""
	s.written = nil
	if staging == "" {
		return nil
	}
	if err := s.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to remove staging directory %s: %w", staging, err)
	}
	return nil
}

// BufferSink keeps documents in memory, in write order.
type BufferSink struct {
	mu    sync.Mutex
	names []string
	docs  map[string][]byte
}

func NewBufferSink() *BufferSink {
	return &BufferSink{docs: make(map[string][]byte)}
}

func (s *BufferSink) WriteDocument(ctx context.Context, name string, render RenderFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; !ok {
		s.names = append(s.names, name)
	}
	s.docs[name] = buf.Bytes()
	return nil
}

func (s *BufferSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func (s *BufferSink) Document(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	return doc, ok
}
