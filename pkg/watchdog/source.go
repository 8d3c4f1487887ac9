package watchdog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source yields log lines in order. Next returns io.EOF when the stream has
// ended for good and the context's error when cancelled.
type Source interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// DefaultPollInterval bounds how long FileSource waits without a filesystem
// event before checking the file again.
const DefaultPollInterval = 500 * time.Millisecond

// FileSource follows a log file the way tail -F does: it survives the file
// being created late, truncated, or replaced.
type FileSource struct {
	path    string
	base    string
	poll    time.Duration
	watcher *fsnotify.Watcher

	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial string
}

// NewFileSource follows path. With fromStart false only lines appended after
// the call are returned.
func NewFileSource(path string, fromStart bool) (*FileSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so creation and rotation are seen too.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	s := &FileSource{
		path:    path,
		base:    filepath.Base(path),
		poll:    DefaultPollInterval,
		watcher: watcher,
	}
	if err := s.open(!fromStart); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = watcher.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileSource) open(seekEnd bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	var offset int64
	if seekEnd {
		if offset, err = f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return err
		}
	}
	s.file, s.reader, s.offset, s.partial = f, bufio.NewReader(f), offset, ""
	return nil
}

func (s *FileSource) closeFile() {
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file, s.reader, s.offset, s.partial = nil, nil, 0, ""
}

// Next blocks until a complete line is available.
func (s *FileSource) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.reader != nil {
			chunk, err := s.reader.ReadString('\n')
			s.offset += int64(len(chunk))
			s.partial += chunk
			if err == nil {
				line := s.partial
				s.partial = ""
				return strings.TrimRight(line, "\r\n"), nil
			}
			if !errors.Is(err, io.EOF) {
				return "", err
			}
		}
		if err := s.wait(ctx); err != nil {
			return "", err
		}
	}
}

func (s *FileSource) wait(ctx context.Context) error {
	timer := time.NewTimer(s.poll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case event, ok := <-s.watcher.Events:
		if !ok {
			return io.EOF
		}
		if filepath.Base(event.Name) == s.base && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Create)) {
			s.closeFile()
		}
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return io.EOF
		}
		return fmt.Errorf("watch %s: %w", s.path, err)
	case <-timer.C:
	}
	return s.sync()
}

// sync reopens a replaced file and rewinds a truncated one.
func (s *FileSource) sync() error {
	if s.file == nil {
		if err := s.open(false); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < s.offset {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		s.reader.Reset(s.file)
		s.offset, s.partial = 0, ""
	}
	return nil
}

// Close stops watching.
func (s *FileSource) Close() error {
	s.closeFile()
	return s.watcher.Close()
}

// ReaderSource reads lines from a stream such as a pipe.
type ReaderSource struct {
	lines chan string
	errc  chan error
	done  chan struct{}
}

// NewReaderSource starts reading r in the background.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go s.scan(r)
	return s
}

func (s *ReaderSource) scan(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		select {
		case s.lines <- sc.Text():
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.errc <- err
	}
}

// Next returns the next line or io.EOF at the end of the stream.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if ok {
			return line, nil
		}
		select {
		case err := <-s.errc:
			return "", err
		default:
			return "", io.EOF
		}
	}
}

// Close stops the background reader once its current read returns.
func (s *ReaderSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}
