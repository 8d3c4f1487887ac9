// Package outbox persists replies for the poster as sharded JSONL files with
// a JSON manifest. Shards are append-only; the newest is last.
package outbox

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	indexFile          = "index.json"
	shardPrefix        = "replies-"
	shardSuffix        = ".jsonl"
	defaultMaxPerShard = 200
)

// Index is the outbox manifest.
type Index struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	MaxPerShard int       `json:"max_per_shard"`
	Shards      []Shard   `json:"shards"`
	Total       int       `json:"total"`
}

// Shard is one JSONL file.
type Shard struct {
	Seq     int    `json:"seq"`
	File    string `json:"file"`
	Replies int    `json:"replies"`
}

// LoadIndex reads the manifest in dir.
func LoadIndex(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parse outbox index: %w", err)
	}
	if idx.Version == 0 {
		idx.Version = 1
	}
	return idx, nil
}

func saveIndex(dir string, idx *Index) error {
	idx.GeneratedAt = time.Now()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, indexFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Config configures a Writer.
type Config struct {
	Dir         string
	MaxPerShard int
}

// Writer appends replies to the current shard, rotating when it is full. It
// is safe for concurrent use.
type Writer struct {
	mu sync.Mutex

	dir string
	idx *Index

	file  *os.File
	buf   *bufio.Writer
	shard *Shard
}

// Open opens the outbox in cfg.Dir, resuming the newest shard. A missing or
// stale manifest is rebuilt from the shard files.
func Open(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, errors.New("outbox dir is required")
	}
	if cfg.MaxPerShard <= 0 {
		cfg.MaxPerShard = defaultMaxPerShard
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, err
	}

	idx, err := LoadIndex(cfg.Dir)
	if err != nil || idx.Total != countAll(cfg.Dir, idx.Shards) {
		idx = Rebuild(cfg.Dir)
	}
	idx.MaxPerShard = cfg.MaxPerShard

	w := &Writer{dir: cfg.Dir, idx: idx}
	seq := 1
	if n := len(idx.Shards); n > 0 {
		seq = idx.Shards[n-1].Seq
	}
	if err := w.openShard(seq); err != nil {
		return nil, err
	}
	return w, nil
}

// Rebuild scans dir for shard files and returns a fresh manifest.
func Rebuild(dir string) *Index {
	idx := &Index{Version: 1, MaxPerShard: defaultMaxPerShard}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return idx
	}
	for _, e := range entries {
		seq := shardSeq(e.Name())
		if e.IsDir() || seq <= 0 {
			continue
		}
		n := countLines(filepath.Join(dir, e.Name()))
		idx.Shards = append(idx.Shards, Shard{Seq: seq, File: e.Name(), Replies: n})
		idx.Total += n
	}
	sort.Slice(idx.Shards, func(i, j int) bool { return idx.Shards[i].Seq < idx.Shards[j].Seq })
	return idx
}

func countAll(dir string, shards []Shard) int {
	n := 0
	for _, s := range shards {
		n += countLines(filepath.Join(dir, s.File))
	}
	return n
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	n := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	return n
}

// shardSeq parses "replies-000123.jsonl".
func shardSeq(name string) int {
	if !strings.HasPrefix(name, shardPrefix) || !strings.HasSuffix(name, shardSuffix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, shardPrefix), shardSuffix))
	if err != nil {
		return 0
	}
	return n
}

func shardName(seq int) string {
	return fmt.Sprintf("%s%06d%s", shardPrefix, seq, shardSuffix)
}

func (w *Writer) openShard(seq int) error {
	if w.buf != nil {
		_ = w.buf.Flush()
	}
	if w.file != nil {
		_ = w.file.Close()
	}

	name := shardName(seq)
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriter(f)

	i := sort.Search(len(w.idx.Shards), func(i int) bool { return w.idx.Shards[i].Seq >= seq })
	if i == len(w.idx.Shards) || w.idx.Shards[i].Seq != seq {
		w.idx.Shards = append(w.idx.Shards, Shard{})
		copy(w.idx.Shards[i+1:], w.idx.Shards[i:])
		w.idx.Shards[i] = Shard{Seq: seq, File: name}
	}
	w.shard = &w.idx.Shards[i]
	return saveIndex(w.dir, w.idx)
}

// Append writes v as one JSON line.
func (w *Writer) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		return errors.New("outbox closed")
	}
	if w.shard.Replies >= w.idx.MaxPerShard {
		if err := w.openShard(w.shard.Seq + 1); err != nil {
			return err
		}
	}

	line = append(line, '\n')
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	w.shard.Replies++
	w.idx.Total++
	return saveIndex(w.dir, w.idx)
}

// Index returns a copy of the manifest.
func (w *Writer) Index() Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := *w.idx
	out.Shards = append([]Shard(nil), w.idx.Shards...)
	return out
}

// Close flushes the current shard and the manifest.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		return nil
	}
	err := w.buf.Flush()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.buf, w.file = nil, nil
	return errors.Join(err, saveIndex(w.dir, w.idx))
}
