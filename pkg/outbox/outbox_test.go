package outbox

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type reply struct {
	PostID string `json:"post_id"`
	Text   string `json:"text"`
}

func TestWriter_RotationAndResume(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, MaxPerShard: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 7; i++ {
		if err := w.Append(reply{PostID: string(rune('a' + i)), Text: "nice pull"}); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err := LoadIndex(dir)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if idx.Total != 7 || len(idx.Shards) != 3 {
		t.Fatalf("index=%+v, want 7 replies in 3 shards", idx)
	}
	want := []Shard{{1, "replies-000001.jsonl", 3}, {2, "replies-000002.jsonl", 3}, {3, "replies-000003.jsonl", 1}}
	for i, s := range idx.Shards {
		if s != want[i] {
			t.Fatalf("shard %d = %+v, want %+v", i, s, want[i])
		}
	}

	// Reopening fills the last shard before rotating.
	w2, err := Open(Config{Dir: dir, MaxPerShard: 3})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w2.Append(reply{PostID: "z", Text: "same"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got := w2.Index()
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got.Total != 10 || len(got.Shards) != 4 || got.Shards[2].Replies != 3 || got.Shards[3].Replies != 1 {
		t.Fatalf("after resume index=%+v", got)
	}
}

func TestOpen_RebuildsMissingIndex(t *testing.T) {
	dir := t.TempDir()
	data := []byte("{\"text\":\"a\"}\n\n{\"text\":\"b\"}\n")
	if err := os.WriteFile(filepath.Join(dir, "replies-000004.jsonl"), data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := Open(Config{Dir: dir, MaxPerShard: 5})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()

	idx := w.Index()
	if idx.Total != 2 || len(idx.Shards) != 1 || idx.Shards[0].Seq != 4 || idx.Shards[0].Replies != 2 {
		t.Fatalf("rebuilt index=%+v", idx)
	}
}

func TestWriter_Concurrent(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, MaxPerShard: 10})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := w.Append(reply{Text: "ok"}); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx := Rebuild(dir)
	if idx.Total != 100 || len(idx.Shards) != 10 {
		t.Fatalf("rebuilt index=%+v, want 100 replies in 10 shards", idx)
	}
	if err := w.Append(reply{}); err == nil {
		t.Fatal("Append after Close succeeded")
	}
}
