package savegame_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tailored-agentic-units/simstate/savegame"
)

// fakeS3 serves one bucket from memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func stores(t *testing.T) map[string]savegame.Store {
	t.Helper()
	sqlite, err := savegame.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]savegame.Store{
		"memory": savegame.NewMemoryStore(),
		"file":   savegame.NewFileStore(filepath.Join(t.TempDir(), "saves")),
		"sqlite": sqlite,
		"s3":     savegame.NewS3StoreWithClient(newFakeS3(), "saves", "simstate/"),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			slots, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(slots) != 0 {
				t.Errorf("List() returned %d slots, want 0", len(slots))
			}

			for _, slot := range []string{"quick", "auto-2", "auto-1", "mission_3.bak"} {
				if err := store.Save(ctx, slot, []byte(slot)); err != nil {
					t.Fatalf("Save(%q) error = %v", slot, err)
				}
			}
			if err := store.Save(ctx, "quick", []byte{1, 2, 3}); err != nil {
				t.Fatalf("Save() overwrite error = %v", err)
			}

			slots, err = store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			want := []string{"auto-1", "auto-2", "mission_3.bak", "quick"}
			if !slices.Equal(slots, want) {
				t.Errorf("List() = %v, want %v", slots, want)
			}

			data, err := store.Load(ctx, "quick")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !bytes.Equal(data, []byte{1, 2, 3}) {
				t.Errorf("Load() = %v, want overwritten data", data)
			}

			if err := store.Delete(ctx, "auto-1"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, "auto-1"); err != nil {
				t.Errorf("Delete() of missing slot error = %v", err)
			}

			_, err = store.Load(ctx, "auto-1")
			if !errors.Is(err, savegame.ErrSlotNotFound) {
				t.Errorf("expected ErrSlotNotFound, got %v", err)
			}
		})
	}
}

func TestStore_InvalidSlot(t *testing.T) {
	invalid := []string{"", "../escape", ".hidden", "a/b", "with space", strings.Repeat("x", 65)}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, slot := range invalid {
				if err := store.Save(ctx, slot, nil); !errors.Is(err, savegame.ErrInvalidSlot) {
					t.Errorf("Save(%q): expected ErrInvalidSlot, got %v", slot, err)
				}
				if _, err := store.Load(ctx, slot); !errors.Is(err, savegame.ErrInvalidSlot) {
					t.Errorf("Load(%q): expected ErrInvalidSlot, got %v", slot, err)
				}
				if err := store.Delete(ctx, slot); !errors.Is(err, savegame.ErrInvalidSlot) {
					t.Errorf("Delete(%q): expected ErrInvalidSlot, got %v", slot, err)
				}
			}
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := savegame.NewMemoryStore()

	data := []byte{1, 2, 3}
	if err := store.Save(ctx, "slot", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data[0] = 9

	got, _ := store.Load(ctx, "slot")
	got[1] = 9

	again, _ := store.Load(ctx, "slot")
	if !bytes.Equal(again, []byte{1, 2, 3}) {
		t.Errorf("stored data was aliased: %v", again)
	}
}

func TestFileStore_Layout(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "saves")
	store := savegame.NewFileStore(root)

	if err := store.Save(ctx, "quick", []byte("payload")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "quick"+savegame.FileExt))
	if err != nil {
		t.Fatalf("save file missing: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("file content = %q", data)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("expected only the save file, found %d entries", len(entries))
	}

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	slots, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(slots, []string{"quick"}) {
		t.Errorf("List() = %v, want [quick]", slots)
	}
}

func TestFileStore_MissingRoot(t *testing.T) {
	store := savegame.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	slots, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("List() returned %d slots, want 0", len(slots))
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saves.db")

	first, err := savegame.NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.Save(ctx, "quick", []byte{4, 5}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := savegame.NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer second.Close()

	data, err := second.Load(ctx, "quick")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(data, []byte{4, 5}) {
		t.Errorf("Load() = %v, want [4 5]", data)
	}
}

func TestS3Store_KeysAndPaging(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	client.objects["other/ignored.sav"] = []byte("x")
	client.objects["simstate/readme.txt"] = []byte("x")
	store := savegame.NewS3StoreWithClient(client, "saves", "simstate/")

	for _, slot := range []string{"a", "b", "c", "d", "e"} {
		if err := store.Save(ctx, slot, []byte(slot)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if _, ok := client.objects["simstate/c.sav"]; !ok {
		t.Error("expected object key simstate/c.sav")
	}

	client.lists = 0
	slots, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(slots, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("List() = %v", slots)
	}
	if client.lists != 3 {
		t.Errorf("expected 3 list pages, got %d", client.lists)
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name        string
		cfg         savegame.Config
		expectError bool
	}{
		{name: "default", cfg: savegame.DefaultConfig()},
		{name: "empty driver", cfg: savegame.Config{}},
		{name: "file", cfg: savegame.Config{Driver: savegame.DriverFile, Path: t.TempDir()}},
		{name: "file without path", cfg: savegame.Config{Driver: savegame.DriverFile}, expectError: true},
		{name: "sqlite", cfg: savegame.Config{Driver: savegame.DriverSQLite, Path: filepath.Join(t.TempDir(), "s.db")}},
		{name: "sqlite without path", cfg: savegame.Config{Driver: savegame.DriverSQLite}, expectError: true},
		{name: "s3 without bucket", cfg: savegame.Config{Driver: savegame.DriverS3}, expectError: true},
		{name: "unknown", cfg: savegame.Config{Driver: "tape"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := savegame.NewStore(context.Background(), &tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := savegame.DefaultConfig()
	cfg.Merge(&savegame.Config{Driver: savegame.DriverS3, Bucket: "b", PathStyle: true})

	if cfg.Driver != savegame.DriverS3 || cfg.Bucket != "b" || !cfg.PathStyle {
		t.Errorf("unexpected merged config %+v", cfg)
	}

	cfg.Merge(&savegame.Config{})
	if cfg.Driver != savegame.DriverS3 {
		t.Errorf("empty source overwrote driver: %q", cfg.Driver)
	}
}
