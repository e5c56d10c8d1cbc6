package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "kyudo.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestGetMissing(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Get(context.Background(), "mydoc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostThenGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id, rev, err := st.Post(ctx, Document{ID: "mydoc", Body: []byte(`{"a":1}`)})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if id != "mydoc" {
		t.Fatalf("expected id mydoc, got %q", id)
	}
	if !strings.HasPrefix(rev, "1-") {
		t.Fatalf("expected first generation revision, got %q", rev)
	}
	doc, err := st.Get(ctx, "mydoc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Rev != rev || string(doc.Body) != `{"a":1}` {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestPostAssignsFreshID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	first, _, err := st.Post(ctx, Document{Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	second, _, err := st.Post(ctx, Document{Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct fresh ids, got %q and %q", first, second)
	}
	ids, err := st.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 documents, got %v", ids)
	}
}

func TestPostExistingIDConflicts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, _, err := st.Post(ctx, Document{ID: "mydoc", Body: []byte(`{"v":1}`)}); err != nil {
		t.Fatalf("post: %v", err)
	}
	_, _, err := st.Post(ctx, Document{ID: "mydoc", Body: []byte(`{"v":2}`)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	doc, err := st.Get(ctx, "mydoc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(doc.Body) != `{"v":1}` {
		t.Fatalf("post overwrote document: %s", doc.Body)
	}
}

func TestPutRequiresCurrentRevision(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, rev1, err := st.Post(ctx, Document{ID: "mydoc", Body: []byte(`{"v":1}`)})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	rev2, err := st.Put(ctx, Document{ID: "mydoc", Rev: rev1, Body: []byte(`{"v":2}`)})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(rev2, "2-") {
		t.Fatalf("expected second generation revision, got %q", rev2)
	}

	tests := []struct {
		name string
		rev  string
	}{
		{name: "stale", rev: rev1},
		{name: "missing", rev: ""},
		{name: "malformed", rev: "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Put(ctx, Document{ID: "mydoc", Rev: tt.rev, Body: []byte(`{"v":3}`)})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})
	}

	doc, err := st.Get(ctx, "mydoc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Rev != rev2 || string(doc.Body) != `{"v":2}` {
		t.Fatalf("rejected put changed document: %+v", doc)
	}
}

func TestPutMissingDocumentConflicts(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Put(context.Background(), Document{ID: "nope", Rev: "1-abc", Body: []byte(`{}`)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyudo.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, rev, err := st.Post(context.Background(), Document{ID: "mydoc", Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	doc, err := st.Get(context.Background(), "mydoc")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if doc.Rev != rev {
		t.Fatalf("expected rev %q, got %q", rev, doc.Rev)
	}
}
