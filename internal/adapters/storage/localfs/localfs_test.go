package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brandgen/internal/ports"
)

func put(t *testing.T, l *LocalFS, key, body string) ports.PutObjectOutput {
	t.Helper()
	out, err := l.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: "image/png",
		Reader:      strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("PutObject(%s): %v", key, err)
	}
	return out
}

func TestPutAndGet(t *testing.T) {
	l := New(t.TempDir())

	out := put(t, l, "acme.png", "first")
	if out.ObjectKey != "acme.png" || out.Size != 5 {
		t.Errorf("unexpected output: %+v", out)
	}

	rc, ct, size, err := l.GetObject(context.Background(), "acme.png")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)

	if string(body) != "first" || size != 5 || ct != "image/png" {
		t.Errorf("got body=%q size=%d ct=%q", body, size, ct)
	}
}

func TestPutOverwrites(t *testing.T) {
	root := t.TempDir()
	l := New(root)

	put(t, l, "acme.png", "first version")
	put(t, l, "acme.png", "second")

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one stored file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(root, "acme.png"))
	if string(data) != "second" {
		t.Errorf("expected the second write to win, got %q", data)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	l := New(t.TempDir())

	for _, key := range []string{"", "../outside.png", "/abs.png"} {
		_, err := l.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		if err == nil {
			t.Errorf("PutObject(%q) should fail", key)
		}
	}
}

func TestNotFound(t *testing.T) {
	l := New(t.TempDir())

	if _, _, _, err := l.GetObject(context.Background(), "missing.png"); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("GetObject: expected ErrObjectNotFound, got %v", err)
	}
	if err := l.DeleteObject(context.Background(), "missing.png"); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("DeleteObject: expected ErrObjectNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	l := New(t.TempDir())
	put(t, l, "gone.png", "x")

	if err := l.DeleteObject(context.Background(), "gone.png"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, _, _, err := l.GetObject(context.Background(), "gone.png"); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("expected object to be gone, got %v", err)
	}
}

func TestSignedURLIsEmpty(t *testing.T) {
	out, err := New(t.TempDir()).GetSignedURL(context.Background(), "a.png", 0)
	if err != nil || out.URL != "" {
		t.Errorf("expected empty URL, got %+v, %v", out, err)
	}
}
