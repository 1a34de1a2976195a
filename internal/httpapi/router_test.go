package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"brandgen/internal/adapters/storage/localfs"
	"brandgen/internal/catalog"
	"brandgen/internal/httpapi/handlers"
	"brandgen/internal/models"
	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/ports"
	"brandgen/internal/render"
	"brandgen/internal/upload"
	"brandgen/internal/worker/queue"
)

type testEnv struct {
	srv         *httptest.Server
	uploadsDir  string
	catalogPath string
}

func newTestEnv(t *testing.T, mutate func(*handlers.Deps)) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	uploadsDir := t.TempDir()

	d := handlers.Deps{
		SP:           localfs.New(uploadsDir),
		Log:          logger.Discard(),
		CatalogPath:  filepath.Join(dataDir, "brands.json"),
		MaxFiles:     200,
		MaxFileBytes: 10 << 20,
	}
	if mutate != nil {
		mutate(&d)
	}

	srv := httptest.NewServer(NewRouter(Deps{Handlers: d, Log: logger.Discard()}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, uploadsDir: uploadsDir, catalogPath: d.CatalogPath}
}

func (e *testEnv) writeCatalog(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.catalogPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) storedNames(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.uploadsDir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

type part struct {
	field, name string
	data        []byte
}

func postMultipart(t *testing.T, url string, parts ...part) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.name == "" {
			_ = mw.WriteField(p.field, string(p.data))
			continue
		}
		w, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write(p.data)
	}
	_ = mw.Close()

	res, err := http.Post(url+upload.BatchPath, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestListBrands(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		want    int
	}{
		{"catalog present", `[{"id":1,"brand":"Банк"},{"id":2,"brand":""},{"slug":"x","brand":"X"}]`, 3},
		{"catalog missing", "", 0},
		{"not an array", `{"brands":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.catalog != "" {
				env.writeCatalog(t, tt.catalog)
			}

			res, err := http.Get(env.srv.URL + catalog.BrandsPath)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()

			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", res.StatusCode)
			}
			body := decode[map[string]any](t, res)
			brands, ok := body["brands"].([]any)
			if !ok {
				t.Fatalf("brands must be a list, got %v", body["brands"])
			}
			if body["success"] != true || body["count"] != float64(tt.want) || len(brands) != tt.want {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}
}

func TestListBrandsServesElementsAsStored(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeCatalog(t, `[{"id":1,"brand":"Банк","logo":"bank.svg"},{"id":true,"brand":42}]`)

	res, err := http.Get(env.srv.URL + catalog.BrandsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	body := decode[struct {
		Count  int              `json:"count"`
		Brands []map[string]any `json:"brands"`
	}](t, res)
	if body.Count != 2 || len(body.Brands) != 2 {
		t.Fatalf("expected both elements served, got %+v", body)
	}
	if body.Brands[0]["logo"] != "bank.svg" {
		t.Errorf("unknown field dropped: %v", body.Brands[0])
	}
	if body.Brands[1]["id"] != true || body.Brands[1]["brand"] != float64(42) {
		t.Errorf("element rewritten: %v", body.Brands[1])
	}
}

func TestUploadBatchStoresFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	img := pngBytes(t)

	res := postMultipart(t, env.srv.URL,
		part{field: upload.FieldName, name: "1-bank.png", data: img},
		part{field: upload.FieldName, name: "ООО Ромашка.png", data: img},
		part{field: "note", data: []byte("ignored")},
	)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	body := decode[upload.Response](t, res)
	if !body.Success || body.Count == nil || *body.Count != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Files[1].OriginalName != "ООО Ромашка.png" || body.Files[1].SavedName != "OOO_Romashka.png" {
		t.Errorf("unexpected saved file: %+v", body.Files[1])
	}
	if body.Files[0].Size != int64(len(img)) {
		t.Errorf("size = %d, want %d", body.Files[0].Size, len(img))
	}

	names := env.storedNames(t)
	slices.Sort(names)
	if want := []string{"1-bank.png", "OOO_Romashka.png"}; !slices.Equal(names, want) {
		t.Errorf("stored = %v, want %v", names, want)
	}
}

func TestUploadBatchOverwrites(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, content := range []string{"first", "second"} {
		res := postMultipart(t, env.srv.URL, part{field: upload.FieldName, name: "acme.png", data: []byte(content)})
		if res.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", res.StatusCode)
		}
	}

	if names := env.storedNames(t); !slices.Equal(names, []string{"acme.png"}) {
		t.Fatalf("expected a single acme.png, got %v", names)
	}
	data, err := os.ReadFile(filepath.Join(env.uploadsDir, "acme.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want the second upload", data)
	}
}

func TestUploadBatchRejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*handlers.Deps)
		parts      []part
		wantStatus int
		wantError  string
	}{
		{
			name:       "no files",
			parts:      []part{{field: "note", data: []byte("x")}},
			wantStatus: http.StatusBadRequest,
			wantError:  "No files were uploaded",
		},
		{
			name:       "wrong field",
			parts:      []part{{field: "file", name: "a.png", data: []byte("x")}},
			wantStatus: http.StatusBadRequest,
			wantError:  "No files were uploaded",
		},
		{
			name:   "too many files",
			mutate: func(d *handlers.Deps) { d.MaxFiles = 1 },
			parts: []part{
				{field: upload.FieldName, name: "a.png", data: []byte("x")},
				{field: upload.FieldName, name: "b.png", data: []byte("y")},
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "too many files, at most 1 per request",
		},
		{
			name:       "file too large",
			mutate:     func(d *handlers.Deps) { d.MaxFileBytes = 4 },
			parts:      []part{{field: upload.FieldName, name: "a.png", data: []byte("too big")}},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "file too large: a.png",
		},
		{
			name:       "storage failure",
			mutate:     func(d *handlers.Deps) { d.SP = brokenStorage{} },
			parts:      []part{{field: upload.FieldName, name: "a.png", data: []byte("x")}},
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to store file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.mutate)

			res := postMultipart(t, env.srv.URL, tt.parts...)

			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			body := decode[map[string]any](t, res)
			if body["success"] != false || body["error"] != tt.wantError {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}
}

func TestUploadBatchNotMultipart(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := http.Post(env.srv.URL+upload.BatchPath, "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
}

type recordingLedger struct {
	records []models.UploadRecord
	err     error
}

func (l *recordingLedger) Record(_ context.Context, rec models.UploadRecord) error {
	l.records = append(l.records, rec)
	return l.err
}

func TestUploadBatchRecordsLedger(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"recorded", nil},
		{"ledger failure does not fail the upload", errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &recordingLedger{err: tt.err}
			env := newTestEnv(t, func(d *handlers.Deps) { d.Ledger = ledger })

			res := postMultipart(t, env.srv.URL, part{field: upload.FieldName, name: "Café.png", data: []byte("x")})

			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", res.StatusCode)
			}
			if len(ledger.records) != 1 {
				t.Fatalf("expected 1 ledger record, got %d", len(ledger.records))
			}
			rec := ledger.records[0]
			if rec.SavedName != "Cafe.png" || rec.OriginalName != "Café.png" || rec.Provider != "localfs" {
				t.Errorf("unexpected record: %+v", rec)
			}
		})
	}
}

func TestServeUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	img := pngBytes(t)
	postMultipart(t, env.srv.URL, part{field: upload.FieldName, name: "acme.png", data: img})

	t.Run("stored file", func(t *testing.T) {
		res, err := http.Get(env.srv.URL + "/uploads/acme.png")
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()

		got, _ := io.ReadAll(res.Body)
		if res.StatusCode != http.StatusOK || !bytes.Equal(got, img) {
			t.Errorf("status = %d, %d bytes", res.StatusCode, len(got))
		}
		if ct := res.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type = %q", ct)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		res, err := http.Get(env.srv.URL + "/uploads/nope.png")
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", res.StatusCode)
		}
	})
}

func TestServeUploadRedirectsToSignedURL(t *testing.T) {
	env := newTestEnv(t, func(d *handlers.Deps) { d.SP = signingStorage{} })

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Get(env.srv.URL + "/uploads/acme.png")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "https://bucket.example/acme.png?sig=1" {
		t.Errorf("location = %q", loc)
	}
}

type fakeEnqueuer struct {
	pushed []queue.Trigger
	err    error
}

func (f *fakeEnqueuer) Push(_ context.Context, t queue.Trigger) error {
	f.pushed = append(f.pushed, t)
	return f.err
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		triggers   handlers.Enqueuer
		wantStatus int
	}{
		{"no queue configured", nil, http.StatusServiceUnavailable},
		{"queued", &fakeEnqueuer{}, http.StatusAccepted},
		{"queue down", &fakeEnqueuer{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(d *handlers.Deps) { d.Triggers = tt.triggers })

			res, err := http.Post(env.srv.URL+"/api/generate", "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			body := decode[map[string]any](t, res)
			if tt.wantStatus == http.StatusAccepted {
				if body["success"] != true || body["trigger_id"] == "" {
					t.Errorf("unexpected body: %v", body)
				}
			} else if body["success"] != false {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := http.Get(env.srv.URL + "/health?deep=true")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	body := decode[map[string]any](t, res)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	pg, _ := checks["postgres"].(map[string]any)
	st, _ := checks["storage"].(map[string]any)
	if pg["status"] != "disabled" || st["provider"] != "localfs" {
		t.Errorf("unexpected checks: %v", checks)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+upload.BatchPath, nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.Header.Get("Access-Control-Allow-Origin") != "http://localhost:8080" {
		t.Errorf("missing CORS headers: %v", res.Header)
	}
}

// TestGenerationAgainstServer drives a full run through the real catalog
// source, upload client and server.
func TestGenerationAgainstServer(t *testing.T) {
	env := newTestEnv(t, nil)
	env.writeCatalog(t, `[
		{"id":1,"brand":"Банк","description":"Лучший банк"},
		{"id":2,"brand":"","description":"skip me"},
		{"id":true,"brand":"Acme"},
		{"id":3,"brand":"ООО Ромашка"}
	]`)

	card := render.RendererFunc(func(_ context.Context, rec models.BrandRecord) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 9, 12)), nil
	})
	p := pipeline.New(pipeline.Deps{
		Source:    catalog.NewHTTPSource(env.srv.URL, nil),
		Renderer:  card,
		Encoder:   render.NewPNGEncoder(png.BestSpeed),
		Transport: upload.NewClient(env.srv.URL, &http.Client{Timeout: 10 * time.Second}),
		Log:       logger.Discard(),
		BatchSize: 1,
	})

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Total != 2 || sum.Processed != 2 || sum.Succeeded != 2 {
		t.Errorf("unexpected summary: %+v", sum.RunState)
	}

	names := env.storedNames(t)
	slices.Sort(names)
	if want := []string{"1-bank.png", "3-ooo_romashka.png"}; !slices.Equal(names, want) {
		t.Errorf("stored = %v, want %v", names, want)
	}
}

type brokenStorage struct{ signingStorage }

func (brokenStorage) PutObject(context.Context, ports.PutObjectInput) (ports.PutObjectOutput, error) {
	return ports.PutObjectOutput{}, errors.New("disk full")
}

type signingStorage struct{}

func (signingStorage) Provider() string { return "s3" }

func (signingStorage) PutObject(_ context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: in.Size}, nil
}

func (signingStorage) GetObject(context.Context, string) (io.ReadCloser, string, int64, error) {
	return nil, "", 0, ports.ErrObjectNotFound
}

func (signingStorage) DeleteObject(context.Context, string) error { return nil }

func (signingStorage) GetSignedURL(_ context.Context, key string, ttl time.Duration) (ports.SignedURLOutput, error) {
	return ports.SignedURLOutput{URL: "https://bucket.example/" + key + "?sig=1", ExpiresAt: time.Now().Add(ttl)}, nil
}
