package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/galerija/internal/catalog"
	"github.com/erazemk/galerija/internal/db"
	"github.com/erazemk/galerija/internal/reconcile"
	"github.com/erazemk/galerija/internal/storage/filestore"
	"github.com/erazemk/galerija/internal/storage/wal"
	"github.com/erazemk/galerija/internal/transfer"
)

func setupTestServer(t *testing.T, maxBody int64) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database := db.NewTestDB(t)
	files, err := filestore.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	journal, err := wal.New(filepath.Join(t.TempDir(), "wal"), logger)
	if err != nil {
		t.Fatalf("wal: %v", err)
	}

	router := NewRouter(Options{
		DB:            database,
		Files:         files,
		Reconciler:    reconcile.New(database, files, journal, logger),
		Catalog:       catalog.New(database, 16, time.Minute),
		MaxBodyBytes:  maxBody,
		AllowedOrigin: "*",
		Logger:        logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	default:
		data, _ = json.Marshal(b)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	return v
}

func inlineImage(order int, content string) map[string]any {
	return map[string]any{
		"order":    order,
		"data":     transfer.Encode([]byte(content)),
		"fileType": "image/png",
	}
}

func TestUploadLegacyEndpoint(t *testing.T) {
	server := setupTestServer(t, 0)

	resp := postJSON(t, server.URL+"/upload", map[string]any{
		"productName": "Chair",
		"des":         "Wooden",
		"imagesBlob":  []any{inlineImage(1, "one"), inlineImage(2, "two")},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[transfer.UploadResponse](t, resp)
	if body.Message != "Files uploaded successfully" {
		t.Errorf("message = %q", body.Message)
	}
	want := []string{"uploads/default/image-1.png", "uploads/default/image-2.png"}
	if strings.Join(body.FilePaths, ",") != strings.Join(want, ",") {
		t.Errorf("filePaths = %v, want %v", body.FilePaths, want)
	}
	if len(body.Images) != 2 || body.Images[1].Order != 2 || body.Images[1].URL != "/uploads/default/image-2.png" {
		t.Errorf("images = %+v", body.Images)
	}

	// The stored file is served back with the exact bytes.
	fileResp, err := http.Get(server.URL + "/uploads/default/image-2.png")
	if err != nil {
		t.Fatal(err)
	}
	defer fileResp.Body.Close()
	data, _ := io.ReadAll(fileResp.Body)
	if fileResp.StatusCode != http.StatusOK || string(data) != "two" {
		t.Errorf("GET file: status %d body %q", fileResp.StatusCode, data)
	}
}

func TestUploadLegacyBodyWithoutFileType(t *testing.T) {
	server := setupTestServer(t, 0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	body := map[string]any{
		"productName": "p",
		"des":         "d",
		"imagesBlob": []any{
			map[string]any{"order": 1, "data": transfer.Encode(buf.Bytes())},
			map[string]any{"order": 2, "data": "data:image/png;base64," + transfer.Encode(buf.Bytes())},
		},
	}

	resp := postJSON(t, server.URL+"/upload", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[transfer.UploadResponse](t, resp)
	want := []string{"uploads/default/image-1.png", "uploads/default/image-2.png"}
	if strings.Join(got.FilePaths, ",") != strings.Join(want, ",") {
		t.Errorf("filePaths = %v, want %v", got.FilePaths, want)
	}
	for _, img := range got.Images {
		if img.FileType != "image/png" {
			t.Errorf("image %d fileType = %q, want image/png", img.Order, img.FileType)
		}
	}

	// Named products still require the type.
	resp = postJSON(t, server.URL+"/api/products/p/images", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("named product: expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadMissingImagesBlob(t *testing.T) {
	server := setupTestServer(t, 0)

	resp := postJSON(t, server.URL+"/upload", map[string]any{"productName": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["error"] != "Missing required fields" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestUploadRejections(t *testing.T) {
	server := setupTestServer(t, 0)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"invalid json", "{", "malformed payload"},
		{"order zero", map[string]any{"imagesBlob": []any{inlineImage(0, "a")}}, "malformed payload"},
		{"duplicate order", map[string]any{"imagesBlob": []any{inlineImage(1, "a"), inlineImage(1, "b")}}, "duplicate order"},
		{"bad base64", map[string]any{"imagesBlob": []any{map[string]any{"order": 1, "data": "%%%", "fileType": "image/png"}}}, "decode error"},
		{"unknown reference", map[string]any{"imagesBlob": []any{map[string]any{"order": 1, "id": "missing"}}}, "unknown reference"},
		{"inline without type", map[string]any{"imagesBlob": []any{map[string]any{"order": 1, "data": "YQ=="}}}, "malformed payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/products/p/images", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			body := decodeBody[map[string]string](t, resp)
			if !strings.Contains(body["error"], tt.want) {
				t.Errorf("error = %q, want it to contain %q", body["error"], tt.want)
			}
		})
	}

	// Nothing was stored by any rejected submit.
	resp, err := http.Get(server.URL + "/api/products/p/images")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	listing := decodeBody[transfer.Listing](t, resp)
	if len(listing.Images) != 0 {
		t.Errorf("expected no images, got %d", len(listing.Images))
	}
}

func TestUploadBodyTooLarge(t *testing.T) {
	server := setupTestServer(t, 64)

	resp := postJSON(t, server.URL+"/upload", map[string]any{
		"imagesBlob": []any{inlineImage(1, strings.Repeat("x", 200))},
	})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestUploadInvalidProduct(t *testing.T) {
	server := setupTestServer(t, 0)

	resp := postJSON(t, server.URL+"/api/products/bad.name/images", map[string]any{"imagesBlob": []any{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReorderAndListRoundTrip(t *testing.T) {
	server := setupTestServer(t, 0)
	url := server.URL + "/api/products/lamp/images"

	first := decodeBody[transfer.UploadResponse](t, postJSON(t, url, map[string]any{
		"productName": "Lamp",
		"imagesBlob":  []any{inlineImage(1, "a"), inlineImage(2, "b")},
	}))

	// Listing reflects the first submit.
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	listing := decodeBody[transfer.Listing](t, resp)
	resp.Body.Close()
	if listing.Name != "Lamp" || len(listing.Images) != 2 {
		t.Fatalf("listing = %+v", listing)
	}

	// Swap the two, keep both by reference.
	second := postJSON(t, url, map[string]any{
		"imagesBlob": []any{
			map[string]any{"order": 1, "kind": "ref", "id": first.Images[1].ID},
			map[string]any{"order": 2, "kind": "ref", "id": first.Images[0].ID},
		},
	})
	if second.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.StatusCode)
	}

	// The cached listing was invalidated by the submit.
	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	listing = decodeBody[transfer.Listing](t, resp)
	resp.Body.Close()
	if listing.Images[0].ID != first.Images[1].ID || listing.Images[1].ID != first.Images[0].ID {
		t.Errorf("order after swap = %+v", listing.Images)
	}
	if listing.Name != "Lamp" {
		t.Errorf("name lost: %q", listing.Name)
	}

	fileResp, err := http.Get(server.URL + "/uploads/lamp/image-1.png")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(fileResp.Body)
	fileResp.Body.Close()
	if string(data) != "b" {
		t.Errorf("image-1 = %q, want b", data)
	}
}

func TestRemoveImages(t *testing.T) {
	server := setupTestServer(t, 0)
	url := server.URL + "/api/products/p/images"

	first := decodeBody[transfer.UploadResponse](t, postJSON(t, url, map[string]any{
		"imagesBlob": []any{inlineImage(1, "a"), inlineImage(2, "b")},
	}))

	removal := map[string]any{
		"imagesBlob":   []any{map[string]any{"order": 1, "id": first.Images[1].ID, "imageUrl": first.Images[1].URL}},
		"removeImages": []any{map[string]any{"id": first.Images[0].ID}},
	}
	for i := 0; i < 2; i++ {
		resp := postJSON(t, url, removal)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		body := decodeBody[transfer.UploadResponse](t, resp)
		if len(body.FilePaths) != 1 || body.FilePaths[0] != "uploads/p/image-1.png" {
			t.Errorf("attempt %d: filePaths = %v", i+1, body.FilePaths)
		}
	}

	resp, err := http.Get(server.URL + "/uploads/p/image-2.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("removed file still served: %d", resp.StatusCode)
	}
}

func TestStaticHidesInternalPaths(t *testing.T) {
	server := setupTestServer(t, 0)
	postJSON(t, server.URL+"/upload", map[string]any{"imagesBlob": []any{inlineImage(1, "a")}})

	for _, path := range []string{"/uploads/.staging/", "/uploads/.trash/x", "/uploads/default/", "/uploads/"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestListProducts(t *testing.T) {
	server := setupTestServer(t, 0)
	postJSON(t, server.URL+"/api/products/a/images", map[string]any{"imagesBlob": []any{inlineImage(1, "a")}})
	postJSON(t, server.URL+"/api/products/b/images", map[string]any{"imagesBlob": []any{}})

	resp, err := http.Get(server.URL + "/api/products")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	products := decodeBody[[]map[string]any](t, resp)
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t, 0)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/upload", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server := setupTestServer(t, 0)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x?y=1", nil))

	out := buf.String()
	if !strings.Contains(out, "status=202") || !strings.Contains(out, "path=\"/x?y=1\"") {
		t.Errorf("log line = %q", out)
	}
}
