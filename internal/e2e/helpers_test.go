package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"captchad/internal/httpapi"
	"captchad/internal/solver"
)

// realModelEnv returns the pinned model/library/image/text tuple, skipping the
// test when any part is missing.
func realModelEnv(t *testing.T) (model, lib, image, text string) {
	t.Helper()
	model = os.Getenv("CAPTCHAD_E2E_MODEL")
	lib = os.Getenv("CAPTCHAD_ORT_LIB")
	image = os.Getenv("CAPTCHAD_E2E_IMAGE")
	text = os.Getenv("CAPTCHAD_E2E_TEXT")
	if text == "" {
		text = "ab3K9"
	}
	if model == "" || lib == "" || image == "" {
		t.Skip("set CAPTCHAD_E2E_MODEL, CAPTCHAD_ORT_LIB and CAPTCHAD_E2E_IMAGE to run against a real model")
	}
	return model, lib, image, text
}

func newServer(t *testing.T, svc *solver.Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// postImage uploads data as the "file" field and decodes the JSON reply.
// It returns an error instead of failing so it can run off the test goroutine.
func postImage(url string, data []byte) (int, map[string]string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "captcha.png")
	if err != nil {
		return 0, nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return 0, nil, err
	}
	if err := mw.Close(); err != nil {
		return 0, nil, err
	}
	resp, err := http.Post(url+"/solve_captcha", mw.FormDataContentType(), &buf)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, out, nil
}
