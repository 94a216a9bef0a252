package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Error("missing auth header")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "fake-audio" {
			t.Errorf("unexpected body %q", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "book an appointment"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.URL, "key")
	text, err := client.Transcribe(context.Background(), strings.NewReader("fake-audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "book an appointment" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != "take your medicine" {
			t.Errorf("unexpected text %q", req.Text)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.URL, "key")
	audio, err := client.Synthesize(context.Background(), "take your medicine")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", audio)
	}
}

func TestTranscribeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.URL, "key")
	if _, err := client.Transcribe(context.Background(), strings.NewReader("x"), "audio/wav"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

type stubClient struct{}

func (stubClient) Transcribe(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "hello", nil
}

func (stubClient) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte("audio:" + text), nil
}

func TestSynthesizeHandler(t *testing.T) {
	e := echo.New()
	h := NewHandler(stubClient{})

	body, _ := json.Marshal(map[string]string{"text": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/speech/synthesize", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Synthesize(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Synthesize handler: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "audio:hi" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
