package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramDeliverer_SendsDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendDocument" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
			return
		}
		if got := r.FormValue("chat_id"); got != "12345" {
			t.Errorf("chat_id %q", got)
		}
		if got := r.FormValue("caption"); got != "My Video - openai rewrite" {
			t.Errorf("caption %q", got)
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("document part: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "job-1.openai.md" {
			t.Errorf("filename %q", header.Filename)
		}
		data, err := io.ReadAll(file)
		if err != nil {
			t.Errorf("reading document: %v", err)
			return
		}
		if string(data) != "the final script" {
			t.Errorf("document body %q", data)
		}

		fmt.Fprint(w, `{"ok": true, "result": {"message_id": 99}}`)
	}))
	defer server.Close()

	deliverer := NewTelegramDeliverer("test-token", "12345")
	deliverer.apiBase = server.URL

	msgID, err := deliverer.Deliver(context.Background(), "the final script", "job-1.openai.md", "My Video - openai rewrite")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if msgID != "99" {
		t.Fatalf("message id %q, want 99", msgID)
	}
}

func TestTelegramDeliverer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok": false, "description": "chat not found"}`)
	}))
	defer server.Close()

	deliverer := NewTelegramDeliverer("t", "c")
	deliverer.apiBase = server.URL

	_, err := deliverer.Deliver(context.Background(), "x", "f.md", "cap")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API description in error, got %v", err)
	}
}
