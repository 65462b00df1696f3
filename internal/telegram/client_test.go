package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pbx-notifier/internal/calls"
)

// fakeBotAPI serves just enough of the Telegram Bot API for the client:
// getMe during construction plus sendMessage/sendAudio.
func fakeBotAPI(t *testing.T, handle func(method string, r *http.Request) (any, bool)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		method := parts[len(parts)-1]

		if method == "getMe" {
			writeResult(w, map[string]any{"id": 1, "is_bot": true, "user_name": "notifier_bot"}, true)
			return
		}

		result, ok := handle(method, r)
		writeResult(w, result, ok)
	}))
}

func writeResult(w http.ResponseWriter, result any, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "error_code": 400, "description": "Bad Request",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func endpoint(srv *httptest.Server) string {
	return srv.URL + "/bot%s/%s"
}

func TestSendText(t *testing.T) {
	var gotText, gotChat string
	srv := fakeBotAPI(t, func(method string, r *http.Request) (any, bool) {
		if method != "sendMessage" {
			t.Errorf("unexpected method %q", method)
		}
		_ = r.ParseForm()
		gotText = r.FormValue("text")
		gotChat = r.FormValue("chat_id")
		return map[string]any{"message_id": 7}, true
	})
	defer srv.Close()

	c, err := NewClientWithEndpoint("token", endpoint(srv), -100123)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint: %v", err)
	}

	if err := c.SendText(context.Background(), "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotText != "hello" {
		t.Fatalf("expected text to reach API, got %q", gotText)
	}
	if gotChat != "-100123" {
		t.Fatalf("expected channel id, got %q", gotChat)
	}
}

func TestSendAudio_AttachesCaptionAndBytes(t *testing.T) {
	var sawAudio bool
	srv := fakeBotAPI(t, func(method string, r *http.Request) (any, bool) {
		if method != "sendAudio" {
			t.Errorf("unexpected method %q", method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart upload: %v", err)
			return nil, false
		}
		if got := r.FormValue("caption"); got != "call details" {
			t.Errorf("expected caption, got %q", got)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("expected audio file part: %v", err)
		}
		sawAudio = true
		return map[string]any{"message_id": 8}, true
	})
	defer srv.Close()

	c, err := NewClientWithEndpoint("token", endpoint(srv), -100123)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint: %v", err)
	}

	err = c.SendAudio(context.Background(), "call details", calls.RecordingAsset{
		Data:        []byte("fake-audio"),
		ContentType: "audio/mpeg",
		Size:        10,
		FileName:    "u1.mp3",
	})
	if err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if !sawAudio {
		t.Fatalf("sendAudio was never called")
	}
}

func TestSend_RejectionMapsToErrChannelRejected(t *testing.T) {
	srv := fakeBotAPI(t, func(method string, r *http.Request) (any, bool) {
		return nil, false
	})
	defer srv.Close()

	c, err := NewClientWithEndpoint("token", endpoint(srv), -100123)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint: %v", err)
	}

	if err := c.SendText(context.Background(), "x"); !errors.Is(err, ErrChannelRejected) {
		t.Fatalf("expected ErrChannelRejected, got %v", err)
	}
	if err := c.SendAudio(context.Background(), "x", calls.RecordingAsset{Data: []byte("a")}); !errors.Is(err, ErrChannelRejected) {
		t.Fatalf("expected ErrChannelRejected, got %v", err)
	}
}

func TestSend_CanceledContext(t *testing.T) {
	srv := fakeBotAPI(t, func(method string, r *http.Request) (any, bool) {
		t.Errorf("no API call expected with canceled context")
		return nil, false
	})
	defer srv.Close()

	c, err := NewClientWithEndpoint("token", endpoint(srv), -100123)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.SendText(ctx, "x"); err == nil {
		t.Fatalf("expected context error")
	}
}
