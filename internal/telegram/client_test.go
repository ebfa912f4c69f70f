package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/kintai/internal/bot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestClient_SendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("リクエストボディのデコードに失敗: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL, "test-token")

	err := client.SendMessage(context.Background(), 100, "勤務を開始しました。", markupFor(bot.KeyboardMain))
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("呼び出しパス = %s, want /bottest-token/sendMessage", gotPath)
	}
	if gotBody.ChatID != 100 {
		t.Errorf("chat_id = %d, want 100", gotBody.ChatID)
	}
	if gotBody.Text != "勤務を開始しました。" {
		t.Errorf("text = %s", gotBody.Text)
	}
	if gotBody.ReplyMarkup == nil || len(gotBody.ReplyMarkup.Keyboard) != 2 {
		t.Errorf("メインメニューのキーボードが添付されていない: %+v", gotBody.ReplyMarkup)
	}
}

func TestClient_SendMessage_NoKeyboard(t *testing.T) {
	var rawBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("リクエストボディのデコードに失敗: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL, "test-token")

	if err := client.SendMessage(context.Background(), 100, "hello", nil); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if _, ok := rawBody["reply_markup"]; ok {
		t.Error("reply_markupはnilの場合に省略されるべき")
	}
}

func TestClient_SendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL, "test-token")

	err := client.SendMessage(context.Background(), 100, "hello", nil)
	if err == nil {
		t.Fatal("APIエラー時はエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("エラーにdescriptionが含まれていない: %v", err)
	}
}

func TestClient_SendDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kintai_report_2025-01.xlsx")
	if err := os.WriteFile(path, []byte("dummy-xlsx-content"), 0o600); err != nil {
		t.Fatalf("テストファイルの作成に失敗: %v", err)
	}

	var gotChatID, gotFilename, gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("Content-Type = %s, want multipart/form-data", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipartのパースに失敗: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("documentパートの取得に失敗: %v", err)
		} else {
			defer file.Close()
			gotFilename = header.Filename
			data, _ := io.ReadAll(file)
			gotContent = string(data)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL, "test-token")

	if err := client.SendDocument(context.Background(), 200, path); err != nil {
		t.Fatalf("SendDocument() error = %v", err)
	}

	if gotChatID != "200" {
		t.Errorf("chat_id = %s, want 200", gotChatID)
	}
	if gotFilename != "kintai_report_2025-01.xlsx" {
		t.Errorf("ファイル名 = %s", gotFilename)
	}
	if gotContent != "dummy-xlsx-content" {
		t.Errorf("ファイル内容が一致しない: %s", gotContent)
	}
}

func TestClient_SendDocument_MissingFile(t *testing.T) {
	client := NewClient(http.DefaultClient, testLogger(), "http://127.0.0.1:0", "test-token")

	err := client.SendDocument(context.Background(), 200, filepath.Join(t.TempDir(), "missing.xlsx"))
	if err == nil {
		t.Fatal("存在しないファイルはエラーになるべき")
	}
}
