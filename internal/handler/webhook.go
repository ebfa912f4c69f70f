// Package handler はWebhookの受信とHTTPルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/kintai/internal/metrics"
	"github.com/hitoshi/kintai/internal/middleware"
	"github.com/hitoshi/kintai/internal/telegram"
)

// BotService はWebhookハンドラーが必要とするボット操作のインターフェース。
type BotService interface {
	// HandleAction は操作テキスト（キーボードのボタン押下）を処理する。
	HandleAction(ctx context.Context, userID int64, text string) error
	// HandleLocation は位置情報サンプルを処理する。
	HandleLocation(ctx context.Context, userID int64, lat, lon float64) error
	// HandleCommand はスラッシュコマンドを処理する。
	HandleCommand(ctx context.Context, userID int64, name string, args []string) error
}

// WebhookHandler はTelegramからのWebhook更新を受信し、ボットへ振り分ける。
type WebhookHandler struct {
	service  BotService
	limiter  *middleware.RateLimiter
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewWebhookHandler はWebhookHandlerの新しいインスタンスを生成する。
func NewWebhookHandler(service BotService, limiter *middleware.RateLimiter, recorder metrics.Recorder, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
}

// HandleUpdate はPOST /telegram/webhookを処理する。
// 処理エラーでも200を返す。エラーを返すとTelegram側が同じ更新を
// 再送し続けるため、失敗はログに記録して更新自体は消費する。
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// デコードできない更新も200で消費する。エラーを返すと
		// Telegram側が同じ壊れた更新を再送し続ける。
		h.logger.Warn("Webhook更新のデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.recorder.RecordUpdateReceived()

	// メッセージ以外の更新（編集、チャンネル投稿など）は対象外
	msg := update.Message
	if msg == nil || msg.From == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := msg.From.ID

	if !h.limiter.Allow(userID) {
		h.logger.Warn("レート制限により更新を破棄しました",
			slog.Int64("user_id", userID),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.dispatch(r, msg); err != nil {
		h.logger.Error("更新の処理に失敗しました",
			slog.Int64("user_id", userID),
			slog.Int64("update_id", update.UpdateID),
			slog.String("error", err.Error()),
		)
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch はメッセージの内容に応じてボットの操作を呼び出す。
func (h *WebhookHandler) dispatch(r *http.Request, msg *telegram.Message) error {
	ctx := r.Context()
	userID := msg.From.ID

	if msg.Location != nil {
		return h.service.HandleLocation(ctx, userID, msg.Location.Latitude, msg.Location.Longitude)
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		fields := strings.Fields(strings.TrimPrefix(text, "/"))
		if len(fields) == 0 {
			return h.service.HandleAction(ctx, userID, text)
		}
		// /report_all@kintai_bot 形式のメンション付きコマンドを正規化
		name, _, _ := strings.Cut(fields[0], "@")
		return h.service.HandleCommand(ctx, userID, name, fields[1:])
	}

	return h.service.HandleAction(ctx, userID, text)
}
