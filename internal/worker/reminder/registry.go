// Package reminder は長時間勤務リマインダーの監視タスクを提供する。
// ユーザーごとに高々1つの監視タスクを管理するレジストリを含む。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/kintai/internal/metrics"
	"github.com/hitoshi/kintai/internal/model"
)

// SessionFinder は監視対象セッションの参照インターフェース。
type SessionFinder interface {
	// FindOpen はユーザーの最新のオープンなセッションを返す。ない場合はnil。
	FindOpen(ctx context.Context, userID int64) (*model.WorkSession, error)
	// ListOpen は全ユーザーのオープンなセッションを返す。
	ListOpen(ctx context.Context) ([]*model.WorkSession, error)
}

// Notifier はリマインダー通知の送信インターフェース。トランスポート層が実装する。
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// watcher は1ユーザー分の監視タスクのハンドル。
type watcher struct {
	cancel context.CancelFunc
}

// Registry は長時間勤務リマインダーの監視タスクレジストリ。
// ユーザーごとに高々1つの監視タスクを保証し、セッション終了時の明示的な
// キャンセルを受け付ける。監視タスクは一定間隔でストアをポーリングし、
// 閾値超過時に1回だけ通知して終了する。セッションが先に閉じられた場合は
// 通知せずに終了する。
type Registry struct {
	sessions  SessionFinder
	notifier  Notifier
	recorder  metrics.Recorder
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time

	// 監視タスクの寿命はプロセスに紐づく。呼び出し元（Webhookリクエスト等）の
	// コンテキストに紐づけると、レスポンス完了と同時に監視が死ぬため。
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	watchers map[int64]*watcher
}

// NewRegistry はRegistryの新しいインスタンスを生成する。
// intervalが0以下の場合は1時間、thresholdが0以下の場合は9時間を使用する。
// recorderはnilでもよい。
func NewRegistry(
	sessions SessionFinder,
	notifier Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
	interval time.Duration,
	threshold time.Duration,
) *Registry {
	if interval <= 0 {
		interval = time.Hour
	}
	if threshold <= 0 {
		threshold = 9 * time.Hour
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Registry{
		sessions:   sessions,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger,
		interval:   interval,
		threshold:  threshold,
		now:        time.Now,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		watchers:   make(map[int64]*watcher),
	}
}

// Watch はユーザーのオープンセッション監視を開始する。
// すでに監視中の場合は既存のタスクを停止して置き換える。
// 監視タスクの停止条件はセッションの終了、Cancel、Stopのみ。
func (r *Registry) Watch(userID int64) {
	ctx, cancel := context.WithCancel(r.baseCtx)
	w := &watcher{cancel: cancel}

	r.mu.Lock()
	if old, ok := r.watchers[userID]; ok {
		old.cancel()
	}
	r.watchers[userID] = w
	r.mu.Unlock()

	go r.run(ctx, w, userID)
}

// Cancel はユーザーの監視タスクを停止する。監視していない場合は何もしない。
func (r *Registry) Cancel(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.watchers[userID]; ok {
		w.cancel()
		delete(r.watchers, userID)
	}
}

// Stop はすべての監視タスクを停止する。シャットダウン時に呼び出す。
func (r *Registry) Stop() {
	r.baseCancel()
}

// ActiveCount は現在動作中の監視タスク数を返す。
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Resume はオープンなセッションすべてに監視タスクを再アタッチする。
// プロセス再起動後の起動時に1回呼び出す。ctxは一覧の取得にのみ使う。
func (r *Registry) Resume(ctx context.Context) error {
	open, err := r.sessions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open sessions for resume: %w", err)
	}

	for _, s := range open {
		r.Watch(s.UserID)
	}

	if len(open) > 0 {
		r.logger.Info("リマインダー監視を復元しました",
			slog.Int("count", len(open)),
		)
	}
	return nil
}

// run は監視ループ本体。起動直後に1回チェックし、以降は一定間隔で再チェックする。
func (r *Registry) run(ctx context.Context, w *watcher, userID int64) {
	defer r.remove(userID, w)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if done := r.check(ctx, userID); done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// check は1回分の監視チェックを行う。監視を終了すべき場合にtrueを返す。
// セッションが閉じられていれば通知せず終了し、閾値超過なら1回だけ通知して終了する。
// ストア参照の失敗は監視を止めず、次の間隔で再試行する。
func (r *Registry) check(ctx context.Context, userID int64) bool {
	open, err := r.sessions.FindOpen(ctx, userID)
	if err != nil {
		r.logger.Error("リマインダー監視のセッション参照に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if open == nil {
		return true
	}

	start, err := model.ParseTimestamp(open.StartTime)
	if err != nil {
		r.logger.Error("オープンセッションの開始時刻を解析できません",
			slog.Int64("user_id", userID),
			slog.String("session_id", open.ID),
			slog.String("error", err.Error()),
		)
		return true
	}

	if r.now().Sub(start) < r.threshold {
		return false
	}

	text := fmt.Sprintf("⚠️ 勤務時間が%.0f時間を超えています。勤務を終了してください。", r.threshold.Hours())
	if err := r.notifier.Notify(ctx, userID, text); err != nil {
		r.logger.Error("リマインダー通知の送信に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		// 送信失敗でも監視は終了する。通知は高々1回。
		return true
	}

	r.logger.Info("長時間勤務リマインダーを送信しました",
		slog.Int64("user_id", userID),
		slog.String("session_id", open.ID),
	)
	if r.recorder != nil {
		r.recorder.RecordReminderSent()
	}
	return true
}

// remove は監視タスクの終了時にレジストリから自分自身を取り除く。
// 置き換え後の新しいタスクを誤って消さないよう、登録中のハンドルが
// 自分である場合のみ削除する。
func (r *Registry) remove(userID int64, w *watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.watchers[userID]; ok && current == w {
		delete(r.watchers, userID)
	}
}
