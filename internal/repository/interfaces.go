// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/kintai/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// GetOrCreate は指定IDのユーザーを返す。
	// 未登録の場合はデフォルト役割（employee）で作成してから返す。
	// 新規IDに対する挿入は高々1回だけ行われる。
	GetOrCreate(ctx context.Context, userID int64) (*model.User, error)

	// SetRole は既存ユーザーの役割を上書きする。
	// 未登録IDの場合は作成せず、model.ErrCodeUserNotFoundのエラーを返す。
	SetRole(ctx context.Context, userID int64, role model.Role) error
}

// WorkSessionRepository は勤務セッションデータの永続化インターフェース。
type WorkSessionRepository interface {
	// Open は新しい勤務セッションを開始し、割り当てたIDを返す。
	// 「ユーザーごとにオープンなセッションは高々1件」の検査は行わない。
	// その検査は呼び出し側（コントローラー）がOpen直前にFindOpenで行う。
	Open(ctx context.Context, userID int64, location string, now time.Time) (string, error)

	// CloseOpen はユーザーのオープンなセッションに終了打刻を記録する。
	// オープンなセッションが存在しない場合は何も更新せず正常終了する（冪等）。
	CloseOpen(ctx context.Context, userID int64, location string, now time.Time) error

	// FindOpen はユーザーの最新のオープンなセッションを返す。
	// 存在しない場合はnilを返す。
	FindOpen(ctx context.Context, userID int64) (*model.WorkSession, error)

	// ListByUserInMonth は開始時刻が指定月（"YYYY-MM"）に属するユーザーの
	// 全セッションを開始時刻昇順で返す。オープンなセッションも含む。
	ListByUserInMonth(ctx context.Context, userID int64, month string) ([]*model.WorkSession, error)

	// ListAllInMonth は開始時刻が指定月に属する全ユーザーのセッションを
	// 開始時刻昇順で返す。管理者エクスポート用。
	ListAllInMonth(ctx context.Context, month string) ([]*model.WorkSession, error)

	// ListOpen は全ユーザーのオープンなセッションを返す。
	// 再起動時のリマインダー監視の復元に使用する。
	ListOpen(ctx context.Context) ([]*model.WorkSession, error)
}
