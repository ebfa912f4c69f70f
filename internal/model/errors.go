package model

import "fmt"

// BotError は統一エラーフォーマットを表す。
// ユーザーに表示するメッセージと原因カテゴリを含む。
type BotError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けメッセージ
	Category string // カテゴリ: validation, invariant, authorization, storage, parse
}

// Error はerrorインターフェースを実装する。
func (e *BotError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDayAlreadyStarted = "DAY_ALREADY_STARTED"
	ErrCodeDayNotStarted     = "DAY_NOT_STARTED"
	ErrCodeMissingMonth      = "MISSING_MONTH"
	ErrCodeInvalidMonth      = "INVALID_MONTH"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidRole       = "INVALID_ROLE"
	ErrCodeTimestampParse    = "TIMESTAMP_PARSE"
	ErrCodeSessionStillOpen  = "SESSION_STILL_OPEN"
)

// NewDayAlreadyStartedError は勤務開始済みの状態で再度開始しようとした場合のエラーを生成する。
func NewDayAlreadyStartedError() *BotError {
	return &BotError{
		Code:     ErrCodeDayAlreadyStarted,
		Message:  "すでに勤務を開始しています。",
		Category: "invariant",
	}
}

// NewDayNotStartedError は勤務未開始の状態で終了しようとした場合のエラーを生成する。
func NewDayNotStartedError() *BotError {
	return &BotError{
		Code:     ErrCodeDayNotStarted,
		Message:  "勤務を開始していません。",
		Category: "invariant",
	}
}

// NewMissingMonthError は月の指定が欠けている場合のエラーを生成する。
func NewMissingMonthError() *BotError {
	return &BotError{
		Code:     ErrCodeMissingMonth,
		Message:  "月を指定してください（例: 2025-01）。",
		Category: "validation",
	}
}

// NewInvalidMonthError は月トークンが"YYYY-MM"形式でない場合のエラーを生成する。
func NewInvalidMonthError(month string) *BotError {
	return &BotError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("月の形式が不正です: %s（例: 2025-01）", month),
		Category: "validation",
	}
}

// NewUnauthorizedError は管理者機能への権限がない場合のエラーを生成する。
func NewUnauthorizedError() *BotError {
	return &BotError{
		Code:     ErrCodeUnauthorized,
		Message:  "この機能を利用する権限がありません。",
		Category: "authorization",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *BotError {
	return &BotError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %d", userID),
		Category: "storage",
	}
}

// NewInvalidRoleError は未知の役割を設定しようとした場合のエラーを生成する。
func NewInvalidRoleError(role Role) *BotError {
	return &BotError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("不正な役割です: %s", role),
		Category: "validation",
	}
}

// NewTimestampParseError はタイムスタンプが両形式とも解析できない場合のエラーを生成する。
// 回復不能なデータ不整合として、レポート処理を中断させる。
func NewTimestampParseError(value string) *BotError {
	return &BotError{
		Code:     ErrCodeTimestampParse,
		Message:  fmt.Sprintf("タイムスタンプを解析できません: %q", value),
		Category: "parse",
	}
}

// NewSessionStillOpenError は終了していないセッションの時間数を要求した場合のエラーを生成する。
func NewSessionStillOpenError(sessionID string) *BotError {
	return &BotError{
		Code:     ErrCodeSessionStillOpen,
		Message:  fmt.Sprintf("セッションはまだ終了していません: %s", sessionID),
		Category: "invariant",
	}
}
