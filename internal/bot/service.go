// Package bot は勤怠ボットのコアロジックを提供する。
// 会話状態機械、1ユーザー1オープンセッション不変条件の強制、
// 月次レポート生成、管理者エクスポートを含む。
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/kintai/internal/metrics"
	"github.com/hitoshi/kintai/internal/model"
	"github.com/hitoshi/kintai/internal/repository"
)

// ユーザーが送信する操作テキスト。トランスポート層のキーボードと対応する。
const (
	ActionStartDay     = "勤務開始"
	ActionEndDay       = "勤務終了"
	ActionReport       = "レポート"
	ActionConfirmStart = "開始を確認"
	ActionConfirmEnd   = "終了を確認"
	ActionCancel       = "キャンセル"
)

// ユーザーへの返信テキスト。
const (
	msgChooseAction  = "操作を選択してください。"
	msgConfirmStart  = "勤務を開始しますか？"
	msgConfirmEnd    = "勤務を終了しますか？"
	msgShareLocation = "現在地を共有してください。"
	msgDayStarted    = "勤務を開始しました。"
	msgDayEnded      = "勤務を終了しました。"
	msgCanceled      = "操作をキャンセルしました。"
	msgUnknownAction = "不明な操作です。"
	msgStorageError  = "処理に失敗しました。時間をおいて再度お試しください。"
	msgReportUsage   = "/report_current - 今月のレポート\n" +
		"/report_last - 先月のレポート\n" +
		"/report_all <YYYY-MM> - 指定月のレポート"
)

// Keyboard は返信に添付するキーボードの種類を表す。
// 実際の描画はトランスポート層が行う。
type Keyboard int

const (
	// KeyboardNone はキーボードを添付しない。
	KeyboardNone Keyboard = iota
	// KeyboardMain はメインメニュー（開始・終了・レポート）。
	KeyboardMain
	// KeyboardConfirmStart は勤務開始の確認。
	KeyboardConfirmStart
	// KeyboardConfirmEnd は勤務終了の確認。
	KeyboardConfirmEnd
	// KeyboardLocation は位置情報の送信を促す。
	KeyboardLocation
)

// Replier はユーザーへの送信インターフェース。トランスポート層が実装する。
type Replier interface {
	// Reply はテキストとキーボードをユーザーに送信する。
	Reply(ctx context.Context, userID int64, text string, keyboard Keyboard) error
	// SendDocument は指定パスのファイルを添付ファイルとして送信する。
	SendDocument(ctx context.Context, userID int64, path string) error
}

// ReminderRegistry は長時間勤務リマインダーの監視タスク管理インターフェース。
// 監視タスクの寿命はレジストリ側で管理する。呼び出し元のコンテキストに
// 紐づけないのは、Webhookリクエストの完了で監視が止まらないようにするため。
type ReminderRegistry interface {
	// Watch はユーザーのオープンセッション監視を開始する。
	// すでに監視中の場合は置き換える（ユーザーごとに高々1つ）。
	Watch(userID int64)
	// Cancel はユーザーの監視タスクを停止する。監視していない場合は何もしない。
	Cancel(userID int64)
}

// convState は会話状態機械の状態を表す。
type convState int

const (
	stateIdle convState = iota
	stateAwaitStartConfirm
	stateAwaitEndConfirm
	stateAwaitLocation
)

// pendingKind は次の位置情報サンプルをどう解釈するかを表す。
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingStart
	pendingEnd
)

// conversation はユーザーごとの一時的な会話状態。永続化しない。
type conversation struct {
	state   convState
	pending pendingKind
}

// Service は勤怠ボットのコントローラー。
// ストアへの読み書き、会話フローの進行、リマインダー監視の起動を担う。
type Service struct {
	users     repository.UserRepository
	sessions  repository.WorkSessionRepository
	replier   Replier
	reminders ReminderRegistry
	recorder  metrics.Recorder
	admin     func(userID int64) bool
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	convs map[int64]conversation
}

// NewService はServiceの新しいインスタンスを生成する。
// adminは管理者エクスポートを許可するかの判定関数（通常はconfig.Config.IsAdmin）。
// nilの場合は全員拒否する。recorderはnilでもよい（メトリクス記録をスキップする）。
func NewService(
	users repository.UserRepository,
	sessions repository.WorkSessionRepository,
	replier Replier,
	reminders ReminderRegistry,
	recorder metrics.Recorder,
	admin func(userID int64) bool,
	logger *slog.Logger,
) *Service {
	if admin == nil {
		admin = func(int64) bool { return false }
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		replier:   replier,
		reminders: reminders,
		recorder:  recorder,
		admin:     admin,
		logger:    logger,
		now:       time.Now,
		convs:     make(map[int64]conversation),
	}
}

// HandleAction はテキスト操作を処理する。
// 現在の会話状態で認識できない操作は汎用メッセージを返してIdleに戻す。
func (s *Service) HandleAction(ctx context.Context, userID int64, text string) error {
	if _, err := s.ensureUser(ctx, userID); err != nil {
		return s.replyStorageError(ctx, userID, err)
	}

	switch text {
	case ActionStartDay:
		return s.handleStartDay(ctx, userID)
	case ActionEndDay:
		return s.handleEndDay(ctx, userID)
	case ActionReport:
		s.resetConv(userID)
		return s.replier.Reply(ctx, userID, msgReportUsage, KeyboardMain)
	case ActionConfirmStart:
		return s.handleConfirm(ctx, userID, stateAwaitStartConfirm, pendingStart)
	case ActionConfirmEnd:
		return s.handleConfirm(ctx, userID, stateAwaitEndConfirm, pendingEnd)
	case ActionCancel:
		s.resetConv(userID)
		return s.replier.Reply(ctx, userID, msgCanceled, KeyboardMain)
	default:
		s.resetConv(userID)
		return s.replier.Reply(ctx, userID, msgUnknownAction, KeyboardMain)
	}
}

// handleStartDay は勤務開始要求を処理する。
// オープンなセッションがある場合は開始済みを通知してIdleのまま。
func (s *Service) handleStartDay(ctx context.Context, userID int64) error {
	open, err := s.sessions.FindOpen(ctx, userID)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if open != nil {
		s.resetConv(userID)
		return s.replier.Reply(ctx, userID, model.NewDayAlreadyStartedError().Message, KeyboardMain)
	}

	s.setConv(userID, conversation{state: stateAwaitStartConfirm})
	return s.replier.Reply(ctx, userID, msgConfirmStart, KeyboardConfirmStart)
}

// handleEndDay は勤務終了要求を処理する。
// オープンなセッションがない場合は未開始を通知してIdleのまま。
func (s *Service) handleEndDay(ctx context.Context, userID int64) error {
	open, err := s.sessions.FindOpen(ctx, userID)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if open == nil {
		s.resetConv(userID)
		return s.replier.Reply(ctx, userID, model.NewDayNotStartedError().Message, KeyboardMain)
	}

	s.setConv(userID, conversation{state: stateAwaitEndConfirm})
	return s.replier.Reply(ctx, userID, msgConfirmEnd, KeyboardConfirmEnd)
}

// handleConfirm は開始・終了の確認操作を処理する。
// 対応する確認待ち状態でない場合は不明な操作として扱う。
func (s *Service) handleConfirm(ctx context.Context, userID int64, want convState, pending pendingKind) error {
	s.mu.Lock()
	conv := s.convs[userID]
	if conv.state != want {
		delete(s.convs, userID)
		s.mu.Unlock()
		return s.replier.Reply(ctx, userID, msgUnknownAction, KeyboardMain)
	}
	s.convs[userID] = conversation{state: stateAwaitLocation, pending: pending}
	s.mu.Unlock()

	return s.replier.Reply(ctx, userID, msgShareLocation, KeyboardLocation)
}

// HandleLocation は位置情報サンプルを処理する。
// PendingActionが設定されていない場合は受理するが何も起こさない。
func (s *Service) HandleLocation(ctx context.Context, userID int64, lat, lon float64) error {
	s.mu.Lock()
	conv := s.convs[userID]
	delete(s.convs, userID)
	s.mu.Unlock()

	if conv.state != stateAwaitLocation || conv.pending == pendingNone {
		// 会話外の位置情報は副作用なしで受理する
		return nil
	}

	location := model.FormatLocation(lat, lon)
	now := s.now()

	switch conv.pending {
	case pendingStart:
		return s.completeStart(ctx, userID, location, now)
	case pendingEnd:
		return s.completeEnd(ctx, userID, location, now)
	}
	return nil
}

// completeStart は位置情報を受けて勤務セッションを開始する。
// Open呼び出しの直前に再度オープンセッションの不在を確認する。
func (s *Service) completeStart(ctx context.Context, userID int64, location string, now time.Time) error {
	open, err := s.sessions.FindOpen(ctx, userID)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if open != nil {
		return s.replier.Reply(ctx, userID, model.NewDayAlreadyStartedError().Message, KeyboardMain)
	}

	sessionID, err := s.sessions.Open(ctx, userID, location, now)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}

	s.logger.Info("勤務セッションを開始しました",
		slog.Int64("user_id", userID),
		slog.String("session_id", sessionID),
	)
	if s.recorder != nil {
		s.recorder.RecordSessionStarted()
	}
	if s.reminders != nil {
		s.reminders.Watch(userID)
	}

	return s.replier.Reply(ctx, userID, msgDayStarted, KeyboardMain)
}

// completeEnd は位置情報を受けて勤務セッションを終了する。
// セッションが別経路ですでに閉じられていた場合、更新は0行で正常終了する。
func (s *Service) completeEnd(ctx context.Context, userID int64, location string, now time.Time) error {
	if err := s.sessions.CloseOpen(ctx, userID, location, now); err != nil {
		return s.replyStorageError(ctx, userID, err)
	}

	s.logger.Info("勤務セッションを終了しました",
		slog.Int64("user_id", userID),
	)
	if s.recorder != nil {
		s.recorder.RecordSessionClosed()
	}
	if s.reminders != nil {
		s.reminders.Cancel(userID)
	}

	return s.replier.Reply(ctx, userID, msgDayEnded, KeyboardMain)
}

// HandleCommand は引数付きコマンドを処理する。
// nameは先頭のスラッシュを除いたコマンド名。
func (s *Service) HandleCommand(ctx context.Context, userID int64, name string, args []string) error {
	if _, err := s.ensureUser(ctx, userID); err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	s.resetConv(userID)

	switch name {
	case "start":
		return s.replier.Reply(ctx, userID, msgChooseAction, KeyboardMain)
	case "report_current":
		return s.Report(ctx, userID, PeriodCurrent)
	case "report_last":
		return s.Report(ctx, userID, PeriodLast)
	case "report_all":
		if len(args) == 0 {
			return s.replier.Reply(ctx, userID, model.NewMissingMonthError().Message, KeyboardMain)
		}
		return s.ReportMonth(ctx, userID, args[0])
	case "export":
		return s.Export(ctx, userID, args)
	default:
		return s.replier.Reply(ctx, userID, msgUnknownAction, KeyboardMain)
	}
}

// ensureUser は初回接触時のユーザー遅延作成を行う。
func (s *Service) ensureUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetOrCreate(ctx, userID)
}

// isAdmin は管理者許可リストにユーザーが含まれるかを返す。
func (s *Service) isAdmin(userID int64) bool {
	return s.admin(userID)
}

// replyStorageError は永続化失敗をログに残し、汎用の失敗メッセージを返信する。
// リトライは行わない。
func (s *Service) replyStorageError(ctx context.Context, userID int64, err error) error {
	s.logger.Error("ストレージ操作に失敗しました",
		slog.Int64("user_id", userID),
		slog.String("error", err.Error()),
	)
	if replyErr := s.replier.Reply(ctx, userID, msgStorageError, KeyboardMain); replyErr != nil {
		return fmt.Errorf("failed to send storage error reply: %w", replyErr)
	}
	return err
}

func (s *Service) setConv(userID int64, conv conversation) {
	s.mu.Lock()
	s.convs[userID] = conv
	s.mu.Unlock()
}

func (s *Service) resetConv(userID int64) {
	s.mu.Lock()
	delete(s.convs, userID)
	s.mu.Unlock()
}
