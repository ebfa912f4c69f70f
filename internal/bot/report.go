package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/kintai/internal/model"
)

// Period は相対月指定を表す。
type Period string

const (
	// PeriodCurrent は今月。
	PeriodCurrent Period = "current"
	// PeriodLast は先月。
	PeriodLast Period = "last"
)

// monthFor は相対月指定を呼び出し時点の日付で"YYYY-MM"に解決する。
// 先月は今月1日から1日引いた日付の属する月として計算する。
func monthFor(now time.Time, period Period) string {
	switch period {
	case PeriodLast:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return model.FormatMonth(firstOfMonth.AddDate(0, 0, -1))
	default:
		return model.FormatMonth(now)
	}
}

// monthSummary は1ヶ月分のセッションの日別・合計集計。
// 日の順序はセッションの出現順（ストアが開始時刻昇順で返すため日付順になる）。
type monthSummary struct {
	days   []string
	perDay map[string]float64
	total  float64
}

// summarize はセッション列を日別の勤務時間に集計する。
// オープンなセッション（終了打刻なし）は集計から除外する。
// タイムスタンプが両形式とも解析できない場合はレポート全体を中断するエラーを返す。
func summarize(sessions []*model.WorkSession) (*monthSummary, error) {
	sum := &monthSummary{perDay: make(map[string]float64)}

	for _, s := range sessions {
		start, err := model.ParseTimestamp(s.StartTime)
		if err != nil {
			return nil, err
		}

		if s.IsOpen() {
			continue
		}

		end, err := model.ParseTimestamp(s.EndTime)
		if err != nil {
			return nil, err
		}

		hours := end.Sub(start).Hours()
		day := start.Format(model.DateLayout)
		if _, seen := sum.perDay[day]; !seen {
			sum.days = append(sum.days, day)
		}
		sum.perDay[day] += hours
		sum.total += hours
	}

	return sum, nil
}

// Report は相対月指定（今月・先月）の日別レポートを送信する。
// 1日1行、時間は小数第2位に丸める。
func (s *Service) Report(ctx context.Context, userID int64, period Period) error {
	month := monthFor(s.now(), period)

	sessions, err := s.sessions.ListByUserInMonth(ctx, userID, month)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if len(sessions) == 0 {
		return s.replier.Reply(ctx, userID, noDataMessage(month), KeyboardMain)
	}

	sum, err := summarize(sessions)
	if err != nil {
		return s.replyReportError(ctx, userID, err)
	}

	lines := make([]string, 0, len(sum.days))
	for _, day := range sum.days {
		lines = append(lines, fmt.Sprintf("%s: %.2f 時間", day, model.RoundHours(sum.perDay[day])))
	}

	if s.recorder != nil {
		s.recorder.RecordReport(string(period))
	}

	return s.replier.Reply(ctx, userID, strings.Join(lines, "\n"), KeyboardMain)
}

// ReportMonth は明示的な月指定（"YYYY-MM"）の月間合計レポートを送信する。
// 日別の内訳は含まない。
func (s *Service) ReportMonth(ctx context.Context, userID int64, month string) error {
	if !model.ValidMonth(month) {
		return s.replier.Reply(ctx, userID, model.NewInvalidMonthError(month).Message, KeyboardMain)
	}

	sessions, err := s.sessions.ListByUserInMonth(ctx, userID, month)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if len(sessions) == 0 {
		return s.replier.Reply(ctx, userID, noDataMessage(month), KeyboardMain)
	}

	sum, err := summarize(sessions)
	if err != nil {
		return s.replyReportError(ctx, userID, err)
	}

	if s.recorder != nil {
		s.recorder.RecordReport("all")
	}

	return s.replier.Reply(ctx, userID,
		fmt.Sprintf("%s: %.2f 時間", month, model.RoundHours(sum.total)), KeyboardMain)
}

// noDataMessage は指定月にデータがない場合の返信テキストを生成する。
func noDataMessage(month string) string {
	return fmt.Sprintf("%s のデータはありません。", month)
}

// replyReportError はレポート生成の失敗を通知する。
// データ不整合（タイムスタンプ解析失敗）はその内容を、それ以外は汎用メッセージを返す。
func (s *Service) replyReportError(ctx context.Context, userID int64, err error) error {
	var botErr *model.BotError
	if errors.As(err, &botErr) {
		s.logger.Error("レポート生成に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("code", botErr.Code),
			slog.String("error", err.Error()),
		)
		if replyErr := s.replier.Reply(ctx, userID, botErr.Message, KeyboardMain); replyErr != nil {
			return fmt.Errorf("failed to send report error reply: %w", replyErr)
		}
		return err
	}
	return s.replyStorageError(ctx, userID, err)
}
