package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/kintai/internal/model"
)

// exportSheet はワークブックのデフォルトシート名。
const exportSheet = "Sheet1"

// Export は指定月の全ユーザーのセッションをスプレッドシートにエクスポートし、
// 添付ファイルとして送信する。管理者許可リストの検査を他のすべての処理より先に行う。
// 生成したファイルは送信後に削除する。
func (s *Service) Export(ctx context.Context, userID int64, args []string) error {
	if !s.isAdmin(userID) {
		return s.replier.Reply(ctx, userID, model.NewUnauthorizedError().Message, KeyboardMain)
	}

	if len(args) == 0 {
		return s.replier.Reply(ctx, userID, model.NewMissingMonthError().Message, KeyboardMain)
	}
	month := args[0]
	if !model.ValidMonth(month) {
		return s.replier.Reply(ctx, userID, model.NewInvalidMonthError(month).Message, KeyboardMain)
	}

	sessions, err := s.sessions.ListAllInMonth(ctx, month)
	if err != nil {
		return s.replyStorageError(ctx, userID, err)
	}
	if len(sessions) == 0 {
		return s.replier.Reply(ctx, userID, noDataMessage(month), KeyboardMain)
	}

	path, err := buildWorkbook(sessions, month)
	if err != nil {
		return s.replyReportError(ctx, userID, err)
	}
	defer os.Remove(path)

	if err := s.replier.SendDocument(ctx, userID, path); err != nil {
		return fmt.Errorf("failed to send export document: %w", err)
	}

	s.logger.Info("管理者エクスポートを送信しました",
		slog.Int64("user_id", userID),
		slog.String("month", month),
		slog.Int("session_count", len(sessions)),
	)
	if s.recorder != nil {
		s.recorder.RecordExport()
	}

	return nil
}

// buildWorkbook はセッション列からxlsxワークブックを一時ファイルとして生成し、
// そのパスを返す。終了打刻のあるセッションのみを1行ずつ出力し、末尾に合計行を加える。
func buildWorkbook(sessions []*model.WorkSession, month string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"日付", "開始時刻", "開始位置", "終了時刻", "終了位置", "時間"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}

	row := 1
	var total float64
	for _, s := range sessions {
		start, err := model.ParseTimestamp(s.StartTime)
		if err != nil {
			return "", err
		}
		if s.IsOpen() {
			continue
		}
		end, err := model.ParseTimestamp(s.EndTime)
		if err != nil {
			return "", err
		}

		hours := model.RoundHours(end.Sub(start).Hours())
		total += hours

		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return "", fmt.Errorf("failed to build cell name: %w", err)
		}
		values := []interface{}{
			start.Format(model.DateLayout),
			start.Format("15:04"),
			s.StartLocation,
			end.Format("15:04"),
			s.EndLocation,
			hours,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return "", fmt.Errorf("failed to write session row: %w", err)
		}
	}

	row++
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return "", fmt.Errorf("failed to build cell name: %w", err)
	}
	totals := []interface{}{"", "", "", "", "合計", model.RoundHours(total)}
	if err := f.SetSheetRow(exportSheet, cell, &totals); err != nil {
		return "", fmt.Errorf("failed to write totals row: %w", err)
	}

	// 同一月の同時エクスポートが互いのファイルを上書き・削除しないよう、
	// パスはエクスポートごとに一意にする。
	tmp, err := os.CreateTemp("", fmt.Sprintf("kintai_report_%s_*.xlsx", month))
	if err != nil {
		return "", fmt.Errorf("failed to create workbook file: %w", err)
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close workbook file: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	return path, nil
}
