package bot

import (
	"context"
	"os"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/kintai/internal/model"
)

// TestExport_NonAdminRejected は許可リスト外のユーザーが固定の拒否
// メッセージを受け取り、データに一切触れないことを検証する。
func TestExport_NonAdminRejected(t *testing.T) {
	svc, _, sessions, replier, _ := newTestService(t)

	listCalls := 0
	sessions.listAllFn = func(ctx context.Context, month string) ([]*model.WorkSession, error) {
		listCalls++
		return nil, nil
	}

	// 引数の有無にかかわらず拒否される
	for _, args := range [][]string{nil, {"2025-01"}, {"junk"}} {
		if err := svc.Export(context.Background(), 1, args); err != nil {
			t.Fatalf("Export returned error: %v", err)
		}
		if got := replier.lastReply(t); got.text != model.NewUnauthorizedError().Message {
			t.Errorf("reply = %q, want rejection message", got.text)
		}
	}

	if listCalls != 0 {
		t.Errorf("listCalls = %d, want 0", listCalls)
	}
	if len(replier.documents) != 0 {
		t.Errorf("documents = %v, want none", replier.documents)
	}
}

// TestExport_MissingMonth は管理者でも月引数なしは検証エラーになることを検証する。
func TestExport_MissingMonth(t *testing.T) {
	svc, _, _, replier, _ := newTestService(t)

	if err := svc.Export(context.Background(), 900, nil); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if got := replier.lastReply(t); got.text != model.NewMissingMonthError().Message {
		t.Errorf("reply = %q, want missing-month message", got.text)
	}
}

// TestExport_NoData はセッションのない月でデータなしメッセージが返り、
// 添付ファイルが生成されないことを検証する。
func TestExport_NoData(t *testing.T) {
	svc, _, _, replier, _ := newTestService(t)

	if err := svc.Export(context.Background(), 900, []string{"2025-01"}); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	if got := replier.lastReply(t); got.text != "2025-01 のデータはありません。" {
		t.Errorf("reply = %q, want no-data message", got.text)
	}
	if len(replier.documents) != 0 {
		t.Errorf("documents = %v, want none", replier.documents)
	}
}

// TestExport_RowsAndTotals は終了済みN件・オープンM件の月で、
// データ行がN行と合計行1行になり、合計がオープン分を除外することを検証する。
func TestExport_RowsAndTotals(t *testing.T) {
	svc, _, sessions, replier, _ := newTestService(t)

	sessions.listAllFn = func(ctx context.Context, month string) ([]*model.WorkSession, error) {
		return []*model.WorkSession{
			closedSession("2025-01-05 09:00:00", "2025-01-05 17:00:00"),
			closedSession("2025-01-06 09:00:00", "2025-01-06 13:30:00"),
			{ID: "open", UserID: 2, StartTime: "2025-01-07 09:00:00", StartLocation: "1, 2"},
		}, nil
	}

	// 送信時点でファイルを読む（送信後に削除されるため）
	var rows [][]string
	replier.onDocument = func(path string) {
		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("failed to open workbook: %v", err)
		}
		defer f.Close()
		rows, err = f.GetRows(exportSheet)
		if err != nil {
			t.Fatalf("failed to read rows: %v", err)
		}
	}

	if err := svc.Export(context.Background(), 900, []string{"2025-01"}); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	if len(replier.documents) != 1 {
		t.Fatalf("documents = %d, want 1", len(replier.documents))
	}

	// ヘッダー + データ2行 + 合計行
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4: %v", len(rows), rows)
	}
	if rows[0][0] != "日付" || rows[0][5] != "時間" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "2025-01-05" || rows[1][1] != "09:00" || rows[1][3] != "17:00" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[1][5] != "8" {
		t.Errorf("first row hours = %q, want %q", rows[1][5], "8")
	}
	if rows[2][5] != "4.5" {
		t.Errorf("second row hours = %q, want %q", rows[2][5], "4.5")
	}
	if rows[3][4] != "合計" || rows[3][5] != "12.5" {
		t.Errorf("totals row = %v", rows[3])
	}

	// 一時ファイルは送信後に削除される
	if _, err := os.Stat(replier.documents[0]); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be removed, stat err = %v", err)
	}
}

// TestExport_UniqueWorkbookPaths は同一月のエクスポートでもファイルパスが
// 毎回一意になることを検証する。固定パスだと同時エクスポートが
// 互いのファイルを上書き・削除する。
func TestExport_UniqueWorkbookPaths(t *testing.T) {
	svc, _, sessions, replier, _ := newTestService(t)

	sessions.listAllFn = func(ctx context.Context, month string) ([]*model.WorkSession, error) {
		return []*model.WorkSession{
			closedSession("2025-01-05 09:00:00", "2025-01-05 17:00:00"),
		}, nil
	}

	for i := 0; i < 2; i++ {
		if err := svc.Export(context.Background(), 900, []string{"2025-01"}); err != nil {
			t.Fatalf("Export returned error: %v", err)
		}
	}

	if len(replier.documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(replier.documents))
	}
	if replier.documents[0] == replier.documents[1] {
		t.Errorf("workbook path reused across exports: %s", replier.documents[0])
	}
}

// TestExport_InvalidMonth は不正な月トークンで検証メッセージが返ることを検証する。
func TestExport_InvalidMonth(t *testing.T) {
	svc, _, sessions, replier, _ := newTestService(t)

	listCalls := 0
	sessions.listAllFn = func(ctx context.Context, month string) ([]*model.WorkSession, error) {
		listCalls++
		return nil, nil
	}

	if err := svc.Export(context.Background(), 900, []string{"January"}); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	if listCalls != 0 {
		t.Errorf("listCalls = %d, want 0", listCalls)
	}
	if got := replier.lastReply(t); got.text != model.NewInvalidMonthError("January").Message {
		t.Errorf("reply = %q, want invalid-month message", got.text)
	}
}
