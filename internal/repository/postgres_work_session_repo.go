package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/kintai/internal/model"
)

// PostgresWorkSessionRepo はPostgreSQLを使用した勤務セッションリポジトリ。
type PostgresWorkSessionRepo struct {
	db *sql.DB
}

// NewPostgresWorkSessionRepo はPostgresWorkSessionRepoを生成する。
func NewPostgresWorkSessionRepo(db *sql.DB) *PostgresWorkSessionRepo {
	return &PostgresWorkSessionRepo{db: db}
}

// Open は新しい勤務セッションを開始し、割り当てたIDを返す。
func (r *PostgresWorkSessionRepo) Open(ctx context.Context, userID int64, location string, now time.Time) (string, error) {
	id := uuid.New().String()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_sessions (id, user_id, start_time, start_location)
		 VALUES ($1, $2, $3, $4)`,
		id, userID, model.FormatTimestamp(now), location,
	)
	if err != nil {
		return "", fmt.Errorf("failed to open work session: %w", err)
	}

	return id, nil
}

// CloseOpen はユーザーのオープンなセッションに終了打刻を記録する。
// オープンなセッションが存在しない場合は0行更新で正常終了する。
func (r *PostgresWorkSessionRepo) CloseOpen(ctx context.Context, userID int64, location string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_sessions
		 SET end_time = $1, end_location = $2
		 WHERE user_id = $3 AND end_time IS NULL`,
		model.FormatTimestamp(now), location, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to close work session: %w", err)
	}

	return nil
}

// FindOpen はユーザーの最新のオープンなセッションを返す。見つからない場合はnilを返す。
func (r *PostgresWorkSessionRepo) FindOpen(ctx context.Context, userID int64) (*model.WorkSession, error) {
	session := &model.WorkSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_time, COALESCE(end_time, ''), start_location, COALESCE(end_location, '')
		 FROM work_sessions
		 WHERE user_id = $1 AND end_time IS NULL
		 ORDER BY start_time DESC
		 LIMIT 1`,
		userID,
	).Scan(&session.ID, &session.UserID, &session.StartTime, &session.EndTime, &session.StartLocation, &session.EndLocation)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open work session: %w", err)
	}

	return session, nil
}

// ListByUserInMonth は開始時刻が指定月に属するユーザーの全セッションを開始時刻昇順で返す。
// 月の判定は保存済みテキスト表現に対する前方一致で行う。
func (r *PostgresWorkSessionRepo) ListByUserInMonth(ctx context.Context, userID int64, month string) ([]*model.WorkSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, start_time, COALESCE(end_time, ''), start_location, COALESCE(end_location, '')
		 FROM work_sessions
		 WHERE user_id = $1 AND start_time LIKE $2 || '%'
		 ORDER BY start_time ASC`,
		userID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sessions by user and month: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListAllInMonth は開始時刻が指定月に属する全ユーザーのセッションを開始時刻昇順で返す。
func (r *PostgresWorkSessionRepo) ListAllInMonth(ctx context.Context, month string) ([]*model.WorkSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, start_time, COALESCE(end_time, ''), start_location, COALESCE(end_location, '')
		 FROM work_sessions
		 WHERE start_time LIKE $1 || '%'
		 ORDER BY start_time ASC`,
		month,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sessions by month: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListOpen は全ユーザーのオープンなセッションを開始時刻昇順で返す。
func (r *PostgresWorkSessionRepo) ListOpen(ctx context.Context) ([]*model.WorkSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, start_time, COALESCE(end_time, ''), start_location, COALESCE(end_location, '')
		 FROM work_sessions
		 WHERE end_time IS NULL
		 ORDER BY start_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open work sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// scanSessions は行セットをWorkSessionのスライスに変換する。
func scanSessions(rows *sql.Rows) ([]*model.WorkSession, error) {
	var sessions []*model.WorkSession
	for rows.Next() {
		s := &model.WorkSession{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime, &s.StartLocation, &s.EndLocation); err != nil {
			return nil, fmt.Errorf("failed to scan work session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate work sessions: %w", err)
	}

	return sessions, nil
}

// compile-time interface check
var _ WorkSessionRepository = (*PostgresWorkSessionRepo)(nil)
