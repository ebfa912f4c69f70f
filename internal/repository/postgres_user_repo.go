package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kintai/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// GetOrCreate は指定IDのユーザーを返す。
// 未登録の場合はデフォルト役割で作成する。
func (r *PostgresUserRepo) GetOrCreate(ctx context.Context, userID int64) (*model.User, error) {
	user := &model.User{ID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE user_id = $1`,
		userID,
	).Scan(&user.Role)

	if err == sql.ErrNoRows {
		// ON CONFLICTは同一IDの同時初回アクセスに対する保険。
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		user.Role = model.RoleEmployee
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SetRole は既存ユーザーの役割を上書きする。
// 未登録IDの場合は作成せずエラーを返す。
func (r *PostgresUserRepo) SetRole(ctx context.Context, userID int64, role model.Role) error {
	if !role.Valid() {
		return model.NewInvalidRoleError(role)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1 WHERE user_id = $2`,
		role, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return model.NewUserNotFoundError(userID)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
