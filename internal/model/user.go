// Package model はドメインモデルを定義する。
package model

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleEmployee は一般従業員。新規ユーザーのデフォルト。
	RoleEmployee Role = "employee"
	// RoleAdmin は管理者。全従業員分のエクスポートが許可される。
	RoleAdmin Role = "admin"
)

// Valid は既知の役割かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// User はボット利用者を表す。
// IDはチャットトランスポートが割り当てた外部IDをそのまま使用する。
type User struct {
	ID   int64
	Role Role
}
