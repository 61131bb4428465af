package entity

import "github.com/uptrace/bun"

// RoleManager is the only role provisioned today.
const RoleManager = "manager"

// ManagerUser is an authenticated staff identity.
type ManagerUser struct {
	bun.BaseModel `bun:"table:manager_user"`

	ID           int64  `bun:",pk,autoincrement"`
	Username     string `bun:"username,notnull,unique"`
	PasswordHash string `bun:"password_hash,notnull"`
	Role         string `bun:"role,notnull"`
}
