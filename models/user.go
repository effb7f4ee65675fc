package models

import "github.com/uptrace/bun"

// User is an account in the userdb table.
// SessionToken is nil until the first successful login.
type User struct {
	bun.BaseModel `bun:"table:userdb,alias:u"`

	ID           int64   `bun:"id,pk,autoincrement" json:"id"`
	Username     string  `bun:"username,notnull,unique" json:"username"`
	PasswordHash string  `bun:"password_hash,notnull" json:"-"`
	SessionToken *string `bun:"session_token,unique" json:"-"`
}
