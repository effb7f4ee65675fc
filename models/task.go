package models

import "github.com/uptrace/bun"

// Task is a todo item owned by Assignee.
type Task struct {
	bun.BaseModel `bun:"table:todo,alias:t"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	Title    string  `bun:"title,notnull" json:"title"`
	Assignee string  `bun:"assignee,notnull" json:"assignee"`
	Done     bool    `bun:"done,notnull,default:false" json:"done"`
	ImageKey *string `bun:"image_key" json:"imageKey,omitempty"`
}
