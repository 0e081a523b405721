package domain

import "time"

// StatusCheck 客户端健康检查记录（对应 status_checks 表）
type StatusCheck struct {
	ID         string    `db:"id" json:"id"` // UUID
	ClientName string    `db:"client_name" json:"client_name"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}
