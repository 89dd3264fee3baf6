package database

import (
	"time"

	"gorm.io/datatypes"
)

// Session 表示一个预览会话的最新状态。
type Session struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Template  string         `gorm:"size:8"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb"`
	Zoom      float64
	Autoscale bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Artifact 记录每一代文档构建的结果，按 (session_id, generation) 唯一。
type Artifact struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"size:36;uniqueIndex:idx_artifact_generation"`
	Generation   uint64 `gorm:"uniqueIndex:idx_artifact_generation"`
	Status       string `gorm:"size:16;index"`
	Template     string `gorm:"size:8"`
	Fingerprint  string `gorm:"size:64"`
	ObjectKey    string `gorm:"size:512"`
	Size         int64
	Pages        int
	Attempts     int
	FaultCode    int
	FaultMessage string `gorm:"size:1024"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
