package database

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumekit/internal/control"
	"resumekit/internal/pipeline"
)

// Recorder persists sessions and their build history.
type Recorder struct {
	db *gorm.DB
}

var _ control.Recorder = (*Recorder)(nil)

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) SaveSession(ctx context.Context, st control.State) error {
	row := Session{
		ID:        st.ID,
		Template:  string(st.Template),
		Zoom:      st.View.Zoom,
		Autoscale: st.View.Autoscale,
	}
	if st.Snapshot != nil {
		data, err := json.Marshal(st.Snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		row.Snapshot = data
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"template", "snapshot", "zoom", "autoscale", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", st.ID, err)
	}
	return nil
}

// RecordStatus upserts the row of the status' generation. IDLE carries no
// build and is skipped.
func (r *Recorder) RecordStatus(ctx context.Context, st pipeline.Status) error {
	if st.State == pipeline.Idle || st.Generation == 0 {
		return nil
	}
	row := Artifact{
		SessionID:    st.SessionID,
		Generation:   st.Generation,
		Status:       st.State.String(),
		Attempts:     st.Attempts,
		FaultCode:    st.ErrorCode,
		FaultMessage: st.ErrorMsg,
	}
	if a := st.Artifact; a != nil {
		row.Template = string(a.Template)
		row.Fingerprint = a.Fingerprint
		row.ObjectKey = a.ObjectKey
		row.Size = a.Size
		row.Pages = a.Pages
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "generation"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "template", "fingerprint", "object_key", "size", "pages",
			"attempts", "fault_code", "fault_message", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record status of %s/%d: %w", st.SessionID, st.Generation, err)
	}
	return nil
}

func (r *Recorder) DeleteSession(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&Session{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// PurgeSession removes the session row and its build history.
func (r *Recorder) PurgeSession(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("session_id = ?", id).Delete(&Artifact{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return tx.Delete(&Session{}, "id = ?", id).Error
	})
	if err != nil {
		return 0, fmt.Errorf("purge session %s: %w", id, err)
	}
	return n, nil
}

// History returns the latest builds of a session, newest first.
func (r *Recorder) History(ctx context.Context, sessionID string, limit int) ([]Artifact, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []Artifact
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("generation DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query history of %s: %w", sessionID, err)
	}
	return rows, nil
}

// LoadSession reads a persisted session.
func (r *Recorder) LoadSession(ctx context.Context, id string) (*Session, error) {
	var row Session
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &row, nil
}
