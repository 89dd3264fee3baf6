package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumekit/internal/control"
	"resumekit/internal/errcode"
	"resumekit/internal/pipeline"
	"resumekit/internal/resume"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestSaveSessionUpserts(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(newTestDB(t))

	require.NoError(t, r.SaveSession(ctx, control.State{ID: "s1", Template: resume.TemplateClassic, View: control.View{Zoom: 0.8, Autoscale: true}}))

	snap := resume.Snapshot{Settings: resume.DefaultSettings()}
	snap.Resume.Profile.Name = "Jane"
	require.NoError(t, r.SaveSession(ctx, control.State{ID: "s1", Template: resume.TemplateWeb, Snapshot: &snap, View: control.View{Zoom: 1.2}}))

	row, err := r.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "E", row.Template)
	assert.Equal(t, 1.2, row.Zoom)
	assert.False(t, row.Autoscale)

	var stored resume.Snapshot
	require.NoError(t, json.Unmarshal(row.Snapshot, &stored))
	assert.Equal(t, "Jane", stored.Resume.Profile.Name)

	require.NoError(t, r.DeleteSession(ctx, "s1"))
	_, err = r.LoadSession(ctx, "s1")
	assert.Error(t, err)
}

func TestRecordStatusFollowsGeneration(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(newTestDB(t))

	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{SessionID: "s1", State: pipeline.Idle}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{SessionID: "s1", State: pipeline.Building, Generation: 1}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{
		SessionID: "s1", State: pipeline.Failed, Generation: 1, Attempts: 3,
		ErrorCode: errcode.RenderFault, ErrorMsg: "document generation failed after 3 attempts",
	}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{
		SessionID: "s1", State: pipeline.Ready, Generation: 2, Attempts: 1,
		Artifact: &pipeline.Summary{ObjectKey: "artifacts/s1/j.pdf", Size: 10, Pages: 1, Template: resume.TemplateSidebarRight, Fingerprint: "fp"},
	}))

	rows, err := r.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint64(2), rows[0].Generation)
	assert.Equal(t, "ready", rows[0].Status)
	assert.Equal(t, "artifacts/s1/j.pdf", rows[0].ObjectKey)
	assert.Equal(t, "B", rows[0].Template)

	assert.Equal(t, uint64(1), rows[1].Generation)
	assert.Equal(t, "failed", rows[1].Status)
	assert.Equal(t, 3, rows[1].Attempts)
	assert.Equal(t, errcode.RenderFault, rows[1].FaultCode)
}

func TestPurgeSessionDropsHistory(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(newTestDB(t))

	require.NoError(t, r.SaveSession(ctx, control.State{ID: "s1", Template: resume.TemplateClassic}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{SessionID: "s1", State: pipeline.Building, Generation: 1}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{SessionID: "s1", State: pipeline.Building, Generation: 2}))
	require.NoError(t, r.RecordStatus(ctx, pipeline.Status{SessionID: "s2", State: pipeline.Building, Generation: 1}))

	n, err := r.PurgeSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = r.LoadSession(ctx, "s1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	rows, err := r.History(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
