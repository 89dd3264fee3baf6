package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"resumekit/internal/resume"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeRenderResume = "resume:render"
)

// RenderPayload carries everything a worker needs to build one document.
// The snapshot travels inline so the worker never reads session state.
type RenderPayload struct {
	JobID         string          `json:"job_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Generation    uint64          `json:"generation,omitempty"`
	Attempt       int             `json:"attempt,omitempty"`
	Snapshot      resume.Snapshot `json:"snapshot"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewRenderTask 构造一个简历渲染任务。任务 ID 与 JobID 一致，便于取消与去重。
func NewRenderTask(p RenderPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if p.JobID == "" {
		return nil, fmt.Errorf("render task: job id is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}
	opts = append([]asynq.Option{asynq.TaskID(p.JobID), asynq.MaxRetry(0)}, opts...)
	return asynq.NewTask(TypeRenderResume, payload, opts...), nil
}

// ParseRenderPayload decodes a task payload.
func ParseRenderPayload(data []byte) (RenderPayload, error) {
	var p RenderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return RenderPayload{}, fmt.Errorf("unmarshal render payload: %w", err)
	}
	if p.JobID == "" {
		return RenderPayload{}, fmt.Errorf("render payload: job id is required")
	}
	return p, nil
}

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// RenderResult 是 worker 通过 Redis 回传给 API 的构建结果。
type RenderResult struct {
	JobID        string            `json:"job_id"`
	Status       string            `json:"status"`
	ObjectKey    string            `json:"object_key,omitempty"`
	Size         int64             `json:"size,omitempty"`
	Pages        int               `json:"pages,omitempty"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
	Template     resume.TemplateID `json:"template,omitempty"`
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// ResultChannel is the redis channel a job's result is published on.
func ResultChannel(jobID string) string {
	return "render_result:" + jobID
}
