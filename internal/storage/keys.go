package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"resumekit/internal/pipeline"
)

const (
	artifactPrefix = "artifacts"
	downloadPrefix = "downloads"
)

// ArtifactKey is the object key of one build attempt's document.
func ArtifactKey(sessionID, jobID string) string {
	return path.Join(artifactPrefix, keySegment(sessionID), keySegment(jobID)+".pdf")
}

// SessionPrefixes cover every object a session may leave behind.
func SessionPrefixes(sessionID string) []string {
	seg := keySegment(sessionID)
	return []string{
		path.Join(artifactPrefix, seg) + "/",
		path.Join(downloadPrefix, seg) + "/",
	}
}

// DownloadKey is the object key of a transient download handle.
func DownloadKey(sessionID, handleID, fileName string) string {
	return path.Join(downloadPrefix, keySegment(sessionID), keySegment(handleID), fileName)
}

func keySegment(s string) string {
	s = strings.Trim(strings.ReplaceAll(s, "/", "_"), ". ")
	if s == "" {
		return "_"
	}
	return s
}

// ArtifactReleaser deletes the stored object of a superseded artifact.
type ArtifactReleaser struct {
	Store Store
}

var _ pipeline.Releaser = ArtifactReleaser{}

func (r ArtifactReleaser) Release(ctx context.Context, a *pipeline.Artifact) error {
	if a == nil || a.ObjectKey == "" || r.Store == nil {
		return nil
	}
	if err := r.Store.DeleteObject(ctx, a.ObjectKey); err != nil {
		return fmt.Errorf("release artifact: %w", err)
	}
	return nil
}
