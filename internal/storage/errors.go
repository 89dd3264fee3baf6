package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound marks a missing object regardless of which store reported it.
var ErrNotFound = errors.New("object not found")

// IsNoSuchKey 判断错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NotFound":
			return true
		}
		return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
	}

	// 部分网关只返回错误文本。
	return strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
}

// objectError wraps a failed object operation, tagging misses with
// ErrNotFound.
func objectError(op, key string, err error) error {
	if IsNoSuchKey(err) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %q: %w: %w", op, key, ErrNotFound, err)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}

// noSuchKey is what a MinIO server answers for a missing object.
func noSuchKey(op, key string) error {
	return objectError(op, key, minio.ErrorResponse{
		Code:       "NoSuchKey",
		Message:    "The specified key does not exist.",
		Key:        key,
		StatusCode: http.StatusNotFound,
	})
}
