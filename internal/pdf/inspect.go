package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrEmptyOutput   = errors.New("pdf: empty output")
	ErrInvalidOutput = errors.New("pdf: invalid output")
)

// Info describes a validated document.
type Info struct {
	Pages int
	Size  int
}

var disableConfigDir sync.Once

// Inspect validates data with pdfcpu and counts its pages.
func Inspect(data []byte) (Info, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Info{}, ErrEmptyOutput
	}
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if ctx.PageCount < 1 {
		return Info{}, fmt.Errorf("%w: no pages", ErrEmptyOutput)
	}
	return Info{Pages: ctx.PageCount, Size: len(data)}, nil
}
