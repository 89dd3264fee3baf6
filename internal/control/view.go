package control

import (
	"math"

	"resumekit/internal/pipeline"
	"resumekit/internal/resume"
)

// 预览缩放范围。
const (
	MinZoom     = 0.5
	MaxZoom     = 1.5
	DefaultZoom = 0.8
)

// Page heights in CSS px at 96dpi.
const (
	A4HeightPx     = 1123
	A4WidthPx      = 794
	LetterHeightPx = 1056
	LetterWidthPx  = 816
)

// chromeHeightPx is the vertical space the preview frame reserves: top bar
// 3.5rem, control bar 3rem, padding 2×1.5rem.
const chromeHeightPx = (3.5 + 3 + 3) * 16

// Viewport is the client's window size in CSS px.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// View is the zoom state of a session.
type View struct {
	Zoom      float64  `json:"zoom"`
	Autoscale bool     `json:"autoscale"`
	Viewport  Viewport `json:"viewport"`
}

// ClampZoom bounds z to [MinZoom, MaxZoom]. NaN gives the default.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return DefaultZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// PageSizePx returns the page width and height of size in CSS px.
func PageSizePx(size resume.DocumentSize) (width, height float64) {
	if size.Normalize() == resume.A4 {
		return A4WidthPx, A4HeightPx
	}
	return LetterWidthPx, LetterHeightPx
}

// FitZoom is the zoom at which one page fills the viewport height, rounded
// to two decimals and clamped.
func FitZoom(vp Viewport, size resume.DocumentSize) float64 {
	if vp.Height <= 0 {
		return DefaultZoom
	}
	_, h := PageSizePx(size)
	z := math.Round((vp.Height-chromeHeightPx)/h*100) / 100
	return ClampZoom(z)
}

// Button is the download control as the client draws it.
type Button struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	// Action is what a click does: "download", "retry" or "".
	Action string `json:"action,omitempty"`
}

// DownloadButton projects pipeline state onto the download control.
func DownloadButton(st pipeline.Status) Button {
	switch st.State {
	case pipeline.Building:
		return Button{Label: "Generating PDF...", Enabled: false}
	case pipeline.Failed:
		return Button{Label: "Error - Retry", Enabled: true, Action: "retry"}
	case pipeline.Ready:
		return Button{Label: "Download Resume", Enabled: true, Action: "download"}
	default:
		return Button{Label: "Preparing...", Enabled: false}
	}
}
