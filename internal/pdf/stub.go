package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumekit/internal/resume"
)

// StubPrinter writes a one page document naming a digest of the page
// instead of laying it out. The CLI uses it for dry runs when no browser is
// available; tests use it as a stand-in for Chromium. Like Chromium it
// stamps the current time and a random document ID.
type StubPrinter struct {
	// Err, when set, is returned instead of a document.
	Err error
}

var _ Printer = StubPrinter{}

func (p StubPrinter) Print(ctx context.Context, html []byte, size resume.DocumentSize) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	sum := sha256.Sum256(html)
	text := fmt.Sprintf("%s %s", size.Normalize(), hex.EncodeToString(sum[:8]))
	created := time.Now().UTC().Format("20060102150405")
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return minimalPDF(text, created, id), nil
}

func minimalPDF(text, created, id string) []byte {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + text + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 7)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	offsets[6] = b.Len()
	fmt.Fprintf(&b, "6 0 obj\n<< /Producer (Skia/PDF) /CreationDate (D:%s+00'00') /ModDate (D:%s+00'00') >>\nendobj\n", created, created)

	xref := b.Len()
	b.WriteString("xref\n0 7\n0000000000 65535 f \n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 7 /Root 1 0 R /Info 6 0 R /ID [<%s> <%s>] >>\nstartxref\n%d\n%%%%EOF\n", id, id, xref)
	return []byte(b.String())
}
