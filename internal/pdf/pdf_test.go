package pdf

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/resume"
)

func buildPDF(text, created, id string) []byte {
	return minimalPDF(text, created, id)
}

func TestNormalizeMakesOutputByteIdentical(t *testing.T) {
	a := buildPDF("Jane", "20240101120000", strings.Repeat("a1", 16))
	b := buildPDF("Jane", "20250607080910", strings.Repeat("f7", 16))
	require.NotEqual(t, a, b)

	na, nb := Normalize(a), Normalize(b)
	assert.Equal(t, na, nb)
	assert.Len(t, na, len(a))
	assert.Contains(t, string(na), "/CreationDate (D:19700101000000+00'00')")
	assert.NotContains(t, string(na), strings.Repeat("a1", 16))

	// the input slice is left alone
	assert.Contains(t, string(a), "20240101120000")
}

func TestNormalizeIDDependsOnContent(t *testing.T) {
	id := strings.Repeat("0", 32)
	a := Normalize(buildPDF("Jane", "20240101120000", id))
	b := Normalize(buildPDF("John", "20240101120000", id))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Normalize(a))
}

func TestNormalizeWithoutMetadata(t *testing.T) {
	in := []byte("%PDF-1.4\nnothing to rewrite\n")
	assert.Equal(t, in, Normalize(in))
}

func TestInspect(t *testing.T) {
	data := Normalize(buildPDF("Jane", "20240101120000", strings.Repeat("ab", 16)))
	info, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.Equal(t, len(data), info.Size)
}

func TestInspectRejectsBadOutput(t *testing.T) {
	_, err := Inspect(nil)
	assert.ErrorIs(t, err, ErrEmptyOutput)

	_, err = Inspect([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyOutput)

	_, err = Inspect([]byte("<html>not a pdf</html>"))
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func fakeChromePrinter(alive bool) (*RodPrinter, *[]*chrome) {
	var mu sync.Mutex
	closed := &[]*chrome{}
	p := NewRodPrinter(RodOptions{}, nil)
	p.alive = func(*chrome) bool { return alive }
	p.shutdown = func(c *chrome) {
		mu.Lock()
		defer mu.Unlock()
		*closed = append(*closed, c)
	}
	return p, closed
}

func TestHealthyBrowserSurvivesFailedPrint(t *testing.T) {
	p, closed := fakeChromePrinter(true)
	c := &chrome{}
	p.current = c

	p.handleFailure(c, errors.New("export pdf: page crashed"))
	assert.Same(t, c, p.current)
	assert.Empty(t, *closed)
}

func TestStaleFailureKeepsRelaunchedBrowser(t *testing.T) {
	p, closed := fakeChromePrinter(false)
	old := &chrome{}
	p.current = old

	// the first failing print drops the dead browser
	p.handleFailure(old, errors.New("connection reset"))
	assert.Nil(t, p.current)
	assert.Equal(t, []*chrome{old}, *closed)

	// a sibling print of the same dead browser fails after a relaunch
	fresh := &chrome{}
	p.current = fresh
	p.handleFailure(old, errors.New("connection reset"))
	assert.Same(t, fresh, p.current)
	assert.Equal(t, []*chrome{old}, *closed)

	require.NoError(t, p.Close())
	assert.Nil(t, p.current)
	assert.Equal(t, []*chrome{old, fresh}, *closed)
}

func TestPaperSize(t *testing.T) {
	w, h := PaperSize(resume.A4)
	assert.Equal(t, 8.27, w)
	assert.Equal(t, 11.69, h)

	w, h = PaperSize(resume.Letter)
	assert.Equal(t, 8.5, w)
	assert.Equal(t, 11.0, h)
}

func TestStubPrinterOutputValidates(t *testing.T) {
	p := StubPrinter{}
	a, err := p.Print(context.Background(), []byte("<p>Jane</p>"), resume.A4)
	require.NoError(t, err)
	info, err := Inspect(Normalize(a))
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)

	b, err := p.Print(context.Background(), []byte("<p>Jane</p>"), resume.A4)
	require.NoError(t, err)
	assert.Equal(t, Normalize(a), Normalize(b))

	_, err = StubPrinter{Err: ErrEmptyOutput}.Print(context.Background(), nil, resume.Letter)
	assert.ErrorIs(t, err, ErrEmptyOutput)
}
