package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/resume"
)

const janeYAML = `
resume:
  profile:
    name: Jane Q. Public
    email: jane@example.com
  workExperiences:
    - company: Acme
      jobTitle: Engineer
      date: 2020 - Now
      descriptions: [Shipped things]
settings:
  selectedTemplate: B
  documentSize: A4
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSnapshotYAML(t *testing.T) {
	snap, err := readSnapshot(writeFile(t, "jane.yaml", janeYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "Jane Q. Public", snap.Resume.Profile.Name)
	require.Len(t, snap.Resume.WorkExperiences, 1)
	assert.Equal(t, "Engineer", snap.Resume.WorkExperiences[0].JobTitle)
	assert.Equal(t, resume.TemplateSidebarRight, snap.Template())
	assert.Equal(t, resume.A4, snap.Settings.DocumentSize)
	// 未写出的设置保留默认值
	assert.Equal(t, resume.DefaultSettings().FontFamily, snap.Settings.FontFamily)
}

func TestReadSnapshotJSONFromStdin(t *testing.T) {
	in := strings.NewReader(`{"resume":{"profile":{"name":"Ann"}}}`)
	snap, err := readSnapshot("-", in)
	require.NoError(t, err)
	assert.Equal(t, "Ann", snap.Resume.Profile.Name)
	assert.Equal(t, resume.TemplateClassic, snap.Template())
}

func TestReadSnapshotRejectsUnknownFields(t *testing.T) {
	_, err := readSnapshot(writeFile(t, "bad.json", `{"resume":{},"colour":"red"}`), nil)
	assert.Error(t, err)
}

func TestRunWritesPDF(t *testing.T) {
	input := writeFile(t, "jane.yml", janeYAML)
	out := filepath.Join(t.TempDir(), "out", "jane.pdf")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--stub", "-i", input, "-o", out}, nil, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, out, strings.TrimSpace(stdout.String()))
}

func TestRunDefaultsToDownloadFileName(t *testing.T) {
	input := writeFile(t, "jane.yaml", janeYAML)
	dir := t.TempDir()
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--html", "--template", "c", input}, nil, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(filepath.Join(dir, "Jane_Q_Public-template-C.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Q. Public")
}

func TestRunUsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, nil, &stdout, &stderr))
	assert.Equal(t, exitUsage, run([]string{"--attempts", "0", "x.json"}, nil, &stdout, &stderr))
	assert.Equal(t, exitUsage, run([]string{"missing.json"}, nil, &stdout, &stderr))
	assert.Equal(t, exitOK, run([]string{"--help"}, nil, &stdout, &stderr))
}
