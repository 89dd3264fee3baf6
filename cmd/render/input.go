package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"resumekit/internal/resume"
)

// readSnapshot loads {resume, settings} from a JSON or YAML file. A file
// without settings gets the defaults.
func readSnapshot(path string, stdin io.Reader) (resume.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return resume.Snapshot{}, fmt.Errorf("read input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) (resume.Snapshot, error) {
	snap := resume.Snapshot{Settings: resume.DefaultSettings()}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return resume.Snapshot{}, fmt.Errorf("decode json: %w", err)
	}
	return snap, nil
}

// decodeYAML goes through JSON so both formats share the camelCase field
// names of the wire contract.
func decodeYAML(data []byte) (resume.Snapshot, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return resume.Snapshot{}, fmt.Errorf("decode yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return resume.Snapshot{}, fmt.Errorf("decode yaml: %w", err)
	}
	return decodeJSON(raw)
}
