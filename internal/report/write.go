package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFiles writes the narrative and structured forms of r into dir and
// returns both paths.
func WriteFiles(r Report, dir string) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}
	base := "triage_" + r.GeneratedAt.Format("20060102-150405")
	mdPath = filepath.Join(dir, base+".md")
	jsonPath = filepath.Join(dir, base+".json")

	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	return mdPath, jsonPath, nil
}
