package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/domain"
)

// Export renders answers as the downloadable JSON array.
func Export(answers []domain.Answer) ([]byte, error) {
	if answers == nil {
		answers = []domain.Answer{}
	}
	return json.MarshalIndent(answers, "", "  ")
}

// ParseExport reads an exported report back. The top level must be an array.
func ParseExport(data []byte) ([]domain.Answer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("report export must be a JSON array")
	}
	var out []domain.Answer
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode report export: %w", err)
	}
	if out == nil {
		out = []domain.Answer{}
	}
	return out, nil
}
