package badger

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mmynk/expensekey/internal/models"
)

// encodeGroup serializes a group as gzip-compressed JSON.
func encodeGroup(g *models.Group) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal group: %w", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("compress group: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress group: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeGroup(data []byte) (*models.Group, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress group: %w", err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress group: %w", err)
	}
	var g models.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("unmarshal group: %w", err)
	}
	return &g, nil
}
