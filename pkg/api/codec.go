package api

import (
	"encoding/json"
	"fmt"
)

// Codec carries plain structs as JSON. It replaces Connect's built-in "json"
// codec, which only accepts protobuf messages.
type Codec struct{}

func (Codec) Name() string {
	return "json"
}

func (Codec) Marshal(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", message, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("unmarshal %T: %w", message, err)
	}
	return nil
}
