package vibe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ParseDirection decodes a model-produced creative direction payload.
// Generative models occasionally emit slightly broken JSON, so a syntax
// error gets one repair pass before the payload is declared unparsable.
func ParseDirection(data []byte) (*CreativeDirection, error) {
	var dir CreativeDirection
	if err := unmarshalRepair(data, &dir); err != nil {
		return nil, fmt.Errorf("vibe: unparsable creative direction: %w", err)
	}
	if len(dir.Personality.Traits) == 0 {
		return nil, errors.New("vibe: creative direction missing personality traits")
	}
	dir.Personality.Energy = min(10, max(1, dir.Personality.Energy))
	if dir.Speech.Text == "" {
		dir.Speech.Text = dir.Story
	}
	return &dir, nil
}

func unmarshalRepair(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
