// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package events

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/recommend"
)

// ErrInvalidEvent marks payloads that can never be processed.
var ErrInvalidEvent = errors.New("invalid interaction event")

// MarshalInteraction validates and encodes an interaction.
func MarshalInteraction(in *recommend.Interaction) ([]byte, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalInteraction decodes and validates an interaction.
func UnmarshalInteraction(data []byte) (recommend.Interaction, error) {
	var in recommend.Interaction
	if err := json.Unmarshal(data, &in); err != nil {
		return recommend.Interaction{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := validate(&in); err != nil {
		return recommend.Interaction{}, err
	}
	return in, nil
}

func validate(in *recommend.Interaction) error {
	switch {
	case in.UserID == "":
		return fmt.Errorf("%w: missing user_id", ErrInvalidEvent)
	case in.PostID == "":
		return fmt.Errorf("%w: missing post_id", ErrInvalidEvent)
	case in.Type.BaseWeight() == 0:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidEvent, int(in.Type))
	case in.Type == recommend.InteractionRate && (in.Rating < 1 || in.Rating > 5):
		return fmt.Errorf("%w: rating %d outside 1..5", ErrInvalidEvent, in.Rating)
	}
	return nil
}
