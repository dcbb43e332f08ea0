// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide because it caches struct
// metadata. Errors name fields by their JSON tag so they can be returned to
// API clients unchanged:
//
//	type InteractionRequest struct {
//	    UserID string `json:"user_id" validate:"required,max=128"`
//	    Type   string `json:"type" validate:"required,interaction_type"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Fields[0].Field == "user_id"
//	}
package validation
