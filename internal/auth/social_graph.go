// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package auth

import (
	"context"
	"fmt"

	"github.com/tomtom215/curator/internal/recommend"
)

// FriendLister returns a user's friends.
type FriendLister interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// TokenVerifier maps a token to the user it was issued for.
type TokenVerifier interface {
	Subject(token string) (string, error)
}

// SocialGraph resolves auth tokens to friend lists. It implements
// recommend.SocialGraph.
type SocialGraph struct {
	verifier TokenVerifier
	friends  FriendLister
}

// NewSocialGraph creates a SocialGraph. A nil verifier means no token can
// be verified, so every non-empty token is rejected.
func NewSocialGraph(verifier TokenVerifier, friends FriendLister) *SocialGraph {
	return &SocialGraph{verifier: verifier, friends: friends}
}

// Friends returns the friends of the token's subject. An empty token yields
// no friends and no error. Tokens that fail verification yield
// recommend.ErrInvalidAuthToken.
func (g *SocialGraph) Friends(ctx context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, nil
	}
	if g.verifier == nil {
		return nil, fmt.Errorf("%w: %w", recommend.ErrInvalidAuthToken, ErrNoSecret)
	}
	userID, err := g.verifier.Subject(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recommend.ErrInvalidAuthToken, err)
	}
	friends, err := g.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends of %s: %w", userID, err)
	}
	if friends == nil {
		friends = []string{}
	}
	return friends, nil
}
