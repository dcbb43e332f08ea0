// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"errors"
	"fmt"
)

// StrategyFunc produces recommendations for a request or reports why it could not.
type StrategyFunc func(ctx context.Context, req Request) ([]ScoredPost, error)

// Strategy is one tier of the serving chain.
type Strategy struct {
	Tier Tier
	Run  StrategyFunc
}

// FallbackObserver is told about every strategy that fails before another
// one is tried.
type FallbackObserver func(tier Tier, err error)

// FirstSuccess runs strategies in order and returns the result of the first
// one that succeeds. Context cancellation stops the chain immediately. If
// every strategy fails the errors are joined.
func FirstSuccess(ctx context.Context, strategies []Strategy, req Request, observe FallbackObserver) (Tier, []ScoredPost, error) {
	if len(strategies) == 0 {
		return "", nil, ErrNoStrategies
	}

	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		items, err := s.Run(ctx, req)
		if err == nil {
			return s.Tier, items, nil
		}
		if observe != nil {
			observe(s.Tier, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Tier, err))
	}
	return "", nil, errors.Join(errs...)
}
