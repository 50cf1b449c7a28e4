package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/cache"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

type commitFunc func(ctx context.Context, recordID string, failed bool)

func noCommit(context.Context, string, bool) {}

// reserveSubmission claims an Idempotency-Key. priorID is set when an earlier
// submission already created a record. Redis failures degrade to a normal,
// non-idempotent create.
func reserveSubmission(ctx context.Context, c *cache.IdempotencyCache, scope, key string) (priorID string, commit commitFunc, err error) {
	if c == nil || key == "" {
		return "", noCommit, nil
	}

	res, err := c.Reserve(ctx, scope, key)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("Idempotency reservation failed, continuing without it")
		return "", noCommit, nil
	}
	if res.InProgress {
		return "", nil, utils.ErrDuplicateSubmission
	}

	commit = func(ctx context.Context, recordID string, failed bool) {
		var err error
		if failed {
			err = c.Release(ctx, scope, key)
		} else {
			err = c.Complete(ctx, scope, key, recordID)
		}
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Bool("failed", failed).Msg("Failed to finalize idempotency key")
		}
	}
	return res.RecordID, commit, nil
}
