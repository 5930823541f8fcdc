// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// DurationObserver receives the duration of each hash operation.
// op is "hash" or "compare".
type DurationObserver func(op string, d time.Duration)

// HashPool bounds the number of concurrent hash and compare operations so a
// burst of logins cannot monopolise every CPU.
type HashPool struct {
	hasher  PasswordHasher
	sem     *semaphore.Weighted
	observe DurationObserver
}

// NewHashPool wraps hasher with a pool of at most workers concurrent
// operations. workers <= 0 selects runtime.NumCPU().
func NewHashPool(hasher PasswordHasher, workers int, observe DurationObserver) *HashPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &HashPool{
		hasher:  hasher,
		sem:     semaphore.NewWeighted(int64(workers)),
		observe: observe,
	}
}

// Hasher returns the underlying hasher.
func (p *HashPool) Hasher() PasswordHasher {
	return p.hasher
}

// Hash hashes password once a worker slot is free.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	var out string
	err := p.run(ctx, "hash", func() error {
		var err error
		out, err = p.hasher.Hash(password)
		return err
	})
	return out, err
}

// Compare compares candidate against hashed once a worker slot is free.
func (p *HashPool) Compare(ctx context.Context, candidate, hashed string) (bool, error) {
	var ok bool
	err := p.run(ctx, "compare", func() error {
		var err error
		ok, err = p.hasher.Compare(candidate, hashed)
		return err
	})
	return ok, err
}

// NeedsUpgrade delegates to the underlying hasher.
func (p *HashPool) NeedsUpgrade(hashed string) bool {
	return p.hasher.NeedsUpgrade(hashed)
}

func (p *HashPool) run(ctx context.Context, op string, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return oops.Code("AUTH_HASH_POOL_CANCELLED").With("operation", op).Wrap(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	err := fn()
	if p.observe != nil {
		p.observe(op, time.Since(start))
	}
	return err
}
