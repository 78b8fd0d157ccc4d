// Package cos provides common low-level types and utilities.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// Alphabet for generating short ids, same shape as shortid.DEFAULT_ABC.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

// SeedOnce seeds the process-wide short-id generator exactly once, from an
// arbitrary value supplied by the first caller. NewClient calls it with a
// checksum of its request address; GenID calls it with a clock read. Which
// of the two runs first decides the seed, and later calls have no effect.
func SeedOnce(seed uint64) {
	sidOnce.Do(func() {
		sid = shortid.MustNew(4 /*worker*/, idABC, seed)
	})
}

// GenID returns a fresh short, URL-safe identifier; used for ephemeral
// endpoint addresses, request ids, and frame ids alike (this package
// deliberately doesn't distinguish their generation scheme).
func GenID() string {
	SeedOnce(uint64(time.Now().UnixNano()))
	return sid.MustGenerate()
}

// Checksum64 is used by the header codec to catch silently truncated
// inline bodies; multipart chunks carry no checksum.
func Checksum64(b []byte) uint64 { return xxhash.Checksum64(b) }
