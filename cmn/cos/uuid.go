// Package cos: short, collision-resistant IDs used as per-connection
// correlation IDs in the session server's log lines. No k8s proxy-ID
// derivation or daemon-ID helpers here, since this module has no k8s
// concept and no cluster membership; only the shortid generator is kept.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	sid = shortid.MustNew(1, uuidABC, uint64(time.Now().UnixNano()))
}

// GenUUID returns a short, URL-safe, process-unique-enough correlation ID.
func GenUUID() string {
	sidOnce.Do(initShortID)
	return sid.MustGenerate()
}

func IsValidUUID(uuid string) bool {
	if len(uuid) < LenShortID {
		return false
	}
	for i := 0; i < len(uuid); i++ {
		c := uuid[i]
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}
