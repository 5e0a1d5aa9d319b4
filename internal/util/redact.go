package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintLen is how many hex digits of the digest appear in logs.
const fingerprintLen = 16

// TokenFingerprint returns a short, log-safe identifier of a token: a prefix
// of the SHA-256 of its lower-cased form. Distinct tokens get distinct
// fingerprints even when minted in the same second, and case variants of one
// token share a fingerprint. No token bytes are revealed.
func TokenFingerprint(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// RunKey derives an execution-context id from a session key and a run id:
// "session::run" when both are set and differ, otherwise whichever is set.
func RunKey(sessionKey, runID string) string {
	sessionKey = strings.TrimSpace(sessionKey)
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return sessionKey
	}
	if sessionKey != "" && sessionKey != runID {
		return sessionKey + "::" + runID
	}
	return runID
}
