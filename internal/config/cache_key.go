package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AdminSessionKey returns the cache key holding the active JTI of an admin token.
func (r *CacheKeyStruct) AdminSessionKey(jti string) string {
	return fmt.Sprintf("admin:session:%s", jti)
}

// SurveySessionKey returns the cache key for a participant's in-progress survey.
func (r *CacheKeyStruct) SurveySessionKey(sessionID string) string {
	return fmt.Sprintf("survey:session:%s", sessionID)
}

// SnapshotKey returns the cache key for a raw analytics snapshot of the given
// source taken under the given cache generation.
func (r *CacheKeyStruct) SnapshotKey(source string, generation int64) string {
	return fmt.Sprintf("analytics:snapshot:%d:%s", generation, source)
}

// SnapshotGenerationKey holds the counter bumped on every write. Snapshots
// cached under an older generation are never read again.
func (r *CacheKeyStruct) SnapshotGenerationKey() string {
	return "analytics:snapshot:generation"
}

// ResponsesChannel returns the Redis PubSub channel notified after each submission.
func (r *CacheKeyStruct) ResponsesChannel() string {
	return "survey:responses"
}

var CacheKey = NewCacheKeyStruct()
