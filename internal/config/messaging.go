package config

import "time"

const (
	// Message pages
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100

	// Message bodies
	MaxMessageLength = 2000

	// Start conversation: first attempt plus re-fetches after a lost creation race
	StartConversationAttempts = 3

	// Enrichment cache
	UserCacheKeyPrefix  = "user_summary:"
	DefaultUserCacheTTL = 5 * time.Minute

	// Identity tokens
	TokenIssuer     = "flatshare-messaging"
	DefaultTokenTTL = 72 * time.Hour
)
