package services

import (
	"strings"

	"github.com/amirphl/quote-core/config"
)

// RedisKey prefixes key with the configured namespace
func RedisKey(cfg config.CacheConfig, key string) string {
	prefix := cfg.RedisPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix + key
}
