package config

import "fmt"

// RedisKeyStruct builds every Redis key and channel name used by the app,
// keeping the naming scheme in one place.
type RedisKeyStruct struct{}

// RedisKey is the shared key builder.
var RedisKey = &RedisKeyStruct{}

// UserSessionKey returns the key holding a user's active session JTI.
func (r *RedisKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("session:%d", userID)
}

// GroupEventsChannel returns the pub/sub channel for a group's activity feed.
func (r *RedisKeyStruct) GroupEventsChannel(groupID int) string {
	return fmt.Sprintf("group:%d:events", groupID)
}

// AuthRateLimitKey returns the fixed-window rate limit counter key for an IP.
func (r *RedisKeyStruct) AuthRateLimitKey(ip string) string {
	return fmt.Sprintf("ratelimit:auth:%s", ip)
}
