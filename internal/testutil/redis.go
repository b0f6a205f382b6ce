package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniRedis starts an in-process Redis and returns a client bound to it.
// Both are torn down with the test.
func NewMiniRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

// GenerateTestSecret generates a random secret for signing test tokens.
func GenerateTestSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		if envSecret := os.Getenv("TEST_JWT_SECRET"); len(envSecret) >= 32 {
			return envSecret
		}
		panic("failed to generate random bytes for test secret and TEST_JWT_SECRET is not set")
	}
	return hex.EncodeToString(bytes)
}
