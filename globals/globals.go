package globals

import (
	"context"
	"os"
)

var JwtSecret = jwtSecretFromEnv()

func jwtSecretFromEnv() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev_secret_change_me")
}

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"
const RoleKey ContextKey = "role"

// CachePrefix is the namespace for every per-user cache key:
// cropcart-{collection}-{userId}.
const CachePrefix = "cropcart"

var Ctx = context.Background()
