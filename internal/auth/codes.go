package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxCodeAttempts is how many wrong guesses discard a pending verification.
const MaxCodeAttempts = 5

type VerificationCodes struct {
	SMS   string
	Email string
}

// CodeStore keeps the pending registration codes per e-mail address.
type CodeStore interface {
	Save(ctx context.Context, email string, codes VerificationCodes, ttl time.Duration) error
	// Consume reports whether codes match and, if so, discards them.
	Consume(ctx context.Context, email string, codes VerificationCodes) (bool, error)
}

type RedisCodeStore struct {
	client redis.Cmdable
}

func NewRedisCodeStore(client redis.Cmdable) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func codeKey(email string) string {
	return "verification:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *RedisCodeStore) Save(ctx context.Context, email string, codes VerificationCodes, ttl time.Duration) error {
	key := codeKey(email)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "sms", codes.SMS, "email", codes.Email, "attempts", 0)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store verification codes: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Consume(ctx context.Context, email string, codes VerificationCodes) (bool, error) {
	key := codeKey(email)
	stored, err := s.client.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to read verification codes: %w", err)
	}
	if len(stored) == 0 {
		return false, nil
	}

	if equal(stored["sms"], codes.SMS) && equal(stored["email"], codes.Email) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return false, fmt.Errorf("failed to discard verification codes: %w", err)
		}
		return true, nil
	}

	attempts, err := s.client.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count verification attempt: %w", err)
	}
	if attempts >= MaxCodeAttempts {
		s.client.Del(ctx, key)
	}
	return false, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateCode returns a random six-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
