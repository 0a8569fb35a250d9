package utils

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"sync"
	"time"
)

// in-memory fallback store
type codeEntry struct {
	code      string
	expiresAt time.Time
}

var (
	codeStore   = map[string]codeEntry{}
	codeStoreMu sync.Mutex
)

// GenerateVerificationCode creates a numeric code with given length.
func GenerateVerificationCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		// crypto/rand for better unpredictability
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// fallback to time based modulo if crypto fails
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

func linkKey(code string) string {
	return "botlink:code:" + code
}

// SaveLinkCode stores a chat-link code resolving to a user id. Prefer Redis; fallback to memory.
func SaveLinkCode(code string, userID uint, ttl time.Duration) {
	val := strconv.FormatUint(uint64(userID), 10)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, linkKey(code), val, ttl).Err(); err == nil {
			return
		}
	}
	codeStoreMu.Lock()
	codeStore[linkKey(code)] = codeEntry{code: val, expiresAt: time.Now().Add(ttl)}
	codeStoreMu.Unlock()
}

// ConsumeLinkCode resolves and invalidates a chat-link code. Returns the user id it was minted for.
func ConsumeLinkCode(code string) (uint, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if val, err := rc.GetDel(ctx, linkKey(code)).Result(); err == nil {
			id, convErr := strconv.ParseUint(val, 10, 64)
			return uint(id), convErr == nil
		}
		// On Redis error (e.g., network), fall through to memory fallback
	}
	codeStoreMu.Lock()
	defer codeStoreMu.Unlock()
	entry, ok := codeStore[linkKey(code)]
	if !ok {
		return 0, false
	}
	delete(codeStore, linkKey(code))
	if time.Now().After(entry.expiresAt) {
		return 0, false
	}
	id, err := strconv.ParseUint(entry.code, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
