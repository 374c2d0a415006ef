package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/patrickmn/go-cache"
)

type resetCode struct {
	code     string
	verified bool
}

// ResetCodes short-lived password reset codes keyed by user id
type ResetCodes struct {
	store *cache.Cache
}

// NewResetCodes codes expire after ttl; expired codes are swept every 2*ttl
func NewResetCodes(ttl time.Duration) *ResetCodes {
	return &ResetCodes{store: cache.New(ttl, 2*ttl)}
}

// Issue creates a new six digit code for the user, replacing any previous one
func (r *ResetCodes) Issue(userID string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	r.store.SetDefault(userID, &resetCode{code: code})
	return code, nil
}

// Verify checks the code and marks it verified on a match
func (r *ResetCodes) Verify(userID, code string) bool {
	v, ok := r.store.Get(userID)
	if !ok {
		return false
	}
	rc := v.(*resetCode)
	if rc.code != code {
		return false
	}
	r.store.SetDefault(userID, &resetCode{code: rc.code, verified: true})
	return true
}

// Consume reports whether the user holds a verified code and removes it
func (r *ResetCodes) Consume(userID string) bool {
	v, ok := r.store.Get(userID)
	if !ok || !v.(*resetCode).verified {
		return false
	}
	r.store.Delete(userID)
	return true
}

// Pending reports whether the user has an unexpired code
func (r *ResetCodes) Pending(userID string) bool {
	_, ok := r.store.Get(userID)
	return ok
}
