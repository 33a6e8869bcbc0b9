package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TierFree       = "free"
	TierStarter    = "starter"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

const quotaWindow = 24 * time.Hour

var tierDailyLimits = map[string]int64{
	TierFree:       1_000,
	TierStarter:    10_000,
	TierPro:        100_000,
	TierEnterprise: 1_000_000,
}

var tierPermissions = map[string][]string{
	TierFree:       {"read"},
	TierStarter:    {"read", "write"},
	TierPro:        {"read", "write", "webhook", "widget"},
	TierEnterprise: {"read", "write", "webhook", "widget", "whitelabel", "admin"},
}

var (
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrKeyDeactivated = errors.New("api key is deactivated")
	ErrKeyExpired     = errors.New("api key has expired")
	ErrInvalidSecret  = errors.New("invalid api secret")
	ErrInvalidTier    = errors.New("unknown tier")
)

// RateLimitError carries machine-readable throttle metadata so callers can
// self-throttle.
type RateLimitError struct {
	Limit   int64
	Tier    string
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("daily rate limit of %d exceeded, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

// RateInfo is returned on every allowed call for the rate-limit response headers.
type RateInfo struct {
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// HasPermission reports whether the key's permission set intersects the
// required set, or the key holds the blanket admin permission.
func HasPermission(key *model.APIKey, required ...string) bool {
	held := make(map[string]bool)
	for _, p := range key.PermissionList() {
		held[p] = true
	}
	if held["admin"] {
		return true
	}
	for _, p := range required {
		if held[p] {
			return true
		}
	}
	return false
}

type APIKeyService interface {
	Create(ctx context.Context, accountID string, req *dto.CreateKeyRequest) (*dto.CreatedKeyResponse, error)
	Rotate(ctx context.Context, accountID, publicID string) (*dto.CreatedKeyResponse, error)
	Deactivate(ctx context.Context, accountID, publicID string) error
	List(ctx context.Context, accountID string) ([]*dto.KeySummary, error)

	// Resolve returns the key only if it belongs to the account.
	Resolve(ctx context.Context, accountID, publicID string) (*model.APIKey, error)

	// Authorize runs the admission ladder: key lookup, active/expiry checks,
	// optional secret verification, then quota consumption. Quota is consumed
	// before the protected call runs.
	Authorize(ctx context.Context, publicID, secret string, requireSecret bool) (*model.APIKey, *RateInfo, error)
}

type apiKeyServiceImpl struct {
	keys repository.APIKeyRepository
}

func NewAPIKeyService(keys repository.APIKeyRepository) APIKeyService {
	return &apiKeyServiceImpl{keys: keys}
}

func generateCredentials(sandbox bool) (publicID, secret string) {
	env := "live"
	if sandbox {
		env = "test"
	}
	publicID = fmt.Sprintf("pk_%s_%s", env, strings.ReplaceAll(uuid.NewString(), "-", ""))
	secret = fmt.Sprintf("sk_%s_%s", env, strings.ReplaceAll(uuid.NewString(), "-", ""))
	return publicID, secret
}

func (s *apiKeyServiceImpl) Create(ctx context.Context, accountID string, req *dto.CreateKeyRequest) (*dto.CreatedKeyResponse, error) {
	limit, ok := tierDailyLimits[req.Tier]
	if !ok {
		return nil, ErrInvalidTier
	}
	permissions := tierPermissions[req.Tier]

	publicID, secret := generateCredentials(req.Sandbox)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash api secret: %w", err)
	}

	key := &model.APIKey{
		AccountID:   accountID,
		PublicID:    publicID,
		SecretHash:  string(hash),
		Tier:        req.Tier,
		IsActive:    true,
		Sandbox:     req.Sandbox,
		DailyLimit:  limit,
		LastResetAt: time.Now(),
		Permissions: strings.Join(permissions, ","),
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	return &dto.CreatedKeyResponse{
		PublicID:    publicID,
		Secret:      secret,
		Tier:        req.Tier,
		Sandbox:     req.Sandbox,
		DailyLimit:  limit,
		Permissions: permissions,
		ExpiresAt:   req.ExpiresAt,
	}, nil
}

func (s *apiKeyServiceImpl) Rotate(ctx context.Context, accountID, publicID string) (*dto.CreatedKeyResponse, error) {
	key, err := s.keys.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, ErrInvalidAPIKey
	}
	if key.AccountID != accountID {
		return nil, ErrInvalidAPIKey
	}

	newPublicID, newSecret := generateCredentials(key.Sandbox)
	hash, err := bcrypt.GenerateFromPassword([]byte(newSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash api secret: %w", err)
	}

	// the previous public/secret pair stops resolving the moment this commits
	if err := s.keys.Rotate(ctx, key.ID, newPublicID, string(hash)); err != nil {
		return nil, fmt.Errorf("rotate api key: %w", err)
	}

	return &dto.CreatedKeyResponse{
		PublicID:    newPublicID,
		Secret:      newSecret,
		Tier:        key.Tier,
		Sandbox:     key.Sandbox,
		DailyLimit:  key.DailyLimit,
		Permissions: key.PermissionList(),
		ExpiresAt:   key.ExpiresAt,
	}, nil
}

func (s *apiKeyServiceImpl) Deactivate(ctx context.Context, accountID, publicID string) error {
	key, err := s.keys.FindByPublicID(ctx, publicID)
	if err != nil {
		return ErrInvalidAPIKey
	}
	if key.AccountID != accountID {
		return ErrInvalidAPIKey
	}
	return s.keys.Deactivate(ctx, key.ID)
}

func (s *apiKeyServiceImpl) List(ctx context.Context, accountID string) ([]*dto.KeySummary, error) {
	keys, err := s.keys.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	summaries := make([]*dto.KeySummary, len(keys))
	for i, k := range keys {
		summaries[i] = &dto.KeySummary{
			PublicID:      k.PublicID,
			Tier:          k.Tier,
			Sandbox:       k.Sandbox,
			IsActive:      k.IsActive,
			DailyLimit:    k.DailyLimit,
			DailyRequests: k.DailyRequests,
			Permissions:   k.PermissionList(),
			LastUsedAt:    k.LastUsedAt,
			ExpiresAt:     k.ExpiresAt,
			CreatedAt:     k.CreatedAt,
		}
	}
	return summaries, nil
}

func (s *apiKeyServiceImpl) Resolve(ctx context.Context, accountID, publicID string) (*model.APIKey, error) {
	key, err := s.keys.FindByPublicID(ctx, publicID)
	if err != nil || key.AccountID != accountID {
		return nil, ErrInvalidAPIKey
	}
	return key, nil
}

func (s *apiKeyServiceImpl) Authorize(ctx context.Context, publicID, secret string, requireSecret bool) (*model.APIKey, *RateInfo, error) {
	key, err := s.keys.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, ErrInvalidAPIKey
	}

	if !key.IsActive {
		return nil, nil, ErrKeyDeactivated
	}

	if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
		return nil, nil, ErrKeyExpired
	}

	if requireSecret && secret == "" {
		return nil, nil, ErrInvalidSecret
	}
	if secret != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
			return nil, nil, ErrInvalidSecret
		}
	}

	now := time.Now()
	if now.Sub(key.LastResetAt) > quotaWindow {
		// fresh window; this call is the first consumed unit
		if err := s.keys.ResetUsage(ctx, key.ID, now); err != nil {
			return nil, nil, fmt.Errorf("reset usage: %w", err)
		}
		key.DailyRequests = 1
		key.LastResetAt = now
		return key, &RateInfo{
			Limit:     key.DailyLimit,
			Remaining: key.DailyLimit - 1,
			ResetAt:   now.Add(quotaWindow),
		}, nil
	}

	resetAt := key.LastResetAt.Add(quotaWindow)
	if key.DailyRequests >= key.DailyLimit {
		return nil, nil, &RateLimitError{
			Limit:   key.DailyLimit,
			Tier:    key.Tier,
			ResetAt: resetAt,
		}
	}

	// consume quota before the protected call; a call that fails mid-flight
	// still counts
	if err := s.keys.IncrementUsage(ctx, key.ID, now); err != nil {
		return nil, nil, fmt.Errorf("increment usage: %w", err)
	}
	key.DailyRequests++

	return key, &RateInfo{
		Limit:     key.DailyLimit,
		Remaining: key.DailyLimit - key.DailyRequests,
		ResetAt:   resetAt,
	}, nil
}
