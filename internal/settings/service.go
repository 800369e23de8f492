package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	"github.com/partnerly/dispatch-backend/pkg/logger"
)

// cache is the slice of the redis client the service needs.
type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Service resolves SLA configuration with partner→global fallback and a
// short-TTL cache. Staleness here only shifts the deadline computed for a
// new assignment; expiry of existing assignments reads the stored deadline.
type Service interface {
	SLATimeoutMinutes(ctx context.Context, partnerID uuid.UUID) int
	SLARecipients(ctx context.Context) []string
}

type service struct {
	repo     Repository
	cache    cache
	cacheTTL time.Duration
	fallback int
	logg     *logger.Logger
}

// NewService builds the settings lookup service.
func NewService(repo Repository, cache cache, cfg config.SLAConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cfg.SettingsCacheTTL,
		fallback: cfg.DefaultTimeoutMinutes,
		logg:     logg,
	}, nil
}

// SLATimeoutMinutes returns the partner's response window in minutes. Lookup
// failures fall back to the configured default rather than blocking an
// assignment.
func (s *service) SLATimeoutMinutes(ctx context.Context, partnerID uuid.UUID) int {
	raw, ok := s.lookup(ctx, partnerID, enums.SettingSLATimeoutMinutes)
	if !ok {
		return s.fallback
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || minutes <= 0 {
		logCtx := s.logg.WithField(ctx, "value", raw)
		s.logg.Warn(logCtx, "invalid sla timeout setting, using default")
		return s.fallback
	}
	return minutes
}

// SLARecipients returns the configured admin notification addresses. The
// stored value is a comma-separated list.
func (s *service) SLARecipients(ctx context.Context) []string {
	raw, ok := s.lookup(ctx, uuid.Nil, enums.SettingSLARecipients)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func (s *service) lookup(ctx context.Context, partnerID uuid.UUID, key enums.SettingKey) (string, bool) {
	cacheKey := ""
	if s.cache != nil {
		scope := "global"
		if partnerID != uuid.Nil {
			scope = partnerID.String()
		}
		cacheKey = s.cache.CacheKey("settings", scope, string(key))
		if value, err := s.cache.Get(ctx, cacheKey); err == nil {
			return value, true
		}
	}

	setting, err := s.resolve(ctx, partnerID, key)
	if err != nil {
		s.logg.Error(ctx, "settings lookup failed", err)
		return "", false
	}
	if setting == nil {
		return "", false
	}

	if s.cache != nil && cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, setting.Value, s.cacheTTL); err != nil {
			s.logg.Warn(ctx, "settings cache write failed")
		}
	}
	return setting.Value, true
}

func (s *service) resolve(ctx context.Context, partnerID uuid.UUID, key enums.SettingKey) (*models.Setting, error) {
	if partnerID != uuid.Nil {
		found, err := s.repo.FindForPartner(ctx, partnerID, key)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return s.repo.FindGlobal(ctx, key)
}
