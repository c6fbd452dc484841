package storage

import (
	"context"
	"encoding/json"
	"errors"

	"flatshare/backend/internal/config"
	"flatshare/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// userSummaryColumns keeps credentials out of every directory query.
var userSummaryColumns = []string{"id", "name", "email", "avatar", "role"}

// GetUserSummaries returns contact-safe summaries keyed by user id. Redis is consulted
// first; misses are loaded from PostgreSQL and written back with UserCacheTTL.
// Unknown ids are simply absent from the result.
func (s *Service) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	ids = uniqueIDs(ids)
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := s.readCachedUsers(ctx, ids, out)
	if len(missing) == 0 {
		return out, nil
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Select(userSummaryColumns).Where("id IN ?", missing).Find(&users).Error; err != nil {
		log.Error().Err(err).Strs("user_ids", missing).Msg("Failed to load users")
		return nil, err
	}

	loaded := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summary := u.Summary()
		out[u.ID] = summary
		loaded = append(loaded, summary)
	}
	s.cacheUsers(ctx, loaded)

	return out, nil
}

// readCachedUsers fills out from Redis and returns the ids it could not find.
// Cache failures are logged and treated as misses.
func (s *Service) readCachedUsers(ctx context.Context, ids []string, out map[string]models.UserSummary) []string {
	if s.Redis == nil {
		return ids
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = config.UserCacheKeyPrefix + id
	}

	vals, err := s.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("User cache read failed")
		return ids
	}

	var missing []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var summary models.UserSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		out[ids[i]] = summary
	}
	return missing
}

func (s *Service) cacheUsers(ctx context.Context, users []models.UserSummary) {
	if s.Redis == nil || len(users) == 0 {
		return
	}

	pipe := s.Redis.Pipeline()
	for _, u := range users {
		raw, err := json.Marshal(u)
		if err != nil {
			continue
		}
		pipe.Set(ctx, config.UserCacheKeyPrefix+u.ID, raw, s.UserCacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("User cache write failed")
	}
}

// GetListing returns (nil, nil) when the listing does not exist.
func (s *Service) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	if !isUUID(id) {
		return nil, nil
	}

	var listing models.Listing
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *Service) GetListings(ctx context.Context, ids []string) (map[string]models.Listing, error) {
	ids = validUUIDs(ids)
	out := make(map[string]models.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var listings []models.Listing
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, err
	}
	for _, l := range listings {
		out[l.ID] = l
	}
	return out, nil
}

// GetRoommateRequest returns (nil, nil) when the request does not exist.
func (s *Service) GetRoommateRequest(ctx context.Context, id string) (*models.RoommateRequest, error) {
	if !isUUID(id) {
		return nil, nil
	}

	var request models.RoommateRequest
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *Service) GetRoommateRequests(ctx context.Context, ids []string) (map[string]models.RoommateRequest, error) {
	ids = validUUIDs(ids)
	out := make(map[string]models.RoommateRequest, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var requests []models.RoommateRequest
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&requests).Error; err != nil {
		return nil, err
	}
	for _, r := range requests {
		out[r.ID] = r
	}
	return out, nil
}

func validUUIDs(ids []string) []string {
	ids = uniqueIDs(ids)
	out := ids[:0]
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
