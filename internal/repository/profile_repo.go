package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/mbeoliero/relay/pkg/constant"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProfileRepo is the repository for profile reads. Profiles change
// rarely, so lookups go through a redis cache with a short TTL.
type ProfileRepo struct {
	db       *gorm.DB
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewProfileRepo creates a new ProfileRepo
func NewProfileRepo(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *ProfileRepo {
	return &ProfileRepo{db: db, rdb: rdb, cacheTTL: cacheTTL}
}

// GetById gets a profile by user id
func (r *ProfileRepo) GetById(ctx context.Context, userId string) (*entity.Profile, error) {
	if p := r.cacheGet(ctx, userId); p != nil {
		return p, nil
	}

	var profile entity.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", userId).
		First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	r.cachePut(ctx, &profile)
	return &profile, nil
}

// GetByIds gets profiles for a set of user ids, keyed by id. Missing
// rows are simply absent from the result.
func (r *ProfileRepo) GetByIds(ctx context.Context, userIds []string) (map[string]*entity.Profile, error) {
	result := make(map[string]*entity.Profile, len(userIds))
	missing := make([]string, 0, len(userIds))

	for _, id := range userIds {
		if p := r.cacheGet(ctx, id); p != nil {
			result[id] = p
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	var profiles []*entity.Profile
	err := r.db.WithContext(ctx).
		Where("id IN ?", missing).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		result[p.Id] = p
		r.cachePut(ctx, p)
	}

	return result, nil
}

// cacheKey builds the redis key for a profile
func (r *ProfileRepo) cacheKey(userId string) string {
	return fmt.Sprintf(constant.RedisKeyProfile(), userId)
}

// cacheGet reads a profile from the cache, nil on miss or error
func (r *ProfileRepo) cacheGet(ctx context.Context, userId string) *entity.Profile {
	data, err := r.rdb.Get(ctx, r.cacheKey(userId)).Bytes()
	if err != nil {
		return nil
	}

	var profile entity.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		log.CtxWarn(ctx, "decode cached profile failed: user_id=%s, error=%v", userId, err)
		return nil
	}
	return &profile
}

// cachePut writes a profile to the cache, best effort
func (r *ProfileRepo) cachePut(ctx context.Context, profile *entity.Profile) {
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.cacheKey(profile.Id), data, r.cacheTTL).Err(); err != nil {
		log.CtxDebug(ctx, "cache profile failed: user_id=%s, error=%v", profile.Id, err)
	}
}
