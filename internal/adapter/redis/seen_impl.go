package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/harvest-service/pkg/utils"
)

const seenKeyPrefix = "harvest:seen:"

// SeenRepoImpl implements repository.SeenCache with one expiring key per
// ingested item.
type SeenRepoImpl struct {
	client *redis.Client
}

func NewSeenRepo(client *redis.Client) *SeenRepoImpl {
	return &SeenRepoImpl{client: client}
}

func (r *SeenRepoImpl) generateKey(sourceID, externalID string) string {
	return fmt.Sprintf("%s%s:%s", seenKeyPrefix, sourceID, utils.HashURL(externalID))
}

// MarkSeen sets the key with an expiry in a single SET.
func (r *SeenRepoImpl) MarkSeen(ctx context.Context, sourceID, externalID string, expiry time.Duration) error {
	return r.client.Set(ctx, r.generateKey(sourceID, externalID), "1", expiry).Err()
}

func (r *SeenRepoImpl) IsSeen(ctx context.Context, sourceID, externalID string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(sourceID, externalID)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
