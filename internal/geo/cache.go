package geo

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"referendum-cunli/internal/logger"
)

// 快照键按图资路径与修改时间区分，图资更新后旧快照自然失效
const snapshotKeyPrefix = "refgeo:index:"

const snapshotTTL = 24 * time.Hour

// Load：建立村里索引，可选经 Redis 快照加速
// 背景：图资文件很大，解析一次后把名称索引缓存，后续运行（补映射重跑是常态）直接取快照。
// 约束：rc 为 nil 或缓存不可用时直接解析文件，两条路径结果一致
func Load(ctx context.Context, path string, rc *redis.Client) (*Index, error) {
	if rc == nil {
		return ParseFile(path)
	}
	key, err := snapshotKey(path)
	if err != nil {
		return nil, err
	}
	if b, err := rc.Get(ctx, key).Bytes(); err == nil {
		var m map[string]string
		if err := json.Unmarshal(b, &m); err == nil && len(m) > 0 {
			logger.L().Debug("geo_snapshot_hit", "key", key, "entries", len(m))
			return FromMap(m), nil
		}
	}
	logger.L().Debug("geo_snapshot_miss", "key", key)
	idx, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(idx.byKey); err == nil {
		if err := rc.Set(ctx, key, b, snapshotTTL).Err(); err != nil {
			logger.L().Warn("geo_snapshot_store_error", "err", err)
		}
	}
	return idx, nil
}

func snapshotKey(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return snapshotKeyPrefix + path + ":" + strconv.FormatInt(st.ModTime().Unix(), 10), nil
}
