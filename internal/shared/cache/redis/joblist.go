// Package redis 公开职位列表缓存操作
package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"workio/internal/shared/cache"
	"workio/internal/shared/model"
)

// GetJobList 读取缓存的公开职位列表
// 未命中返回 (nil, nil)
func (s *Store) GetJobList(ctx context.Context) ([]*model.JobWithCompany, error) {
	data, err := s.client.Get(ctx, cache.KeyJobList).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var jobs []*model.JobWithCompany
	if err := json.Unmarshal([]byte(data), &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// SetJobList 写入公开职位列表缓存
func (s *Store) SetJobList(ctx context.Context, jobs []*model.JobWithCompany) error {
	data, err := json.Marshal(jobs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.KeyJobList, data, cache.TTLJobList).Err()
}

// InvalidateJobList 删除公开职位列表缓存（职位任何变更后调用）
func (s *Store) InvalidateJobList(ctx context.Context) error {
	return s.client.Del(ctx, cache.KeyJobList).Err()
}
