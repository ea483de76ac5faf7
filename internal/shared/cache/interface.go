// Package cache 缓存层类型与接口定义
package cache

import (
	"context"
	"time"

	"workio/internal/shared/model"
)

// Key 前缀与 TTL
const (
	KeyJobList = "workio:jobs:visible"

	TTLJobList = 30 * time.Second
)

// JobListCache 公开职位列表缓存
//
// 缓存未命中或 Redis 故障都由调用方回落到存储层；
// 任何职位变更（新增/更新/删除）后调用 InvalidateJobList。
type JobListCache interface {
	GetJobList(ctx context.Context) ([]*model.JobWithCompany, error)
	SetJobList(ctx context.Context, jobs []*model.JobWithCompany) error
	InvalidateJobList(ctx context.Context) error
}
