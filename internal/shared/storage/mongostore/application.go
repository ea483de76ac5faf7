package mongostore

import (
	"context"
	"errors"

	"workio/internal/shared/model"
	"workio/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ApplicationStore
// ============================================================================

// CreateApplication 插入申请
// (user_id, job_id) 唯一索引命中时返回 ErrDuplicate（并发重复提交的权威拦截点）
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	return insertOne(ctx, s.col(ColApplications), app)
}

// HasApplication 是否已存在 (user, job) 申请（处理器快速路径，仅用于更友好的报错）
func (s *Store) HasApplication(ctx context.Context, userID, jobID string) (bool, error) {
	app, err := findOne[model.Application](ctx, s.col(ColApplications), bson.D{
		{Key: "user_id", Value: userID},
		{Key: "job_id", Value: jobID},
	})
	if err != nil {
		return false, err
	}
	return app != nil, nil
}

// GetApplicationOwnedByUser 按 {_id, user_id} 谓词查询申请
func (s *Store) GetApplicationOwnedByUser(ctx context.Context, id, userID string) (*model.Application, error) {
	return findOne[model.Application](ctx, s.col(ColApplications), byOwner(id, "user_id", userID))
}

// GetApplicationOwnedByCompany 按 {_id, company_id} 谓词查询申请
func (s *Store) GetApplicationOwnedByCompany(ctx context.Context, id, companyID string) (*model.Application, error) {
	return findOne[model.Application](ctx, s.col(ColApplications), byOwner(id, "company_id", companyID))
}

// DeleteApplicationPending 撤回申请（谓词含所有者与 Pending 状态）
//
// 状态守卫折叠进删除谓词：只删 Pending 的记录，招聘者并发裁定先写入时
// 本操作观察到 DeletedCount == 0 并返回 ErrNotFound。
// "不存在/不属于你"与"状态已变更"的区分由处理器在删除前的读取完成。
func (s *Store) DeleteApplicationPending(ctx context.Context, id, userID string) error {
	return deleteOne(ctx, s.col(ColApplications), bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
		{Key: "status", Value: model.StatusPending},
	})
}

// UpdateApplicationStatus 更新申请状态并返回更新后的记录
//
// {_id, company_id} 谓词未命中（不存在、不属于该招聘者、或已被求职者
// 并发撤回）时返回 ErrNotFound，绝不在幽灵记录上静默成功。
func (s *Store) UpdateApplicationStatus(ctx context.Context, id, companyID string, status model.ApplicationStatus) (*model.Application, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Application
	err := s.col(ColApplications).FindOneAndUpdate(ctx,
		byOwner(id, "company_id", companyID),
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, wrapError(err)
	}
	return &updated, nil
}

// ListApplicationsByUser 求职者自己的申请，按申请时间倒序
// 联职位摘要与招聘者公开信息
func (s *Store) ListApplicationsByUser(ctx context.Context, userID string) ([]*model.ApplicationDetail, error) {
	apps, err := s.listApplications(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return nil, err
	}
	return s.joinDetails(ctx, apps, false)
}

// ListApplicationsByCompany 招聘者收到的全部申请，按申请时间倒序
// 联申请人公开信息（含简历）与职位摘要
func (s *Store) ListApplicationsByCompany(ctx context.Context, companyID string) ([]*model.ApplicationDetail, error) {
	apps, err := s.listApplications(ctx, bson.D{{Key: "company_id", Value: companyID}})
	if err != nil {
		return nil, err
	}
	return s.joinDetails(ctx, apps, true)
}

// ListApplicationsByJob 指定职位的申请（调用方已完成职位所有权校验）
func (s *Store) ListApplicationsByJob(ctx context.Context, jobID string) ([]*model.ApplicationDetail, error) {
	apps, err := s.listApplications(ctx, bson.D{{Key: "job_id", Value: jobID}})
	if err != nil {
		return nil, err
	}
	return s.joinDetails(ctx, apps, true)
}

func (s *Store) listApplications(ctx context.Context, filter bson.D) ([]*model.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return findMany[model.Application](ctx, s.col(ColApplications), filter, opts)
}

// joinDetails 为申请列表补全联表字段
//
// recruiterView 为招聘者视角：填充申请人信息（含简历）；
// 否则为求职者视角：填充招聘者公开信息。职位摘要两个视角都要。
// 批量 $in 查询替代逐条 populate，列表长度 n 只产生常数次往返。
func (s *Store) joinDetails(ctx context.Context, apps []*model.Application, recruiterView bool) ([]*model.ApplicationDetail, error) {
	jobIDs := make([]string, 0, len(apps))
	userIDs := make([]string, 0, len(apps))
	for _, a := range apps {
		jobIDs = append(jobIDs, a.JobID)
		if recruiterView {
			userIDs = append(userIDs, a.UserID)
		} else {
			userIDs = append(userIDs, a.CompanyID)
		}
	}

	jobs, err := s.listJobsByIDs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.listUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	details := make([]*model.ApplicationDetail, 0, len(apps))
	for _, a := range apps {
		d := &model.ApplicationDetail{Application: *a}
		if j, ok := jobs[a.JobID]; ok {
			d.Job = j.Snapshot()
		}
		if recruiterView {
			if u, ok := users[a.UserID]; ok {
				d.User = u.Public(true)
			}
		} else {
			if c, ok := users[a.CompanyID]; ok {
				d.Company = c.Public(false)
			}
		}
		details = append(details, d)
	}
	return details, nil
}

// listJobsByIDs 批量查询职位（联表展示用）
func (s *Store) listJobsByIDs(ctx context.Context, ids []string) (map[string]*model.Job, error) {
	if len(ids) == 0 {
		return map[string]*model.Job{}, nil
	}
	jobs, err := findMany[model.Job](ctx, s.col(ColJobs), bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
	})
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.Job, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j
	}
	return m, nil
}
