package mongostore

import (
	"context"
	"fmt"

	"workio/internal/shared/model"
	"workio/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// JobStore
// ============================================================================

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	return insertOne(ctx, s.col(ColJobs), job)
}

func (s *Store) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	return findOne[model.Job](ctx, s.col(ColJobs), byID(id))
}

// GetJobOwned 按 {_id, company_id} 谓词查询职位
// 不存在或不属于该招聘者时返回 (nil, nil)
func (s *Store) GetJobOwned(ctx context.Context, id, companyID string) (*model.Job, error) {
	return findOne[model.Job](ctx, s.col(ColJobs), byOwner(id, "company_id", companyID))
}

// ListVisibleJobs 公开职位列表，按发布时间倒序，联招聘者公开信息
func (s *Store) ListVisibleJobs(ctx context.Context) ([]*model.JobWithCompany, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	jobs, err := findMany[model.Job](ctx, s.col(ColJobs), bson.D{{Key: "visible", Value: true}}, opts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.CompanyID)
	}
	companies, err := s.listUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*model.JobWithCompany, 0, len(jobs))
	for _, j := range jobs {
		entry := &model.JobWithCompany{Job: *j}
		if c, ok := companies[j.CompanyID]; ok {
			entry.Company = c.Public(false)
		}
		result = append(result, entry)
	}
	return result, nil
}

// ListJobsByCompany 招聘者自己的职位（含隐藏），按发布时间倒序，附带实时申请数
func (s *Store) ListJobsByCompany(ctx context.Context, companyID string) ([]*model.JobWithApplicants, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	jobs, err := findMany[model.Job](ctx, s.col(ColJobs), bson.D{{Key: "company_id", Value: companyID}}, opts)
	if err != nil {
		return nil, err
	}

	result := make([]*model.JobWithApplicants, 0, len(jobs))
	for _, j := range jobs {
		count, err := s.col(ColApplications).CountDocuments(ctx, bson.D{{Key: "job_id", Value: j.ID}})
		if err != nil {
			return nil, fmt.Errorf("count applications for job %s: %w", j.ID, err)
		}
		result = append(result, &model.JobWithApplicants{Job: *j, Applicants: count})
	}
	return result, nil
}

// UpdateJob 写回合并后的职位（谓词含所有者，未命中返回 ErrNotFound）
// company_id 与 date 不在更新集内，保持不可变
func (s *Store) UpdateJob(ctx context.Context, job *model.Job) error {
	return updateFields(ctx, s.col(ColJobs), byOwner(job.ID, "company_id", job.CompanyID), bson.D{
		{Key: "title", Value: job.Title},
		{Key: "location", Value: job.Location},
		{Key: "level", Value: job.Level},
		{Key: "description", Value: job.Description},
		{Key: "salary", Value: job.Salary},
		{Key: "category", Value: job.Category},
		{Key: "visible", Value: job.Visible},
	})
}

// DeleteJobCascade 删除职位及其全部申请
//
// 两步删除包在一个 MongoDB 事务里：不会出现职位已删而申请残留的状态。
// 所有权谓词在事务内校验，未命中整体回滚并返回 ErrNotFound。
func (s *Store) DeleteJobCascade(ctx context.Context, jobID, companyID string) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		res, err := s.col(ColJobs).DeleteOne(ctx, byOwner(jobID, "company_id", companyID))
		if err != nil {
			return nil, wrapError(err)
		}
		if res.DeletedCount == 0 {
			return nil, storage.ErrNotFound
		}
		if _, err := s.col(ColApplications).DeleteMany(ctx, bson.D{{Key: "job_id", Value: jobID}}); err != nil {
			return nil, wrapError(err)
		}
		return nil, nil
	})
	return err
}
