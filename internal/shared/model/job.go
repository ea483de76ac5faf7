package model

import "time"

// Job 职位
//
// CompanyID 为发布该职位的招聘者，创建后不可变更；
// Visible 控制是否出现在公开列表（隐藏的职位仍可被所有者管理）。
type Job struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Location    string    `json:"location" bson:"location"`
	Level       string    `json:"level" bson:"level"`
	Description string    `json:"description" bson:"description"`
	Salary      int       `json:"salary" bson:"salary"`
	Category    string    `json:"category" bson:"category"`
	CompanyID   string    `json:"companyId" bson:"company_id"`
	Visible     bool      `json:"visible" bson:"visible"`
	Date        time.Time `json:"date" bson:"date"`
}

// JobUpdate 职位部分更新
//
// 字符串零值和 Salary 零值表示"未提供，保留旧值"；
// Visible 用指针区分"未提供"与"显式设为 false"。
type JobUpdate struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Salary      int    `json:"salary"`
	Category    string `json:"category"`
	Visible     *bool  `json:"visible"`
}

// Merge 将更新合并到职位上（宽松合并：零值保留旧值）
func (u *JobUpdate) Merge(job *Job) {
	if u.Title != "" {
		job.Title = u.Title
	}
	if u.Location != "" {
		job.Location = u.Location
	}
	if u.Level != "" {
		job.Level = u.Level
	}
	if u.Description != "" {
		job.Description = u.Description
	}
	if u.Salary != 0 {
		job.Salary = u.Salary
	}
	if u.Category != "" {
		job.Category = u.Category
	}
	if u.Visible != nil {
		job.Visible = *u.Visible
	}
}

// JobWithCompany 公开列表条目：职位 + 招聘者公开信息
type JobWithCompany struct {
	Job     `bson:",inline"`
	Company *PublicUser `json:"company" bson:"company"`
}

// JobWithApplicants 招聘者自己的职位 + 当前申请数
type JobWithApplicants struct {
	Job        `bson:",inline"`
	Applicants int64 `json:"applicants" bson:"applicants"`
}

// JobSnapshot 职位摘要（申请联表展示用）
type JobSnapshot struct {
	ID       string    `json:"id" bson:"_id"`
	Title    string    `json:"title" bson:"title"`
	Location string    `json:"location" bson:"location"`
	Salary   int       `json:"salary" bson:"salary"`
	Date     time.Time `json:"date" bson:"date"`
}

// Snapshot 返回职位摘要
func (j *Job) Snapshot() *JobSnapshot {
	return &JobSnapshot{
		ID:       j.ID,
		Title:    j.Title,
		Location: j.Location,
		Salary:   j.Salary,
		Date:     j.Date,
	}
}
