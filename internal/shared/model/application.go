package model

import "time"

// ApplicationStatus 申请状态
// Pending 为初始状态，Accepted/Rejected 由招聘者设置
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "Pending"
	StatusAccepted ApplicationStatus = "Accepted"
	StatusRejected ApplicationStatus = "Rejected"
)

// Valid 检查状态值是否合法
func (s ApplicationStatus) Valid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Decided 是否已被招聘者裁定（非 Pending）
func (s ApplicationStatus) Decided() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Application 职位申请：求职者与职位之间的关联记录
//
// CompanyID 从职位冗余拷贝而来，用于招聘者侧的授权查询；
// (UserID, JobID) 在存储层有唯一索引，同一求职者对同一职位至多一条申请。
type Application struct {
	ID        string            `json:"id" bson:"_id"`
	UserID    string            `json:"userId" bson:"user_id"`
	JobID     string            `json:"jobId" bson:"job_id"`
	CompanyID string            `json:"companyId" bson:"company_id"`
	Status    ApplicationStatus `json:"status" bson:"status"`
	Date      time.Time         `json:"date" bson:"date"`
}

// ApplicationDetail 申请联表视图
//
// 求职者视角填充 Company（招聘者公开信息），
// 招聘者视角填充 User（申请人公开信息，含简历链接）。
type ApplicationDetail struct {
	Application `bson:",inline"`
	Job         *JobSnapshot `json:"job,omitempty" bson:"job,omitempty"`
	Company     *PublicUser  `json:"company,omitempty" bson:"company,omitempty"`
	User        *PublicUser  `json:"user,omitempty" bson:"user,omitempty"`
}
