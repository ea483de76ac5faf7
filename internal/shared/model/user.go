package model

import "time"

// UserType 用户类型
// 求职者与招聘者共用同一用户集合，通过 user_type 区分
type UserType string

const (
	UserTypeCandidate UserType = "candidate"
	UserTypeRecruiter UserType = "recruiter"
)

// Valid 检查用户类型是否在允许的集合内
func (t UserType) Valid() bool {
	return t == UserTypeCandidate || t == UserTypeRecruiter
}

// User 用户
//
// user_type 创建后不可变更；resume 仅求职者使用（招聘者该字段始终为空，
// omitempty 保证不落库）。
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"` // never expose in JSON
	Image        string    `json:"image" bson:"image"`
	UserType     UserType  `json:"userType" bson:"user_type"`
	Resume       string    `json:"resume,omitempty" bson:"resume,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// PublicUser 用户公开信息（联表展示用，不含密码哈希）
// Resume 仅在招聘者审阅申请人时填充
type PublicUser struct {
	ID     string `json:"id" bson:"_id"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email" bson:"email"`
	Image  string `json:"image" bson:"image"`
	Resume string `json:"resume,omitempty" bson:"resume,omitempty"`
}

// Public 返回用户的公开投影
// withResume 控制是否携带简历链接（招聘者审阅申请时需要）
func (u *User) Public(withResume bool) *PublicUser {
	p := &PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Image: u.Image,
	}
	if withResume {
		p.Resume = u.Resume
	}
	return p
}
