package mongostore

import (
	"context"

	"workio/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), byID(id))
}

func (s *Store) UpdateUserResume(ctx context.Context, id, resumeURL string) error {
	return updateFields(ctx, s.col(ColUsers), byID(id), bson.D{
		{Key: "resume", Value: resumeURL},
	})
}

// listUsersByIDs 批量查询用户（联表展示用）
func (s *Store) listUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	if len(ids) == 0 {
		return map[string]*model.User{}, nil
	}
	users, err := findMany[model.User](ctx, s.col(ColUsers), bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
	})
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m, nil
}
