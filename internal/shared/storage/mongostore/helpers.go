package mongostore

import (
	"context"
	"errors"

	"workio/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// wrapError 将 MongoDB 错误转换为领域错误
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

// findOne 查找单个文档并解码到 result
// 文档不存在时返回 (nil, nil)，调用方按业务语义决定是否视为 NotFound
func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	var result T
	err := col.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, wrapError(err)
	}
	return &result, nil
}

// findMany 查找多个文档
func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	var results []*T
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if results == nil {
		results = []*T{}
	}
	return results, nil
}

// insertOne 插入单个文档
func insertOne(ctx context.Context, col *mongo.Collection, doc interface{}) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

// deleteOne 按过滤器删除单个文档
// 过滤器未命中（不存在或不属于请求方）时返回 ErrNotFound
func deleteOne(ctx context.Context, col *mongo.Collection, filter bson.D) error {
	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// updateFields 按过滤器更新指定字段
// 过滤器未命中时返回 ErrNotFound
func updateFields(ctx context.Context, col *mongo.Collection, filter, update bson.D) error {
	res, err := col.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: update}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// byID 构造 _id 过滤器
func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// byOwner 构造 {_id, <ownerField>} 过滤器
//
// 所有权检查折叠进存在性检查：同一个谓词既判存在又判归属，
// "存在但不属于你"与"不存在"对外不可区分。
func byOwner(id, ownerField, ownerID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: ownerField, Value: ownerID}}
}
