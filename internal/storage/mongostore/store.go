// Package mongostore 实现基于 MongoDB 的 storage.Store。
//
// 使用 mongo-go-driver v2，通过 bson tag 完成 model 的序列化。
// 集合名与索引统一在 ensureIndexes 中维护。
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/masoommulla/project-sub001/internal/storage"
)

// 集合名。
const (
	ColUsers         = "users"
	ColOTPs          = "otps"
	ColMoods         = "moods"
	ColJournals      = "journals"
	ColTodos         = "todos"
	ColStudyPlans    = "study_plans"
	ColAppointments  = "appointments"
	ColTherapists    = "therapists"
	ColResources     = "resources"
	ColConversations = "conversations"
	ColMessages      = "messages"
)

// Store MongoDB 存储。
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore 连接 MongoDB 并创建索引。索引创建失败只记录告警。
func NewStore(uri, dbName string, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		logger.Warn("mongostore: ensure indexes failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col  string
		keys bson.D
		opts *options.IndexOptionsBuilder
	}
	unique := func() *options.IndexOptionsBuilder { return options.Index().SetUnique(true) }

	indexes := []idx{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, unique()},

		// 过期验证码由 TTL 索引兜底清理，janitor 负责及时删除。
		{ColOTPs, bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}}, nil},
		{ColOTPs, bson.D{{Key: "expires_at", Value: 1}}, options.Index().SetExpireAfterSeconds(0)},

		{ColMoods, bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, nil},
		{ColJournals, bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, nil},
		{ColTodos, bson.D{{Key: "user_id", Value: 1}, {Key: "completed", Value: 1}}, nil},
		{ColStudyPlans, bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}, nil},

		{ColAppointments, bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}, nil},
		{ColAppointments, bson.D{{Key: "therapist_id", Value: 1}, {Key: "date", Value: 1}, {Key: "start_time", Value: 1}}, nil},
		// 只有有效预约带 slot_key，稀疏唯一索引保证同一时段只被占用一次。
		{ColAppointments, bson.D{{Key: "slot_key", Value: 1}}, unique().SetSparse(true)},

		{ColTherapists, bson.D{{Key: "user_id", Value: 1}}, nil},
		{ColTherapists, bson.D{{Key: "rating", Value: -1}}, nil},
		{ColResources, bson.D{{Key: "category", Value: 1}}, nil},
		{ColResources, bson.D{{Key: "created_at", Value: -1}}, nil},

		{ColConversations, bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}}, nil},
		{ColMessages, bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}, nil},
	}

	for _, i := range indexes {
		m := mongo.IndexModel{Keys: i.keys}
		if i.opts != nil {
			m.Options = i.opts
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, m); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}
	return nil
}

// wrapError 将 MongoDB 错误转换为存储层错误。
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

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*T, error) {
	var result T
	if err := col.FindOne(ctx, filter, opts...).Decode(&result); err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

// replaceByID 整条覆盖；指针字段为 nil 时对应键会被移除（omitempty）。
func replaceByID(ctx context.Context, col *mongo.Collection, id string, doc any) error {
	res, err := col.ReplaceOne(ctx, byID(id), doc)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func updateByID(ctx context.Context, col *mongo.Collection, id string, update bson.D) error {
	res, err := col.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.DeleteOne(ctx, byID(id))
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, col *mongo.Collection, filter bson.D) (int64, error) {
	res, err := col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}

// findOptions 组装排序与分页。
func findOptions(sort bson.D, p storage.Page) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(sort)
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
	if p.Offset > 0 {
		opts.SetSkip(int64(p.Offset))
	}
	return opts
}

// contains 构造不区分大小写的子串匹配。
func contains(s string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// exactFold 构造不区分大小写的整串匹配，用于数组元素。
func exactFold(s string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func timeRange(from, to *time.Time) bson.D {
	r := bson.D{}
	if from != nil {
		r = append(r, bson.E{Key: "$gte", Value: *from})
	}
	if to != nil {
		r = append(r, bson.E{Key: "$lt", Value: *to})
	}
	return r
}
