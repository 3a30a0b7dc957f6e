package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"routine-desk/server/internal/model"
)

// KVRepository 状态键值对数据访问接口
type KVRepository interface {
	Get(ctx context.Context, key string) (*model.KVEntry, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	ListByPrefix(ctx context.Context, prefix string) ([]model.KVEntry, error)
}

// kvRepo KVRepository 的 GORM 实现
type kvRepo struct {
	db *gorm.DB
}

// NewKVRepo 创建 KVRepository 实例
func NewKVRepo(db *gorm.DB) KVRepository {
	return &kvRepo{db: db}
}

// Get 键不存在时返回 gorm.ErrRecordNotFound
func (r *kvRepo) Get(ctx context.Context, key string) (*model.KVEntry, error) {
	var entry model.KVEntry
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert 按主键插入或覆盖
func (r *kvRepo) Upsert(ctx context.Context, key, value string) error {
	now := time.Now()
	entry := model.KVEntry{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&model.KVEntry{}).Error
}

func (r *kvRepo) ListByPrefix(ctx context.Context, prefix string) ([]model.KVEntry, error) {
	var entries []model.KVEntry
	err := r.db.WithContext(ctx).
		Where("key LIKE ?", escapeLike(prefix)+"%").
		Order("key ASC").
		Find(&entries).Error
	return entries, err
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
