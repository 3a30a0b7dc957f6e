package kvstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"routine-desk/server/internal/repository"
)

// Gorm 基于 PostgreSQL kv_entries 表的存储
type Gorm struct {
	repo repository.KVRepository
}

// NewGorm 创建 PostgreSQL 存储
func NewGorm(repo repository.KVRepository) *Gorm {
	return &Gorm{repo: repo}
}

func (g *Gorm) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := g.repo.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (g *Gorm) Set(ctx context.Context, key, value string) error {
	return g.repo.Upsert(ctx, key, value)
}

func (g *Gorm) Remove(ctx context.Context, key string) error {
	return g.repo.Delete(ctx, key)
}
