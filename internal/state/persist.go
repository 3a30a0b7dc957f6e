package state

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"routine-desk/server/internal/kvstore"
	"routine-desk/server/pkg/metrics"
)

// Deps 状态容器的公共依赖
type Deps struct {
	Store   kvstore.Store
	Clock   Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Store == nil {
		d.Store = kvstore.NewMemory()
	}
	if d.Clock == nil {
		d.Clock = SystemClock(nil)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// persister 持久化失败只记录日志与指标，从不向调用方返回错误
type persister struct {
	kv      kvstore.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newPersister(d Deps) persister {
	return persister{kv: d.Store, logger: d.Logger, metrics: d.Metrics}
}

func (p persister) load(ctx context.Context, key string) (string, bool) {
	v, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		p.logger.Warn("读取持久化状态失败", zap.String("key", key), zap.Error(err))
		p.metrics.PersistFailed(key, "get")
		return "", false
	}
	return v, ok
}

func (p persister) saveRaw(ctx context.Context, key, value string) {
	if err := p.kv.Set(ctx, key, value); err != nil {
		p.logger.Warn("写入持久化状态失败", zap.String("key", key), zap.Error(err))
		p.metrics.PersistFailed(key, "set")
	}
}

func (p persister) saveJSON(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("序列化状态失败", zap.String("key", key), zap.Error(err))
		return
	}
	p.saveRaw(ctx, key, string(b))
}

func (p persister) remove(ctx context.Context, key string) {
	if err := p.kv.Remove(ctx, key); err != nil {
		p.logger.Warn("删除持久化状态失败", zap.String("key", key), zap.Error(err))
		p.metrics.PersistFailed(key, "remove")
	}
}
