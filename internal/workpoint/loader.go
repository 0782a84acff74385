package workpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/keyedcache"
	"geo-forecast/internal/request"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownKind    = errors.New("unknown dataset kind")
	ErrNotLoaded      = errors.New("work point section not loaded")
	ErrRecordNotFound = errors.New("forecast record not found")
)

// Kind 工点展开后加载的数据集
type Kind string

const KindDetection Kind = "detection"

// Kinds 探测曲线 + 五种预报方法
var Kinds = func() []Kind {
	out := []Kind{KindDetection}
	for _, v := range domain.Variants {
		out = append(out, KindOf(v))
	}
	return out
}()

func KindOf(v domain.ForecastVariant) Kind { return Kind(v.String()) }

// Variant 预报方法对应的类型，探测曲线返回 false
func (k Kind) Variant() (domain.ForecastVariant, bool) {
	if k == KindDetection {
		return 0, false
	}
	v, err := domain.ParseVariant(string(k))
	if err != nil {
		return 0, false
	}
	return v, true
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	if v, err := domain.ParseVariant(s); err == nil {
		return KindOf(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Source 上游数据源（service.API 实现）
type Source interface {
	SiteDetectionChart(ctx context.Context, siteID domain.ID, opts ...request.Option) ([]domain.DetectionSeries, error)
	ListForecasts(ctx context.Context, v domain.ForecastVariant, siteID domain.ID, opts ...request.Option) ([]domain.ForecastRecord, error)
	Transition(ctx context.Context, rec domain.ForecastRecord, action domain.Action) (domain.ForecastRecord, error)
	CopyForecast(ctx context.Context, rec domain.ForecastRecord) error
	DeleteForecast(ctx context.Context, rec domain.ForecastRecord) error
}

// Loader 按工点缓存各数据集
//
// 首次展开时并发加载所有未缓存的数据集，各数据集、各工点互不阻塞；
// 再次展开不发请求。只有 Refresh 会清除并重新加载。
type Loader struct {
	source Source
	logger *zap.Logger

	detection *keyedcache.Cache[domain.ID, []domain.DetectionSeries]
	forecasts map[domain.ForecastVariant]*keyedcache.Cache[domain.ID, []domain.ForecastRecord]

	mu       sync.Mutex
	expanded map[domain.ID]bool
}

func NewLoader(source Source, logger *zap.Logger) *Loader {
	l := &Loader{
		source:    source,
		logger:    logger,
		detection: keyedcache.New[domain.ID, []domain.DetectionSeries](string(KindDetection), logger),
		forecasts: make(map[domain.ForecastVariant]*keyedcache.Cache[domain.ID, []domain.ForecastRecord]),
		expanded:  make(map[domain.ID]bool),
	}
	for _, v := range domain.Variants {
		l.forecasts[v] = keyedcache.New[domain.ID, []domain.ForecastRecord](v.String(), logger)
	}
	return l
}

// Expand 展开工点并加载尚未缓存的数据集
// 单个数据集失败只记日志，不影响其他数据集，也不作为错误返回
func (l *Loader) Expand(ctx context.Context, id domain.ID) error {
	l.mu.Lock()
	l.expanded[id] = true
	l.mu.Unlock()

	var g errgroup.Group
	for _, k := range Kinds {
		k := k
		g.Go(func() error {
			return l.load(ctx, id, k, false)
		})
	}
	return g.Wait()
}

// Collapse 只改变展开状态，缓存保留
func (l *Loader) Collapse(id domain.ID) {
	l.mu.Lock()
	l.expanded[id] = false
	l.mu.Unlock()
}

func (l *Loader) Expanded(id domain.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expanded[id]
}

// Refresh 清除该工点指定数据集（缺省为全部）并重新加载
func (l *Loader) Refresh(ctx context.Context, id domain.ID, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	var g errgroup.Group
	for _, k := range kinds {
		k := k
		g.Go(func() error {
			return l.load(ctx, id, k, true)
		})
	}
	return g.Wait()
}

func (l *Loader) load(ctx context.Context, id domain.ID, k Kind, refresh bool) error {
	var (
		entryErr error
		err      error
	)
	if k == KindDetection {
		fetch := func(ctx context.Context) ([]domain.DetectionSeries, error) {
			return l.source.SiteDetectionChart(ctx, id, request.Silent())
		}
		var e keyedcache.Entry[[]domain.DetectionSeries]
		if refresh {
			e, err = l.detection.Refresh(ctx, id, fetch)
		} else {
			e, err = l.detection.Ensure(ctx, id, fetch)
		}
		entryErr = e.Err
	} else {
		v, ok := k.Variant()
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
		fetch := func(ctx context.Context) ([]domain.ForecastRecord, error) {
			return l.source.ListForecasts(ctx, v, id, request.Silent())
		}
		var e keyedcache.Entry[[]domain.ForecastRecord]
		if refresh {
			e, err = l.forecasts[v].Refresh(ctx, id, fetch)
		} else {
			e, err = l.forecasts[v].Ensure(ctx, id, fetch)
		}
		entryErr = e.Err
	}
	if err != nil {
		return err
	}
	if entryErr != nil {
		l.logger.Warn("work point dataset failed to load",
			zap.String("site_id", id.String()),
			zap.String("kind", string(k)),
			zap.Error(entryErr),
		)
	}
	return nil
}

// Close 页面卸载：丢弃进行中的结果并清空缓存
func (l *Loader) Close() {
	l.detection.Close()
	for _, c := range l.forecasts {
		c.Close()
	}
	l.mu.Lock()
	l.expanded = make(map[domain.ID]bool)
	l.mu.Unlock()
}

// Perform 对缓存中的记录执行操作。后端成功后才更新本地副本
func (l *Loader) Perform(ctx context.Context, id domain.ID, v domain.ForecastVariant, pk domain.ID, action domain.Action) (domain.ForecastRecord, error) {
	cache, ok := l.forecasts[v]
	if !ok {
		return domain.ForecastRecord{}, fmt.Errorf("%w: %d", domain.ErrUnknownVariant, int(v))
	}
	rec, err := l.find(cache, id, pk)
	if err != nil {
		return domain.ForecastRecord{}, err
	}

	switch action {
	case domain.ActionUpload, domain.ActionWithdraw:
		next, err := l.source.Transition(ctx, rec, action)
		if err != nil {
			return rec, err
		}
		cache.Update(id, func(list []domain.ForecastRecord) []domain.ForecastRecord {
			return replaceRecord(list, next)
		})
		return next, nil
	case domain.ActionDelete:
		if err := l.source.DeleteForecast(ctx, rec); err != nil {
			return rec, err
		}
		cache.Update(id, func(list []domain.ForecastRecord) []domain.ForecastRecord {
			return removeRecord(list, rec.PK)
		})
		return rec, nil
	case domain.ActionCopy:
		if err := l.source.CopyForecast(ctx, rec); err != nil {
			return rec, err
		}
		// 副本主键由后端生成，重新拉取该方法列表
		return rec, l.Refresh(ctx, id, KindOf(v))
	}
	return rec, fmt.Errorf("%s: %w", action, domain.ErrUnsupportedAction)
}

func (l *Loader) find(cache *keyedcache.Cache[domain.ID, []domain.ForecastRecord], id, pk domain.ID) (domain.ForecastRecord, error) {
	e, ok := cache.Get(id)
	if !ok || !e.Loaded {
		return domain.ForecastRecord{}, fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}
	for _, r := range e.Data {
		if r.PK == pk {
			return r, nil
		}
	}
	return domain.ForecastRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, pk)
}

func replaceRecord(list []domain.ForecastRecord, rec domain.ForecastRecord) []domain.ForecastRecord {
	out := make([]domain.ForecastRecord, len(list))
	for i, r := range list {
		if r.PK == rec.PK {
			r = rec
		}
		out[i] = r
	}
	return out
}

func removeRecord(list []domain.ForecastRecord, pk domain.ID) []domain.ForecastRecord {
	out := make([]domain.ForecastRecord, 0, len(list))
	for _, r := range list {
		if r.PK != pk {
			out = append(out, r)
		}
	}
	return out
}
