package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/request"

	"github.com/ecodeclub/ekit/slice"
	"go.uber.org/zap"
)

// ListForecasts 某工点某预报方法的全部记录
// 无法解析主键的记录记日志后跳过，不影响其余记录
func (a *API) ListForecasts(ctx context.Context, v domain.ForecastVariant, siteID domain.ID, opts ...request.Option) ([]domain.ForecastRecord, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownVariant, int(v))
	}
	opts = append(opts, request.WithQuery("siteId", siteID.String()))
	raw, err := a.client.Do(ctx, http.MethodGet, "/"+v.Resource()+"/list", nil, opts...)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[json.RawMessage](raw)
	if err != nil {
		return nil, err
	}
	return slice.FilterMap(items, func(idx int, src json.RawMessage) (domain.ForecastRecord, bool) {
		rec, err := domain.DecodeForecast(v, src)
		if err != nil {
			a.logger.Warn("skip undecodable forecast record",
				zap.String("variant", v.String()),
				zap.String("site_id", siteID.String()),
				zap.Int("index", idx),
				zap.Error(err),
			)
			return domain.ForecastRecord{}, false
		}
		return rec, true
	}), nil
}

func (a *API) DeleteForecast(ctx context.Context, rec domain.ForecastRecord) error {
	if err := rec.Check(domain.ActionDelete); err != nil {
		return err
	}
	return a.delete(ctx, forecastPath(rec))
}

// CopyForecast 复制一条物探记录（仅物探法支持）
func (a *API) CopyForecast(ctx context.Context, rec domain.ForecastRecord) error {
	if err := rec.Check(domain.ActionCopy); err != nil {
		return err
	}
	if _, err := a.client.Do(ctx, http.MethodPost, forecastPath(rec)+"/copy", nil); err != nil {
		return err
	}
	a.success(ctx, msgCopied)
	return nil
}

// Transition 上传 / 撤回。后端成功后才返回新状态，失败时原记录不变
func (a *API) Transition(ctx context.Context, rec domain.ForecastRecord, action domain.Action) (domain.ForecastRecord, error) {
	var msg string
	switch action {
	case domain.ActionUpload:
		msg = msgUploaded
	case domain.ActionWithdraw:
		msg = msgWithdrawn
	default:
		return rec, fmt.Errorf("%w: %s is not a state transition", domain.ErrInvalidTransition, action)
	}
	if err := rec.Check(action); err != nil {
		return rec, err
	}
	if _, err := a.client.Do(ctx, http.MethodPost, forecastPath(rec)+"/"+string(action), nil); err != nil {
		return rec, err
	}
	next, err := rec.Apply(action)
	if err != nil {
		return rec, err
	}
	a.success(ctx, msg)
	return next, nil
}

func forecastPath(rec domain.ForecastRecord) string {
	return "/" + rec.Variant.Resource() + "/" + url.PathEscape(rec.PK.String())
}
