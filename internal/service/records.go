package service

import (
	"bytes"
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

// ============================================
// 设计围岩（sjwy）
// ============================================

func (a *API) ListRockGrades(ctx context.Context, q ListQuery) (domain.Page[domain.RockGradeRecord], error) {
	raw, err := a.client.Do(ctx, http.MethodGet, "/sjwy", nil, request.WithParams(q.values()))
	if err != nil {
		return domain.Page[domain.RockGradeRecord]{}, err
	}
	page, err := decodePage[domain.RockGradeDTO](raw)
	if err != nil {
		return domain.Page[domain.RockGradeRecord]{}, err
	}
	return domain.Page[domain.RockGradeRecord]{
		Records: slice.Map(page.Records, func(idx int, src domain.RockGradeDTO) domain.RockGradeRecord {
			return src.ToRecord()
		}),
		Total: page.Total,
	}, nil
}

// CreateRockGrade 返回后端生成的主键（后端未返回时为空）
func (a *API) CreateRockGrade(ctx context.Context, dto domain.RockGradeDTO) (domain.ID, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}
	raw, err := a.client.Do(ctx, http.MethodPost, "/sjwy", dto)
	if err != nil {
		return "", err
	}
	a.success(ctx, msgCreated)
	return a.createdID(raw, "sjwydjPk"), nil
}

// UpdateRockGrade 整条替换
func (a *API) UpdateRockGrade(ctx context.Context, dto domain.RockGradeDTO) error {
	if dto.SjwydjPk == "" {
		return fmt.Errorf("update rock grade: %w", domain.ErrMissingPrimaryKey)
	}
	if err := dto.Validate(); err != nil {
		return err
	}
	if _, err := a.client.Do(ctx, http.MethodPut, "/sjwy/"+url.PathEscape(dto.SjwydjPk.String()), dto); err != nil {
		return err
	}
	a.success(ctx, msgUpdated)
	return nil
}

func (a *API) DeleteRockGrade(ctx context.Context, id domain.ID) error {
	return a.delete(ctx, "/sjwy/"+url.PathEscape(id.String()))
}

// ============================================
// 设计地质（sjdz）
// ============================================

func (a *API) ListGeology(ctx context.Context, q ListQuery) (domain.Page[domain.GeologyRecord], error) {
	raw, err := a.client.Do(ctx, http.MethodGet, "/sjdz", nil, request.WithParams(q.values()))
	if err != nil {
		return domain.Page[domain.GeologyRecord]{}, err
	}
	page, err := decodePage[domain.GeologyDTO](raw)
	if err != nil {
		return domain.Page[domain.GeologyRecord]{}, err
	}
	return domain.Page[domain.GeologyRecord]{
		Records: slice.Map(page.Records, func(idx int, src domain.GeologyDTO) domain.GeologyRecord {
			return src.ToRecord()
		}),
		Total: page.Total,
	}, nil
}

func (a *API) CreateGeology(ctx context.Context, dto domain.GeologyDTO) (domain.ID, error) {
	if err := validateGeology(dto); err != nil {
		return "", err
	}
	raw, err := a.client.Do(ctx, http.MethodPost, "/sjdz", dto)
	if err != nil {
		return "", err
	}
	a.success(ctx, msgCreated)
	return a.createdID(raw, "sjdzPk"), nil
}

func (a *API) UpdateGeology(ctx context.Context, dto domain.GeologyDTO) error {
	if dto.SjdzPk == "" {
		return fmt.Errorf("update geology: %w", domain.ErrMissingPrimaryKey)
	}
	if err := validateGeology(dto); err != nil {
		return err
	}
	if _, err := a.client.Do(ctx, http.MethodPut, "/sjdz/"+url.PathEscape(dto.SjdzPk.String()), dto); err != nil {
		return err
	}
	a.success(ctx, msgUpdated)
	return nil
}

func (a *API) DeleteGeology(ctx context.Context, id domain.ID) error {
	return a.delete(ctx, "/sjdz/"+url.PathEscape(id.String()))
}

func validateGeology(dto domain.GeologyDTO) error {
	if !domain.GeologyMethod(dto.Method).Valid() {
		return fmt.Errorf("invalid geology method: %d", dto.Method)
	}
	if !domain.GeologySeverity(dto.Dzxxfj).Valid() {
		return fmt.Errorf("invalid geology severity: %d", dto.Dzxxfj)
	}
	return nil
}

// ============================================
// 预报设计
// ============================================

func (a *API) ListDesigns(ctx context.Context, siteID domain.ID) ([]domain.ForecastDesign, error) {
	q := ListQuery{SiteID: siteID}
	raw, err := a.client.Do(ctx, http.MethodGet, "/forecast/designs", nil, request.WithParams(q.values()))
	if err != nil {
		return nil, err
	}
	return decodeList[domain.ForecastDesign](raw)
}

func (a *API) GetDesign(ctx context.Context, id domain.ID) (domain.ForecastDesign, error) {
	return request.Get[domain.ForecastDesign](ctx, a.client, "/forecast/designs/"+url.PathEscape(id.String()))
}

func (a *API) CreateDesign(ctx context.Context, d domain.ForecastDesign) (domain.ID, error) {
	raw, err := a.client.Do(ctx, http.MethodPost, "/forecast/designs", d)
	if err != nil {
		return "", err
	}
	a.success(ctx, msgCreated)
	return a.createdID(raw, "ybPk"), nil
}

func (a *API) UpdateDesign(ctx context.Context, d domain.ForecastDesign) error {
	if d.YbPk == "" {
		return fmt.Errorf("update design: %w", domain.ErrMissingPrimaryKey)
	}
	if _, err := a.client.Do(ctx, http.MethodPut, "/forecast/designs/"+url.PathEscape(d.YbPk.String()), d); err != nil {
		return err
	}
	a.success(ctx, msgUpdated)
	return nil
}

func (a *API) DeleteDesign(ctx context.Context, id domain.ID) error {
	return a.delete(ctx, "/forecast/designs/"+url.PathEscape(id.String()))
}

// ============================================
// 综合结论（sjyb）
// ============================================

func (a *API) ListConclusions(ctx context.Context, userID string, page, pageSize int) (domain.Page[domain.Conclusion], error) {
	q := ListQuery{Page: page, PageSize: pageSize}.values()
	q.Set("userid", userID)
	raw, err := a.client.Do(ctx, http.MethodGet, "/sjyb/list", nil, request.WithParams(q))
	if err != nil {
		return domain.Page[domain.Conclusion]{}, err
	}
	return decodePage[domain.Conclusion](raw)
}

// ============================================
// 导出
// ============================================

// ExportURL 设计围岩导出地址，由浏览器直接打开下载
func (a *API) ExportURL(startDate, endDate string, siteID domain.ID) string {
	q := url.Values{}
	q.Set("startdate", startDate)
	q.Set("enddate", endDate)
	q.Set("siteID", siteID.String())
	return a.baseURL + "/v1/platform/download/sjwy?" + q.Encode()
}

// createdID 新增接口的返回：完整记录（取主键字段）或直接返回主键
// 解析不出主键时只记日志，新增本身已经成功
func (a *API) createdID(raw []byte, key string) domain.ID {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return ""
	}
	if payload[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			a.logger.Warn("failed to decode create response", zap.Error(err))
			return ""
		}
		b, ok := fields[key]
		if !ok {
			return ""
		}
		payload = b
	}
	var id domain.ID
	if err := json.Unmarshal(payload, &id); err != nil {
		a.logger.Warn("create response has no usable id", zap.String("key", key), zap.Error(err))
		return ""
	}
	return id
}

func (a *API) delete(ctx context.Context, path string) error {
	if _, err := a.client.Do(ctx, http.MethodDelete, path, nil); err != nil {
		return err
	}
	a.success(ctx, msgDeleted)
	return nil
}
