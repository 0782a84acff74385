package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/request"

	"github.com/ecodeclub/ekit/slice"
	"go.uber.org/zap"
)

// 成功提示
const (
	msgCreated   = "Created"
	msgUpdated   = "Updated"
	msgDeleted   = "Deleted"
	msgUploaded  = "Uploaded"
	msgWithdrawn = "Withdrawn"
	msgCopied    = "Copied"
)

// API 上游 REST 接口的类型化封装
type API struct {
	client  *request.Client
	baseURL string
	logger  *zap.Logger
}

// NewAPI baseURL 用于拼接导出下载地址（浏览器直接打开）
func NewAPI(client *request.Client, baseURL string, logger *zap.Logger) *API {
	return &API{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (a *API) success(ctx context.Context, msg string) {
	if n := a.client.Notifier(); n != nil {
		n.Success(ctx, msg)
	}
}

// ============================================
// 登录
// ============================================

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token  string    `json:"token"`
	UserID domain.ID `json:"userId"`
}

func (a *API) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	out, err := request.Post[LoginResult](ctx, a.client, "/login", req, request.WithEnvelopeCheck())
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response has no token")
	}
	return &out, nil
}

// ============================================
// 隧道 / 工点
// ============================================

func (a *API) ListTunnels(ctx context.Context) ([]domain.Tunnel, error) {
	raw, err := a.client.Do(ctx, http.MethodGet, "/tunnels", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Tunnel](raw)
}

// ListWorkPoints 按用户拉取工点，tunnelID 非空时在本地按隧道过滤
func (a *API) ListWorkPoints(ctx context.Context, userID string, tunnelID domain.ID) ([]domain.WorkPoint, error) {
	raw, err := a.client.Do(ctx, http.MethodGet, "/bd/list", nil, request.WithQuery("userid", userID))
	if err != nil {
		return nil, err
	}
	points, err := decodeList[domain.WorkPoint](raw)
	if err != nil {
		return nil, err
	}
	if tunnelID == "" {
		return points, nil
	}
	return slice.FilterMap(points, func(idx int, src domain.WorkPoint) (domain.WorkPoint, bool) {
		return src, src.TunnelID == tunnelID
	}), nil
}

// ============================================
// 物探 / 探测曲线
// ============================================

func (a *API) GetGeophysical(ctx context.Context, id domain.ID) (domain.ForecastRecord, error) {
	raw, err := a.client.Do(ctx, http.MethodGet, "/wtf/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	return domain.DecodeForecast(domain.VariantGeophysical, raw)
}

// DetectionChart 单条物探记录的探测曲线
func (a *API) DetectionChart(ctx context.Context, wtfPk domain.ID, opts ...request.Option) ([]domain.DetectionSeries, error) {
	opts = append(opts, request.WithQuery("wtfPk", wtfPk.String()))
	raw, err := a.client.Do(ctx, http.MethodGet, "/wtf/tsp", nil, opts...)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.DetectionSeries](raw)
}

// SiteDetectionChart 工点下全部探测曲线（工点展开时加载）
func (a *API) SiteDetectionChart(ctx context.Context, siteID domain.ID, opts ...request.Option) ([]domain.DetectionSeries, error) {
	opts = append(opts, request.WithQuery("siteId", siteID.String()))
	raw, err := a.client.Do(ctx, http.MethodGet, "/wtf/tsp", nil, opts...)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.DetectionSeries](raw)
}

// ============================================
// 列表解析
// ============================================

// decodeList 兼容数组和分页两种返回
func decodeList[T any](raw []byte) ([]T, error) {
	page, err := decodePage[T](raw)
	if err != nil {
		return nil, err
	}
	return page.Items(), nil
}

func decodePage[T any](raw []byte) (domain.Page[T], error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return domain.Page[T]{Records: []T{}}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return domain.Page[T]{}, fmt.Errorf("failed to decode list: %w", err)
		}
		return domain.Page[T]{Records: items, Total: len(items)}, nil
	}
	var page domain.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return domain.Page[T]{}, fmt.Errorf("failed to decode page: %w", err)
	}
	page.Records = page.Items()
	return page, nil
}

// ListQuery 列表查询参数
type ListQuery struct {
	SiteID   domain.ID
	Page     int
	PageSize int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.SiteID != "" {
		v.Set("siteId", q.SiteID.String())
	}
	if q.Page > 0 {
		v.Set("currentPage", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return v
}
