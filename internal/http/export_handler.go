package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/export"
	"geo-forecast/internal/request"
	"geo-forecast/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// exportPageSize 本地导出时每页拉取的记录数
const exportPageSize = 1000

// serveExport
//
//	GET /export/sjwy?startdate=&enddate=&siteID=  302 到上游下载地址
//	GET /export/sjwy.xlsx?siteId=                 本地生成 xlsx
func (h *DashboardHandler) serveExport(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch parts[0] {
	case "sjwy":
		q := r.URL.Query()
		target := s.API.ExportURL(q.Get("startdate"), q.Get("enddate"), domain.ID(q.Get("siteID")))
		http.Redirect(w, r, target, http.StatusFound)
	case "sjwy.xlsx":
		h.ExportWorkbook(w, r, s)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ExportWorkbook 导出某工点的设计围岩与设计地质
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request, s *Session) {
	siteID := domain.ID(r.URL.Query().Get("siteId"))
	if siteID == "" {
		writeJSON(w, http.StatusOK, Fail("siteId is required"))
		return
	}

	var (
		rockGrades []domain.RockGradeRecord
		geology    []domain.GeologyRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		rockGrades, err = fetchAll(ctx, siteID, s.API.ListRockGrades)
		return err
	})
	g.Go(func() error {
		var err error
		geology, err = fetchAll(ctx, siteID, s.API.ListGeology)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, err)
		return
	}

	data, err := export.Workbook(rockGrades, geology)
	if err != nil {
		h.logger.Error("failed to generate workbook", zap.String("site_id", siteID.String()), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(request.MessageOf(err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=sjwy-%s.xlsx", siteID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fetchAll 逐页拉取直到取满 total；后端未给 total 时以空页或不足一页为止
func fetchAll[T any](ctx context.Context, siteID domain.ID, list func(context.Context, service.ListQuery) (domain.Page[T], error)) ([]T, error) {
	out := []T{}
	for page := 1; ; page++ {
		p, err := list(ctx, service.ListQuery{SiteID: siteID, Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, p.Records...)
		switch {
		case len(p.Records) == 0:
			return out, nil
		case p.Total > 0 && len(out) >= p.Total:
			return out, nil
		case p.Total <= 0 && len(p.Records) < exportPageSize:
			return out, nil
		}
	}
}
