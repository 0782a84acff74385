package httpapi

import (
	"context"
	"net/http"
	"strings"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/service"

	"go.uber.org/zap"
)

func listQuery(r *http.Request) service.ListQuery {
	q := r.URL.Query()
	return service.ListQuery{
		SiteID:   domain.ID(q.Get("siteId")),
		Page:     parseInt(q.Get("currentPage"), 0),
		PageSize: parseInt(q.Get("pageSize"), 0),
	}
}

// crud 同一资源的增删改查：GET/POST/DELETE(批量) 集合，PUT/DELETE 单条
type crud[T any] struct {
	list   func(ctx context.Context, r *http.Request) (any, error)
	create func(ctx context.Context, body T) (domain.ID, error)
	update func(ctx context.Context, id domain.ID, body T) error
	remove func(ctx context.Context, id domain.ID) error
}

func serveCRUD[T any](h *DashboardHandler, w http.ResponseWriter, r *http.Request, parts []string, c crud[T]) {
	ctx := r.Context()
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		out, err := c.list(ctx, r)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(out))
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body T
		if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		id, err := c.create(ctx, body)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id}))
	case len(parts) == 0 && r.Method == http.MethodDelete:
		h.batchDelete(w, r, c.remove)
	case len(parts) == 1 && r.Method == http.MethodPut:
		var body T
		if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		if err := c.update(ctx, domain.ID(parts[0]), body); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if !confirmed(r) {
			writeJSON(w, http.StatusOK, Fail("confirmation required"))
			return
		}
		if err := c.remove(ctx, domain.ID(parts[0])); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))
	case len(parts) > 1:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// batchDelete DELETE ?ids=1,2,3&confirm=true，按顺序删除，遇到失败即停止
// 已删除的行不回滚，页面随后重新拉取列表
func (h *DashboardHandler) batchDelete(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, id domain.ID) error) {
	if !confirmed(r) {
		writeJSON(w, http.StatusOK, Fail("confirmation required"))
		return
	}
	ids := parseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, Fail("ids is required"))
		return
	}
	deleted := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		if err := remove(r.Context(), id); err != nil {
			h.logger.Info("batch delete stopped",
				zap.String("path", r.URL.Path),
				zap.Int("deleted", len(deleted)),
				zap.Int("requested", len(ids)),
				zap.Error(err),
			)
			h.fail(w, err)
			return
		}
		deleted = append(deleted, id)
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": deleted}))
}

func parseIDs(raw string) []domain.ID {
	seen := make(map[domain.ID]bool)
	var ids []domain.ID
	for _, v := range strings.Split(raw, ",") {
		id := domain.ID(strings.TrimSpace(v))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// serveRockGrades /rock-grades[/{id}]
func (h *DashboardHandler) serveRockGrades(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	serveCRUD(h, w, r, parts, crud[domain.RockGradeDTO]{
		list: func(ctx context.Context, r *http.Request) (any, error) {
			return s.API.ListRockGrades(ctx, listQuery(r))
		},
		create: s.API.CreateRockGrade,
		update: func(ctx context.Context, id domain.ID, dto domain.RockGradeDTO) error {
			dto.SjwydjPk = id
			return s.API.UpdateRockGrade(ctx, dto)
		},
		remove: s.API.DeleteRockGrade,
	})
}

// serveGeology /geology[/{id}]
func (h *DashboardHandler) serveGeology(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	serveCRUD(h, w, r, parts, crud[domain.GeologyDTO]{
		list: func(ctx context.Context, r *http.Request) (any, error) {
			return s.API.ListGeology(ctx, listQuery(r))
		},
		create: s.API.CreateGeology,
		update: func(ctx context.Context, id domain.ID, dto domain.GeologyDTO) error {
			dto.SjdzPk = id
			return s.API.UpdateGeology(ctx, dto)
		},
		remove: s.API.DeleteGeology,
	})
}

// serveDesigns /designs[/{id}]
func (h *DashboardHandler) serveDesigns(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	serveCRUD(h, w, r, parts, crud[domain.ForecastDesign]{
		list: func(ctx context.Context, r *http.Request) (any, error) {
			return s.API.ListDesigns(ctx, domain.ID(r.URL.Query().Get("siteId")))
		},
		create: s.API.CreateDesign,
		update: func(ctx context.Context, id domain.ID, d domain.ForecastDesign) error {
			d.YbPk = id
			return s.API.UpdateDesign(ctx, d)
		},
		remove: s.API.DeleteDesign,
	})
}

func (h *DashboardHandler) ListConclusions(w http.ResponseWriter, r *http.Request, s *Session) {
	q := r.URL.Query()
	page, err := s.API.ListConclusions(r.Context(), h.userID(r, s), parseInt(q.Get("currentPage"), 1), parseInt(q.Get("pageSize"), 10))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(page))
}
