package httpapi

import (
	"net/http"
	"strings"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/workpoint"

	"github.com/ecodeclub/ekit/slice"
)

func (h *DashboardHandler) ListTunnels(w http.ResponseWriter, r *http.Request, s *Session) {
	tunnels, err := s.API.ListTunnels(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tunnels))
}

// WorkPointView 工点列表项
type WorkPointView struct {
	domain.WorkPoint
	Range    string `json:"range"`
	Expanded bool   `json:"expanded"`
}

// serveWorkPoints
//
//	GET  /workpoints?tunnelId=
//	GET  /workpoints/{id}?view=summary|management
//	POST /workpoints/{id}/expand
//	POST /workpoints/{id}/collapse
//	POST /workpoints/{id}/refresh?kind=a,b
func (h *DashboardHandler) serveWorkPoints(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListWorkPoints(w, r, s)
		return
	}

	id := domain.ID(parts[0])
	policy := workpoint.ParsePolicy(r.URL.Query().Get("view"))
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.Loader.Section(id, policy)))
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx := r.Context()
	switch parts[1] {
	case "expand":
		if err := s.Loader.Expand(ctx, id); err != nil {
			h.fail(w, err)
			return
		}
	case "collapse":
		s.Loader.Collapse(id)
	case "refresh":
		kinds, err := parseKinds(r.URL.Query().Get("kind"))
		if err != nil {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		if err := s.Loader.Refresh(ctx, id, kinds...); err != nil {
			h.fail(w, err)
			return
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s.Loader.Section(id, policy)))
}

func parseKinds(raw string) ([]workpoint.Kind, error) {
	var kinds []workpoint.Kind
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k, err := workpoint.ParseKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (h *DashboardHandler) ListWorkPoints(w http.ResponseWriter, r *http.Request, s *Session) {
	tunnelID := domain.ID(r.URL.Query().Get("tunnelId"))
	points, err := s.API.ListWorkPoints(r.Context(), h.userID(r, s), tunnelID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(slice.Map(points, func(idx int, src domain.WorkPoint) WorkPointView {
		return WorkPointView{
			WorkPoint: src,
			Range:     src.Span(domain.DefaultPrefix).String(),
			Expanded:  s.Loader.Expanded(src.ID),
		}
	})))
}

// serveForecasts
//
//	POST   /forecasts/{variant}/{pk}/{upload|withdraw|copy}?siteId=
//	DELETE /forecasts/{variant}/{pk}?siteId=&confirm=true
func (h *DashboardHandler) serveForecasts(w http.ResponseWriter, r *http.Request, s *Session, parts []string) {
	if len(parts) < 2 || len(parts) > 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	v, err := domain.ParseVariant(parts[0])
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	pk := domain.ID(parts[1])
	siteID := domain.ID(r.URL.Query().Get("siteId"))
	if siteID == "" {
		writeJSON(w, http.StatusOK, Fail("siteId is required"))
		return
	}

	var action domain.Action
	switch {
	case len(parts) == 2 && r.Method == http.MethodDelete:
		if !confirmed(r) {
			writeJSON(w, http.StatusOK, Fail("confirmation required"))
			return
		}
		action = domain.ActionDelete
	case len(parts) == 3 && r.Method == http.MethodPost:
		action = domain.Action(parts[2])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rec, err := s.Loader.Perform(r.Context(), siteID, v, pk, action)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}
