package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// fakeUpstream 内存版上游接口，只实现测试用到的部分
type fakeUpstream struct {
	mu        sync.Mutex
	calls     map[string]int
	sjwy      []map[string]any
	wtf       []map[string]any
	nextID    int
	failWrite int
	expired   bool
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		calls: make(map[string]int),
		wtf: []map[string]any{
			{"wtfPk": 1, "siteId": 7, "method": 1, "dkname": "DK", "dkilo": 713.485},
			{"wtfPk": 2, "siteId": 7, "method": 1, "dkname": "DK", "dkilo": 713.5, "submitFlag": 1},
		},
	}
}

func (f *fakeUpstream) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeUpstream) setExpired(v bool) {
	f.mu.Lock()
	f.expired = v
	f.mu.Unlock()
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/api")
	f.calls[r.Method+" "+path]++

	if path == "/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			envelope(w, http.StatusOK, map[string]any{"code": 401, "message": "用户名或密码错误", "data": nil})
			return
		}
		envelope(w, http.StatusOK, map[string]any{"code": 200, "message": "ok", "data": map[string]any{"token": "tok-" + body["username"], "userId": 42}})
		return
	}
	if f.expired || r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && path == "/tunnels":
		okBody(w, []map[string]any{{"id": 10, "name": "一号隧道"}})
	case r.Method == http.MethodGet && path == "/bd/list":
		okBody(w, []map[string]any{
			{"id": 7, "name": "进口", "mileage": 713485, "tunnelId": 10, "length": 1143},
			{"id": 8, "name": "出口", "mileage": 720000, "tunnelId": 11, "length": -200},
		})
	case r.Method == http.MethodGet && path == "/sjwy":
		okBody(w, map[string]any{"records": paginate(f.sjwy, r), "total": len(f.sjwy)})
	case r.Method == http.MethodGet && path == "/sjdz":
		okBody(w, map[string]any{"records": []any{}, "total": 0})
	case r.Method == http.MethodPost && path == "/sjwy":
		var row map[string]any
		_ = json.NewDecoder(r.Body).Decode(&row)
		f.nextID++
		row["sjwydjPk"] = f.nextID
		f.sjwy = append(f.sjwy, row)
		okBody(w, row)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/sjwy/"):
		if f.failWrite > 0 {
			w.WriteHeader(f.failWrite)
			return
		}
		pk := strings.TrimPrefix(path, "/sjwy/")
		kept := f.sjwy[:0]
		for _, row := range f.sjwy {
			if strconv.Itoa(row["sjwydjPk"].(int)) != pk {
				kept = append(kept, row)
			}
		}
		f.sjwy = kept
		okBody(w, nil)
	case r.Method == http.MethodGet && path == "/wtf/tsp":
		okBody(w, []map[string]any{{"method": 1, "points": []map[string]any{{"dkilo": 713.5, "value": 0.2}}}})
	case r.Method == http.MethodGet && path == "/wtf/list":
		okBody(w, map[string]any{"records": f.wtf, "total": len(f.wtf)})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/list"):
		okBody(w, []any{})
	case r.Method == http.MethodPost && path == "/wtf/1/upload":
		f.wtf[0]["submitFlag"] = 1
		okBody(w, nil)
	default:
		http.NotFound(w, r)
	}
}

// seedRockGrades 直接写入 n 条设计围岩
func (f *fakeUpstream) seedRockGrades(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.nextID++
		f.sjwy = append(f.sjwy, map[string]any{"sjwydjPk": f.nextID, "siteId": 7, "dkname": "DK", "dkilo": 700 + float64(i)/1000, "sjwydjLength": 1, "wydj": 3})
	}
}

func (f *fakeUpstream) rockGradeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sjwy)
}

// paginate 按 currentPage/pageSize 截取，缺省返回全部
func paginate(rows []map[string]any, r *http.Request) []map[string]any {
	out := []map[string]any{}
	page, err1 := strconv.Atoi(r.URL.Query().Get("currentPage"))
	size, err2 := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err1 != nil || err2 != nil || page < 1 || size < 1 {
		return append(out, rows...)
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return out
	}
	end := min(start+size, len(rows))
	return append(out, rows[start:end]...)
}

func okBody(w http.ResponseWriter, data any) {
	envelope(w, http.StatusOK, map[string]any{"code": 200, "message": "ok", "data": data})
}

func envelope(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
