package workpoint

import (
	"geo-forecast/internal/domain"
	"geo-forecast/internal/keyedcache"

	"github.com/ecodeclub/ekit/slice"
)

// Policy 展示策略
type Policy int

const (
	// PolicySummary 汇总列表：只显示已上传的记录
	PolicySummary Policy = iota
	// PolicyManagement 管理表格：显示全部记录并附带可用操作
	PolicyManagement
)

func ParsePolicy(s string) Policy {
	if s == "management" {
		return PolicyManagement
	}
	return PolicySummary
}

// State 单个数据集的加载状态
type State struct {
	Loading bool   `json:"loading"`
	Loaded  bool   `json:"loaded"`
	Error   string `json:"error,omitempty"`
}

func stateOf[V any](e keyedcache.Entry[V]) State {
	s := State{Loading: e.Loading, Loaded: e.Loaded}
	if e.Err != nil {
		s.Error = e.Err.Error()
	}
	return s
}

type DetectionSection struct {
	State
	Series []domain.DetectionSeries `json:"series"`
}

type RecordView struct {
	domain.ForecastRecord
	Actions []domain.Action `json:"actions,omitempty"`
}

type MethodSection struct {
	Kind Kind `json:"kind"`
	State
	Records []RecordView `json:"records"`
}

// Section 工点展开后的全部数据
type Section struct {
	ID        domain.ID        `json:"id"`
	Expanded  bool             `json:"expanded"`
	Detection DetectionSection `json:"detection"`
	Methods   []MethodSection  `json:"methods"`
}

// Section 从缓存构造视图，不触发加载
func (l *Loader) Section(id domain.ID, policy Policy) Section {
	out := Section{ID: id, Expanded: l.Expanded(id)}

	if e, ok := l.detection.Get(id); ok {
		out.Detection = DetectionSection{State: stateOf(e), Series: e.Data}
	}
	if out.Detection.Series == nil {
		out.Detection.Series = []domain.DetectionSeries{}
	}

	for _, v := range domain.Variants {
		m := MethodSection{Kind: KindOf(v), Records: []RecordView{}}
		if e, ok := l.forecasts[v].Get(id); ok {
			m.State = stateOf(e)
			m.Records = view(e.Data, policy)
		}
		out.Methods = append(out.Methods, m)
	}
	return out
}

func view(records []domain.ForecastRecord, policy Policy) []RecordView {
	if policy == PolicySummary {
		return slice.FilterMap(records, func(idx int, src domain.ForecastRecord) (RecordView, bool) {
			return RecordView{ForecastRecord: src}, src.State == domain.StateUploaded
		})
	}
	return slice.Map(records, func(idx int, src domain.ForecastRecord) RecordView {
		return RecordView{ForecastRecord: src, Actions: allowedActions(src)}
	})
}

// allowedActions 去掉该方法不支持的操作（复制、上传仅物探法）
func allowedActions(rec domain.ForecastRecord) []domain.Action {
	return slice.FilterMap(rec.Actions(), func(idx int, a domain.Action) (domain.Action, bool) {
		return a, rec.Check(a) == nil
	})
}
