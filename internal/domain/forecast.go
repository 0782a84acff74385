package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownVariant    = errors.New("unknown forecast method")
	ErrMissingPrimaryKey = errors.New("forecast record has no primary key")
	ErrUnsupportedAction = errors.New("not supported")
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// ForecastVariant 五种超前预报方法
type ForecastVariant int

const (
	VariantGeophysical  ForecastVariant = iota + 1 // 物探法
	VariantPalmSketch                              // 掌子面素描
	VariantTunnelSketch                            // 洞身素描
	VariantDrilling                                // 超前钻探
	VariantSurface                                 // 地表补充
)

// Variants 固定顺序，页面按此顺序展示
var Variants = []ForecastVariant{
	VariantGeophysical,
	VariantPalmSketch,
	VariantTunnelSketch,
	VariantDrilling,
	VariantSurface,
}

type variantInfo struct {
	name     string
	resource string
	keys     []string // 主键字段，第一个为标准字段，其余为兼容字段
}

var variantInfos = map[ForecastVariant]variantInfo{
	VariantGeophysical:  {name: "geophysical", resource: "wtf", keys: []string{"wtfPk"}},
	VariantPalmSketch:   {name: "palmSketch", resource: "zzmsm", keys: []string{"zzmsmPk"}},
	VariantTunnelSketch: {name: "tunnelSketch", resource: "dssm", keys: []string{"dssmPk"}},
	VariantDrilling:     {name: "drilling", resource: "ztf", keys: []string{"ztfPk"}},
	VariantSurface:      {name: "surface", resource: "dbbc", keys: []string{"dbbcPk", "ybPk"}},
}

func (v ForecastVariant) Valid() bool {
	_, ok := variantInfos[v]
	return ok
}

func (v ForecastVariant) String() string { return variantInfos[v].name }

// Resource 接口路径中的资源名，如 wtf
func (v ForecastVariant) Resource() string { return variantInfos[v].resource }

// PrimaryKey 标准主键字段名
func (v ForecastVariant) PrimaryKey() string {
	keys := variantInfos[v].keys
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func (v ForecastVariant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return []byte(v.String()), nil
}

func (v *ForecastVariant) UnmarshalText(b []byte) error {
	p, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// ParseVariant 支持方法名（geophysical）或资源名（wtf）
func ParseVariant(s string) (ForecastVariant, error) {
	for v, info := range variantInfos {
		if info.name == s || info.resource == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// SubmitState 记录状态：编辑中 / 已上传
// 后端字段 submitFlag 缺省时视为编辑中
type SubmitState int

const (
	StateEditing  SubmitState = 0
	StateUploaded SubmitState = 1
)

func (s SubmitState) String() string {
	if s == StateUploaded {
		return "uploaded"
	}
	return "editing"
}

// Upload editing -> uploaded
func (s SubmitState) Upload() (SubmitState, error) {
	if s != StateEditing {
		return s, fmt.Errorf("%w: upload from %s", ErrInvalidTransition, s)
	}
	return StateUploaded, nil
}

// Withdraw uploaded -> editing
func (s SubmitState) Withdraw() (SubmitState, error) {
	if s != StateUploaded {
		return s, fmt.Errorf("%w: withdraw from %s", ErrInvalidTransition, s)
	}
	return StateEditing, nil
}

// StateFromFlag 只有 1 表示已上传，其余（含缺省）均为编辑中
func StateFromFlag(flag *int) SubmitState {
	if flag != nil && *flag == 1 {
		return StateUploaded
	}
	return StateEditing
}

// Action 记录操作
type Action string

const (
	ActionView     Action = "view"
	ActionEdit     Action = "edit"
	ActionCopy     Action = "copy"
	ActionUpload   Action = "upload"
	ActionDelete   Action = "delete"
	ActionWithdraw Action = "withdraw"
)

var (
	editingActions  = []Action{ActionView, ActionEdit, ActionCopy, ActionUpload, ActionDelete}
	uploadedActions = []Action{ActionView, ActionDelete, ActionWithdraw}
)

// ForecastRecord 五种预报方法记录的统一表示，主键在解码时确定
type ForecastRecord struct {
	Variant     ForecastVariant `json:"variant"`
	PK          ID              `json:"pk"`
	SiteID      ID              `json:"siteId,omitempty"`
	Method      int             `json:"method"`
	MonitorDate string          `json:"monitordate,omitempty"`
	Dkname      string          `json:"dkname,omitempty"`
	Dkilo       float64         `json:"dkilo"`
	Mileage     string          `json:"mileageLabel"`
	State       SubmitState     `json:"submitFlag"`
	Status      string          `json:"status"`
}

type forecastCommon struct {
	SiteID      ID      `json:"siteId"`
	Method      int     `json:"method"`
	MonitorDate string  `json:"monitordate"`
	Dkname      string  `json:"dkname"`
	Dkilo       float64 `json:"dkilo"`
	SubmitFlag  *int    `json:"submitFlag"`
}

// DecodeForecast 按方法类型解析原始记录
func DecodeForecast(v ForecastVariant, raw json.RawMessage) (ForecastRecord, error) {
	info, ok := variantInfos[v]
	if !ok {
		return ForecastRecord{}, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	var common forecastCommon
	if err := json.Unmarshal(raw, &common); err != nil {
		return ForecastRecord{}, fmt.Errorf("failed to decode %s record: %w", info.name, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ForecastRecord{}, fmt.Errorf("failed to decode %s record: %w", info.name, err)
	}

	var pk ID
	for _, key := range info.keys {
		b, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(b, &pk); err != nil {
			return ForecastRecord{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if pk != "" {
			break
		}
	}
	if pk == "" {
		return ForecastRecord{}, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, info.name)
	}

	rec := ForecastRecord{
		Variant:     v,
		PK:          pk,
		SiteID:      common.SiteID,
		Method:      common.Method,
		MonitorDate: common.MonitorDate,
		Dkname:      common.Dkname,
		Dkilo:       common.Dkilo,
		State:       StateFromFlag(common.SubmitFlag),
	}
	rec.refresh()
	return rec, nil
}

func (r *ForecastRecord) refresh() {
	prefix := r.Dkname
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r.Mileage = FormatMileage(prefix, r.Dkilo)
	r.Status = r.State.String()
}

// Actions 当前状态下可用的操作
func (r ForecastRecord) Actions() []Action {
	src := editingActions
	if r.State == StateUploaded {
		src = uploadedActions
	}
	out := make([]Action, len(src))
	copy(out, src)
	return out
}

// Check 校验操作是否可执行；复制和上传只支持物探法
func (r ForecastRecord) Check(a Action) error {
	allowed := false
	for _, x := range r.Actions() {
		if x == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s on %s record", ErrInvalidTransition, a, r.State)
	}
	if (a == ActionCopy || a == ActionUpload) && r.Variant != VariantGeophysical {
		return fmt.Errorf("%s %s: %w", r.Variant, a, ErrUnsupportedAction)
	}
	return nil
}

// Apply 后端调用成功后才应用状态变化
func (r ForecastRecord) Apply(a Action) (ForecastRecord, error) {
	if err := r.Check(a); err != nil {
		return r, err
	}
	var (
		next SubmitState
		err  error
	)
	switch a {
	case ActionUpload:
		next, err = r.State.Upload()
	case ActionWithdraw:
		next, err = r.State.Withdraw()
	default:
		return r, nil
	}
	if err != nil {
		return r, err
	}
	r.State = next
	r.refresh()
	return r, nil
}
