package domain

// Page 分页结果，records 缺省时按空列表处理
type Page[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Items 永不返回 nil
func (p Page[T]) Items() []T {
	if p.Records == nil {
		return []T{}
	}
	return p.Records
}

// Tunnel 隧道
type Tunnel struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code,omitempty"`
	Status string `json:"status,omitempty"`
}

// WorkPoint 工点：隧道中被监测的一段
// Mileage 为整数米，Length 带符号表示方向
type WorkPoint struct {
	ID                  ID     `json:"id"`
	Name                string `json:"name"`
	Code                string `json:"code"`
	Mileage             int    `json:"mileage"`
	TunnelID            ID     `json:"tunnelId"`
	Length              int    `json:"length"`
	Status              string `json:"status"`
	Type                string `json:"type,omitempty"`
	RiskLevel           string `json:"riskLevel,omitempty"`
	GeologicalCondition string `json:"geologicalCondition,omitempty"`
}

// Span 工点里程区间
func (w WorkPoint) Span(prefix string) Mileage {
	return Mileage{Prefix: prefix, Dkilo: MetersToDkilo(w.Mileage), Length: w.Length}
}

// DetectionPoint 探测曲线上的一个点
type DetectionPoint struct {
	Dkilo float64 `json:"dkilo"`
	Value float64 `json:"value"`
}

// DetectionSeries 某一方法的探测曲线
type DetectionSeries struct {
	Method int              `json:"method"`
	Name   string           `json:"name,omitempty"`
	Points []DetectionPoint `json:"points"`
}

// ForecastDesign 预报设计
type ForecastDesign struct {
	YbPk       ID      `json:"ybPk,omitempty"`
	SiteID     ID      `json:"siteId"`
	Method     int     `json:"method"`
	Dkname     string  `json:"dkname"`
	Dkilo      float64 `json:"dkilo"`
	Length     int     `json:"length"`
	DesignDate string  `json:"designDate,omitempty"`
	Remark     string  `json:"remark,omitempty"`
}

// Conclusion 综合结论（sjyb）
type Conclusion struct {
	YbPk        ID          `json:"ybPk"`
	SiteID      ID          `json:"siteId,omitempty"`
	Dkname      string      `json:"dkname"`
	Dkilo       float64     `json:"dkilo"`
	Length      int         `json:"length"`
	Conclusion  string      `json:"conclusion,omitempty"`
	Risk        string      `json:"risk,omitempty"`
	MonitorDate string      `json:"monitordate,omitempty"`
	SubmitFlag  SubmitState `json:"submitFlag"`
}

// Span 结论覆盖的里程
func (c Conclusion) Span() Mileage {
	return Mileage{Prefix: c.Dkname, Dkilo: c.Dkilo, Length: c.Length}
}
