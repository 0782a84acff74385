package domain

// GeologyMethod 设计地质（sjdz）的预报类别 1..5
type GeologyMethod int

// GeologySeverity 地质信息分级（dzxxfj）1..4，数值越大越严重
type GeologySeverity int

var geologyMethodLabels = map[GeologyMethod]string{
	1: "地震波反射",
	2: "电磁波反射",
	3: "瞬变电磁",
	4: "超前钻探",
	5: "地质调查",
}

var geologySeverityLabels = map[GeologySeverity]string{
	1: "绿色",
	2: "黄色",
	3: "橙色",
	4: "红色",
}

func (m GeologyMethod) Valid() bool { return m >= 1 && m <= 5 }

func (m GeologyMethod) Label() string { return geologyMethodLabels[m] }

func (s GeologySeverity) Valid() bool { return s >= 1 && s <= 4 }

func (s GeologySeverity) Label() string { return geologySeverityLabels[s] }

// GeologyDTO 设计地质接口原始字段
type GeologyDTO struct {
	SjdzPk     ID      `json:"sjdzPk,omitempty"`
	SiteID     ID      `json:"siteId,omitempty"`
	Method     int     `json:"method"`
	Dzxxfj     int     `json:"dzxxfj"`
	Dkname     string  `json:"dkname"`
	Dkilo      float64 `json:"dkilo"`
	SjdzLength int     `json:"sjdzLength"`
}

type GeologyRecord struct {
	ID            ID              `json:"id"`
	SiteID        ID              `json:"siteId,omitempty"`
	Method        GeologyMethod   `json:"method"`
	MethodLabel   string          `json:"methodLabel"`
	Severity      GeologySeverity `json:"severity"`
	SeverityLabel string          `json:"severityLabel"`
	Mileage       Mileage         `json:"mileage"`
	Start         string          `json:"start"`
	End           string          `json:"end"`
}

func (d GeologyDTO) ToRecord() GeologyRecord {
	m := Mileage{Prefix: d.Dkname, Dkilo: d.Dkilo, Length: d.SjdzLength}
	method := GeologyMethod(d.Method)
	sev := GeologySeverity(d.Dzxxfj)
	return GeologyRecord{
		ID:            d.SjdzPk,
		SiteID:        d.SiteID,
		Method:        method,
		MethodLabel:   method.Label(),
		Severity:      sev,
		SeverityLabel: sev.Label(),
		Mileage:       m,
		Start:         m.Start(),
		End:           m.End(),
	}
}

func (r GeologyRecord) ToDTO() GeologyDTO {
	return GeologyDTO{
		SjdzPk:     r.ID,
		SiteID:     r.SiteID,
		Method:     int(r.Method),
		Dzxxfj:     int(r.Severity),
		Dkname:     r.Mileage.Prefix,
		Dkilo:      r.Mileage.Dkilo,
		SjdzLength: r.Mileage.Length,
	}
}
