package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRockGrade = errors.New("invalid rock grade")

// RockGrade 围岩等级 I..VI（1 最好，6 最差）
type RockGrade int

const (
	RockGradeI RockGrade = iota + 1
	RockGradeII
	RockGradeIII
	RockGradeIV
	RockGradeV
	RockGradeVI
)

var romanNumerals = [...]string{"I", "II", "III", "IV", "V", "VI"}

func (g RockGrade) Valid() bool { return g >= RockGradeI && g <= RockGradeVI }

// Roman 返回罗马数字，非法值返回空串
func (g RockGrade) Roman() string {
	if !g.Valid() {
		return ""
	}
	return romanNumerals[g-1]
}

// Label 列表展示用，如 "IV级"
func (g RockGrade) Label() string {
	if !g.Valid() {
		return ""
	}
	return g.Roman() + "级"
}

// ParseRockGrade 支持 "IV"、"IV级"、"4"
func ParseRockGrade(s string) (RockGrade, error) {
	v := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "级")))
	if n, err := strconv.Atoi(v); err == nil {
		if g := RockGrade(n); g.Valid() {
			return g, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidRockGrade, s)
	}
	for i, r := range romanNumerals {
		if r == v {
			return RockGrade(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRockGrade, s)
}

// RockGradeDTO 设计围岩（sjwy）接口原始字段
type RockGradeDTO struct {
	SjwydjPk     ID      `json:"sjwydjPk,omitempty"`
	SiteID       ID      `json:"siteId,omitempty"`
	Dkname       string  `json:"dkname"`
	Dkilo        float64 `json:"dkilo"`
	SjwydjLength int     `json:"sjwydjLength"`
	Wydj         int     `json:"wydj"`
	Revise       string  `json:"revise,omitempty"`
	Username     string  `json:"username,omitempty"`
	GmtCreate    string  `json:"gmtCreate,omitempty"`
}

// RockGradeRecord 页面使用的围岩等级记录
type RockGradeRecord struct {
	ID         ID        `json:"id"`
	SiteID     ID        `json:"siteId,omitempty"`
	Mileage    Mileage   `json:"mileage"`
	Grade      RockGrade `json:"grade"`
	GradeLabel string    `json:"gradeLabel"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Revise     string    `json:"revise,omitempty"`
	Username   string    `json:"username,omitempty"`
	CreatedAt  string    `json:"createdAt,omitempty"`
}

func (d RockGradeDTO) ToRecord() RockGradeRecord {
	m := Mileage{Prefix: d.Dkname, Dkilo: d.Dkilo, Length: d.SjwydjLength}
	g := RockGrade(d.Wydj)
	return RockGradeRecord{
		ID:         d.SjwydjPk,
		SiteID:     d.SiteID,
		Mileage:    m,
		Grade:      g,
		GradeLabel: g.Label(),
		Start:      m.Start(),
		End:        m.End(),
		Revise:     d.Revise,
		Username:   d.Username,
		CreatedAt:  d.GmtCreate,
	}
}

func (r RockGradeRecord) ToDTO() RockGradeDTO {
	return RockGradeDTO{
		SjwydjPk:     r.ID,
		SiteID:       r.SiteID,
		Dkname:       r.Mileage.Prefix,
		Dkilo:        r.Mileage.Dkilo,
		SjwydjLength: r.Mileage.Length,
		Wydj:         int(r.Grade),
		Revise:       r.Revise,
		Username:     r.Username,
		GmtCreate:    r.CreatedAt,
	}
}

// Validate 提交前的基本校验
func (d RockGradeDTO) Validate() error {
	if !RockGrade(d.Wydj).Valid() {
		return fmt.Errorf("%w: wydj=%d", ErrInvalidRockGrade, d.Wydj)
	}
	if d.Dkilo < 0 {
		return fmt.Errorf("%w: dkilo=%v", ErrInvalidMileage, d.Dkilo)
	}
	return nil
}
