package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrefix 里程冠号
const DefaultPrefix = "DK"

var (
	ErrInvalidMileage = errors.New("invalid mileage")

	thousand     = decimal.NewFromInt(1000)
	mileageRegex = regexp.MustCompile(`^\s*([A-Za-z]*)\s*(\d+)\s*\+\s*(\d{1,3})\s*$`)
)

// EncodeDkilo km + m/1000，保留到米（3 位小数）
func EncodeDkilo(km, meters int) float64 {
	d := decimal.NewFromInt(int64(km)).Add(decimal.New(int64(meters), -3))
	f, _ := d.Round(3).Float64()
	return f
}

// DecodeDkilo 拆分为公里和米；米数四舍五入后满 1000 时进位到公里
func DecodeDkilo(dkilo float64) (km, meters int) {
	d := decimal.NewFromFloat(dkilo)
	k := d.Floor()
	m := d.Sub(k).Mul(thousand).Round(0).IntPart()
	if m >= 1000 {
		k = k.Add(decimal.NewFromInt(1))
		m -= 1000
	}
	return int(k.IntPart()), int(m)
}

// EndDkilo 起点加上长度（米，可为负）后的终点里程
// 先做十进制加法再重新拆分，避免 713.999 + 2m 之类的进位错误
func EndDkilo(dkilo float64, length int) float64 {
	d := decimal.NewFromFloat(dkilo).Add(decimal.New(int64(length), -3))
	f, _ := d.Round(3).Float64()
	return f
}

// MetersToDkilo 整数米 -> dkilo
func MetersToDkilo(meters int) float64 {
	f, _ := decimal.New(int64(meters), -3).Float64()
	return f
}

// FormatMileage 格式化为 "DK713+485"
func FormatMileage(prefix string, dkilo float64) string {
	km, m := DecodeDkilo(dkilo)
	return fmt.Sprintf("%s%d+%03d", prefix, km, m)
}

// ParseMileage 解析 "DK713+485"，返回冠号和 dkilo
func ParseMileage(s string) (string, float64, error) {
	parts := mileageRegex.FindStringSubmatch(s)
	if parts == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMileage, s)
	}
	km, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMileage, s)
	}
	m, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMileage, s)
	}
	return strings.ToUpper(parts[1]), EncodeDkilo(km, m), nil
}

// Mileage 起点 + 长度描述的里程区间
type Mileage struct {
	Prefix string  `json:"prefix"`
	Dkilo  float64 `json:"dkilo"`
	Length int     `json:"length"` // 米，负数表示反方向
}

func (m Mileage) prefix() string {
	if m.Prefix == "" {
		return DefaultPrefix
	}
	return m.Prefix
}

func (m Mileage) EndDkilo() float64 { return EndDkilo(m.Dkilo, m.Length) }

func (m Mileage) Start() string { return FormatMileage(m.prefix(), m.Dkilo) }

func (m Mileage) End() string { return FormatMileage(m.prefix(), m.EndDkilo()) }

// String "DK713+485 ~ DK714+628"
func (m Mileage) String() string { return m.Start() + " ~ " + m.End() }
