package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRockGrade_Bijective(t *testing.T) {
	for n := 1; n <= 6; n++ {
		g := RockGrade(n)
		parsed, err := ParseRockGrade(g.Roman())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}
	assert.Equal(t, "IV", RockGradeIV.Roman())
	assert.Equal(t, "IV级", RockGrade(4).Label())

	g, err := ParseRockGrade("IV级")
	require.NoError(t, err)
	assert.Equal(t, 4, int(g))

	_, err = ParseRockGrade("VII")
	assert.ErrorIs(t, err, ErrInvalidRockGrade)
	_, err = ParseRockGrade("0")
	assert.ErrorIs(t, err, ErrInvalidRockGrade)
	assert.Equal(t, "", RockGrade(7).Label())
}

func TestRockGradeDTO_ToRecord(t *testing.T) {
	var dto RockGradeDTO
	require.NoError(t, json.Unmarshal([]byte(`{"sjwydjPk":42,"dkname":"DK","dkilo":713.485,"sjwydjLength":100,"wydj":4}`), &dto))

	rec := dto.ToRecord()
	assert.Equal(t, ID("42"), rec.ID)
	assert.Equal(t, "IV级", rec.GradeLabel)
	assert.Equal(t, "DK713+485", rec.Start)
	assert.Equal(t, "DK713+585", rec.End)
	assert.Equal(t, dto, rec.ToDTO())

	assert.NoError(t, dto.Validate())
	dto.Wydj = 9
	assert.ErrorIs(t, dto.Validate(), ErrInvalidRockGrade)
}

func TestID_JSON(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[12,"ab-1",null,"007"]`), &ids))
	assert.Equal(t, []ID{"12", "ab-1", "", "007"}, ids)

	b, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `[12,"ab-1","","007"]`, string(b))

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestDecodeForecast_PrimaryKeyPerVariant(t *testing.T) {
	cases := []struct {
		variant ForecastVariant
		raw     string
		pk      ID
	}{
		{VariantGeophysical, `{"wtfPk":11,"method":1,"dkilo":713.485}`, "11"},
		{VariantPalmSketch, `{"zzmsmPk":"z-2","method":2}`, "z-2"},
		{VariantTunnelSketch, `{"dssmPk":3}`, "3"},
		{VariantDrilling, `{"ztfPk":4}`, "4"},
		{VariantSurface, `{"dbbcPk":5}`, "5"},
		{VariantSurface, `{"ybPk":6}`, "6"},
	}
	for _, c := range cases {
		rec, err := DecodeForecast(c.variant, json.RawMessage(c.raw))
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.pk, rec.PK)
		assert.Equal(t, c.variant, rec.Variant)
	}

	// 其他方法的主键字段不能混用
	_, err := DecodeForecast(VariantDrilling, json.RawMessage(`{"wtfPk":1,"id":2}`))
	assert.ErrorIs(t, err, ErrMissingPrimaryKey)

	_, err = DecodeForecast(ForecastVariant(99), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestDecodeForecast_SubmitFlagDefaultsToEditing(t *testing.T) {
	rec, err := DecodeForecast(VariantGeophysical, json.RawMessage(`{"wtfPk":1,"dkilo":713.485}`))
	require.NoError(t, err)
	assert.Equal(t, StateEditing, rec.State)
	assert.Equal(t, "editing", rec.Status)
	assert.Equal(t, "DK713+485", rec.Mileage)
	assert.Equal(t, []Action{ActionView, ActionEdit, ActionCopy, ActionUpload, ActionDelete}, rec.Actions())

	rec, err = DecodeForecast(VariantGeophysical, json.RawMessage(`{"wtfPk":1,"submitFlag":1}`))
	require.NoError(t, err)
	assert.Equal(t, StateUploaded, rec.State)
	assert.Equal(t, []Action{ActionView, ActionDelete, ActionWithdraw}, rec.Actions())
}

func TestForecastRecord_CheckAndApply(t *testing.T) {
	geo := ForecastRecord{Variant: VariantGeophysical, PK: "1"}
	palm := ForecastRecord{Variant: VariantPalmSketch, PK: "2"}

	assert.NoError(t, geo.Check(ActionCopy))
	assert.ErrorIs(t, palm.Check(ActionCopy), ErrUnsupportedAction)
	assert.ErrorIs(t, palm.Check(ActionUpload), ErrUnsupportedAction)
	assert.ErrorIs(t, geo.Check(ActionWithdraw), ErrInvalidTransition)

	up, err := geo.Apply(ActionUpload)
	require.NoError(t, err)
	assert.Equal(t, StateUploaded, up.State)
	assert.Equal(t, "uploaded", up.Status)
	// 原值不变
	assert.Equal(t, StateEditing, geo.State)

	_, err = up.Apply(ActionEdit)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	back, err := up.Apply(ActionWithdraw)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, back.State)

	// 撤回对所有方法开放
	uploadedPalm := ForecastRecord{Variant: VariantPalmSketch, PK: "2", State: StateUploaded}
	back, err = uploadedPalm.Apply(ActionWithdraw)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, back.State)
}

func TestForecastVariant_Text(t *testing.T) {
	v, err := ParseVariant("wtf")
	require.NoError(t, err)
	assert.Equal(t, VariantGeophysical, v)
	v, err = ParseVariant("tunnelSketch")
	require.NoError(t, err)
	assert.Equal(t, "dssm", v.Resource())
	assert.Equal(t, "dssmPk", v.PrimaryKey())

	b, err := json.Marshal(ForecastRecord{Variant: VariantSurface, PK: "9"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"variant":"surface"`)
	assert.Contains(t, string(b), `"pk":9`)

	_, err = ParseVariant("x")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestGeologyDTO_ToRecord(t *testing.T) {
	d := GeologyDTO{SjdzPk: "3", SiteID: "wp-1", Method: 1, Dzxxfj: 4, Dkname: "DK", Dkilo: 713.999, SjdzLength: 2}
	rec := d.ToRecord()
	assert.Equal(t, "红色", rec.SeverityLabel)
	assert.Equal(t, "地震波反射", rec.MethodLabel)
	assert.Equal(t, "DK714+001", rec.End)
	assert.Equal(t, d, rec.ToDTO())
	assert.False(t, GeologySeverity(5).Valid())
}

func TestPage_Items(t *testing.T) {
	var p Page[RockGradeDTO]
	require.NoError(t, json.Unmarshal([]byte(`{"total":0}`), &p))
	assert.NotNil(t, p.Items())
	assert.Empty(t, p.Items())
}
