package workpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geo-forecast/internal/domain"
	"geo-forecast/internal/keyedcache"
	"geo-forecast/internal/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource 按数据集计数的上游
type fakeSource struct {
	mu      sync.Mutex
	calls   map[Kind]int
	records map[domain.ForecastVariant][]domain.ForecastRecord
	failing map[Kind]bool
	block   chan struct{}

	transitionErr error
	deleteErr     error
	copied        int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:   make(map[Kind]int),
		failing: make(map[Kind]bool),
		records: map[domain.ForecastVariant][]domain.ForecastRecord{
			domain.VariantGeophysical: {
				{Variant: domain.VariantGeophysical, PK: "1", State: domain.StateEditing},
				{Variant: domain.VariantGeophysical, PK: "2", State: domain.StateUploaded},
			},
			domain.VariantDrilling: {
				{Variant: domain.VariantDrilling, PK: "3", State: domain.StateEditing},
			},
		},
	}
}

func (f *fakeSource) hit(k Kind) (bool, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[k]++
	return f.failing[k], f.block
}

func (f *fakeSource) count(k Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[k]
}

func (f *fakeSource) SiteDetectionChart(ctx context.Context, siteID domain.ID, opts ...request.Option) ([]domain.DetectionSeries, error) {
	fail, block := f.hit(KindDetection)
	if block != nil {
		<-block
	}
	if fail {
		return nil, errors.New("tsp unavailable")
	}
	return []domain.DetectionSeries{{Method: 1, Points: []domain.DetectionPoint{{Dkilo: 713.5, Value: 1}}}}, nil
}

func (f *fakeSource) ListForecasts(ctx context.Context, v domain.ForecastVariant, siteID domain.ID, opts ...request.Option) ([]domain.ForecastRecord, error) {
	fail, block := f.hit(KindOf(v))
	if block != nil {
		<-block
	}
	if fail {
		return nil, errors.New("list unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ForecastRecord(nil), f.records[v]...), nil
}

func (f *fakeSource) Transition(ctx context.Context, rec domain.ForecastRecord, action domain.Action) (domain.ForecastRecord, error) {
	if f.transitionErr != nil {
		return rec, f.transitionErr
	}
	return rec.Apply(action)
}

func (f *fakeSource) CopyForecast(ctx context.Context, rec domain.ForecastRecord) error {
	if err := rec.Check(domain.ActionCopy); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied++
	cp := rec
	cp.PK = "copy-" + rec.PK
	f.records[rec.Variant] = append(f.records[rec.Variant], cp)
	return nil
}

func (f *fakeSource) DeleteForecast(ctx context.Context, rec domain.ForecastRecord) error {
	return f.deleteErr
}

func TestExpand_OneFetchPerKindThenCached(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, l.Expand(ctx, "7"))
	for _, k := range Kinds {
		assert.Equal(t, 1, src.count(k), k)
	}
	assert.True(t, l.Expanded("7"))

	l.Collapse("7")
	assert.False(t, l.Expanded("7"))
	require.NoError(t, l.Expand(ctx, "7"))
	for _, k := range Kinds {
		assert.Equal(t, 1, src.count(k), "re-expand must not refetch %s", k)
	}

	sec := l.Section("7", PolicyManagement)
	assert.True(t, sec.Expanded)
	assert.True(t, sec.Detection.Loaded)
	assert.Len(t, sec.Detection.Series, 1)
	require.Len(t, sec.Methods, 5)
	assert.Len(t, sec.Methods[0].Records, 2)
}

func TestExpand_FetchesKindsConcurrently(t *testing.T) {
	src := newFakeSource()
	src.block = make(chan struct{})
	l := NewLoader(src, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- l.Expand(context.Background(), "7") }()

	// 所有数据集的请求都已发出，说明不是串行加载
	require.Eventually(t, func() bool {
		for _, k := range Kinds {
			if src.count(k) != 1 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	sec := l.Section("7", PolicySummary)
	assert.True(t, sec.Detection.Loading)
	for _, m := range sec.Methods {
		assert.True(t, m.Loading, m.Kind)
	}

	close(src.block)
	require.NoError(t, <-done)
}

func TestExpand_FailedKindIsIsolated(t *testing.T) {
	src := newFakeSource()
	src.failing[KindDetection] = true
	l := NewLoader(src, zap.NewNop())

	require.NoError(t, l.Expand(context.Background(), "7"))
	sec := l.Section("7", PolicyManagement)
	assert.False(t, sec.Detection.Loaded)
	assert.False(t, sec.Detection.Loading)
	assert.NotEmpty(t, sec.Detection.Error)
	assert.Empty(t, sec.Detection.Series)
	assert.True(t, sec.Methods[0].Loaded)
}

func TestExpand_SectionsAreIndependent(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, l.Expand(ctx, "7"))
	require.NoError(t, l.Expand(ctx, "8"))
	assert.Equal(t, 2, src.count(KindDetection))

	l.Collapse("8")
	assert.True(t, l.Expanded("7"))
}

func TestRefresh_OnlyAffectedKinds(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, l.Expand(ctx, "7"))

	require.NoError(t, l.Refresh(ctx, "7", KindOf(domain.VariantGeophysical)))
	assert.Equal(t, 2, src.count(KindOf(domain.VariantGeophysical)))
	assert.Equal(t, 1, src.count(KindDetection))

	require.NoError(t, l.Refresh(ctx, "7"))
	assert.Equal(t, 2, src.count(KindDetection))
}

func TestSection_SummaryShowsOnlyUploaded(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	require.NoError(t, l.Expand(context.Background(), "7"))

	sec := l.Section("7", PolicySummary)
	geo := sec.Methods[0]
	require.Len(t, geo.Records, 1)
	assert.Equal(t, domain.ID("2"), geo.Records[0].PK)
	assert.Empty(t, geo.Records[0].Actions)
	assert.Empty(t, sec.Methods[3].Records)
}

func TestSection_ManagementAttachesActions(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	require.NoError(t, l.Expand(context.Background(), "7"))

	sec := l.Section("7", PolicyManagement)
	geo := sec.Methods[0].Records
	assert.Equal(t, []domain.Action{domain.ActionView, domain.ActionEdit, domain.ActionCopy, domain.ActionUpload, domain.ActionDelete}, geo[0].Actions)
	assert.Equal(t, []domain.Action{domain.ActionView, domain.ActionDelete, domain.ActionWithdraw}, geo[1].Actions)

	drilling := sec.Methods[3].Records
	require.Len(t, drilling, 1)
	assert.Equal(t, []domain.Action{domain.ActionView, domain.ActionEdit, domain.ActionDelete}, drilling[0].Actions)
}

func TestPerform_Transitions(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, l.Expand(ctx, "7"))

	next, err := l.Perform(ctx, "7", domain.VariantGeophysical, "1", domain.ActionUpload)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUploaded, next.State)
	assert.Len(t, l.Section("7", PolicySummary).Methods[0].Records, 2)

	// 后端失败：状态不变
	src.transitionErr = errors.New("boom")
	_, err = l.Perform(ctx, "7", domain.VariantGeophysical, "1", domain.ActionWithdraw)
	require.Error(t, err)
	assert.Len(t, l.Section("7", PolicySummary).Methods[0].Records, 2)
}

func TestPerform_DeleteAndCopy(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, l.Expand(ctx, "7"))

	src.deleteErr = errors.New("Server error (500)")
	_, err := l.Perform(ctx, "7", domain.VariantDrilling, "3", domain.ActionDelete)
	require.Error(t, err)
	assert.Len(t, l.Section("7", PolicyManagement).Methods[3].Records, 1)

	src.deleteErr = nil
	_, err = l.Perform(ctx, "7", domain.VariantDrilling, "3", domain.ActionDelete)
	require.NoError(t, err)
	assert.Empty(t, l.Section("7", PolicyManagement).Methods[3].Records)

	_, err = l.Perform(ctx, "7", domain.VariantGeophysical, "1", domain.ActionCopy)
	require.NoError(t, err)
	assert.Len(t, l.Section("7", PolicyManagement).Methods[0].Records, 3)
	assert.Equal(t, 2, src.count(KindOf(domain.VariantGeophysical)))
}

func TestPerform_Errors(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, zap.NewNop())
	ctx := context.Background()

	_, err := l.Perform(ctx, "7", domain.VariantGeophysical, "1", domain.ActionUpload)
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, l.Expand(ctx, "7"))
	_, err = l.Perform(ctx, "7", domain.VariantGeophysical, "404", domain.ActionUpload)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = l.Perform(ctx, "7", domain.VariantGeophysical, "1", domain.ActionEdit)
	assert.ErrorIs(t, err, domain.ErrUnsupportedAction)
}

func TestClose_DiscardsInflight(t *testing.T) {
	src := newFakeSource()
	src.block = make(chan struct{})
	l := NewLoader(src, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- l.Expand(context.Background(), "7") }()
	require.Eventually(t, func() bool { return src.count(KindDetection) == 1 }, time.Second, 5*time.Millisecond)

	l.Close()
	close(src.block)
	assert.ErrorIs(t, <-done, keyedcache.ErrClosed)

	sec := l.Section("7", PolicyManagement)
	assert.False(t, sec.Detection.Loaded)
	assert.False(t, sec.Expanded)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("wtf")
	require.NoError(t, err)
	assert.Equal(t, KindOf(domain.VariantGeophysical), k)

	k, err = ParseKind("detection")
	require.NoError(t, err)
	assert.Equal(t, KindDetection, k)

	_, err = ParseKind("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Len(t, Kinds, 6)
}
