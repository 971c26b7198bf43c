package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fetchCall struct {
	start, end time.Time
	pageSize   int
}

type fakeStore struct {
	pages [][]map[string]any
	err   error
	calls []fetchCall
}

func (f *fakeStore) FetchBetween(_ context.Context, start, end time.Time, pageSize int) ([]map[string]any, error) {
	f.calls = append(f.calls, fetchCall{start: start, end: end, pageSize: pageSize})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func doc(createdAt string, fields map[string]any) map[string]any {
	d := map[string]any{"created_at": createdAt}
	for k, v := range fields {
		d[k] = v
	}
	return d
}

func TestAggregate_MetaFallback(t *testing.T) {
	docs := []map[string]any{
		doc("2026-08-10T09:00:00Z", map[string]any{
			"insulin": 2.5,
			"carbs":   float64(30),
			"notes":   `[alice-meta]{"ver":1,"calories_kcal":400}`,
		}),
		doc("2026-08-10T13:00:00Z", map[string]any{
			"insulin":       float64(1),
			"carbs":         "20",
			"calories_kcal": float64(250),
		}),
	}

	totals := Aggregate(docs)
	assert.Equal(t, 2, totals.Entries)
	assert.InDelta(t, 3.5, totals.Insulin, 1e-9)
	assert.InDelta(t, 50, totals.Carbs, 1e-9)
	assert.InDelta(t, 650, totals.Calories, 1e-9)

	day := totals.Daily["2026-08-10"]
	assert.Equal(t, 2, day.Entries)
	assert.InDelta(t, 3.5, day.Insulin, 1e-9)
}

func TestAggregate_FirstClassWinsOverMeta(t *testing.T) {
	docs := []map[string]any{
		doc("2026-08-10T09:00:00Z", map[string]any{
			"insulin": float64(2),
			"notes":   `[alice-meta]{"ver":1,"insulin_u":9}`,
		}),
	}

	totals := Aggregate(docs)
	assert.InDelta(t, 2, totals.Insulin, 1e-9)
}

func TestAggregate_UTCOffsetShiftsDay(t *testing.T) {
	docs := []map[string]any{
		doc("2026-08-10T23:30:00Z", map[string]any{
			"carbs":     float64(10),
			"utcOffset": float64(180),
		}),
	}

	totals := Aggregate(docs)
	assert.Equal(t, 1, totals.Daily["2026-08-11"].Entries)
	assert.Empty(t, totals.Daily["2026-08-10"])
}

func TestAggregate_UnparsableCreatedAt(t *testing.T) {
	totals := Aggregate([]map[string]any{
		doc("not-a-date", map[string]any{"carbs": float64(10)}),
		{"carbs": float64(5)},
	})
	assert.Equal(t, 2, totals.Entries)
	assert.Empty(t, totals.Daily)
}

func TestBuildDay(t *testing.T) {
	store := &fakeStore{pages: [][]map[string]any{{
		doc("2026-08-10T09:00:00Z", map[string]any{"insulin": 2.5, "carbs": float64(30)}),
		doc("2026-08-10T13:00:00Z", map[string]any{"insulin": float64(1), "carbs": float64(20), "calories_kcal": float64(650)}),
	}}}

	text, err := BuildDay(context.Background(), store, time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Equal(t, "📅 10.08.2026\nЗаписей: 2\nИнсулин: 3.5 ед\nУглеводы: 50 г\nКалории: 650 ккал", text)

	assert.Len(t, store.calls, 1)
	assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), store.calls[0].start)
	assert.Equal(t, time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), store.calls[0].end)
}

func TestBuildDay_WeekFallback(t *testing.T) {
	store := &fakeStore{pages: [][]map[string]any{
		nil,
		{
			doc("2026-08-26T02:00:00+03:00", map[string]any{"carbs": float64(40)}),
			doc("2026-08-24T12:00:00Z", map[string]any{"carbs": float64(99)}),
		},
	}}

	text, err := BuildDay(context.Background(), store, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Contains(t, text, "📅 26.08.2026")
	assert.Contains(t, text, "Записей: 1")
	assert.Contains(t, text, "Углеводы: 40 г")

	assert.Len(t, store.calls, 2)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), store.calls[1].start)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), store.calls[1].end)
}

func TestBuildDay_NoRecords(t *testing.T) {
	store := &fakeStore{}
	text, err := BuildDay(context.Background(), store, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Equal(t, "📅 10.08.2026\nНет записей.", text)
}

func TestBuildDay_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("down")}
	_, err := BuildDay(context.Background(), store, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestBuildWeek(t *testing.T) {
	store := &fakeStore{pages: [][]map[string]any{{
		doc("2026-08-24T09:00:00Z", map[string]any{"insulin": float64(2), "carbs": float64(50), "calories_kcal": float64(300)}),
		doc("2026-08-26T13:00:00Z", map[string]any{"insulin": float64(4), "carbs": float64(100), "notes": `[alice-meta]{"ver":1,"calories_kcal":500}`}),
	}}}

	text, err := BuildWeek(context.Background(), store, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	assert.Contains(t, text, "📈 Неделя 24.08 – 30.08.2026")
	assert.Contains(t, text, "• Пн 24.08: 1 запис., инсулин 2 ед, углеводы 50 г, калории 300 ккал")
	assert.Contains(t, text, "• Вт 25.08 — нет записей")
	assert.Contains(t, text, "Дней с записями: 2 из 7")
	assert.Contains(t, text, "Записей: 2")
	assert.Contains(t, text, "Итого:\n• Инсулин: 6 ед\n• Углеводы: 150 г\n• Калории: 800 ккал")
	assert.Contains(t, text, "Среднее за активный день:\n• Инсулин: 3 ед\n• Углеводы: 75 г\n• Калории: 400 ккал")

	assert.Len(t, store.calls, 1)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), store.calls[0].start)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), store.calls[0].end)
}

func TestBuildWeek_Empty(t *testing.T) {
	store := &fakeStore{}
	text, err := BuildWeek(context.Background(), store, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Equal(t, "📈 Неделя 24.08 – 30.08.2026\nНет записей на этой неделе.", text)
}

func TestParseDate(t *testing.T) {
	iso, err := ParseDate("2026-08-10")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), iso)

	dotted, err := ParseDate("10.08.2026")
	assert.NoError(t, err)
	assert.Equal(t, iso, dotted)

	_, err = ParseDate("August 10")
	assert.Error(t, err)
}
