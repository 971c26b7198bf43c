// Package summary aggregates treatments into the nutrition reports the
// Telegram bot answers with. Numeric values missing from the first-class
// fields fall back to the note meta written by the uploader.
package summary

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/megusto0/tgintegration/internal/treatment"
)

// Store is the slice of the remote client the aggregator needs.
type Store interface {
	FetchBetween(ctx context.Context, start, end time.Time, pageSize int) ([]map[string]any, error)
}

// DayTotals holds the running sums for one local day.
type DayTotals struct {
	Entries  int
	Insulin  float64
	Carbs    float64
	Calories float64
}

// Totals is the aggregate over a fetched range, bucketed per local day.
// Daily keys are "2006-01-02" dates.
type Totals struct {
	Entries  int
	Insulin  float64
	Carbs    float64
	Calories float64
	Daily    map[string]DayTotals
}

const dayKeyLayout = "2006-01-02"

var weekdayLabels = []string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// Aggregate folds raw treatment documents into per-day and overall sums.
// Records without a parsable created_at are counted but land in no bucket.
func Aggregate(docs []map[string]any) Totals {
	totals := Totals{Daily: map[string]DayTotals{}}

	for _, doc := range docs {
		totals.Entries++
		day, ok := localDate(doc)
		if !ok {
			continue
		}

		notes, _ := doc["notes"].(string)
		meta := treatment.ParseMeta(notes)

		stats := totals.Daily[day]
		stats.Entries++

		if v, ok := pickNumber(doc["insulin"], meta["insulin_u"]); ok {
			totals.Insulin += v
			stats.Insulin += v
		}
		if v, ok := pickNumber(doc["carbs"], meta["carbs_g"]); ok {
			totals.Carbs += v
			stats.Carbs += v
		}
		if v, ok := pickNumber(doc["calories_kcal"], meta["calories_kcal"]); ok {
			totals.Calories += v
			stats.Calories += v
		}

		totals.Daily[day] = stats
	}

	return totals
}

// BuildDay renders the one-day report for the local date of day.
// When the direct range query comes back empty, the surrounding week is
// fetched and filtered by local date, so records stored with a timezone
// offset still land on the right day.
func BuildDay(ctx context.Context, store Store, day time.Time) (string, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	start := day
	end := start.AddDate(0, 0, 1)

	docs, err := store.FetchBetween(ctx, start, end, 200)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		weekStart := startOfWeek(day)
		weekDocs, err := store.FetchBetween(ctx, weekStart, weekStart.AddDate(0, 0, 7), 500)
		if err != nil {
			return "", err
		}
		key := day.Format(dayKeyLayout)
		for _, doc := range weekDocs {
			if d, ok := localDate(doc); ok && d == key {
				docs = append(docs, doc)
			}
		}
	}

	totals := Aggregate(docs)
	stats, ok := totals.Daily[day.Format(dayKeyLayout)]

	header := "📅 " + day.Format("02.01.2006")
	if !ok || stats.Entries == 0 {
		return header + "\nНет записей.", nil
	}

	lines := []string{
		header,
		fmt.Sprintf("Записей: %d", stats.Entries),
		"Инсулин: " + formatAmount(stats.Insulin, "ед", 1),
		"Углеводы: " + formatAmount(stats.Carbs, "г", 0),
		"Калории: " + formatAmount(stats.Calories, "ккал", 0),
	}
	return strings.Join(lines, "\n"), nil
}

// BuildWeek renders the Monday-to-Sunday report for the week containing
// ref, with per-day lines, grand totals, and averages over active days.
func BuildWeek(ctx context.Context, store Store, ref time.Time) (string, error) {
	weekStart := startOfWeek(ref.UTC().Truncate(24 * time.Hour))
	weekEnd := weekStart.AddDate(0, 0, 7)

	docs, err := store.FetchBetween(ctx, weekStart, weekEnd, 1000)
	if err != nil {
		return "", err
	}
	totals := Aggregate(docs)

	header := "📈 Неделя " + weekStart.Format("02.01") + " – " + weekEnd.AddDate(0, 0, -1).Format("02.01.2006")
	if totals.Entries == 0 {
		return header + "\nНет записей на этой неделе.", nil
	}

	activeDays := 0
	for _, stats := range totals.Daily {
		if stats.Entries > 0 {
			activeDays++
		}
	}

	lines := []string{header}
	for offset := 0; offset < 7; offset++ {
		day := weekStart.AddDate(0, 0, offset)
		label := weekdayLabels[offset]
		stats, ok := totals.Daily[day.Format(dayKeyLayout)]
		if !ok || stats.Entries == 0 {
			lines = append(lines, fmt.Sprintf("• %s %s — нет записей", label, day.Format("02.01")))
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s %s: %d запис., инсулин %s, углеводы %s, калории %s",
			label, day.Format("02.01"), stats.Entries,
			formatAmount(stats.Insulin, "ед", 1),
			formatAmount(stats.Carbs, "г", 0),
			formatAmount(stats.Calories, "ккал", 0)))
	}

	divider := float64(activeDays)
	if divider == 0 {
		divider = 1
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Дней с записями: %d из 7", activeDays),
		fmt.Sprintf("Записей: %d", totals.Entries),
		"Итого:",
		"• Инсулин: "+formatAmount(totals.Insulin, "ед", 1),
		"• Углеводы: "+formatAmount(totals.Carbs, "г", 0),
		"• Калории: "+formatAmount(totals.Calories, "ккал", 0),
		"Среднее за активный день:",
		"• Инсулин: "+formatAmount(totals.Insulin/divider, "ед", 1),
		"• Углеводы: "+formatAmount(totals.Carbs/divider, "г", 0),
		"• Калории: "+formatAmount(totals.Calories/divider, "ккал", 0),
	)
	return strings.Join(lines, "\n"), nil
}

// ParseDate accepts the two date forms the bot commands take.
func ParseDate(arg string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.Parse(layout, arg); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", arg)
}

// localDate keys the record by the day it belongs to in the uploader's
// timezone: created_at shifted by the record's utcOffset minutes.
func localDate(doc map[string]any) (string, bool) {
	raw, _ := doc["created_at"].(string)
	if raw == "" {
		raw, _ = doc["createdAt"].(string)
	}
	if raw == "" {
		return "", false
	}

	text := strings.Replace(raw, " ", "T", 1)
	var created time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		created, err = time.Parse(layout, text)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", false
	}

	if offset, ok := doc["utcOffset"].(float64); ok && offset != 0 {
		created = created.Add(time.Duration(offset) * time.Minute)
	}
	return created.Format(dayKeyLayout), true
}

// pickNumber returns the first usable numeric candidate. Strings are
// accepted because note meta keeps numbers losslessly typed only on the
// happy path.
func pickNumber(candidates ...any) (float64, bool) {
	for _, raw := range candidates {
		switch v := raw.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func startOfWeek(day time.Time) time.Time {
	back := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -back)
}

func formatAmount(value float64, unit string, precision int) string {
	if precision == 0 {
		return fmt.Sprintf("%d %s", int(math.Round(value)), unit)
	}
	text := strconv.FormatFloat(value, 'f', precision, 64)
	text = strings.TrimRight(strings.TrimRight(text, "0"), ".")
	return text + " " + unit
}
