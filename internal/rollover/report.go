package rollover

import (
	"time"

	"github.com/google/uuid"

	"lab-hours/pkg/weekwindow"
)

// Тип запуска
const (
	KindScheduled = "scheduled"
	KindManual    = "manual"
	KindBackfill  = "backfill"
)

// Result - пользователь, для которого создана новая запись архива
type Result struct {
	UserID        uint    `json:"user_id"`
	UserName      string  `json:"user_name"`
	HoursArchived float64 `json:"hours_archived"`
}

// Failure - пользователь, обработка которого завершилась ошибкой
type Failure struct {
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
	Error    string `json:"error"`
}

// Report - итог одного запуска по всем активным пользователям
type Report struct {
	RunID      uuid.UUID         `json:"run_id"`
	Kind       string            `json:"kind"`
	Reference  time.Time         `json:"reference"`
	Window     weekwindow.Window `json:"window"`
	Archived   []Result          `json:"archived"`
	Skipped    int               `json:"skipped"`
	Failures   []Failure         `json:"failures"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func newReport(kind string, reference time.Time, window weekwindow.Window, startedAt time.Time) *Report {
	return &Report{
		RunID:     uuid.New(),
		Kind:      kind,
		Reference: reference,
		Window:    window,
		Archived:  []Result{},
		Failures:  []Failure{},
		StartedAt: startedAt,
	}
}

// Summary - краткая сводка последнего запуска для статуса
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Kind       string    `json:"kind"`
	WeekStart  time.Time `json:"week_start"`
	FinishedAt time.Time `json:"finished_at"`
	Archived   int       `json:"archived"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

func (r *Report) Summary() *Summary {
	return &Summary{
		RunID:      r.RunID,
		Kind:       r.Kind,
		WeekStart:  r.Window.Start,
		FinishedAt: r.FinishedAt,
		Archived:   len(r.Archived),
		Skipped:    r.Skipped,
		Failed:     len(r.Failures),
	}
}

// TotalHours - сумма заархивированных часов
func (r *Report) TotalHours() float64 {
	var total float64
	for _, res := range r.Archived {
		total += res.HoursArchived
	}
	return total
}
