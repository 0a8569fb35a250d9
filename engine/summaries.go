package engine

import (
	"time"

	"github.com/PolDiaz18/nexotime/models"
)

// HabitStatus is one habit's state inside a day summary.
type HabitStatus struct {
	HabitID        uint             `json:"habit_id"`
	Name           string           `json:"name"`
	Icon           string           `json:"icon"`
	HabitType      models.HabitType `json:"habit_type"`
	TargetQuantity float64          `json:"target_quantity,omitempty"`
	QuantityUnit   string           `json:"quantity_unit,omitempty"`
	Completed      bool             `json:"completed"`
	QuantityLogged float64          `json:"quantity_logged"`
	CurrentStreak  int              `json:"current_streak"`
}

// DaySummary describes one calendar day of one user.
type DaySummary struct {
	Date       string        `json:"date"`
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	Percentage float64       `json:"percentage"`
	Habits     []HabitStatus `json:"habits"`
}

// GetDaySummary returns the day's applicable habits with their completion
// state, the shared read model behind the today endpoint, the bot's /today
// and /pending commands and the reminder messages.
func (e *Engine) GetDaySummary(userID uint, day time.Time) (*DaySummary, error) {
	var habits []models.Habit
	err := e.db.Where("user_id = ?", userID).Order("sort_order, id").Find(&habits).Error
	if err != nil {
		return nil, err
	}
	applicable := applicableHabits(habits, day)
	date := models.DateKey(day)

	sum := &DaySummary{Date: date, Total: len(applicable), Habits: make([]HabitStatus, 0, len(applicable))}
	if len(applicable) == 0 {
		return sum, nil
	}

	ids := make([]uint, 0, len(applicable))
	for _, h := range applicable {
		ids = append(ids, h.ID)
	}
	var logs []models.HabitLog
	err = e.db.Where("habit_id IN ? AND date = ?", ids, date).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	byHabit := make(map[uint]models.HabitLog, len(logs))
	for _, l := range logs {
		byHabit[l.HabitID] = l
	}

	for _, h := range applicable {
		st := HabitStatus{
			HabitID:        h.ID,
			Name:           h.Name,
			Icon:           h.Icon,
			HabitType:      h.HabitType,
			TargetQuantity: h.TargetQuantity,
			QuantityUnit:   h.QuantityUnit,
			CurrentStreak:  h.CurrentStreak,
		}
		if l, ok := byHabit[h.ID]; ok {
			st.Completed = l.Completed
			st.QuantityLogged = l.QuantityLogged
		}
		if st.Completed {
			sum.Completed++
		}
		sum.Habits = append(sum.Habits, st)
	}
	if sum.Total > 0 {
		sum.Percentage = float64(sum.Completed) / float64(sum.Total) * 100
	}
	return sum, nil
}

// Pending returns the names of the day's applicable habits still undone.
func (s *DaySummary) Pending() []HabitStatus {
	var out []HabitStatus
	for _, h := range s.Habits {
		if !h.Completed {
			out = append(out, h)
		}
	}
	return out
}

// WeekSummary aggregates seven day summaries.
type WeekSummary struct {
	WeekStart  string       `json:"week_start"`
	WeekEnd    string       `json:"week_end"`
	Total      int          `json:"total"`
	Completed  int          `json:"completed"`
	Percentage float64      `json:"percentage"`
	Days       []DaySummary `json:"days"`
}

// GetWeekSummary returns the seven days starting at weekStart.
func (e *Engine) GetWeekSummary(userID uint, weekStart time.Time) (*WeekSummary, error) {
	out := &WeekSummary{
		WeekStart: models.DateKey(weekStart),
		WeekEnd:   models.DateKey(weekStart.AddDate(0, 0, 6)),
		Days:      make([]DaySummary, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day, err := e.GetDaySummary(userID, weekStart.AddDate(0, 0, i))
		if err != nil {
			return nil, err
		}
		out.Total += day.Total
		out.Completed += day.Completed
		out.Days = append(out.Days, *day)
	}
	if out.Total > 0 {
		out.Percentage = float64(out.Completed) / float64(out.Total) * 100
	}
	return out, nil
}

// HistoryDay is one cell of a habit's history heatmap.
type HistoryDay struct {
	Date           string  `json:"date"`
	Applicable     bool    `json:"applicable"`
	Completed      bool    `json:"completed"`
	QuantityLogged float64 `json:"quantity_logged"`
}

// HabitHistory is the read model behind the per-habit history endpoint.
type HabitHistory struct {
	HabitID        uint         `json:"habit_id"`
	Name           string       `json:"name"`
	DaysTracked    int          `json:"days_tracked"`
	CompletedCount int          `json:"completed_count"`
	CompletionRate float64      `json:"completion_rate"`
	CurrentStreak  int          `json:"current_streak"`
	BestStreak     int          `json:"best_streak"`
	Days           []HistoryDay `json:"days"`
}

// GetHabitHistory returns the habit's last n days ending at the given day,
// oldest first. The completion rate only counts applicable days.
func (e *Engine) GetHabitHistory(userID, habitID uint, endDay time.Time, days int) (*HabitHistory, error) {
	if days <= 0 {
		days = 30
	}
	var habit models.Habit
	if err := e.db.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		return nil, asNotFound(err)
	}

	start := endDay.AddDate(0, 0, -(days - 1))
	var logs []models.HabitLog
	err := e.db.Where("habit_id = ? AND date >= ? AND date <= ?",
		habitID, models.DateKey(start), models.DateKey(endDay)).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]models.HabitLog, len(logs))
	for _, l := range logs {
		byDate[l.Date] = l
	}

	hist := &HabitHistory{
		HabitID:       habit.ID,
		Name:          habit.Name,
		CurrentStreak: habit.CurrentStreak,
		BestStreak:    habit.BestStreak,
		Days:          make([]HistoryDay, 0, days),
	}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		cell := HistoryDay{
			Date:       models.DateKey(day),
			Applicable: AppliesOn(&habit, day),
		}
		if l, ok := byDate[cell.Date]; ok {
			cell.Completed = l.Completed
			cell.QuantityLogged = l.QuantityLogged
		}
		if cell.Applicable {
			hist.DaysTracked++
			if cell.Completed {
				hist.CompletedCount++
			}
		}
		hist.Days = append(hist.Days, cell)
	}
	if hist.DaysTracked > 0 {
		hist.CompletionRate = float64(hist.CompletedCount) / float64(hist.DaysTracked) * 100
	}
	return hist, nil
}
