// Message templates for proactive notifications. All rendering is plain
// text; transports decide how to display it.
package scheduler

import (
	"fmt"
	"strings"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
)

func progressBar(cur, tot int) string {
	const length = 10
	if tot == 0 {
		return strings.Repeat("░", length) + " 0%"
	}
	filled := length * cur / tot
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled) +
		fmt.Sprintf(" %d%%", cur*100/tot)
}

func paceEmoji(pct float64) string {
	switch {
	case pct >= 80:
		return "🟢"
	case pct >= 50:
		return "🟡"
	default:
		return "🔴"
	}
}

func habitLine(h engine.HabitStatus, done bool) string {
	mark := "⬜"
	if done {
		mark = "✅"
	}
	return fmt.Sprintf("  %s %s %s", mark, h.Icon, h.Name)
}

func morningMessage(user *models.User, sum *engine.DaySummary, quote *models.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌅 Buenos días, %s!\n\n", user.Name)
	fmt.Fprintf(&b, "Tiene %d hábitos para hoy.\n", sum.Total)
	fmt.Fprintf(&b, "🔥 Racha: %d días\n", user.GlobalStreak)
	for i, h := range sum.Habits {
		if i == 5 {
			fmt.Fprintf(&b, "  ...y %d más\n", len(sum.Habits)-5)
			break
		}
		b.WriteString(habitLine(h, false) + "\n")
	}
	if quote != nil {
		fmt.Fprintf(&b, "\n💡 %s", quote.Text)
	}
	return b.String()
}

// checkpointMessage covers the midday, evening and night reminders. They
// share one pending-habit listing; the kind only changes the tone and
// whether a fully completed day is worth a message at all.
func checkpointMessage(kind models.ReminderType, user *models.User, sum *engine.DaySummary) string {
	pending := sum.Pending()
	if len(pending) == 0 {
		if kind == models.ReminderMidday && sum.Total > 0 {
			return fmt.Sprintf("🎉 %s, ya completó todo!\n\nImpresionante. 💎", user.Name)
		}
		// Evening and night reminders stay silent on a finished day.
		return ""
	}

	var b strings.Builder
	switch kind {
	case models.ReminderMidday:
		b.WriteString("☀️ Checkpoint mediodía\n\n")
	case models.ReminderEvening:
		fmt.Fprintf(&b, "🌙 %s, el día no ha terminado\n\n", user.Name)
	default:
		fmt.Fprintf(&b, "⏰ Última llamada, %s\n\n", user.Name)
	}
	fmt.Fprintf(&b, "%s %s\n\n", progressBar(sum.Completed, sum.Total), paceEmoji(sum.Percentage))
	fmt.Fprintf(&b, "Faltan %d hábitos:\n", len(pending))
	for i, h := range pending {
		if i == 5 && kind == models.ReminderMidday {
			break
		}
		b.WriteString(habitLine(h, false) + "\n")
	}

	switch kind {
	case models.ReminderMidday:
		b.WriteString("\n¡Aún hay tiempo! 💪")
	case models.ReminderEvening:
		if user.GlobalStreak > 0 {
			fmt.Fprintf(&b, "\n⚠️ Su racha de %d días está en juego!", user.GlobalStreak)
		}
	default:
		if user.GlobalStreak >= 7 {
			fmt.Fprintf(&b, "\n🔥 %d días de racha. No los pierda.", user.GlobalStreak)
		} else if user.GlobalStreak >= 3 {
			fmt.Fprintf(&b, "\n🌱 Lleva %d días. No pare ahora.", user.GlobalStreak)
		}
	}
	return b.String()
}

func summaryMessage(user *models.User, sum *engine.DaySummary, water *models.WaterLog, mood *models.MoodLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Resumen del día %s\n\n", paceEmoji(sum.Percentage))
	fmt.Fprintf(&b, "Hábitos: %d/%d\n%s\n\n", sum.Completed, sum.Total, progressBar(sum.Completed, sum.Total))
	for _, h := range sum.Habits {
		b.WriteString(habitLine(h, h.Completed) + "\n")
	}
	if water != nil {
		fmt.Fprintf(&b, "\n💧 Agua: %d/%d\n", water.Glasses, water.Target)
	}
	if mood != nil && mood.Level >= 1 && mood.Level <= 5 {
		moods := []string{"😢", "😞", "😐", "🙂", "🤩"}
		fmt.Fprintf(&b, "😊 Ánimo: %s\n", moods[mood.Level-1])
	}
	switch {
	case sum.Total > 0 && sum.Completed == sum.Total:
		b.WriteString("\n🏆 Día perfecto! Descanse bien.")
	case sum.Percentage >= 70:
		b.WriteString("\n👍 Buen día. Mañana a por el 100%.")
	case sum.Percentage >= 40:
		b.WriteString("\n💪 Hay margen. Mañana será mejor.")
	default:
		b.WriteString("\n🌱 No pasa nada. Lo importante es no rendirse.")
	}
	fmt.Fprintf(&b, "\n\nBuenas noches, %s 🌙", user.Name)
	return b.String()
}

func weeklyMessage(user *models.User, week *engine.WeekSummary) string {
	dayNames := []string{"L", "M", "X", "J", "V", "S", "D"}
	cells := make([]string, 0, 7)
	for i, day := range week.Days {
		mark := "·"
		if day.Total > 0 {
			if day.Completed == day.Total {
				mark = "✅"
			} else {
				mark = "❌"
			}
		}
		cells = append(cells, dayNames[i]+" "+mark)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Resumen semanal %s\n\n", paceEmoji(week.Percentage))
	b.WriteString(strings.Join(cells, " ") + "\n\n")
	fmt.Fprintf(&b, "Total: %d/%d\n", week.Completed, week.Total)
	fmt.Fprintf(&b, "🔥 Racha: %d días\n", user.GlobalStreak)
	fmt.Fprintf(&b, "⚡ Nivel: %d (%s)\n", user.Level, engine.LevelTitle(user.Level))
	fmt.Fprintf(&b, "💰 XP: %d", user.XP)
	switch {
	case week.Percentage >= 90:
		b.WriteString("\n\n🏆 Semana excepcional!")
	case week.Percentage >= 70:
		b.WriteString("\n\n💪 Buena semana.")
	case week.Percentage >= 50:
		b.WriteString("\n\n📈 Semana decente.")
	default:
		b.WriteString("\n\n🌱 La próxima será mejor.")
	}
	return b.String()
}

func routineMessage(routine *models.Routine, steps []models.RoutineStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Es hora de: %s\n\n", routine.Icon, routine.Name)
	for _, s := range steps {
		dur := ""
		if s.DurationMinutes > 0 {
			dur = fmt.Sprintf(" (%d min)", s.DurationMinutes)
		}
		fmt.Fprintf(&b, "%d. %s%s\n", s.StepOrder, s.Description, dur)
	}
	b.WriteString("\n💪 ¡Vamos!")
	return b.String()
}

func streakBrokenMessage(oldStreak, bestStreak int) string {
	return fmt.Sprintf("😔 Su racha de %d días se ha roto.\n\nNo pasa nada. Hoy es un nuevo comienzo. 🌅\nMejor racha: %d días", oldStreak, bestStreak)
}
