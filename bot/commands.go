package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

const helpText = `Comandos disponibles:
/vincular CODIGO - vincular este chat con su cuenta
/hoy - hábitos de hoy
/pendiente - hábitos que faltan hoy
/hecho N - marcar el hábito N como completado
/deshacer N - desmarcar el hábito N
/mas N [cantidad] - sumar cantidad a un hábito numérico
/racha - sus rachas
/nivel - nivel y XP
/logros - logros desbloqueados
/semana - resumen de la semana
/agua [vasos] - registrar agua
/animo N - registrar ánimo (1-5)
/inspiracion - una cita motivacional
/modo normal|vacaciones|enfermo - cambiar modo
/pausar - silenciar recordatorios
/reanudar - reactivar recordatorios`

// handleCommand interprets one chat line and returns the reply text.
func (h *Hub) handleCommand(c *Client, text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "No entendí eso. Escriba /help para ver los comandos."
	}
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/start":
		return "Bienvenido a NexoTime. Vincule su cuenta con /vincular CODIGO (el código se genera en la app)."
	case "/help":
		return helpText
	case "/vincular", "/link":
		return h.cmdLink(c, args)
	}

	user, err := h.sessionUser(c)
	if err != nil {
		return "Este chat no está vinculado. Use /vincular CODIGO."
	}
	today := h.clock.Now().In(h.userLocation(user))

	switch cmd {
	case "/hoy":
		return h.cmdToday(user, today)
	case "/pendiente":
		return h.cmdPending(user, today)
	case "/hecho":
		return h.cmdMark(user, today, args, true)
	case "/deshacer":
		return h.cmdMark(user, today, args, false)
	case "/mas":
		return h.cmdIncrement(user, today, args)
	case "/racha":
		return h.cmdStreaks(user)
	case "/nivel":
		return h.cmdLevel(user)
	case "/logros":
		return h.cmdAchievements(user)
	case "/semana":
		return h.cmdWeek(user, today)
	case "/agua":
		return h.cmdWater(user, today, args)
	case "/animo":
		return h.cmdMood(user, today, args)
	case "/inspiracion":
		return h.cmdQuote()
	case "/modo":
		return h.cmdMode(user, args)
	case "/pausar":
		return h.cmdDND(user, true)
	case "/reanudar":
		return h.cmdDND(user, false)
	}
	return "Comando desconocido. Escriba /help."
}

func (h *Hub) sessionUser(c *Client) (*models.User, error) {
	if c.userID == 0 {
		return nil, errors.New("unlinked session")
	}
	var user models.User
	if err := h.db.First(&user, c.userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *Hub) userLocation(user *models.User) *time.Location {
	if loc, err := time.LoadLocation(user.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func (h *Hub) cmdLink(c *Client, args []string) string {
	if len(args) != 1 {
		return "Uso: /vincular CODIGO"
	}
	userID, ok := utils.ConsumeLinkCode(args[0])
	if !ok {
		return "Código inválido o caducado. Genere uno nuevo en la app."
	}
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return "Código inválido o caducado. Genere uno nuevo en la app."
	}
	if err := h.db.Model(&user).Update("chat_id", c.chatID).Error; err != nil {
		h.log.Error("link chat", zap.Uint("user", userID), zap.Error(err))
		return "No se pudo vincular el chat. Inténtelo de nuevo."
	}
	c.userID = user.ID
	return fmt.Sprintf("✅ Chat vinculado. Hola, %s!", user.Name)
}

func (h *Hub) cmdToday(user *models.User, today time.Time) string {
	sum, err := h.engine.GetDaySummary(user.ID, today)
	if err != nil {
		return h.internalError("today summary", user.ID, err)
	}
	if sum.Total == 0 {
		return "Hoy no tiene hábitos programados."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Hoy %d/%d\n\n", sum.Completed, sum.Total)
	for i, st := range sum.Habits {
		mark := "⬜"
		if st.Completed {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s %s", i+1, mark, st.Icon, st.Name)
		if st.HabitType == models.HabitTypeQuantity {
			fmt.Fprintf(&b, " (%.0f/%.0f %s)", st.QuantityLogged, st.TargetQuantity, st.QuantityUnit)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n🔥 Racha global: %d días", user.GlobalStreak)
	return b.String()
}

func (h *Hub) cmdPending(user *models.User, today time.Time) string {
	sum, err := h.engine.GetDaySummary(user.ID, today)
	if err != nil {
		return h.internalError("pending", user.ID, err)
	}
	pending := sum.Pending()
	if len(pending) == 0 {
		if sum.Total == 0 {
			return "Hoy no tiene hábitos programados."
		}
		return "🎉 Nada pendiente. Todo completado!"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Faltan %d hábitos:\n\n", len(pending))
	for i, st := range sum.Habits {
		if st.Completed {
			continue
		}
		fmt.Fprintf(&b, "%d. ⬜ %s %s\n", i+1, st.Icon, st.Name)
	}
	b.WriteString("\nMárquelos con /hecho N")
	return b.String()
}

// habitByPosition resolves the 1-based index the /hoy listing shows.
func (h *Hub) habitByPosition(user *models.User, today time.Time, arg string) (*engine.HabitStatus, string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return nil, "El número no es válido. Vea la lista con /hoy."
	}
	sum, err := h.engine.GetDaySummary(user.ID, today)
	if err != nil {
		return nil, h.internalError("day summary", user.ID, err)
	}
	if n > len(sum.Habits) {
		return nil, fmt.Sprintf("Solo hay %d hábitos hoy. Vea la lista con /hoy.", len(sum.Habits))
	}
	st := sum.Habits[n-1]
	return &st, ""
}

func (h *Hub) cmdMark(user *models.User, today time.Time, args []string, completed bool) string {
	if len(args) != 1 {
		if completed {
			return "Uso: /hecho N"
		}
		return "Uso: /deshacer N"
	}
	st, msg := h.habitByPosition(user, today, args[0])
	if st == nil {
		return msg
	}
	res, err := h.engine.MarkHabit(user.ID, st.HabitID, today, completed, nil, nil)
	if err != nil {
		return h.internalError("mark habit", user.ID, err)
	}
	h.invalidateSummaries(user.ID)
	if !completed {
		if !res.JustUncompleted {
			return fmt.Sprintf("%s no estaba marcado hoy.", st.Name)
		}
		return fmt.Sprintf("↩️ %s desmarcado. La racha del hábito vuelve a 0.", st.Name)
	}
	return markReply(st.Name, res)
}

func (h *Hub) cmdIncrement(user *models.User, today time.Time, args []string) string {
	if len(args) < 1 || len(args) > 2 {
		return "Uso: /mas N [cantidad]"
	}
	st, msg := h.habitByPosition(user, today, args[0])
	if st == nil {
		return msg
	}
	delta := 1.0
	if len(args) == 2 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil || v <= 0 {
			return "La cantidad no es válida."
		}
		delta = v
	}
	res, err := h.engine.IncrementHabitQuantity(user.ID, st.HabitID, today, delta)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidState) {
			return fmt.Sprintf("%s no es un hábito de cantidad. Use /hecho.", st.Name)
		}
		return h.internalError("increment habit", user.ID, err)
	}
	h.invalidateSummaries(user.ID)
	if res.JustCompleted {
		return markReply(st.Name, res)
	}
	return fmt.Sprintf("➕ %s: %.0f/%.0f %s", st.Name, res.Log.QuantityLogged, st.TargetQuantity, st.QuantityUnit)
}

func markReply(name string, res *engine.MarkResult) string {
	if !res.JustCompleted {
		return fmt.Sprintf("%s ya estaba completado hoy.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s completado.", name)
	if res.XP != nil {
		fmt.Fprintf(&b, " +%d XP", res.XP.XPEarned)
		if res.XP.Multiplier > 1 {
			fmt.Fprintf(&b, " (x%.2g por racha)", res.XP.Multiplier)
		}
	}
	if res.AllCompleted {
		b.WriteString("\n🎉 Todos los hábitos de hoy completados! +25 XP extra.")
	}
	if res.XP != nil && res.XP.LeveledUp {
		fmt.Fprintf(&b, "\n⬆️ Subió al nivel %d (%s)!", res.XP.Level, res.XP.Title)
	}
	for _, a := range res.NewAchievements {
		fmt.Fprintf(&b, "\n🏆 Logro desbloqueado: %s %s", a.Icon, a.Name)
	}
	return b.String()
}

func (h *Hub) cmdStreaks(user *models.User) string {
	st, err := h.engine.GetStreaks(user.ID)
	if err != nil {
		return h.internalError("streaks", user.ID, err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 Racha global: %d días (mejor: %d)\n", st.GlobalStreak, st.BestGlobalStreak)
	if len(st.Habits) > 0 {
		b.WriteString("\n")
		for _, hs := range st.Habits {
			fmt.Fprintf(&b, "  %s %s: %d días (mejor %d)\n", hs.Icon, hs.Name, hs.CurrentStreak, hs.BestStreak)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Hub) cmdLevel(user *models.User) string {
	info, err := h.engine.GetLevelInfo(user.ID)
	if err != nil {
		return h.internalError("level", user.ID, err)
	}
	bar := progressCells(info.XPInLevel, info.XPNextLevel)
	return fmt.Sprintf("⚡ Nivel %d - %s\n%s\n%d/%d XP para el siguiente nivel\n💰 XP total: %d",
		info.Level, info.Title, bar, info.XPInLevel, info.XPNextLevel, info.TotalXP)
}

func progressCells(cur, tot int) string {
	const length = 10
	if tot <= 0 {
		return strings.Repeat("░", length)
	}
	filled := length * cur / tot
	if filled > length {
		filled = length
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

func (h *Hub) cmdAchievements(user *models.User) string {
	list, err := h.engine.ListAchievements(user.ID)
	if err != nil {
		return h.internalError("achievements", user.ID, err)
	}
	unlocked := 0
	var b strings.Builder
	for _, a := range list {
		if a.Unlocked {
			unlocked++
			fmt.Fprintf(&b, "  %s %s\n", a.Icon, a.Name)
		}
	}
	if unlocked == 0 {
		return "Todavía no tiene logros. Complete hábitos para desbloquearlos."
	}
	return fmt.Sprintf("🏆 Logros: %d/%d\n\n%s", unlocked, len(list), strings.TrimRight(b.String(), "\n"))
}

func (h *Hub) cmdWeek(user *models.User, today time.Time) string {
	// Monday of the current week.
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	week, err := h.engine.GetWeekSummary(user.ID, monday)
	if err != nil {
		return h.internalError("week summary", user.ID, err)
	}
	dayNames := []string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Semana %s a %s\n\n", week.WeekStart, week.WeekEnd)
	for i, d := range week.Days {
		mark := "·"
		if d.Total > 0 {
			if d.Completed == d.Total {
				mark = "✅"
			} else {
				mark = fmt.Sprintf("%d/%d", d.Completed, d.Total)
			}
		}
		fmt.Fprintf(&b, "  %s %s\n", dayNames[i], mark)
	}
	fmt.Fprintf(&b, "\nTotal: %d/%d (%.0f%%)", week.Completed, week.Total, week.Percentage)
	return b.String()
}

func (h *Hub) cmdWater(user *models.User, today time.Time, args []string) string {
	glasses := 1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return "Uso: /agua [vasos]"
		}
		glasses = v
	}
	date := models.DateKey(today)
	var w models.WaterLog
	err := h.db.Where("user_id = ? AND date = ?", user.ID, date).First(&w).Error
	if err != nil {
		w = models.WaterLog{UserID: user.ID, Date: date, Glasses: glasses, Target: 8}
		if err := h.db.Create(&w).Error; err != nil {
			return h.internalError("water", user.ID, err)
		}
	} else {
		w.Glasses += glasses
		if err := h.db.Save(&w).Error; err != nil {
			return h.internalError("water", user.ID, err)
		}
	}
	if w.Glasses >= w.Target {
		return fmt.Sprintf("💧 %d/%d vasos. Objetivo cumplido! 🎉", w.Glasses, w.Target)
	}
	return fmt.Sprintf("💧 %d/%d vasos.", w.Glasses, w.Target)
}

func (h *Hub) cmdMood(user *models.User, today time.Time, args []string) string {
	if len(args) != 1 {
		return "Uso: /animo N (1-5)"
	}
	level, err := strconv.Atoi(args[0])
	if err != nil || level < 1 || level > 5 {
		return "El ánimo va de 1 (muy mal) a 5 (excelente)."
	}
	date := models.DateKey(today)
	var m models.MoodLog
	firstToday := false
	if err := h.db.Where("user_id = ? AND date = ?", user.ID, date).First(&m).Error; err != nil {
		m = models.MoodLog{UserID: user.ID, Date: date, Level: level}
		if err := h.db.Create(&m).Error; err != nil {
			return h.internalError("mood", user.ID, err)
		}
		firstToday = true
	} else {
		m.Level = level
		if err := h.db.Save(&m).Error; err != nil {
			return h.internalError("mood", user.ID, err)
		}
	}
	reply := "😊 Ánimo registrado."
	if firstToday {
		// Mood logging is flat XP, no streak multiplier on any entry point.
		if xp, err := h.engine.AwardAction(user.ID, engine.ActionMoodLog, 0); err == nil && xp.XPEarned > 0 {
			reply += fmt.Sprintf(" +%d XP", xp.XPEarned)
		}
	}
	return reply
}

func (h *Hub) cmdQuote() string {
	q, err := h.engine.RandomQuote()
	if err != nil {
		return "Hoy no hay cita, pero el hábito cuenta igual."
	}
	if q.Author != "" {
		return fmt.Sprintf("💡 %s\n— %s", q.Text, q.Author)
	}
	return fmt.Sprintf("💡 %s", q.Text)
}

func (h *Hub) cmdMode(user *models.User, args []string) string {
	if len(args) != 1 {
		return "Uso: /modo normal|vacaciones|enfermo"
	}
	var mode models.UserMode
	switch strings.ToLower(args[0]) {
	case "normal":
		mode = models.ModeNormal
	case "vacaciones", "vacation":
		mode = models.ModeVacation
	case "enfermo", "sick":
		mode = models.ModeSick
	default:
		return "Modo desconocido. Opciones: normal, vacaciones, enfermo."
	}
	if err := h.db.Model(user).Update("mode", string(mode)).Error; err != nil {
		return h.internalError("mode", user.ID, err)
	}
	switch mode {
	case models.ModeVacation:
		return "🏖️ Modo vacaciones. Sus rachas quedan protegidas y no recibirá recordatorios."
	case models.ModeSick:
		return "🤒 Modo enfermo. Cuídese; los recordatorios siguen pero sin presión."
	default:
		return "💪 Modo normal. A por ello."
	}
}

func (h *Hub) cmdDND(user *models.User, mute bool) string {
	if err := h.db.Model(user).Update("do_not_disturb", mute).Error; err != nil {
		return h.internalError("dnd", user.ID, err)
	}
	if mute {
		return "🔕 Recordatorios en pausa. Use /reanudar cuando quiera volver."
	}
	return "🔔 Recordatorios reactivados."
}

func (h *Hub) internalError(op string, userID uint, err error) string {
	h.log.Error(op, zap.Uint("user", userID), zap.Error(err))
	return "Algo salió mal. Inténtelo de nuevo en un momento."
}
