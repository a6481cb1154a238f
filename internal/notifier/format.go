package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/atlasov/club_portal/internal/model"
)

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatTime форматирует только время
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start time.Time, end *time.Time) string {
	if end == nil {
		return start.Format("15:04")
	}
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// PluralizeMembers возвращает правильное склонение слова "участник"
func PluralizeMembers(count int) string {
	if count%10 == 1 && count%100 != 11 {
		return "участник"
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return "участника"
	}
	return "участников"
}

// PluralizeEvents возвращает правильное склонение слова "событие"
func PluralizeEvents(count int) string {
	if count%10 == 1 && count%100 != 11 {
		return "событие"
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return "события"
	}
	return "событий"
}

// WeekdayName возвращает название дня недели на русском
func WeekdayName(weekday time.Weekday) string {
	names := map[time.Weekday]string{
		time.Monday:    "Понедельник",
		time.Tuesday:   "Вторник",
		time.Wednesday: "Среда",
		time.Thursday:  "Четверг",
		time.Friday:    "Пятница",
		time.Saturday:  "Суббота",
		time.Sunday:    "Воскресенье",
	}
	return names[weekday]
}

func recurrenceLabel(r model.Recurrence) string {
	switch r {
	case model.RecurrenceWeekly:
		return "каждую неделю"
	case model.RecurrenceBiweekly:
		return "раз в две недели"
	case model.RecurrenceMonthly:
		return "раз в месяц"
	default:
		return ""
	}
}

// EventMessage собирает объявление о новом событии
func EventMessage(e *model.Event, zone *time.Location) string {
	var msg strings.Builder
	msg.WriteString("📅 <b>Новое событие</b>\n\n")
	msg.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(e.Title)))

	start := e.StartAt.In(zone)
	if e.AllDay {
		msg.WriteString(fmt.Sprintf("🗓 %s, весь день\n", FormatDate(start)))
	} else {
		msg.WriteString(fmt.Sprintf("🗓 %s (%s)\n", FormatDateTime(start), WeekdayName(start.Weekday())))
	}

	if label := recurrenceLabel(e.Recurrence); label != "" {
		msg.WriteString(fmt.Sprintf("🔁 Повторяется %s\n", label))
	}
	if e.Location != "" {
		msg.WriteString(fmt.Sprintf("📍 %s\n", html.EscapeString(e.Location)))
	}
	if e.MeetingPoint != "" {
		msg.WriteString(fmt.Sprintf("🤝 Сбор: %s\n", html.EscapeString(e.MeetingPoint)))
	}
	if e.RSVPDeadline != nil {
		msg.WriteString(fmt.Sprintf("⏰ Ответить до %s\n", FormatDateTime(e.RSVPDeadline.In(zone))))
	}
	if e.Description != "" {
		msg.WriteString("\n" + html.EscapeString(e.Description) + "\n")
	}

	return msg.String()
}

// EventUpdatedMessage собирает объявление об изменении события
func EventUpdatedMessage(e *model.Event, zone *time.Location) string {
	start := e.StartAt.In(zone)
	return fmt.Sprintf("✏️ <b>Событие изменено</b>\n\n<b>%s</b>\n🗓 %s",
		html.EscapeString(e.Title), FormatDateTime(start))
}

// EventDeletedMessage собирает объявление об отмене события
func EventDeletedMessage(e *model.Event, zone *time.Location) string {
	start := e.StartAt.In(zone)
	return fmt.Sprintf("❌ <b>Событие отменено</b>\n\n<b>%s</b>\n🗓 %s",
		html.EscapeString(e.Title), FormatDateTime(start))
}

// NewsMessage собирает объявление о новости
func NewsMessage(p *model.NewsPost) string {
	return fmt.Sprintf("📰 <b>%s</b>\n\n%s", html.EscapeString(p.Title), html.EscapeString(p.Body))
}

// ReminderMessage собирает напоминание о близком сроке ответа
func ReminderMessage(occ *model.EventOccurrence, attending int, zone *time.Location) string {
	var msg strings.Builder
	msg.WriteString("⏰ <b>Скоро закрывается запись</b>\n\n")
	msg.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(occ.Event.Title)))
	msg.WriteString(fmt.Sprintf("🗓 %s\n", FormatDateTime(occ.Start.In(zone))))
	if occ.RSVPDeadline != nil {
		msg.WriteString(fmt.Sprintf("Ответить до %s\n", FormatDateTime(occ.RSVPDeadline.In(zone))))
	}
	msg.WriteString(fmt.Sprintf("\nПока идут: %d %s", attending, PluralizeMembers(attending)))
	return msg.String()
}

// DigestMessage собирает еженедельный дайджест: события, сгруппированные
// по дням
func DigestMessage(occurrences []*model.EventOccurrence, zone *time.Location) string {
	if len(occurrences) == 0 {
		return "📬 <b>Афиша недели</b>\n\nНа этой неделе событий нет."
	}

	byDay := make(map[string][]*model.EventOccurrence)
	for _, occ := range occurrences {
		key := occ.Start.In(zone).Format("2006-01-02")
		byDay[key] = append(byDay[key], occ)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var msg strings.Builder
	msg.WriteString("📬 <b>Афиша недели</b>\n\n")
	msg.WriteString(fmt.Sprintf("Впереди %d %s\n\n", len(occurrences), PluralizeEvents(len(occurrences))))

	for _, day := range days {
		first := byDay[day][0].Start.In(zone)
		msg.WriteString(fmt.Sprintf("📍 <b>%s, %s</b>\n", WeekdayName(first.Weekday()), FormatDate(first)))
		for _, occ := range byDay[day] {
			if occ.Event.AllDay {
				msg.WriteString(fmt.Sprintf("  • %s (весь день)", html.EscapeString(occ.Event.Title)))
			} else {
				msg.WriteString(fmt.Sprintf("  • %s %s", FormatTime(occ.Start.In(zone)), html.EscapeString(occ.Event.Title)))
			}
			if occ.Event.Location != "" {
				msg.WriteString(" - " + html.EscapeString(occ.Event.Location))
			}
			msg.WriteString("\n")
		}
		msg.WriteString("\n")
	}

	return msg.String()
}
