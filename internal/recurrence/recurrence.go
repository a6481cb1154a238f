package recurrence

import (
	"fmt"
	"time"
)

// Rule правило повторения события. Закрытый набор из четырёх вариантов.
type Rule string

const (
	RuleNone     Rule = "none"
	RuleWeekly   Rule = "weekly"
	RuleBiweekly Rule = "biweekly"
	RuleMonthly  Rule = "monthly"
)

// MaxIterations жёсткий предел числа шагов при развороте одного шаблона.
// Защита от бесконечного цикла при некорректных данных.
const MaxIterations = 100

// ParseRule проверяет строковое значение правила повторения.
// Пустая строка трактуется как отсутствие повторения.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleNone, RuleWeekly, RuleBiweekly, RuleMonthly:
		return Rule(s), nil
	case "":
		return RuleNone, nil
	default:
		return "", fmt.Errorf("unknown recurrence rule: %q", s)
	}
}

// Recurring сообщает, порождает ли правило больше одного вхождения
func (r Rule) Recurring() bool {
	return r == RuleWeekly || r == RuleBiweekly || r == RuleMonthly
}

// Pattern шаблон повторяющегося события: данные первого вхождения плюс правило.
// Шаблон никогда не мутируется при развороте.
type Pattern struct {
	Start        time.Time  // начало первого вхождения
	End          *time.Time // конец первого вхождения, может быть на следующий день
	RSVPDeadline *time.Time // срок ответа для первого вхождения
	Rule         Rule
	Until        *time.Time // последняя допустимая дата вхождения, сравнивается по дате
}

// Window окно запроса, закрытое с обеих сторон
type Window struct {
	From time.Time
	To   time.Time
}

// Occurrence конкретное вхождение, вычисленное из шаблона
type Occurrence struct {
	Start        time.Time
	End          *time.Time
	RSVPDeadline *time.Time
	Index        int // номер шага от первого вхождения, 0 для исходного
}

// Result результат разворота: вхождения в порядке возрастания
type Result struct {
	Occurrences []Occurrence
	Truncated   bool // предел итераций сработал раньше конца окна
}

// Expand разворачивает шаблон в конкретные вхождения внутри окна.
// Функция чистая: не обращается к текущему времени и не изменяет шаблон.
// Вхождение попадает в результат, если его начало лежит в [From, To].
func Expand(p Pattern, w Window) Result {
	var res Result

	if w.To.Before(w.From) {
		return res
	}

	k := fastForward(p, w.From)

	for iter := 0; iter < MaxIterations; iter++ {
		start := nthStart(p, k)

		if p.Until != nil && dateAfter(start, *p.Until) {
			return res
		}
		if start.After(w.To) {
			return res
		}
		if !start.Before(w.From) {
			res.Occurrences = append(res.Occurrences, newOccurrence(p, start, k))
		}
		if !p.Rule.Recurring() {
			return res
		}
		k++
	}

	// Предел исчерпан: проверяем, осталось ли что выдавать
	next := nthStart(p, k)
	if !next.After(w.To) && (p.Until == nil || !dateAfter(next, *p.Until)) {
		res.Truncated = true
	}
	return res
}

// nthStart возвращает начало k-го вхождения, всегда отсчитанное от исходного
// начала. Для monthly это даёт память исходного дня месяца: 31 января после
// февральского прижатия к 28-му числу возвращается к 31 марта.
func nthStart(p Pattern, k int) time.Time {
	switch p.Rule {
	case RuleWeekly:
		return p.Start.AddDate(0, 0, 7*k)
	case RuleBiweekly:
		return p.Start.AddDate(0, 0, 14*k)
	case RuleMonthly:
		return addMonthsClamped(p.Start, k)
	default:
		return p.Start
	}
}

// fastForward вычисляет номер шага, с которого имеет смысл начинать обход:
// целое число шагов, попадающее не позже начала окна. Ошибка оценки на
// границах перехода времени или при прижатии дня месяца корректируется
// коротким спуском.
func fastForward(p Pattern, from time.Time) int {
	if !p.Start.Before(from) {
		return 0
	}

	var k int
	switch p.Rule {
	case RuleWeekly:
		k = int(from.Sub(p.Start) / (7 * 24 * time.Hour))
	case RuleBiweekly:
		k = int(from.Sub(p.Start) / (14 * 24 * time.Hour))
	case RuleMonthly:
		k = (from.Year()-p.Start.Year())*12 + int(from.Month()) - int(p.Start.Month())
	default:
		return 0
	}

	if k < 0 {
		k = 0
	}
	for k > 0 && nthStart(p, k).After(from) {
		k--
	}
	return k
}

// newOccurrence переносит длительность и сдвиг срока ответа с первого
// вхождения на вычисленное
func newOccurrence(p Pattern, start time.Time, k int) Occurrence {
	occ := Occurrence{Start: start, Index: k}
	if p.End != nil {
		end := start.Add(p.End.Sub(p.Start))
		occ.End = &end
	}
	if p.RSVPDeadline != nil {
		deadline := start.Add(p.RSVPDeadline.Sub(p.Start))
		occ.RSVPDeadline = &deadline
	}
	return occ
}

// addMonthsClamped прибавляет месяцы, прижимая день к длине целевого месяца
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// daysIn возвращает число дней в месяце
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateAfter сравнивает календарные даты без учёта времени суток
func dateAfter(t, u time.Time) bool {
	ty, tm, td := t.Date()
	uy, um, ud := u.Date()
	if ty != uy {
		return ty > uy
	}
	if tm != um {
		return tm > um
	}
	return td > ud
}
