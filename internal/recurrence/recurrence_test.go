package recurrence

import (
	"reflect"
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func starts(r Result) []time.Time {
	out := make([]time.Time, 0, len(r.Occurrences))
	for _, occ := range r.Occurrences {
		out = append(out, occ.Start)
	}
	return out
}

func TestParseRule(t *testing.T) {
	cases := []struct {
		in      string
		want    Rule
		wantErr bool
	}{
		{"none", RuleNone, false},
		{"weekly", RuleWeekly, false},
		{"biweekly", RuleBiweekly, false},
		{"monthly", RuleMonthly, false},
		{"", RuleNone, false},
		{"daily", "", true},
		{"WEEKLY", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRule(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseRule(%q): expected error, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRule(%q): unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseRule(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExpandNone(t *testing.T) {
	start := date(2024, time.June, 4, 18, 0)
	window := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.June, 30, 23, 59)}

	cases := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"inside window", start, 1},
		{"before window", date(2024, time.May, 20, 18, 0), 0},
		{"after window", date(2024, time.July, 2, 18, 0), 0},
		{"exactly at window start", window.From, 1},
		{"exactly at window end", window.To, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Expand(Pattern{Start: tc.start, Rule: RuleNone}, window)
			if len(res.Occurrences) != tc.want {
				t.Fatalf("got %d occurrences, want %d", len(res.Occurrences), tc.want)
			}
			if tc.want == 1 && !res.Occurrences[0].Start.Equal(tc.start) {
				t.Fatalf("occurrence at %v, want %v", res.Occurrences[0].Start, tc.start)
			}
		})
	}
}

func TestExpandWeeklyJune(t *testing.T) {
	p := Pattern{Start: date(2024, time.June, 4, 18, 0), Rule: RuleWeekly}
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.June, 30, 23, 59)}

	res := Expand(p, w)

	want := []time.Time{
		date(2024, time.June, 4, 18, 0),
		date(2024, time.June, 11, 18, 0),
		date(2024, time.June, 18, 18, 0),
		date(2024, time.June, 25, 18, 0),
	}
	if !reflect.DeepEqual(starts(res), want) {
		t.Fatalf("got %v, want %v", starts(res), want)
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}
}

func TestExpandRecurrenceEndDate(t *testing.T) {
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.June, 30, 23, 59)}

	t.Run("cuts trailing occurrences", func(t *testing.T) {
		p := Pattern{
			Start: date(2024, time.June, 4, 18, 0),
			Rule:  RuleWeekly,
			Until: ptr(date(2024, time.June, 18, 0, 0)),
		}
		res := Expand(p, w)
		want := []time.Time{
			date(2024, time.June, 4, 18, 0),
			date(2024, time.June, 11, 18, 0),
			date(2024, time.June, 18, 18, 0),
		}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})

	t.Run("compares dates not instants", func(t *testing.T) {
		// Вхождение в 18:00 позже полуночи даты окончания, но тот же день
		p := Pattern{
			Start: date(2024, time.June, 4, 18, 0),
			Rule:  RuleWeekly,
			Until: ptr(date(2024, time.June, 11, 0, 0)),
		}
		res := Expand(p, w)
		if len(res.Occurrences) != 2 {
			t.Fatalf("got %d occurrences, want 2", len(res.Occurrences))
		}
	})

	t.Run("end date before start yields nothing", func(t *testing.T) {
		p := Pattern{
			Start: date(2024, time.June, 4, 18, 0),
			Rule:  RuleWeekly,
			Until: ptr(date(2024, time.June, 1, 0, 0)),
		}
		res := Expand(p, w)
		if len(res.Occurrences) != 0 {
			t.Fatalf("got %d occurrences, want 0", len(res.Occurrences))
		}
	})
}

func TestExpandOvernightSpan(t *testing.T) {
	p := Pattern{
		Start: date(2024, time.May, 1, 10, 0),
		End:   ptr(date(2024, time.May, 2, 2, 0)),
		Rule:  RuleWeekly,
	}
	w := Window{From: date(2024, time.June, 3, 0, 0), To: date(2024, time.June, 9, 23, 59)}

	res := Expand(p, w)

	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(res.Occurrences))
	}
	occ := res.Occurrences[0]
	if !occ.Start.Equal(date(2024, time.June, 5, 10, 0)) {
		t.Fatalf("start = %v, want 2024-06-05 10:00", occ.Start)
	}
	if occ.End == nil || !occ.End.Equal(date(2024, time.June, 6, 2, 0)) {
		t.Fatalf("end = %v, want 2024-06-06 02:00", occ.End)
	}
}

func TestExpandMonthlyClamp(t *testing.T) {
	p := Pattern{Start: date(2024, time.January, 31, 18, 0), Rule: RuleMonthly}

	t.Run("leap year", func(t *testing.T) {
		w := Window{From: date(2024, time.January, 1, 0, 0), To: date(2024, time.May, 31, 23, 59)}
		res := Expand(p, w)
		want := []time.Time{
			date(2024, time.January, 31, 18, 0),
			date(2024, time.February, 29, 18, 0),
			date(2024, time.March, 31, 18, 0),
			date(2024, time.April, 30, 18, 0),
			date(2024, time.May, 31, 18, 0),
		}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})

	t.Run("non-leap february", func(t *testing.T) {
		w := Window{From: date(2025, time.February, 1, 0, 0), To: date(2025, time.February, 28, 23, 59)}
		res := Expand(p, w)
		want := []time.Time{date(2025, time.February, 28, 18, 0)}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})

	t.Run("anchor day restored after clamp", func(t *testing.T) {
		// Прижатие к 28 февраля не сдвигает последующие месяцы с 31-го числа
		w := Window{From: date(2025, time.March, 1, 0, 0), To: date(2025, time.March, 31, 23, 59)}
		res := Expand(p, w)
		want := []time.Time{date(2025, time.March, 31, 18, 0)}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})
}

func TestExpandBiweekly(t *testing.T) {
	p := Pattern{Start: date(2024, time.June, 3, 19, 30), Rule: RuleBiweekly}
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.July, 31, 23, 59)}

	res := Expand(p, w)

	want := []time.Time{
		date(2024, time.June, 3, 19, 30),
		date(2024, time.June, 17, 19, 30),
		date(2024, time.July, 1, 19, 30),
		date(2024, time.July, 15, 19, 30),
		date(2024, time.July, 29, 19, 30),
	}
	if !reflect.DeepEqual(starts(res), want) {
		t.Fatalf("got %v, want %v", starts(res), want)
	}
}

func TestExpandFastForward(t *testing.T) {
	t.Run("distant weekly event stays reachable", func(t *testing.T) {
		// Больше тысячи шагов от исходной даты: без перемотки лимит
		// итераций сделал бы июнь 2024 недостижимым
		p := Pattern{Start: date(2004, time.January, 5, 18, 0), Rule: RuleWeekly}
		w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.June, 30, 23, 59)}

		res := Expand(p, w)

		want := []time.Time{
			date(2024, time.June, 3, 18, 0),
			date(2024, time.June, 10, 18, 0),
			date(2024, time.June, 17, 18, 0),
			date(2024, time.June, 24, 18, 0),
		}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
		if res.Truncated {
			t.Fatal("unexpected truncation")
		}
		if res.Occurrences[0].Index != 1065 {
			t.Fatalf("index = %d, want 1065", res.Occurrences[0].Index)
		}
	})

	t.Run("undershoot corrected by iteration", func(t *testing.T) {
		// Начало окна за час до времени вхождения: перемотка попадает
		// на шаг раньше, цикл должен докрутить
		p := Pattern{Start: date(2024, time.January, 1, 10, 0), Rule: RuleWeekly}
		w := Window{From: date(2024, time.June, 3, 9, 0), To: date(2024, time.June, 9, 23, 59)}

		res := Expand(p, w)

		want := []time.Time{date(2024, time.June, 3, 10, 0)}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})

	t.Run("monthly overshoot corrected", func(t *testing.T) {
		// Оценка по разнице месяцев даёт 31 марта для окна с 1 марта,
		// спуск возвращает курсор на 29 февраля перед началом окна
		p := Pattern{Start: date(2024, time.January, 31, 18, 0), Rule: RuleMonthly}
		w := Window{From: date(2024, time.March, 1, 0, 0), To: date(2024, time.April, 30, 23, 59)}

		res := Expand(p, w)

		want := []time.Time{
			date(2024, time.March, 31, 18, 0),
			date(2024, time.April, 30, 18, 0),
		}
		if !reflect.DeepEqual(starts(res), want) {
			t.Fatalf("got %v, want %v", starts(res), want)
		}
	})
}

func TestExpandIterationCap(t *testing.T) {
	p := Pattern{Start: date(2024, time.January, 1, 12, 0), Rule: RuleWeekly}
	w := Window{From: date(2024, time.January, 1, 0, 0), To: date(2124, time.January, 1, 0, 0)}

	res := Expand(p, w)

	if len(res.Occurrences) != MaxIterations {
		t.Fatalf("got %d occurrences, want %d", len(res.Occurrences), MaxIterations)
	}
	if !res.Truncated {
		t.Fatal("expected truncated result")
	}
	for i := 1; i < len(res.Occurrences); i++ {
		if !res.Occurrences[i-1].Start.Before(res.Occurrences[i].Start) {
			t.Fatalf("occurrences not strictly increasing at %d", i)
		}
	}
}

func TestExpandTruncatedNotSetAtNaturalEnd(t *testing.T) {
	p := Pattern{
		Start: date(2024, time.January, 1, 12, 0),
		Rule:  RuleWeekly,
		Until: ptr(date(2024, time.March, 1, 0, 0)),
	}
	w := Window{From: date(2024, time.January, 1, 0, 0), To: date(2124, time.January, 1, 0, 0)}

	res := Expand(p, w)

	if res.Truncated {
		t.Fatal("truncated flag set although recurrence ended naturally")
	}
	if len(res.Occurrences) != 9 {
		t.Fatalf("got %d occurrences, want 9", len(res.Occurrences))
	}
}

func TestExpandRSVPDeadlineShift(t *testing.T) {
	p := Pattern{
		Start:        date(2024, time.June, 4, 18, 0),
		RSVPDeadline: ptr(date(2024, time.June, 3, 12, 0)),
		Rule:         RuleWeekly,
	}
	w := Window{From: date(2024, time.June, 10, 0, 0), To: date(2024, time.June, 16, 23, 59)}

	res := Expand(p, w)

	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(res.Occurrences))
	}
	occ := res.Occurrences[0]
	if occ.RSVPDeadline == nil || !occ.RSVPDeadline.Equal(date(2024, time.June, 10, 12, 0)) {
		t.Fatalf("deadline = %v, want 2024-06-10 12:00", occ.RSVPDeadline)
	}
}

func TestExpandWindowBounds(t *testing.T) {
	p := Pattern{Start: date(2024, time.June, 4, 18, 0), Rule: RuleWeekly}

	t.Run("occurrence exactly at window end included", func(t *testing.T) {
		w := Window{From: date(2024, time.June, 10, 0, 0), To: date(2024, time.June, 11, 18, 0)}
		res := Expand(p, w)
		if len(res.Occurrences) != 1 {
			t.Fatalf("got %d occurrences, want 1", len(res.Occurrences))
		}
	})

	t.Run("occurrence just past window end excluded", func(t *testing.T) {
		w := Window{From: date(2024, time.June, 10, 0, 0), To: date(2024, time.June, 11, 17, 59)}
		res := Expand(p, w)
		if len(res.Occurrences) != 0 {
			t.Fatalf("got %d occurrences, want 0", len(res.Occurrences))
		}
	})

	t.Run("inverted window yields nothing", func(t *testing.T) {
		w := Window{From: date(2024, time.June, 30, 0, 0), To: date(2024, time.June, 1, 0, 0)}
		res := Expand(p, w)
		if len(res.Occurrences) != 0 || res.Truncated {
			t.Fatalf("got %d occurrences, truncated=%v", len(res.Occurrences), res.Truncated)
		}
	})
}

func TestExpandUnknownRuleStops(t *testing.T) {
	// Неизвестное правило за пределами ParseRule ведёт себя как none:
	// одно вхождение, без зацикливания
	p := Pattern{Start: date(2024, time.June, 4, 18, 0), Rule: Rule("every-full-moon")}
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.December, 31, 23, 59)}

	res := Expand(p, w)

	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(res.Occurrences))
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}
}

func TestExpandPurity(t *testing.T) {
	end := date(2024, time.June, 4, 20, 0)
	deadline := date(2024, time.June, 3, 12, 0)
	until := date(2024, time.August, 1, 0, 0)
	p := Pattern{
		Start:        date(2024, time.June, 4, 18, 0),
		End:          &end,
		RSVPDeadline: &deadline,
		Rule:         RuleWeekly,
		Until:        &until,
	}
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.July, 31, 23, 59)}

	first := Expand(p, w)
	second := Expand(p, w)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated expansion differs")
	}
	if !end.Equal(date(2024, time.June, 4, 20, 0)) ||
		!deadline.Equal(date(2024, time.June, 3, 12, 0)) ||
		!until.Equal(date(2024, time.August, 1, 0, 0)) {
		t.Fatal("expansion mutated pattern fields")
	}
	for _, occ := range first.Occurrences {
		if occ.End == &end || occ.RSVPDeadline == &deadline {
			t.Fatal("occurrence aliases pattern memory")
		}
	}
}

func TestExpandDurationPreserved(t *testing.T) {
	p := Pattern{
		Start: date(2024, time.June, 4, 18, 0),
		End:   ptr(date(2024, time.June, 4, 19, 30)),
		Rule:  RuleMonthly,
	}
	w := Window{From: date(2024, time.June, 1, 0, 0), To: date(2024, time.December, 31, 23, 59)}

	res := Expand(p, w)

	if len(res.Occurrences) == 0 {
		t.Fatal("expected occurrences")
	}
	wantDur := 90 * time.Minute
	for _, occ := range res.Occurrences {
		if occ.End == nil {
			t.Fatal("missing end")
		}
		if got := occ.End.Sub(occ.Start); got != wantDur {
			t.Fatalf("duration %v at %v, want %v", got, occ.Start, wantDur)
		}
	}
}

func TestExpandPreservesWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	p := Pattern{Start: time.Date(2024, time.March, 25, 19, 0, 0, 0, loc), Rule: RuleWeekly}
	w := Window{
		From: time.Date(2024, time.March, 25, 0, 0, 0, 0, loc),
		To:   time.Date(2024, time.April, 8, 23, 59, 0, 0, loc),
	}

	res := Expand(p, w)

	if len(res.Occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(res.Occurrences))
	}
	for _, occ := range res.Occurrences {
		if occ.Start.Hour() != 19 {
			t.Fatalf("wall clock drifted: %v", occ.Start)
		}
	}
}
