// Package poster рисует афишу недели: PNG с сеткой дней и вхождениями
// событий, раскрашенными по цветам команд.
package poster

import (
	"bytes"
	"image/color"
	"strconv"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"
)

// Константы размеров и отступов
const (
	imageWidth      = 1400
	imageHeight     = 900
	headerHeight    = 100
	leftLabelsWidth = 80
	legendWidth     = 160
	dayPaddingX     = 8
	allDayBandH     = 24.0
	minEventHeight  = 26.0
	eventRadius     = 6.0
	shadowOffset    = 3.0
	totalDays       = 7
	hourPadding     = 1
	defaultMinHour  = 8
	defaultMaxHour  = 22
)

// Константы шрифтов
const (
	titleFontSize     = 25.0
	dayFontSize       = 27.0
	hourLabelFontSize = 18.0
	eventFontSize     = 17.0
	legendFontSize    = 13.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 60}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	defaultEventColor = color.RGBA{133, 193, 85, 220} // общеклубные события без команды
	eventTextColor    = color.RGBA{20, 24, 28, 230}
	eventShadowColor  = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

// Generator рисует афиши. Шрифт берётся из файла по настроенному пути,
// без него используется встроенный basicfont.
type Generator struct {
	fontPath string
	zone     *time.Location
	clock    clock.Clock
	logger   *zap.Logger
}

// NewGenerator создаёт новый генератор афиш
func NewGenerator(fontPath string, zone *time.Location, clk clock.Clock, logger *zap.Logger) *Generator {
	return &Generator{
		fontPath: fontPath,
		zone:     zone,
		clock:    clk,
		logger:   logger,
	}
}

// WeekPoster рисует афишу недели, содержащей дату anchor.
// Вхождения за пределами недели игнорируются.
func (g *Generator) WeekPoster(anchor time.Time, occurrences []*model.EventOccurrence, teams []*model.Team) ([]byte, error) {
	week := weekBoundsOf(anchor.In(g.zone))
	today := dayOf(g.clock.Now().In(g.zone))
	highlightToday := !today.Before(week.start) && !today.After(week.end)

	timed, allDay := g.splitOccurrences(occurrences, week)
	hours := calculateHourRange(timed)
	colors := teamColors(teams)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDays
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	g.drawHeader(dc, week)
	g.drawHourLabels(dc, hours, cellHeight)

	date := week.start
	for dayIndex := 0; dayIndex < totalDays; dayIndex++ {
		x := float64(leftLabelsWidth + dayIndex*dayWidth)
		y := float64(headerHeight)
		key := date.Format("2006-01-02")

		g.drawDayBackground(dc, x, y, dayWidth, dayHeight, dayIndex, highlightToday && date.Equal(today))
		g.drawDayHeader(dc, date, x, y, dayWidth)
		g.drawHourLines(dc, x, y, dayWidth, hours, cellHeight)

		bandY := y
		for _, occ := range allDay[key] {
			g.drawAllDayBand(dc, occ, colors, x, bandY, dayWidth)
			bandY += allDayBandH + 4
		}
		for _, occ := range timed[key] {
			g.drawOccurrence(dc, occ, colors, x, y, dayWidth, hours, cellHeight)
		}

		date = date.AddDate(0, 0, 1)
	}

	g.drawCurrentTimeLine(dc, highlightToday, hours, cellHeight, dayWidth)
	g.drawLegend(dc, teams, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitOccurrences раскладывает вхождения недели по дням, отделяя события
// на весь день от событий со временем
func (g *Generator) splitOccurrences(occurrences []*model.EventOccurrence, week weekBounds) (timed, allDay map[string][]*model.EventOccurrence) {
	timed = make(map[string][]*model.EventOccurrence)
	allDay = make(map[string][]*model.EventOccurrence)

	for _, occ := range occurrences {
		start := occ.Start.In(g.zone)
		day := dayOf(start)
		if day.Before(week.start) || day.After(week.end) {
			continue
		}
		key := day.Format("2006-01-02")
		if occ.Event.AllDay {
			allDay[key] = append(allDay[key], occ)
		} else {
			timed[key] = append(timed[key], occ)
		}
	}
	return timed, allDay
}

func weekBoundsOf(date time.Time) weekBounds {
	day := dayOf(date)
	offset := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		offset = 6
	}
	start := day.AddDate(0, 0, -offset)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// calculateHourRange определяет диапазон часов сетки по вхождениям
func calculateHourRange(timed map[string][]*model.EventOccurrence) hourRange {
	minHour := 24
	maxHour := 0

	for _, occurrences := range timed {
		for _, occ := range occurrences {
			startH := occ.Start.Hour()
			endH := startH + 1
			if occ.End != nil {
				endH = occ.End.Hour()
				if occ.End.Minute() > 0 {
					endH++
				}
				// Переход через полночь обрезается по колонке дня
				if !occ.End.After(occ.Start) || occ.End.Day() != occ.Start.Day() {
					endH = 24
				}
			}
			if startH < minHour {
				minHour = startH
			}
			if endH > maxHour {
				maxHour = endH
			}
		}
	}

	if minHour == 24 {
		minHour = defaultMinHour
		maxHour = defaultMaxHour
	}

	startHour := minHour - hourPadding
	endHour := maxHour + hourPadding
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}

	return hourRange{start: startHour, end: endHour, total: endHour - startHour + 1}
}

// setFont загружает шрифт из файла или откатывается на встроенный
func (g *Generator) setFont(dc *gg.Context, size float64) {
	if g.fontPath != "" {
		if err := dc.LoadFontFace(g.fontPath, size); err == nil {
			return
		}
		g.logger.Warn("Failed to load poster font, falling back to builtin",
			zap.String("path", g.fontPath))
	}
	dc.SetFontFace(basicfont.Face7x13)
}

func (g *Generator) drawHeader(dc *gg.Context, week weekBounds) {
	var title string
	if week.start.Month() == week.end.Month() {
		title = monthNameRussian(week.start.Month())
	} else {
		title = monthNameRussian(week.start.Month()) + " - " + monthNameRussian(week.end.Month())
	}
	title += " " + week.start.Format("2006")

	g.setFont(dc, titleFontSize)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+20, float64(headerHeight)/8+h/2, 0, 0)
}

func (g *Generator) drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	g.setFont(dc, hourLabelFontSize)
	dc.SetColor(hourLabelColor)

	for hIdx := 0; hIdx < hours.total; hIdx++ {
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		label := twoDigits(hours.start+hIdx) + ":00"
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func (g *Generator) drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	if dayIndex%2 == 0 {
		dc.SetColor(evenDayColor)
	} else {
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()

	if isToday {
		dc.SetColor(todayBgColor)
		dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
		dc.Fill()
	}
}

func (g *Generator) drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	g.setFont(dc, dayFontSize)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(weekdayShort(date.Weekday()), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func (g *Generator) drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// drawAllDayBand рисует полосу события на весь день сверху колонки
func (g *Generator) drawAllDayBand(dc *gg.Context, occ *model.EventOccurrence, colors map[uuid.UUID]color.RGBA, x, y float64, dayWidth int) {
	fill := occurrenceColor(occ, colors)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, y+2, width, allDayBandH, eventRadius)
	dc.Fill()

	g.setFont(dc, eventFontSize-2)
	dc.SetColor(eventTextColor)
	dc.DrawStringAnchored(truncate(occ.Event.Title, 18), x+dayPaddingX+6, y+2+allDayBandH/2, 0, 0.35)
}

// drawOccurrence рисует одно вхождение события
func (g *Generator) drawOccurrence(dc *gg.Context, occ *model.EventOccurrence, colors map[uuid.UUID]color.RGBA, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	start := occ.Start.In(g.zone)
	startHour := float64(start.Hour()) + float64(start.Minute())/60.0

	endHour := startHour + 1
	if occ.End != nil {
		end := occ.End.In(g.zone)
		if end.Day() != start.Day() {
			endHour = 24
		} else {
			endHour = float64(end.Hour()) + float64(end.Minute())/60.0
		}
	}

	occY := y + (startHour-float64(hours.start))*cellHeight
	occHeight := (endHour - startHour) * cellHeight
	if occHeight < minEventHeight {
		occHeight = minEventHeight
	}

	fill := occurrenceColor(occ, colors)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(eventShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, occY+2+shadowOffset, width, occHeight-4, eventRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), occY+2, width, occHeight-4, eventRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), occY+2, width, occHeight-4, eventRadius)
	dc.Stroke()

	g.setFont(dc, eventFontSize)
	dc.SetColor(eventTextColor)
	txtX := x + float64(dayPaddingX) + 8
	txtY := occY + 18
	dc.DrawStringAnchored(start.Format("15:04"), txtX, txtY, 0, 0)

	if occHeight > 40 {
		g.setFont(dc, eventFontSize-2)
		dc.DrawStringAnchored(truncate(occ.Event.Title, 20), txtX, txtY+16, 0, 0)
	}
	if occHeight > 58 && occ.Event.Location != "" {
		dc.DrawStringAnchored(truncate(occ.Event.Location, 20), txtX, txtY+32, 0, 0)
	}
}

func (g *Generator) drawCurrentTimeLine(dc *gg.Context, highlight bool, hours hourRange, cellHeight float64, dayWidth int) {
	if !highlight {
		return
	}

	now := g.clock.Now().In(g.zone)
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0
	if currentHour < float64(hours.start) || currentHour > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (currentHour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+totalDays*dayWidth), lineY)
	dc.Stroke()
}

// drawLegend рисует легенду с цветами команд справа
func (g *Generator) drawLegend(dc *gg.Context, teams []*model.Team, dayWidth int) {
	legendX := float64(leftLabelsWidth + totalDays*dayWidth + 10)
	liY := float64(headerHeight) + 10
	boxW, boxH := 20.0, 14.0

	items := []struct {
		label string
		clr   color.RGBA
	}{{"Весь клуб", defaultEventColor}}
	for _, team := range teams {
		label := team.ShortName
		if label == "" {
			label = team.Name
		}
		items = append(items, struct {
			label string
			clr   color.RGBA
		}{truncate(label, 14), parseHexColor(team.Color, defaultEventColor)})
	}

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(legendX, liY, boxW, boxH, 3)
		dc.Fill()

		g.setFont(dc, legendFontSize)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, legendX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 12
	}
}

// teamColors готовит карту цветов команд
func teamColors(teams []*model.Team) map[uuid.UUID]color.RGBA {
	colors := make(map[uuid.UUID]color.RGBA, len(teams))
	for _, team := range teams {
		colors[team.ID] = parseHexColor(team.Color, defaultEventColor)
	}
	return colors
}

// occurrenceColor выбирает цвет вхождения: цвет первой команды события
// или общеклубный
func occurrenceColor(occ *model.EventOccurrence, colors map[uuid.UUID]color.RGBA) color.RGBA {
	for _, teamID := range occ.Event.TeamIDs {
		if clr, ok := colors[teamID]; ok {
			return clr
		}
	}
	return defaultEventColor
}

// parseHexColor разбирает цвет вида #RRGGBB
func parseHexColor(s string, fallback color.RGBA) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return fallback
	}
	r, err1 := strconv.ParseUint(s[1:3], 16, 8)
	g, err2 := strconv.ParseUint(s[3:5], 16, 8)
	b, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 230}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// truncate обрезает строку по рунам, русский текст не ломается на байтах
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func weekdayShort(weekday time.Weekday) string {
	switch weekday {
	case time.Monday:
		return "Пн"
	case time.Tuesday:
		return "Вт"
	case time.Wednesday:
		return "Ср"
	case time.Thursday:
		return "Чт"
	case time.Friday:
		return "Пт"
	case time.Saturday:
		return "Сб"
	default:
		return "Вс"
	}
}

func monthNameRussian(month time.Month) string {
	months := map[time.Month]string{
		time.January:   "Январь",
		time.February:  "Февраль",
		time.March:     "Март",
		time.April:     "Апрель",
		time.May:       "Май",
		time.June:      "Июнь",
		time.July:      "Июль",
		time.August:    "Август",
		time.September: "Сентябрь",
		time.October:   "Октябрь",
		time.November:  "Ноябрь",
		time.December:  "Декабрь",
	}
	return months[month]
}
