// Package standings загружает турнирную таблицу лиги с внешнего сайта.
// Таблица кэшируется, при недоступном сайте отдаётся последняя удачная
// выборка с пометкой stale.
package standings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/atlasov/club_portal/internal/clock"
	"go.uber.org/zap"
)

const (
	userAgent      = "club-portal/1.0"
	requestTimeout = 30 * time.Second
)

// Row строка турнирной таблицы
type Row struct {
	Position int    `json:"position"`
	Club     string `json:"club"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	Drawn    int    `json:"drawn"`
	Lost     int    `json:"lost"`
	Points   int    `json:"points"`
}

// Table турнирная таблица лиги
type Table struct {
	Rows      []Row     `json:"rows"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"` // отдана из кэша после неудачного обновления
}

// Scraper загружает и разбирает таблицу лиги
type Scraper struct {
	client *http.Client
	url    string
	ttl    time.Duration
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.Mutex
	cached *Table
}

// New создаёт новый скрейпер таблицы
func New(url string, ttl time.Duration, clk clock.Clock, logger *zap.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: requestTimeout},
		url:    url,
		ttl:    ttl,
		clock:  clk,
		logger: logger,
	}
}

// Enabled сообщает, настроен ли источник таблицы
func (s *Scraper) Enabled() bool {
	return s.url != ""
}

// Table возвращает турнирную таблицу. Пока кэш свежий, сайт не трогается;
// после неудачного обновления отдаётся старая таблица с пометкой stale.
func (s *Scraper) Table(ctx context.Context) (*Table, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("standings source is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.clock.Now().Sub(s.cached.FetchedAt) < s.ttl {
		return s.cached, nil
	}

	table, err := s.fetch(ctx)
	if err != nil {
		if s.cached != nil {
			s.logger.Warn("Standings refresh failed, serving cached table", zap.Error(err))
			stale := *s.cached
			stale.Stale = true
			return &stale, nil
		}
		return nil, err
	}

	s.cached = table
	s.logger.Info("Standings refreshed", zap.Int("rows", len(table.Rows)))
	return table, nil
}

func (s *Scraper) fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching standings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return s.parseTable(resp.Body)
}

// parseTable извлекает таблицу из HTML. Ожидается разметка вида
// table > tbody > tr с колонками: место, клуб, игры, В, Н, П, очки.
func (s *Scraper) parseTable(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	rows := make([]Row, 0)
	doc.Find("table tr").Each(func(_ int, sel *goquery.Selection) {
		cells := sel.Find("td")
		if cells.Length() < 7 {
			return
		}

		row := Row{
			Position: cellInt(cells, 0),
			Club:     strings.TrimSpace(cells.Eq(1).Text()),
			Played:   cellInt(cells, 2),
			Won:      cellInt(cells, 3),
			Drawn:    cellInt(cells, 4),
			Lost:     cellInt(cells, 5),
			Points:   cellInt(cells, 6),
		}
		if row.Club == "" || row.Position == 0 {
			return
		}
		rows = append(rows, row)
	})

	if len(rows) == 0 {
		return nil, fmt.Errorf("no standings table found")
	}

	return &Table{Rows: rows, FetchedAt: s.clock.Now()}, nil
}

func cellInt(cells *goquery.Selection, i int) int {
	n, err := strconv.Atoi(strings.TrimSpace(cells.Eq(i).Text()))
	if err != nil {
		return 0
	}
	return n
}
