package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Канал Postgres, в который триггеры публикуют изменения
const changeChannel = "portal_changes"

// Предел накопленных изменений на одного подписчика
const subscriberBuffer = 16

const (
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// Change одно изменение данных портала, как его публикует триггер
type Change struct {
	Topic string `json:"topic"` // events, news, chat, responses
	Op    string `json:"op"`    // insert, update, delete
	ID    string `json:"id"`
}

// Changefeed слушает уведомления Postgres и раздаёт их подписчикам.
// Подписчики с переполненным буфером пропускают изменения: лента
// сигнальная, клиент перечитывает данные сам.
type Changefeed struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	mu   sync.Mutex
	subs map[chan Change]struct{}
}

// NewChangefeed создаёт новую ленту изменений
func NewChangefeed(pool *pgxpool.Pool, logger *zap.Logger) *Changefeed {
	return &Changefeed{
		pool:   pool,
		logger: logger,
		subs:   make(map[chan Change]struct{}),
	}
}

// Run держит выделенное соединение с LISTEN и переподключается при
// обрывах. Блокируется до отмены контекста.
func (f *Changefeed) Run(ctx context.Context) {
	f.logger.Info("Starting changefeed listener", zap.String("channel", changeChannel))

	var delay time.Duration
	for {
		connected, err := f.listen(ctx)
		if ctx.Err() != nil {
			f.logger.Info("Changefeed listener stopped")
			return
		}

		delay = nextReconnectDelay(delay, connected)
		f.logger.Error("Changefeed connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.logger.Info("Changefeed listener stopped")
			return
		}
	}
}

// nextReconnectDelay возвращает паузу перед следующей попыткой: удвоение
// до предела при подряд идущих сбоях, удавшееся подключение начинает
// отсчёт заново
func nextReconnectDelay(prev time.Duration, connected bool) time.Duration {
	if connected || prev == 0 {
		return reconnectMinDelay
	}
	next := prev * 2
	if next > reconnectMaxDelay {
		next = reconnectMaxDelay
	}
	return next
}

// listen занимает соединение из пула и читает уведомления до первой
// ошибки. Возвращает, успело ли соединение дойти до LISTEN.
func (f *Changefeed) listen(ctx context.Context) (bool, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return false, err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return true, err
		}

		var change Change
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			f.logger.Warn("Skipping malformed change payload",
				zap.String("payload", notification.Payload),
				zap.Error(err))
			continue
		}

		f.broadcast(change)
	}
}

// Subscribe возвращает канал изменений и функцию отписки
func (f *Changefeed) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	unsubscribe := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (f *Changefeed) broadcast(change Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- change:
		default:
			// Подписчик не успевает, изменение пропущено
		}
	}
}
