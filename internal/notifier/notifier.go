// Package notifier рассылает объявления портала в Telegram канал клуба.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/atlasov/club_portal/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

// Notifier отправляет сообщения в канал клуба. Методы Announcer
// не блокируют вызывающего: публикация идёт в фоне.
type Notifier struct {
	bot    *bot.Bot
	chatID int64
	zone   *time.Location
	logger *zap.Logger
}

// New создаёт нотификатор с новым Telegram клиентом
func New(token string, chatID int64, zone *time.Location, logger *zap.Logger) (*Notifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger.Info("✅ Telegram notifier initialized", zap.Int64("chat_id", chatID))

	return &Notifier{
		bot:    b,
		chatID: chatID,
		zone:   zone,
		logger: logger,
	}, nil
}

// EventCreated объявляет о новом событии
func (n *Notifier) EventCreated(e *model.Event) {
	n.announce(EventMessage(e, n.zone))
}

// EventUpdated объявляет об изменении события
func (n *Notifier) EventUpdated(e *model.Event) {
	n.announce(EventUpdatedMessage(e, n.zone))
}

// EventDeleted объявляет об отмене события
func (n *Notifier) EventDeleted(e *model.Event) {
	n.announce(EventDeletedMessage(e, n.zone))
}

// NewsPublished объявляет о новой записи в ленте
func (n *Notifier) NewsPublished(p *model.NewsPost) {
	n.announce(NewsMessage(p))
}

// Reminder отправляет напоминание о близком сроке ответа.
// Вызывается планировщиком, поэтому ошибка возвращается наружу:
// неотправленное напоминание нельзя помечать доставленным.
func (n *Notifier) Reminder(ctx context.Context, occ *model.EventOccurrence, attending int) error {
	return n.send(ctx, ReminderMessage(occ, attending, n.zone))
}

// Digest отправляет еженедельную афишу
func (n *Notifier) Digest(ctx context.Context, occurrences []*model.EventOccurrence) error {
	return n.send(ctx, DigestMessage(occurrences, n.zone))
}

// DigestPoster отправляет картинку афиши с короткой подписью
func (n *Notifier) DigestPoster(ctx context.Context, caption string, png []byte) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := n.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    n.chatID,
			Photo:     &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(png)},
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Announce отправляет произвольный текст в канал клуба
func (n *Notifier) Announce(ctx context.Context, text string) error {
	return n.send(ctx, text)
}

func (n *Notifier) announce(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.send(ctx, text); err != nil {
			n.logger.Error("Failed to send announcement", zap.Error(err))
		}
	}()
}

// send отправляет сообщение с повторами на сетевых ошибках
func (n *Notifier) send(ctx context.Context, text string) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
