package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// sender throttles outbound broadcasts so status pushes to many linked
// accounts stay under Telegram's ~30 msg/s limit.
type sender struct {
	tg      telegramClient
	limiter *rate.Limiter
}

func newSender(tg telegramClient) *sender {
	return &sender{
		tg:      tg,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
	}
}

func (s *sender) send(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.tg.Send(msg)
	return err
}

// broadcast delivers the same text to every chat, logging failures
// instead of aborting the fanout.
func (s *sender) broadcast(ctx context.Context, chatIDs []int64, text string, log *zerolog.Logger) {
	for _, chatID := range chatIDs {
		if err := s.send(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("broadcast send failed")
		}
	}
}
