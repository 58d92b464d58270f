package notify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busalert/pkg/ctdf"
)

type Sender interface {
	Send(ctx context.Context, notification ctdf.Notification) error
}

// TelegramSender delivers notifications through the Telegram Bot API to the chat named by
// the notification's TargetUser, either a numeric chat id or an @channel name. Rate limits,
// server errors and transport failures are retried with exponential backoff, any other API
// rejection fails straight away.
type TelegramSender struct {
	Token string
	// APIEndpoint is a format string taking the token then the method, see tgbotapi.APIEndpoint
	APIEndpoint string
	HTTPClient  *http.Client

	InitialInterval time.Duration
	MaxElapsedTime  time.Duration

	mutex sync.Mutex
	bot   *tgbotapi.BotAPI
}

func NewTelegramSender(token string) *TelegramSender {
	return &TelegramSender{
		Token:           token,
		APIEndpoint:     tgbotapi.APIEndpoint,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  2 * time.Minute,
	}
}

func (s *TelegramSender) Send(ctx context.Context, notification ctdf.Notification) error {
	if notification.TargetUser == "" {
		return errors.New("notification has no target")
	}

	message := newTelegramMessage(notification)

	retryBackoff := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		retryBackoff.InitialInterval = s.InitialInterval
	}
	retryBackoff.MaxElapsedTime = s.MaxElapsedTime
	retryBackoff.Reset()

	err := backoff.RetryNotify(
		func() error {
			bot, err := s.botAPI()
			if err != nil {
				return retryableTelegramError(err)
			}

			_, err = bot.Send(message)
			return retryableTelegramError(err)
		},
		backoff.WithContext(retryBackoff, ctx),
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("target", notification.TargetUser).Dur("wait", wait).Msg("Retrying Telegram message")
		},
	)
	if err != nil {
		return err
	}

	log.Info().Str("target", notification.TargetUser).Msg("Sent Telegram message")

	return nil
}

func newTelegramMessage(notification ctdf.Notification) tgbotapi.MessageConfig {
	if chatID, err := strconv.ParseInt(notification.TargetUser, 10, 64); err == nil {
		return tgbotapi.NewMessage(chatID, notification.Message)
	}

	return tgbotapi.NewMessageToChannel(notification.TargetUser, notification.Message)
}

// botAPI connects on first use, the client checks the token with getMe when it is created.
func (s *TelegramSender) botAPI() (*tgbotapi.BotAPI, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.bot != nil {
		return s.bot, nil
	}

	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	bot, err := tgbotapi.NewBotAPIWithClient(s.Token, s.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}
	s.bot = bot

	return bot, nil
}

func retryableTelegramError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != http.StatusTooManyRequests && apiErr.Code < http.StatusInternalServerError {
		return backoff.Permanent(err)
	}

	return err
}
