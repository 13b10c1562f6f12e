package notify

import (
	"context"
	"fmt"
	"strconv"

	"yafs_miniapp/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultQueueSize = 256
	// Telegram allows about 30 messages per second per bot.
	defaultRate = 25
)

type Config struct {
	BotToken  string  `mapstructure:"botToken"`
	Enabled   bool    `mapstructure:"notifications"`
	Rate      float64 `mapstructure:"notifyRate"`
	QueueSize int     `mapstructure:"notifyQueue"`
	Debug     bool    `mapstructure:"debug"`
}

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type notice struct {
	chatID int64
	text   string
}

// TelegramNotifier messages referrers through the bot. Notices are queued and
// sent by Run; a full queue drops new notices.
type TelegramNotifier struct {
	sender  Sender
	limiter *rate.Limiter
	queue   chan notice
}

func NewTelegramNotifier(config Config) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug
	logger.Logger().Info("telegram notifier authorized", zap.String("bot", bot.Self.UserName))

	return New(bot, config), nil
}

func New(sender Sender, config Config) *TelegramNotifier {
	r := config.Rate
	if r <= 0 {
		r = defaultRate
	}
	size := config.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	return &TelegramNotifier{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(r), 1),
		queue:   make(chan notice, size),
	}
}

// ReferralCredited queues a message for referrerID. Ids that are not Telegram
// chat ids, such as demo ids, are skipped.
func (n *TelegramNotifier) ReferralCredited(_ context.Context, referrerID string, bonus, total int64) {
	log := logger.Logger()

	chatID, err := strconv.ParseInt(referrerID, 10, 64)
	if err != nil {
		log.Debug("skipping notification for non-telegram referrer", zap.String("referrer_id", referrerID))
		return
	}

	text := fmt.Sprintf("A friend joined YAFS with your invite! +%d $YAFS credited, your balance is now %d $YAFS.", bonus, total)

	select {
	case n.queue <- notice{chatID: chatID, text: text}:
	default:
		log.Warn("notification queue full, dropping notice", zap.String("referrer_id", referrerID))
	}
}

// Run sends queued notices until ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context) error {
	log := logger.Logger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := n.sender.Send(tgbotapi.NewMessage(msg.chatID, msg.text)); err != nil {
				log.Error("failed to send notification", zap.Int64("chat_id", msg.chatID), zap.Error(err))
			}
		}
	}
}
