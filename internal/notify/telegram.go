package notify

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gorental/internal/domain"
	"gorental/internal/events"
)

// TelegramNotifier pushes reservation alerts to the operators chat.
// It subscribes to the event bus so the booking path never waits on
// Telegram.
type TelegramNotifier struct {
	sender domain.TelegramSender
	chatID int64
	log    zerolog.Logger
}

func NewTelegramNotifier(sender domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "telegram").Logger()
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, log: log}
}

// SubscribeTo wires the notifier onto the bus for both lifecycle
// events.
func (n *TelegramNotifier) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handle(events.EventBookingCreated))
	bus.Subscribe(events.EventBookingPaid, n.handle(events.EventBookingPaid))
}

func (n *TelegramNotifier) handle(eventType string) events.EventHandler {
	return func(event *events.Event) error {
		var alert events.BookingAlert
		if err := json.Unmarshal(event.Payload, &alert); err != nil {
			n.log.Error().Err(err).Str("event_type", eventType).Msg("decode alert payload")
			return err
		}

		msg := tgbotapi.NewMessage(n.chatID, formatAlert(eventType, alert))
		if _, err := n.sender.Send(msg); err != nil {
			n.log.Error().Err(err).Int64("booking_id", alert.BookingID).Msg("telegram send failed")
			return err
		}
		return nil
	}
}

func formatAlert(eventType string, alert events.BookingAlert) string {
	switch eventType {
	case events.EventBookingPaid:
		return fmt.Sprintf("💳 Booking #%d paid\n%s\nTotal: %.2f", alert.BookingID, alert.CarName, alert.Total)
	default:
		return fmt.Sprintf("🆕 New booking #%d\n%s\nTotal: %.2f", alert.BookingID, alert.CarName, alert.Total)
	}
}
