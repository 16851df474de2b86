package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"roomsheet/internal/config"
	"roomsheet/internal/events"
	"roomsheet/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of the Telegram client the notifier needs.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier relays booking changes and swallowed background failures to a
// Telegram chat, so operators hear about them without tailing logs.
type Notifier struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// New builds a notifier from config. Returns nil when notifications are
// disabled; a nil notifier accepts all calls and does nothing.
func New(cfg config.NotifyConfig, logger *zerolog.Logger) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return NewWithSender(bot, cfg.ChatID, logger), nil
}

// NewWithSender wires an already-built client.
func NewWithSender(sender Sender, chatID int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logging.Component(logger, "notify"),
	}
}

// Notify sends one plain-text message to the configured chat.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Subscribe registers handlers for every event the service publishes.
// Handler errors never propagate: a broken notification must not affect
// the write that triggered it.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	if n == nil || bus == nil {
		return
	}

	bus.Subscribe(events.EventBookingCreated, n.bookingHandler("New booking"))
	bus.Subscribe(events.EventBookingUpdated, n.bookingHandler("Booking moved"))
	bus.Subscribe(events.EventBookingDeleted, n.bookingHandler("Booking cancelled"))
	bus.Subscribe(events.EventFixedCreated, n.scheduleHandler("Fixed schedule added"))
	bus.Subscribe(events.EventFixedUpdated, n.scheduleHandler("Fixed schedule changed"))
	bus.Subscribe(events.EventFixedDeleted, n.scheduleHandler("Fixed schedule removed"))
	bus.Subscribe(events.EventStaleCleanupFailed, n.failureHandler)
	bus.Subscribe(events.EventFormattingFailed, n.failureHandler)
	bus.Subscribe(events.EventMonthTabMissing, n.tabMissingHandler)
}

func (n *Notifier) bookingHandler(prefix string) events.EventHandler {
	return func(ev *events.Event) error {
		var p events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			n.logger.Error().Err(err).Str("event", ev.Type).Msg("decode payload")
			return nil
		}

		text := fmt.Sprintf("%s: %q %s %s-%s (%s)",
			prefix, p.Title,
			p.Start.Format("2006-01-02"),
			p.Start.Format("15:04"), p.End.Format("15:04"),
			p.RoomID)
		n.send(ev.Type, text)
		return nil
	}
}

func (n *Notifier) scheduleHandler(prefix string) events.EventHandler {
	return func(ev *events.Event) error {
		var p events.SchedulePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			n.logger.Error().Err(err).Str("event", ev.Type).Msg("decode payload")
			return nil
		}

		// Deletions carry only the id and room.
		text := fmt.Sprintf("%s: %s (%s)", prefix, p.ScheduleID, p.RoomID)
		if p.Staff != "" {
			text = fmt.Sprintf("%s: %s in %s, daily %s-%s",
				prefix, p.Staff, p.RoomID, p.StartTime, p.EndTime)
		}
		n.send(ev.Type, text)
		return nil
	}
}

func (n *Notifier) failureHandler(ev *events.Event) error {
	var p events.FailurePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		n.logger.Error().Err(err).Str("event", ev.Type).Msg("decode payload")
		return nil
	}

	text := fmt.Sprintf("⚠️ %s needs attention: %s", p.Operation, p.Detail)
	if p.TargetID != "" {
		text += fmt.Sprintf(" (target %s)", p.TargetID)
	}
	if len(p.Rows) > 0 {
		text += fmt.Sprintf(", rows %v", p.Rows)
	}
	n.send(ev.Type, text)
	return nil
}

func (n *Notifier) tabMissingHandler(ev *events.Event) error {
	var p events.TabMissingPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		n.logger.Error().Err(err).Str("event", ev.Type).Msg("decode payload")
		return nil
	}

	text := fmt.Sprintf("⚠️ no sheet tab for %04d-%02d, expected one of %v",
		p.Year, p.Month, p.Suggested)
	n.send(ev.Type, text)
	return nil
}

func (n *Notifier) send(eventType, text string) {
	if err := n.Notify(context.Background(), text); err != nil {
		n.logger.Error().Err(err).Str("event", eventType).Msg("send notification")
	}
}
