// Package notify is the background alarm surface: it mirrors tracker events
// into Telegram notifications with action buttons and routes button presses
// back into the tracker. It runs independently of any open browser tab.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Joniyal/tudum/internal/ai"
	"github.com/Joniyal/tudum/internal/alarm"
)

// Action identifiers carried in callback data. These are stable strings; the
// web surface uses the same set.
const (
	ActionComplete = "complete"
	ActionSnooze1  = "snooze-1"
	ActionSnooze2  = "snooze-2"
	ActionDismiss  = "dismiss"
)

const callbackPrefix = "alarm:"

// UserDirectory resolves between Tudum users and Telegram chats.
type UserDirectory interface {
	TelegramChatID(ctx context.Context, userID string) (*int64, error)
	UserIDByChatID(ctx context.Context, chatID int64) (string, error)
}

type sentMessage struct {
	chatID    int64
	messageID int
}

type Notifier struct {
	api     *tgbotapi.BotAPI
	tracker *alarm.Tracker
	users   UserDirectory
	ai      *ai.Client // optional

	mu      sync.Mutex
	lastMsg map[string]sentMessage // habit id -> last sent notification
}

func New(token string, tracker *alarm.Tracker, users UserDirectory, aiClient *ai.Client) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Notifier{
		api:     api,
		tracker: tracker,
		users:   users,
		ai:      aiClient,
		lastMsg: make(map[string]sentMessage),
	}, nil
}

func (n *Notifier) Run(ctx context.Context) error {
	log.Printf("Telegram notifier authorized on account %s", n.api.Self.UserName)

	events, cancel := n.tracker.Subscribe("")
	defer cancel()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			n.handleEvent(ctx, ev)
		case update := <-updates:
			go n.handleUpdate(ctx, update)
		}
	}
}

func (n *Notifier) handleEvent(ctx context.Context, ev alarm.Event) {
	switch ev.Type {
	case alarm.EventTriggered, alarm.EventRepresent:
		n.present(ctx, ev)
	case alarm.EventStop, alarm.EventSnooze:
		// Either way the presentation comes down; a snoozed alarm will
		// re-present through a fresh EventTriggered.
		n.retract(ev.HabitID)
	}
}

// present sends (or re-sends) the notification for one alarm. The previous
// message for the habit is deleted first so re-presentation replaces rather
// than stacks.
func (n *Notifier) present(ctx context.Context, ev alarm.Event) {
	chatID, err := n.users.TelegramChatID(ctx, ev.UserID)
	if err != nil {
		log.Printf("Failed to resolve Telegram chat for user %s: %v", ev.UserID, err)
		return
	}
	if chatID == nil {
		// User has not linked Telegram; the web surface still covers them.
		return
	}

	n.retract(ev.HabitID)

	text := n.buildText(ctx, ev)
	msg := tgbotapi.NewMessage(*chatID, text)
	msg.ReplyMarkup = alarmKeyboard(ev.HabitID)

	sent, err := n.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send alarm notification for habit %s: %v", ev.HabitID, err)
		return
	}

	n.mu.Lock()
	n.lastMsg[ev.HabitID] = sentMessage{chatID: *chatID, messageID: sent.MessageID}
	n.mu.Unlock()
}

// retract deletes the habit's last notification, if any.
func (n *Notifier) retract(habitID string) {
	n.mu.Lock()
	last, ok := n.lastMsg[habitID]
	delete(n.lastMsg, habitID)
	n.mu.Unlock()
	if !ok {
		return
	}

	deleteMsg := tgbotapi.NewDeleteMessage(last.chatID, last.messageID)
	if _, err := n.api.Request(deleteMsg); err != nil {
		log.Printf("Failed to delete old alarm message %d: %v", last.messageID, err)
		// Continue anyway, the old message might have been deleted by user
	}
}

func (n *Notifier) buildText(ctx context.Context, ev alarm.Event) string {
	var sb strings.Builder
	title := ev.HabitID
	if ev.Habit != nil {
		title = ev.Habit.Title
	}
	sb.WriteString("⏰ Time for: " + title + "\n")
	if ev.Habit != nil && ev.Habit.Description != "" {
		sb.WriteString(ev.Habit.Description + "\n")
	}

	sb.WriteString("\nElapsed: " + formatClock(ev.ElapsedSeconds) + "\n")
	if ev.RemainingSeconds != nil {
		sb.WriteString("Stops in " + formatClock(*ev.RemainingSeconds) + "\n")
	} else {
		sb.WriteString("Plays until completed\n")
	}

	// Motivation only on the first presentation; re-presentations keep the
	// notification terse.
	if n.ai != nil && ev.Type == alarm.EventTriggered {
		if line := n.ai.MotivationLine(ctx, title); line != "" {
			sb.WriteString("\n" + line)
		}
	}
	return sb.String()
}

func formatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func alarmKeyboard(habitID string) tgbotapi.InlineKeyboardMarkup {
	data := func(action string) string {
		return callbackPrefix + action + ":" + habitID
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Complete", data(ActionComplete)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("😴 Snooze 1m", data(ActionSnooze1)),
			tgbotapi.NewInlineKeyboardButtonData("😴 Snooze 2m", data(ActionSnooze2)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", data(ActionDismiss)),
		),
	)
}

func (n *Notifier) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		n.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		// The only chat interaction is linking: tell the user their chat id
		// so they can paste it into their Tudum profile.
		reply := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf(
			"This bot delivers your Tudum habit alarms.\n"+
				"Link it by setting Telegram chat ID %d in your profile.",
			update.Message.Chat.ID,
		))
		if _, err := n.api.Send(reply); err != nil {
			log.Printf("Failed to send link hint: %v", err)
		}
	}
}

func (n *Notifier) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	answer := func(text string) {
		callback := tgbotapi.NewCallback(query.ID, text)
		if _, err := n.api.Request(callback); err != nil {
			log.Printf("Failed to answer callback: %v", err)
		}
	}

	action, habitID, ok := parseCallback(query.Data)
	if !ok {
		answer("")
		return
	}

	// Only the alarm owner's linked chat may act on it.
	userID, err := n.users.UserIDByChatID(ctx, query.Message.Chat.ID)
	if err != nil {
		answer("This chat is not linked to a Tudum account")
		return
	}
	if owner, active := n.tracker.Owner(habitID); active && owner != userID {
		answer("Not your alarm")
		return
	}

	switch action {
	case ActionComplete:
		if err := n.tracker.Complete(ctx, habitID); err != nil {
			if errors.Is(err, alarm.ErrAlarmNotActive) {
				answer("Alarm already handled")
			} else {
				answer("Could not complete: " + err.Error())
			}
			return
		}
		answer("Habit completed 🎉")
	case ActionSnooze1:
		n.tracker.Snooze(habitID, 1)
		answer("Snoozed for 1 minute")
	case ActionSnooze2:
		n.tracker.Snooze(habitID, 2)
		answer("Snoozed for 2 minutes")
	case ActionDismiss:
		n.tracker.Dismiss(habitID)
		answer("Alarm dismissed")
	default:
		answer("")
	}
}

func parseCallback(data string) (action, habitID string, ok bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(data, callbackPrefix)
	action, habitID, found := strings.Cut(rest, ":")
	if !found || habitID == "" {
		return "", "", false
	}
	return action, habitID, true
}
