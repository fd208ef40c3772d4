package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ladder_bot/internal/flatten"
	"ladder_bot/internal/ladder"
	"ladder_bot/internal/marketdata"
	"ladder_bot/internal/modules/config"
	igsvc "ladder_bot/internal/modules/ig_client/service"
	"ladder_bot/internal/risk"
	"ladder_bot/internal/runner"
)

type pending struct {
	ch     chan bool
	msgID  int
	prompt string
}

// Telegram — панель управления: собирает параметры лесенки, показывает
// риск и отдаёт аварийную кнопку. Вся торговля уходит в фоновые горутины,
// long-polling остаётся отзывчивым.
type Telegram struct {
	bot *tgbot.BotAPI
	cfg *config.Config

	ig        *igsvc.Client
	engine    *ladder.Engine
	gate      *risk.Gate
	flattener *flatten.Flattener
	manager   *runner.Manager
	md        *marketdata.Accessor
	registry  *ladder.Registry

	mu       sync.Mutex
	pendings map[string]*pending
}

func NewTelegram(
	cfg *config.Config,
	ig *igsvc.Client,
	engine *ladder.Engine,
	gate *risk.Gate,
	flattener *flatten.Flattener,
	manager *runner.Manager,
	md *marketdata.Accessor,
	registry *ladder.Registry,
) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:       b,
		cfg:       cfg,
		ig:        ig,
		engine:    engine,
		gate:      gate,
		flattener: flattener,
		manager:   manager,
		md:        md,
		registry:  registry,
		pendings:  make(map[string]*pending),
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.cfg.Telegram.ChatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.cfg.Telegram.ChatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

func (t *Telegram) editText(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	_, err := t.bot.Request(edit)
	return err
}

// Confirm — сообщение с кнопками и ожиданием callback.
func (t *Telegram) Confirm(ctx context.Context, prompt string, timeout time.Duration) bool {
	chatID := t.cfg.Telegram.ChatID

	token := fmt.Sprintf("%d", time.Now().UnixNano())
	p := &pending{
		ch:     make(chan bool, 1),
		prompt: prompt,
	}

	t.mu.Lock()
	t.pendings[token] = p
	t.mu.Unlock()

	btnYes := tgbot.NewInlineKeyboardButtonData("✅ Confirm", "CONF::"+token)
	btnNo := tgbot.NewInlineKeyboardButtonData("❌ Cancel", "REJ::"+token)
	kb := tgbot.NewInlineKeyboardMarkup(tgbot.NewInlineKeyboardRow(btnYes, btnNo))

	msg := tgbot.NewMessage(chatID, prompt)
	msg.ReplyMarkup = kb

	sent, _ := t.bot.Send(msg)
	p.msgID = sent.MessageID

	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

	select {
	case ok := <-p.ch:
		return ok
	case <-tmr.C:
		_ = t.editReplyMarkupRemove(chatID, p.msgID)
		_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n⏳ Timeout", prompt))
		t.mu.Lock()
		delete(t.pendings, token)
		t.mu.Unlock()
		return false
	case <-ctx.Done():
		_ = t.editReplyMarkupRemove(chatID, p.msgID)
		_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n⛔️ Cancelled", prompt))
		t.mu.Lock()
		delete(t.pendings, token)
		t.mu.Unlock()
		return false
	}
}

// handleCallback обрабатывает нажатия CONF::token / REJ::token.
func (t *Telegram) handleCallback(cb *tgbot.CallbackQuery) {
	if cb == nil {
		return
	}

	// ответ Telegram для остановки спиннера
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))

	data := cb.Data
	var verb, token string
	for i := 0; i < len(data); i++ {
		if i+1 < len(data) && data[i] == ':' && data[i+1] == ':' {
			verb, token = data[:i], data[i+2:]
			break
		}
	}
	if verb == "" || token == "" {
		return
	}

	t.mu.Lock()
	p, ok := t.pendings[token]
	t.mu.Unlock()
	if !ok {
		return
	}

	accepted := verb == "CONF"
	p.ch <- accepted
	close(p.ch)

	status := "Rejected"
	emoji := "❌"
	if accepted {
		status = "Confirmed"
		emoji = "✅"
	}

	chatID := t.cfg.Telegram.ChatID
	_ = t.editReplyMarkupRemove(chatID, p.msgID)
	_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n%s %s", p.prompt, emoji, status))

	t.mu.Lock()
	delete(t.pendings, token)
	t.mu.Unlock()
}
