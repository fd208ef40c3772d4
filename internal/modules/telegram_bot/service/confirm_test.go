package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ladder_bot/internal/models"
	"ladder_bot/internal/modules/config"
	"ladder_bot/internal/risk"
)

// fakeBotServer изображает Bot API: отдаёт команду, ловит токен из
// inline-клавиатуры и возвращает его обратно как CONF-callback.
type fakeBotServer struct {
	mu        sync.Mutex
	stage     int
	confToken string
	sent      []string
}

func (f *fakeBotServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")

		switch path.Base(r.URL.Path) {
		case "getMe":
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"ladder_test_bot"}}`)
		case "getUpdates":
			f.mu.Lock()
			defer f.mu.Unlock()
			switch {
			case f.stage == 0:
				f.stage = 1
				_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":1,"message":{"message_id":5,"date":1,"chat":{"id":42,"type":"private"},"from":{"id":7,"is_bot":false,"first_name":"u"},"text":"/resetdaily","entities":[{"type":"bot_command","offset":0,"length":11}]}}]}`)
			case f.stage == 1 && f.confToken != "":
				f.stage = 2
				fmt.Fprintf(w, `{"ok":true,"result":[{"update_id":2,"callback_query":{"id":"cb1","from":{"id":7,"is_bot":false,"first_name":"u"},"message":{"message_id":100,"date":1,"chat":{"id":42,"type":"private"},"text":"prompt"},"data":"CONF::%s"}}]}`, f.confToken)
			default:
				_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
			}
		case "sendMessage":
			f.mu.Lock()
			f.sent = append(f.sent, r.FormValue("text"))
			if rm := r.FormValue("reply_markup"); rm != "" && f.confToken == "" {
				var kb struct {
					InlineKeyboard [][]struct {
						CallbackData string `json:"callback_data"`
					} `json:"inline_keyboard"`
				}
				if err := sonic.UnmarshalString(rm, &kb); err == nil &&
					len(kb.InlineKeyboard) > 0 && len(kb.InlineKeyboard[0]) > 0 {
					f.confToken = strings.TrimPrefix(kb.InlineKeyboard[0][0].CallbackData, "CONF::")
				}
			}
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":100,"date":1,"chat":{"id":42,"type":"private"},"text":"x"}}`)
		default:
			// answerCallbackQuery, editMessageText и прочее
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		}
	}
}

func (f *fakeBotServer) sentContains(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sent {
		if s == text {
			return true
		}
	}
	return false
}

type riskStub struct{}

func (riskStub) AccountInfo(context.Context) (models.AccountInfo, error) {
	return models.AccountInfo{Balance: 1000, Available: 900, Deposit: 1000}, nil
}

func (riskStub) OpenPositions(context.Context) ([]models.OpenPosition, error) {
	return nil, nil
}

func (riskStub) MarketPrice(context.Context, string) (models.PriceSnapshot, error) {
	return models.PriceSnapshot{Bid: 99, Offer: 101, Mid: 100}, nil
}

// Команда с подтверждением должна доходить до конца, пока цикл поллинга
// продолжает раздавать callback-и.
func TestConfirmGatedCommandCompletesViaCallback(t *testing.T) {
	f := &fakeBotServer{}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	bot, err := tgbot.NewBotAPIWithAPIEndpoint("TEST", srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Telegram.ChatID = 42

	tg := &Telegram{
		bot: bot,
		cfg: cfg,
		gate: risk.New(riskStub{}, models.RiskLimits{
			MaxDailyLoss:     200,
			MaxPositionSize:  10,
			MaxTotalExposure: 1000,
			MaxMarginUsage:   0.6,
			MaxOpenPositions: 5,
		}),
		pendings: make(map[string]*pending),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tg.Start(ctx) }()

	// /resetdaily -> Confirm -> CONF-callback -> действие выполнено
	assert.Eventually(t, func() bool {
		return f.sentContains("Daily tracking reset")
	}, 10*time.Second, 50*time.Millisecond,
		"confirm-gated command must complete while the polling loop keeps dispatching callbacks")
}
