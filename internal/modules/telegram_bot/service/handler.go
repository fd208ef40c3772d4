package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ladder_bot/internal/ladder"
	"ladder_bot/internal/models"
	"ladder_bot/internal/runner"
	"ladder_bot/pkg/logger"
)

const confirmTimeout = 30 * time.Second

// Start — long-polling для messages + callback_query. Блокируется до
// отмены контекста.
func (t *Telegram) Start(ctx context.Context) error {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	logger.Info("telegram: control panel started")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.CallbackQuery != nil {
				t.handleCallback(upd.CallbackQuery)
				continue
			}
			if upd.Message == nil || !upd.Message.IsCommand() {
				continue
			}
			if t.cfg.Telegram.ChatID != 0 && upd.Message.Chat.ID != t.cfg.Telegram.ChatID {
				continue
			}
			// команда уходит в горутину: Confirm внутри хендлера ждёт
			// callback, который раздаёт этот же цикл
			go t.handleCommand(ctx, upd.Message)
		}
	}
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbot.Message) {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		t.Send(helpText)
	case "markets":
		t.handleMarkets()
	case "price":
		t.handlePrice(ctx, args)
	case "search":
		t.handleSearch(ctx, args)
	case "orders":
		t.handleOrders(ctx)
	case "positions":
		t.handlePositions(ctx)
	case "risk":
		t.handleRisk(ctx)
	case "resetdaily":
		t.handleResetDaily(ctx)
	case "ladder":
		t.handleLadder(ctx, args)
	case "auto":
		t.handleAuto(ctx, args)
	case "stopauto":
		t.handleStopAuto(args)
	case "panic":
		t.handlePanic(ctx)
	default:
		t.Sendf("Unknown command: /%s", msg.Command())
	}
}

const helpText = `IG ladder bot
/markets — configured instruments
/price <name|epic> — current quote
/search <term> — find markets
/orders — working orders
/positions — open positions
/risk — risk summary
/resetdaily — reset daily P&L baseline
/ladder <name|epic> <BUY|SELL> [offset step rungs size [tp]]
/auto <name|epic> <BUY|SELL> [offset step rungs size] — keep ladder near market
/stopauto <name|epic>
/panic — cancel all orders, close all positions`

func (t *Telegram) handleMarkets() {
	var b strings.Builder
	b.WriteString("📋 Markets:\n")
	for name, epic := range t.cfg.Markets {
		fmt.Fprintf(&b, "- %s — %s\n", name, epic)
	}
	t.Send(b.String())
}

func (t *Telegram) handlePrice(ctx context.Context, args []string) {
	if len(args) == 0 {
		t.Send("Usage: /price <name|epic>")
		return
	}
	epic := t.cfg.EpicByName(strings.Join(args, " "))

	snap, err := t.md.Snapshot(ctx, epic)
	if err != nil {
		t.Sendf("❗️ Price error: %v", err)
		return
	}
	t.Sendf("%s\nBid=%.2f Offer=%.2f Mid=%.2f (%s)", epic, snap.Bid, snap.Offer, snap.Mid, snap.MarketStatus)
}

func (t *Telegram) handleSearch(ctx context.Context, args []string) {
	if len(args) == 0 {
		t.Send("Usage: /search <term>")
		return
	}
	hits, err := t.ig.SearchMarkets(ctx, strings.Join(args, " "))
	if err != nil {
		t.Sendf("❗️ Search error: %v", err)
		return
	}
	if len(hits) == 0 {
		t.Send("Nothing found")
		return
	}
	var b strings.Builder
	b.WriteString("🔎 Markets:\n")
	for i, h := range hits {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s — %s\n", h.Name, h.Epic)
	}
	t.Send(b.String())
}

func (t *Telegram) handleOrders(ctx context.Context) {
	orders, err := t.ig.WorkingOrders(ctx)
	if err != nil {
		t.Sendf("❗️ Orders error: %v", err)
		return
	}
	if len(orders) == 0 {
		t.Send("📭 No working orders")
		return
	}
	var b strings.Builder
	b.WriteString("📑 Working orders:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s %s %s %.2f @ %.2f (%s)\n", o.Epic, o.Type, o.Direction, o.Size, o.Level, o.DealID)
	}
	t.Send(b.String())
}

func (t *Telegram) handlePositions(ctx context.Context) {
	positions, err := t.ig.OpenPositions(ctx)
	if err != nil {
		t.Sendf("❗️ Positions error: %v", err)
		return
	}
	if len(positions) == 0 {
		t.Send("📭 No open positions")
		return
	}
	var b strings.Builder
	b.WriteString("📊 Open positions:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s %s %.2f @ %.2f stop=%.2f (%s)\n",
			p.Epic, p.Direction, p.Size, p.OpenLevel, p.StopLevel, p.DealID)
	}
	t.Send(b.String())
}

func (t *Telegram) handleRisk(ctx context.Context) {
	t.Send(formatRiskSummary(t.gate.Summary(ctx)))
}

func (t *Telegram) handleResetDaily(ctx context.Context) {
	if !t.Confirm(ctx, "Reset daily tracking? This will restart daily P&L calculations.", confirmTimeout) {
		return
	}
	t.gate.ResetDaily()
	t.Send("Daily tracking reset")
}

func (t *Telegram) handleLadder(ctx context.Context, args []string) {
	spec, err := t.parseLadderSpec(args)
	if err != nil {
		t.Sendf("❗️ %v\nUsage: /ladder <name|epic> <BUY|SELL> [offset step rungs size [tp]]", err)
		return
	}

	prompt := fmt.Sprintf("Place ladder?\n%s %s\noffset=%.1f step=%.1f rungs=%d size=%.2f",
		spec.Epic, spec.Direction, spec.StartOffset, spec.StepSize, spec.RungCount, spec.OrderSize)
	if spec.TakeProfitDistance > 0 {
		prompt += fmt.Sprintf(" tp=%.1f", spec.TakeProfitDistance)
	}
	if !t.Confirm(ctx, prompt, confirmTimeout) {
		return
	}

	// торговля в фоне, поллинг не блокируем
	go func() {
		verdict := t.gate.CanTrade(ctx, spec.OrderSize, spec.Epic)
		if !verdict.Allowed {
			t.Send(formatVerdict(verdict))
			return
		}

		stop := ladder.NewStopToken()
		t.registry.Track(stop)
		defer t.registry.Untrack(stop)

		report := t.engine.PlaceLadder(ctx, stop, spec)
		t.Send(formatLadderReport(report))
	}()
}

func (t *Telegram) handleAuto(ctx context.Context, args []string) {
	spec, err := t.parseLadderSpec(args)
	if err != nil {
		t.Sendf("❗️ %v\nUsage: /auto <name|epic> <BUY|SELL> [offset step rungs size]", err)
		return
	}

	r := runner.New(runner.Params{
		Epic:                 spec.Epic,
		Ladder:               spec,
		CheckInterval:        t.cfg.AutoCheckInterval,
		AdjustmentThreshold:  t.cfg.AdjustmentThreshold,
		TrailingStopDistance: t.cfg.TrailingStopDistance,
		MaxSpread:            t.cfg.MaxSpread,
	}, t.ig, t.engine, t.gate, t)

	if err := t.manager.RunForEpic(ctx, r); err != nil {
		t.Sendf("❗️ %v", err)
	}
}

func (t *Telegram) handleStopAuto(args []string) {
	if len(args) == 0 {
		t.Send("Usage: /stopauto <name|epic>")
		return
	}
	epic := t.cfg.EpicByName(strings.Join(args, " "))
	if err := t.manager.StopForEpic(epic); err != nil {
		t.Sendf("❗️ %v", err)
		return
	}
	t.Sendf("⏹ Auto strategy stopped for %s", epic)
}

func (t *Telegram) handlePanic(ctx context.Context) {
	prompt := "EMERGENCY STOP\nThis will:\n- stop all auto trading\n- cancel all pending orders\n- close all open positions\n\nContinue?"
	if !t.Confirm(ctx, prompt, confirmTimeout) {
		return
	}

	go func() {
		report := t.flattener.Panic(ctx)
		t.Send(formatFlattenReport(report))
	}()
}

// parseLadderSpec: <name|epic> <BUY|SELL> [offset step rungs size [tp]],
// хвост добивается дефолтами из конфига.
func (t *Telegram) parseLadderSpec(args []string) (models.LadderSpec, error) {
	if len(args) < 2 {
		return models.LadderSpec{}, fmt.Errorf("need at least instrument and direction")
	}

	direction := models.Direction(strings.ToUpper(args[len(args)-1]))
	numStart := len(args)
	// направление может стоять после многословного имени рынка
	for i := 1; i < len(args); i++ {
		d := models.Direction(strings.ToUpper(args[i]))
		if d.Valid() {
			direction = d
			numStart = i + 1
			break
		}
	}
	if !direction.Valid() {
		return models.LadderSpec{}, fmt.Errorf("direction must be BUY or SELL")
	}

	epic := t.cfg.EpicByName(strings.Join(args[:numStart-1], " "))

	spec := models.LadderSpec{
		Epic:        epic,
		Direction:   direction,
		StartOffset: t.cfg.DefaultStartOffset,
		StepSize:    t.cfg.DefaultStepSize,
		RungCount:   t.cfg.DefaultRungs,
		OrderSize:   t.cfg.DefaultOrderSize,
		RetryJump:   t.cfg.DefaultRetryJump,
		MaxRetries:  t.cfg.DefaultMaxRetries,
	}

	rest := args[numStart:]
	fields := []*float64{&spec.StartOffset, &spec.StepSize}
	switch {
	case len(rest) > 5:
		return models.LadderSpec{}, fmt.Errorf("too many arguments")
	case len(rest) >= 1:
		for i, f := range fields {
			if i >= len(rest) {
				break
			}
			v, err := strconv.ParseFloat(rest[i], 64)
			if err != nil {
				return models.LadderSpec{}, fmt.Errorf("bad number %q", rest[i])
			}
			*f = v
		}
		if len(rest) >= 3 {
			n, err := strconv.Atoi(rest[2])
			if err != nil || n < 0 {
				return models.LadderSpec{}, fmt.Errorf("bad rung count %q", rest[2])
			}
			spec.RungCount = n
		}
		if len(rest) >= 4 {
			v, err := strconv.ParseFloat(rest[3], 64)
			if err != nil || v <= 0 {
				return models.LadderSpec{}, fmt.Errorf("bad size %q", rest[3])
			}
			spec.OrderSize = v
		}
		if len(rest) >= 5 {
			v, err := strconv.ParseFloat(rest[4], 64)
			if err != nil || v < 0 {
				return models.LadderSpec{}, fmt.Errorf("bad take profit %q", rest[4])
			}
			spec.TakeProfitDistance = v
		}
	}

	return spec, nil
}

// RiskTicker шлёт сводку раз в 30 секунд; read-only, с торговыми
// операциями не координируется.
func (t *Telegram) RiskTicker(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastMsgID int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.ig.LoggedIn() || t.cfg.Telegram.ChatID == 0 {
				continue
			}
			text := formatRiskSummary(t.gate.Summary(ctx))
			if lastMsgID != 0 {
				// правим прошлое сообщение, чтобы не спамить канал
				if err := t.editText(t.cfg.Telegram.ChatID, lastMsgID, text); err == nil {
					continue
				}
			}
			sent, err := t.bot.Send(tgbot.NewMessage(t.cfg.Telegram.ChatID, text))
			if err == nil {
				lastMsgID = sent.MessageID
			}
		}
	}
}
