package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coinproxy/internal/market"
	"coinproxy/internal/models"
)

// Coins is the subset of the cache layer the bot commands use.
type Coins interface {
	PopularCoins(ctx context.Context) []models.MarketRecord
	SearchLocalCoins(ctx context.Context, query string) []models.CoinSummary
	CoinDetails(ctx context.Context, id string) (market.DetailResult, error)
}

type Bot struct {
	api   *tgbotapi.BotAPI
	coins Coins
	log   *slog.Logger
}

func New(token string, coins Coins, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		api:   api,
		coins: coins,
		log:   logger,
	}, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("telegram bot authorized", slog.String("account", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	text := b.respond(context.WithoutCancel(ctx), update.Message.Command(), update.Message.CommandArguments())
	if text == "" {
		return
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("telegram send failed", slog.Int64("chat", update.Message.Chat.ID), slog.Any("err", err))
	}
}

// respond renders the reply for a command, or "" for commands it ignores.
func (b *Bot) respond(ctx context.Context, command, args string) string {
	switch command {
	case "popular":
		return formatPopular(b.coins.PopularCoins(ctx), time.Now())

	case "search":
		q := strings.TrimSpace(args)
		if q == "" {
			return "Usage: /search <name or symbol>"
		}
		return formatMatches(q, b.coins.SearchLocalCoins(ctx, q))

	case "coin":
		id := strings.TrimSpace(args)
		if id == "" {
			return "Usage: /coin <coin id>"
		}
		res, err := b.coins.CoinDetails(ctx, id)
		if err != nil {
			b.log.Warn("coin details failed", slog.String("coin", id), slog.Any("err", err))
			return fmt.Sprintf("%s: Data unavailable", id)
		}
		if res.NotFound {
			return fmt.Sprintf("Coin not found: %s", res.ID)
		}
		return formatDetail(res.Coin)
	}
	return ""
}

func formatPopular(records []models.MarketRecord, now time.Time) string {
	header := "🏆 POPULAR COINS BY MARKET CAP 🏆"
	if len(records) == 0 {
		return header + "\n\nData unavailable"
	}

	var messages []string
	for i, r := range records {
		q, err := r.Quote()
		if err != nil {
			messages = append(messages, fmt.Sprintf("#%d %s: Data unavailable", i+1, r.ID))
			continue
		}
		messages = append(messages, formatQuote(i+1, q))
	}

	timestamp := now.UTC().Format("2006-01-02 15:04 UTC")
	return fmt.Sprintf("%s\n\n%s\n\n📊 Updated: %s", header, strings.Join(messages, "\n"), timestamp)
}

func formatQuote(rank int, q models.MarketQuote) string {
	rankEmoji := ""
	switch rank {
	case 1:
		rankEmoji = "🥇"
	case 2:
		rankEmoji = "🥈"
	case 3:
		rankEmoji = "🥉"
	default:
		rankEmoji = "▫️"
	}

	change := "N/A"
	if q.PriceChangePercentage24h != nil {
		change = fmt.Sprintf("%s%.2f%%", changeIndicator(*q.PriceChangePercentage24h), *q.PriceChangePercentage24h)
	}

	return fmt.Sprintf("%s #%d %s (%s) | 💰 %s (%s) | 💎 MC: %s",
		rankEmoji,
		rank,
		q.Name,
		strings.ToUpper(q.Symbol),
		formatPrice(q.Price),
		change,
		formatValue(q.MarketCap))
}

func formatMatches(query string, coins []models.CoinSummary) string {
	if len(coins) == 0 {
		return fmt.Sprintf("No coins match %q", query)
	}
	lines := make([]string, 0, len(coins))
	for _, c := range coins {
		lines = append(lines, fmt.Sprintf("• %s (%s) → /coin %s", c.Name, strings.ToUpper(c.Symbol), c.ID))
	}
	return strings.Join(lines, "\n")
}

func formatDetail(d models.CoinDetail) string {
	v, err := d.DetailView()
	if err != nil {
		return fmt.Sprintf("%s: Data unavailable", d.ID)
	}
	md := v.MarketData

	return fmt.Sprintf(`%s (%s) #%d
- Price: %s
- 24h Price Change: %s%.2f%%
- 24h Volume (USD): %s
- Market Cap: %s
- FDV: %s`,
		v.Name,
		strings.ToUpper(v.Symbol),
		v.MarketCapRank,
		formatPrice(md.Price.USD),
		changeIndicator(md.PriceChangePercentage24h),
		md.PriceChangePercentage24h,
		formatValue(md.Volume24h.USD),
		formatValue(md.MarketCap.USD),
		formatValue(md.FullyDilutedValuation.USD))
}

func changeIndicator(pct float64) string {
	switch {
	case pct > 0:
		return "🟢"
	case pct < 0:
		return "🔴"
	}
	return "➖"
}

func formatValue(value float64) string {
	if value == 0 {
		return "N/A"
	}
	if value >= 1e9 {
		return fmt.Sprintf("%.2f B", value/1e9)
	}
	if value >= 1e6 {
		return fmt.Sprintf("%.2f M", value/1e6)
	}
	return fmt.Sprintf("%.2f", value)
}

func formatPrice(price float64) string {
	if price == 0 {
		return "N/A"
	}
	return fmt.Sprintf("$%.4f", price)
}
