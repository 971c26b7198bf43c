// summarybot long-polls Telegram and answers nutrition-summary commands
// (/today, /yesterday, /day, /avgweek) computed over the remote
// treatment store.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/megusto0/tgintegration/internal"
	"github.com/megusto0/tgintegration/internal/config"
	"github.com/megusto0/tgintegration/internal/nightscout"
	"github.com/megusto0/tgintegration/internal/summary"
	"github.com/megusto0/tgintegration/internal/telegram"
)

const helpText = `Доступные команды:
/today — сумма за сегодня
/yesterday — сумма за вчера
/day YYYY-MM-DD — сумма за указанную дату
/avgweek — итоги и среднее за текущую неделю`

const badDateText = "Не удалось распознать дату. Форматы: YYYY-MM-DD или DD.MM.YYYY"

type bot struct {
	client  *telegram.Client
	store   summary.Store
	allowed map[int64]bool
	logger  internal.Logger
	offset  int64
}

var rootCmd = &cobra.Command{
	Use:   "summarybot",
	Short: "Answer Telegram nutrition-summary commands over long polling",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := internal.NewLogger(cfg.Env)

		client, err := telegram.NewClient(cfg.TGToken)
		if err != nil {
			return err
		}

		b := &bot{
			client:  client,
			store:   nightscout.NewClient(cfg.NSURL, cfg.NSToken, cfg.NSAPISecret, logger),
			allowed: cfg.AllowedUsers(),
			logger:  logger,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Infof("summary bot started")
		b.run(ctx)
		logger.Infof("summary bot stopped")
		return nil
	},
}

func (b *bot) run(ctx context.Context) {
	for ctx.Err() == nil {
		updates, err := b.client.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Errorf("getUpdates failed: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *bot) handleUpdate(ctx context.Context, update telegram.Update) {
	message := update.Message
	if message == nil {
		message = update.EditedMessage
	}
	if message == nil || message.Text == "" {
		return
	}

	if len(b.allowed) > 0 && (message.From == nil || !b.allowed[message.From.ID]) {
		b.logger.Infof("ignoring message from unauthorized user")
		return
	}

	command, rest, _ := strings.Cut(message.Text, " ")
	command = strings.ToLower(command)
	if name, _, found := strings.Cut(command, "@"); found {
		command = name
	}
	args := strings.Fields(rest)

	reply := b.dispatch(ctx, command, args)
	if reply == "" {
		return
	}
	if err := b.client.SendMessage(ctx, message.Chat.ID, reply); err != nil {
		b.logger.Errorf("sendMessage failed: %v", err)
	}
}

func (b *bot) dispatch(ctx context.Context, command string, args []string) string {
	switch command {
	case "/start", "/help":
		return helpText
	case "/today":
		if len(args) > 0 {
			return "Команда /today не принимает аргументы."
		}
		return b.daySummary(ctx, time.Now().UTC())
	case "/yesterday":
		if len(args) > 0 {
			return "Команда /yesterday не принимает аргументы."
		}
		return b.daySummary(ctx, time.Now().UTC().AddDate(0, 0, -1))
	case "/day", "/date":
		if len(args) == 0 {
			return "Использование: /day YYYY-MM-DD"
		}
		day, err := summary.ParseDate(args[0])
		if err != nil {
			return badDateText
		}
		return b.daySummary(ctx, day)
	case "/week", "/avgweek", "/weekavg":
		ref := time.Now().UTC()
		if len(args) > 0 {
			parsed, err := summary.ParseDate(args[0])
			if err != nil {
				return badDateText
			}
			ref = parsed
		}
		text, err := summary.BuildWeek(ctx, b.store, ref)
		if err != nil {
			b.logger.Errorf("week summary failed: %v", err)
			return "Не удалось получить данные. Попробуйте позже."
		}
		return text
	}
	return "Неизвестная команда. Используйте /help для списка команд."
}

func (b *bot) daySummary(ctx context.Context, day time.Time) string {
	text, err := summary.BuildDay(ctx, b.store, day)
	if err != nil {
		b.logger.Errorf("day summary failed: %v", err)
		return "Не удалось получить данные. Попробуйте позже."
	}
	return text
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
