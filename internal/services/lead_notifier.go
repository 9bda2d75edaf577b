package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const leadQueueSize = 64

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// LeadNotifier forwards every stored lead to a Telegram chat. Hook never blocks a request:
// notifications are queued and sent by Run, and dropped when the queue is full.
type LeadNotifier struct {
	sender  messageSender
	chatID  int64
	queue   chan Submission
	logger  *zap.Logger
	timeout time.Duration
}

func NewTelegramLeadNotifier(token string, chatID int64, logger *zap.Logger) (*LeadNotifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	client, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return newLeadNotifier(client, chatID, logger), nil
}

func newLeadNotifier(sender messageSender, chatID int64, logger *zap.Logger) *LeadNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadNotifier{
		sender:  sender,
		chatID:  chatID,
		queue:   make(chan Submission, leadQueueSize),
		logger:  logger.With(zap.String("component", "lead_notifier")),
		timeout: 10 * time.Second,
	}
}

// Hook is a SuccessHook.
func (n *LeadNotifier) Hook(_ context.Context, submission Submission) {
	select {
	case n.queue <- submission:
	default:
		n.logger.Warn("lead notification dropped, queue full", zap.String("form", submission.Variant))
	}
}

// Run sends queued notifications until ctx is done.
func (n *LeadNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case submission := <-n.queue:
			n.send(ctx, submission)
		}
	}
}

func (n *LeadNotifier) send(ctx context.Context, submission Submission) {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.sender.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   formatLeadMessage(submission),
	})
	if err != nil {
		n.logger.Warn("lead notification failed", zap.String("form", submission.Variant), zap.Error(err))
	}
}

func formatLeadMessage(submission Submission) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "New %s lead", submission.Variant)
	if submission.Label != "" {
		fmt.Fprintf(&builder, " (%s)", submission.Label)
	}
	builder.WriteString("\n")
	fmt.Fprintf(&builder, "table: %s\n", submission.Table)

	columns := submission.Row
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := columns[name]
		if value == nil {
			continue
		}
		fmt.Fprintf(&builder, "%s: %v\n", name, value)
	}
	return strings.TrimRight(builder.String(), "\n")
}
