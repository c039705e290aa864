package ingestion

import (
	"context"
	"strings"

	"AuctionLedger/internal/core"
	"AuctionLedger/internal/observability"

	"github.com/rs/zerolog"
)

// CommandApplier is the slice of the engine the ingestion loop needs.
type CommandApplier interface {
	Apply(cmd core.Command) error
}

// CommandLoop drains raw commands from NATS, parses them, and applies them
// to the engine. Every message is ACKed once a decision exists: business
// rejections and malformed payloads are terminal, so redelivery would only
// repeat the same outcome.
type CommandLoop struct {
	engine      CommandApplier
	commandChan <-chan RawCommand
	metrics     *observability.Metrics
	log         zerolog.Logger
}

func NewCommandLoop(engine CommandApplier, commandChan <-chan RawCommand, metrics *observability.Metrics, log zerolog.Logger) *CommandLoop {
	return &CommandLoop{
		engine:      engine,
		commandChan: commandChan,
		metrics:     metrics,
		log:         log,
	}
}

// Run blocks until ctx is cancelled or the channel closes.
func (l *CommandLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-l.commandChan:
			if !ok {
				return nil
			}
			l.handle(raw)
		}
	}
}

func (l *CommandLoop) handle(raw RawCommand) {
	commandType := commandTypeForSubject(raw.Subject)

	if l.metrics != nil {
		l.metrics.CommandsReceived.WithLabelValues(commandType).Inc()
	}

	cmd, err := ParseRawCommand(raw, commandType)
	if err != nil {
		if l.metrics != nil {
			l.metrics.ParseErrors.WithLabelValues(commandType).Inc()
		}
		l.log.Warn().Err(err).Str("subject", raw.Subject).Msg("malformed command")
		raw.AckFunc()
		return
	}

	if err := l.engine.Apply(cmd); err != nil {
		l.log.Debug().Err(err).Str("subject", raw.Subject).
			Str("idempotency_key", cmd.IdempotencyKey()).
			Msg("command rejected")
	}
	raw.AckFunc()
}

// commandTypeForSubject maps an inbound subject to its command type.
func commandTypeForSubject(subject string) string {
	switch {
	case strings.HasPrefix(subject, "auction.commands.init"):
		return "InitializeAuction"
	case strings.HasPrefix(subject, "auction.commands.bids"):
		return "PlaceBid"
	case strings.HasPrefix(subject, "auction.commands.refunds"):
		return "Refund"
	case strings.HasPrefix(subject, "auction.commands.withdrawals"):
		return "Withdraw"
	case strings.HasPrefix(subject, "auction.commands.funding"):
		return "FundWallet"
	default:
		return "Unknown"
	}
}
