//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/application/chat"
	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/inactivity"
	"livechat-server/handover-api/internal/infrastructure/crontab"
	"livechat-server/handover-api/internal/infrastructure/database/repository"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/infrastructure/mailer"
	"livechat-server/handover-api/internal/infrastructure/twilio"
	"livechat-server/handover-api/internal/infrastructure/webhook"
	"livechat-server/handover-api/internal/interfaces/httpserver"
)

var gatewaySet = wire.NewSet(
	twilio.NewClient,
	wire.Bind(new(handover.MessagingGateway), new(*twilio.Client)),
	mailer.NewMailer,
	wire.Bind(new(handover.EmailGateway), new(*mailer.Mailer)),
	webhook.NewTransport,
	wire.Bind(new(handover.WebhookTransport), new(*webhook.Transport)),
)

var domainSet = wire.NewSet(
	handover.NewCoordinator,
	wire.Bind(new(inactivity.QueueProcessor), new(*handover.Coordinator)),
	inactivity.NewMonitor,
	chat.NewService,
)

// BuildApplication assembles the handover API with Wire.
func BuildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(
		newGormDB,
		transaction.NewDatabase,
		repository.RepositoryProvider,
		gatewaySet,
		domainSet,
		crontab.NewCrontab,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
