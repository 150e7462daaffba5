package repository

import (
	"livechat-server/handover-api/internal/infrastructure/database/repository/conversationrepo"
	"livechat-server/handover-api/internal/infrastructure/database/repository/handoverrepo"
	"livechat-server/handover-api/internal/infrastructure/database/repository/messagerepo"
	"livechat-server/handover-api/internal/infrastructure/database/repository/usagerepo"
	"livechat-server/handover-api/internal/infrastructure/database/repository/widgetrepo"

	"github.com/google/wire"
)

var RepositoryProvider = wire.NewSet(
	conversationrepo.NewConversationGormRepository,
	messagerepo.NewMessageGormRepository,
	handoverrepo.NewHandoverGormRepository,
	widgetrepo.NewWidgetGormRepository,
	usagerepo.NewUsageGormRepository,
)
