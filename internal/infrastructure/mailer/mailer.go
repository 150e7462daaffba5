package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/utils/httpclients"
)

// Mailer sends transactional email through the Microsoft Graph sendMail
// endpoint.
type Mailer struct {
	cfg    *config.Config
	client *resty.Client
	log    zerolog.Logger
}

var _ handover.EmailGateway = (*Mailer)(nil)

func NewMailer(cfg *config.Config) *Mailer {
	client := httpclients.NewClient("mailer")
	client.SetBaseURL(cfg.MailBaseURL)
	client.SetTimeout(cfg.MailTimeout)
	return &Mailer{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger().With().Str("component", "mailer").Logger(),
	}
}

type sendMailRequest struct {
	Message graphMessage `json:"message"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         graphBody        `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
}

// SendEmail implements handover.EmailGateway.
func (m *Mailer) SendEmail(ctx context.Context, email handover.Email) error {
	if !m.cfg.MailConfigured() {
		return fmt.Errorf("mail sender is not configured")
	}
	if email.To == "" {
		return fmt.Errorf("email has no recipient")
	}

	body := graphBody{ContentType: "Text", Content: email.Text}
	if email.HTML != "" {
		body = graphBody{ContentType: "HTML", Content: email.HTML}
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetAuthToken(m.cfg.MailAccessToken).
		SetBody(sendMailRequest{
			Message: graphMessage{
				Subject:      email.Subject,
				Body:         body,
				ToRecipients: []graphRecipient{{EmailAddress: graphEmailAddress{Address: email.To}}},
			},
		}).
		Post(fmt.Sprintf("/users/%s/sendMail", m.cfg.MailFromAddress))
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send mail: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
