package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/usage"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/utils/httpclients"
)

// Client sends WhatsApp and SMS messages through the Twilio Messages API
// and records every accepted message as a billable usage row.
type Client struct {
	cfg    *config.Config
	client *resty.Client
	usage  usage.Repository
	log    zerolog.Logger
}

var _ handover.MessagingGateway = (*Client)(nil)

func NewClient(cfg *config.Config, usageRepo usage.Repository) *Client {
	client := httpclients.NewClient("twilio")
	client.SetBaseURL(cfg.TwilioBaseURL)
	client.SetTimeout(cfg.MessagingTimeout)
	client.SetBasicAuth(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	return &Client{
		cfg:    cfg,
		client: client,
		usage:  usageRepo,
		log:    logger.GetLogger().With().Str("component", "twilio").Logger(),
	}
}

// messageResponse is the subset of the Twilio message resource we read.
type messageResponse struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
	NumSegments  string  `json:"num_segments"`
	Price        *string `json:"price"`
	PriceUnit    string  `json:"price_unit"`
}

// apiError is Twilio's error envelope for rejected requests.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// SendMessage implements handover.MessagingGateway for freeform text.
func (c *Client) SendMessage(ctx context.Context, params handover.SendParams) (*handover.SendResult, error) {
	form := map[string]string{
		"To":   params.To,
		"From": c.fromFor(params.To),
		"Body": params.Body,
	}
	return c.send(ctx, params.ClientID, params.WidgetID, params.ConversationID, params.To, form)
}

// SendTemplateMessage implements handover.MessagingGateway using a
// pre-approved content template.
func (c *Client) SendTemplateMessage(ctx context.Context, params handover.TemplateParams) (*handover.SendResult, error) {
	if c.cfg.TwilioContentSID == "" {
		return &handover.SendResult{
			Success:   false,
			Error:     "no content template configured",
			ErrorCode: handover.ErrCodeTemplateNotApproved,
		}, nil
	}
	variables, err := json.Marshal(params.Variables)
	if err != nil {
		return nil, fmt.Errorf("encode template variables: %w", err)
	}
	form := map[string]string{
		"To":               params.To,
		"From":             c.fromFor(params.To),
		"ContentSid":       c.cfg.TwilioContentSID,
		"ContentVariables": string(variables),
	}
	return c.send(ctx, params.ClientID, params.WidgetID, params.ConversationID, params.To, form)
}

func (c *Client) send(ctx context.Context, clientID, widgetID, conversationID uint, to string, form map[string]string) (*handover.SendResult, error) {
	if !c.cfg.MessagingConfigured() {
		return nil, fmt.Errorf("twilio credentials are not configured")
	}

	var body messageResponse
	var errBody apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&body).
		SetError(&errBody).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.cfg.TwilioAccountSID))
	if err != nil {
		return nil, fmt.Errorf("twilio request: %w", err)
	}

	if resp.IsError() {
		result := &handover.SendResult{
			Success:   false,
			Error:     errBody.Message,
			ErrorCode: strconv.Itoa(errBody.Code),
		}
		c.log.Warn().
			Int("http_status", resp.StatusCode()).
			Str("error_code", result.ErrorCode).
			Str("to", to).
			Msg("twilio rejected message")
		return result, nil
	}

	result := &handover.SendResult{
		Success:    true,
		MessageSID: body.SID,
		Status:     body.Status,
	}
	if body.ErrorCode != nil {
		result.Success = false
		result.ErrorCode = strconv.Itoa(*body.ErrorCode)
		if body.ErrorMessage != nil {
			result.Error = *body.ErrorMessage
		}
		return result, nil
	}

	c.recordUsage(ctx, clientID, widgetID, conversationID, to, &body)
	return result, nil
}

// recordUsage stores the accepted message for billing, best effort.
func (c *Client) recordUsage(ctx context.Context, clientID, widgetID, conversationID uint, to string, body *messageResponse) {
	channel := usage.ChannelSMS
	if strings.HasPrefix(to, "whatsapp:") {
		channel = usage.ChannelWhatsApp
	}
	segments := 1
	if n, err := strconv.Atoi(body.NumSegments); err == nil && n > 0 {
		segments = n
	}
	price := decimal.Zero
	if body.Price != nil {
		if p, err := decimal.NewFromString(strings.TrimPrefix(*body.Price, "-")); err == nil {
			price = p
		}
	}
	rec := &usage.Record{
		ClientID:       clientID,
		WidgetID:       widgetID,
		ConversationID: conversationID,
		Channel:        channel,
		MessageSID:     body.SID,
		Segments:       segments,
		Price:          price,
		PriceUnit:      body.PriceUnit,
	}
	if err := c.usage.Create(ctx, rec); err != nil {
		c.log.Warn().Err(err).Str("message_sid", body.SID).Msg("failed to record message usage")
	}
}

func (c *Client) fromFor(to string) string {
	if strings.HasPrefix(to, "whatsapp:") {
		from := c.cfg.TwilioWhatsAppFrom
		if !strings.HasPrefix(from, "whatsapp:") {
			from = "whatsapp:" + from
		}
		return from
	}
	return c.cfg.TwilioSMSFrom
}
