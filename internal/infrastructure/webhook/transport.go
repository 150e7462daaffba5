package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/utils/httpclients"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body, keyed
// with the widget's webhook secret.
const SignatureHeader = "X-Handover-Signature"

const maxStoredBody = 1000

// Transport delivers signed handover payloads to customer endpoints.
type Transport struct {
	cfg    *config.Config
	client *resty.Client
	log    zerolog.Logger
}

var _ handover.WebhookTransport = (*Transport)(nil)

func NewTransport(cfg *config.Config) *Transport {
	client := httpclients.NewClient("webhook")
	client.SetTimeout(cfg.WebhookTimeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.WebhookMaxRedirects))
	return &Transport{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger().With().Str("component", "webhook").Logger(),
	}
}

// Sign returns the hex HMAC-SHA256 of the body under the secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver implements handover.WebhookTransport. The payload is serialized
// once and that exact byte sequence is both signed and sent.
func (t *Transport) Deliver(ctx context.Context, url, secret string, payload any) (*handover.WebhookResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	req := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if secret != "" {
		req.SetHeader(SignatureHeader, Sign(body, secret))
	}

	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("post webhook: %w", err)
	}

	respBody := resp.String()
	if len(respBody) > maxStoredBody {
		respBody = respBody[:maxStoredBody]
	}

	if resp.IsError() {
		return nil, fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode())
	}

	t.log.Info().
		Str("url", url).
		Int("status", resp.StatusCode()).
		Msg("webhook delivered")
	return &handover.WebhookResult{
		StatusCode: resp.StatusCode(),
		Body:       respBody,
	}, nil
}
