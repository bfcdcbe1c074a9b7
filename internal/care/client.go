package care

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// Client 上游临床记录系统客户端（daily rounds 提交）
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// SubmitDailyRound 提交一次巡房载荷；非 2xx 视为失败
func (c *Client) SubmitDailyRound(ctx context.Context, consultationID string, payload models.DailyRoundPayload, headers map[string]string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(payload).
		Post(fmt.Sprintf("/api/v1/consultation/%s/daily_rounds/", consultationID))
	if err != nil {
		return fmt.Errorf("failed to submit daily round for consultation %s: %w", consultationID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("daily round submission for consultation %s returned %d: %s",
			consultationID, resp.StatusCode(), resp.String())
	}

	c.logger.Debug("Submitted daily round",
		zap.String("consultation_id", consultationID),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}
