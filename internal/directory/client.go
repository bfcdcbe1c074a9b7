package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
	"github.com/Ashesh3/teleicu-middleware/internal/store"
)

const (
	assetKeyPrefix   = "directory:asset:"
	patientKeyPrefix = "directory:patient:"
)

// Client 设备目录客户端：解析 device -> asset -> (consultation, patient)，
// 并为资产签发调用上游所需的授权头。解析结果经 KV 缓存。
type Client struct {
	httpClient *resty.Client
	kv         store.KV
	cacheTTL   time.Duration
	jwtKey     []byte
	tokenTTL   time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, kv store.KV, cacheTTL time.Duration, jwtKey string, tokenTTL time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		kv:         kv,
		cacheTTL:   cacheTTL,
		jwtKey:     []byte(jwtKey),
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// GetAsset 解析设备标识对应的资产；目录中不存在时返回 (nil, nil)
func (c *Client) GetAsset(ctx context.Context, deviceID string) (*models.Asset, error) {
	cacheKey := assetKeyPrefix + deviceID
	if cached, err := c.kv.Get(ctx, cacheKey); err == nil {
		var asset models.Asset
		if err := json.Unmarshal([]byte(cached), &asset); err == nil {
			return &asset, nil
		}
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("ip_address", deviceID).
		Get("/api/v1/asset_config/")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset for device %s: %w", deviceID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("asset lookup for device %s returned %d", deviceID, resp.StatusCode())
	}

	var asset models.Asset
	if err := json.Unmarshal(resp.Body(), &asset); err != nil {
		return nil, fmt.Errorf("failed to decode asset for device %s: %w", deviceID, err)
	}

	if err := c.kv.Set(ctx, cacheKey, string(resp.Body()), c.cacheTTL); err != nil {
		c.logger.Warn("Failed to cache asset lookup", zap.String("device_id", deviceID), zap.Error(err))
	}
	return &asset, nil
}

// GetPatientContext 解析资产对应的就诊/患者上下文；无在床患者时返回 (nil, nil)
func (c *Client) GetPatientContext(ctx context.Context, externalID string) (*models.PatientContext, error) {
	cacheKey := patientKeyPrefix + externalID
	if cached, err := c.kv.Get(ctx, cacheKey); err == nil {
		var pc models.PatientContext
		if err := json.Unmarshal([]byte(cached), &pc); err == nil {
			return &pc, nil
		}
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/v1/consultation/patient_from_asset/?preset_id=%s", externalID))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patient for asset %s: %w", externalID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("patient lookup for asset %s returned %d", externalID, resp.StatusCode())
	}

	var pc models.PatientContext
	if err := json.Unmarshal(resp.Body(), &pc); err != nil {
		return nil, fmt.Errorf("failed to decode patient context for asset %s: %w", externalID, err)
	}

	if err := c.kv.Set(ctx, cacheKey, string(resp.Body()), c.cacheTTL); err != nil {
		c.logger.Warn("Failed to cache patient lookup", zap.String("external_id", externalID), zap.Error(err))
	}
	return &pc, nil
}

// AuthHeaders 为资产签发调用上游所需的授权头（短期 HS256 JWT，asset 声明）
func (c *Client) AuthHeaders(externalID string) (map[string]string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"asset": externalID,
		"iat":   now.Unix(),
		"exp":   now.Add(c.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(c.jwtKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign asset token: %w", err)
	}

	return map[string]string{
		"Authorization": "Bearer " + signed,
	}, nil
}
