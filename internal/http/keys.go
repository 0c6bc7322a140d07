package http

import (
	"net/http"

	"github.com/agenthost/agenthost-mini/internal/metrics"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createKeyReq struct {
	Tier string `json:"tier"`
}

type createKeyResp struct {
	APIKey     string      `json:"apiKey"`
	Tier       model.Tier  `json:"tier"`
	DailyLimit model.Limit `json:"dailyLimit"`
}

func createKeyHandler(gate *quota.Gate, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createKeyReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		tier, ok := model.ParseTier(req.Tier)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "tier must be free or pro"})
		}

		key, err := gate.Register(c.Request().Context(), tier)
		if err != nil {
			log.Error("register key", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create key"})
		}
		metrics.KeysRegisteredTotal.WithLabelValues(tier.String()).Inc()
		log.Info("key registered", zap.String("tier", tier.String()))

		return c.JSON(http.StatusCreated, createKeyResp{APIKey: key, Tier: tier, DailyLimit: tier.DailyLimit()})
	}
}
