package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/agenthost/agenthost-mini/internal/http/middleware"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/service/research"
	"github.com/labstack/echo/v4"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type researchReq struct {
	Company   string `json:"company"`
	RequestID string `json:"requestId"`
	APIKey    string `json:"apiKey"`
}

type usageResp struct {
	Tier           model.Tier  `json:"tier"`
	RemainingToday model.Limit `json:"remainingToday"`
	DailyLimit     model.Limit `json:"dailyLimit"`
}

type researchResp struct {
	Company   string      `json:"company"`
	RequestID string      `json:"requestId"`
	Data      model.Brief `json:"data"`
	Timestamp string      `json:"timestamp"`
	Usage     usageResp   `json:"usage"`
}

type deniedResp struct {
	Error      string     `json:"error"`
	Tier       model.Tier `json:"tier"`
	UpgradeURL string     `json:"upgradeUrl"`
}

func researchHandler(svc *research.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req researchReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		key := middleware.APIKeyFromCtx(c)
		if key == "" {
			key = strings.TrimSpace(req.APIKey)
		}

		res, err := svc.Research(c.Request().Context(), research.Request{Company: req.Company, APIKey: key})
		if err != nil {
			return researchError(c, err)
		}

		reqID := req.RequestID
		if reqID == "" {
			reqID = c.Response().Header().Get(echo.HeaderXRequestID)
		}
		return c.JSON(http.StatusOK, researchResp{
			Company:   res.Company,
			RequestID: reqID,
			Data:      res.Brief,
			Timestamp: time.Now().UTC().Format(timestampLayout),
			Usage: usageResp{
				Tier:           res.Usage.Tier,
				RemainingToday: res.Usage.RemainingToday,
				DailyLimit:     res.Usage.DailyLimit,
			},
		})
	}
}

func researchError(c echo.Context, err error) error {
	var denied *research.DeniedError
	switch {
	case errors.Is(err, research.ErrCompanyRequired):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Company name required"})
	case errors.As(err, &denied) && denied.LimitReached():
		return c.JSON(http.StatusTooManyRequests, deniedResp{
			Error:      denied.Decision.Reason,
			Tier:       denied.Decision.Tier,
			UpgradeURL: denied.Decision.UpgradeURL,
		})
	case denied != nil:
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": denied.Decision.Reason})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Research failed",
			"message": err.Error(),
		})
	}
}
