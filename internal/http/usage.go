package http

import (
	"net/http"

	"github.com/agenthost/agenthost-mini/internal/http/middleware"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/labstack/echo/v4"
)

type usageSnapshotResp struct {
	model.UsageSnapshot
	Demo bool `json:"demo"`
}

func usageHandler(gate *quota.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := middleware.APIKeyFromCtx(c)
		snap, ok, err := gate.Snapshot(c.Request().Context(), key)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "usage lookup failed"})
		}
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": quota.ReasonInvalidKey})
		}
		return c.JSON(http.StatusOK, usageSnapshotResp{UsageSnapshot: snap, Demo: quota.IsDemo(key)})
	}
}
