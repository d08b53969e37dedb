package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

type HealthResponse struct {
	Status string      `json:"status"`
	Store  string      `json:"store"`
	Stats  HealthStats `json:"stats"`
	Error  string      `json:"error,omitempty"`
}

type HealthStats struct {
	PendingCount int `json:"pending_count"`
}

type CountResponse struct {
	Count  int  `json:"count"`
	HasNew bool `json:"has_new"`
}

type ClearResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RecordsCleared int    `json:"records_cleared"`
}

type RejectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.queue.Ping(ctx); err != nil {
		return c.JSON(http.StatusOK, HealthResponse{Status: "degraded", Store: "disconnected", Error: err.Error()})
	}
	n, err := s.queue.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusOK, HealthResponse{Status: "unhealthy", Store: "connected", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Store: "connected", Stats: HealthStats{PendingCount: n}})
}

func (s *Server) handleScan(c echo.Context) error {
	ctx := c.Request().Context()
	log := common.LoggerFromContext(ctx, s.logger)
	res, err := s.scanner.ScanAndExtract(ctx)
	if err != nil {
		log.Error("server.scan.failed", zap.Error(err))
		return httpError(err, "Scan failed")
	}
	log.Info("server.scan.completed",
		zap.Int("processed", res.ProcessedCount),
		zap.Int("new_items", res.NewItemsCount),
		zap.Int("failed", res.FailedCount),
	)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleListPending(c echo.Context) error {
	recs, err := s.queue.ListAll(c.Request().Context())
	if err != nil {
		return httpError(err, "Failed to fetch pending records")
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) handlePendingCount(c echo.Context) error {
	n, err := s.queue.Count(c.Request().Context())
	if err != nil {
		return httpError(err, "Failed to fetch pending count")
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n, HasNew: n > 0})
}

// handleClearPending empties the queue and forgets processed files, for development resets.
func (s *Server) handleClearPending(c echo.Context) error {
	ctx := c.Request().Context()
	n, err := s.queue.Count(ctx)
	if err != nil {
		return httpError(err, "Failed to clear queue")
	}
	if err := s.queue.Clear(ctx); err != nil {
		return httpError(err, "Failed to clear queue")
	}
	if err := s.queue.ClearProcessedFiles(ctx); err != nil {
		return httpError(err, "Failed to clear queue")
	}
	common.LoggerFromContext(ctx, s.logger).Info("server.queue.cleared", zap.Int("records_cleared", n))
	return c.JSON(http.StatusOK, ClearResponse{Success: true, Message: "Queue cleared successfully", RecordsCleared: n})
}

func recordID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", errInvalidArg("record id is required")
	}
	return id, nil
}

func (s *Server) handleApprove(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	res, err := s.reviewer.Approve(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "Approval failed")
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleReject(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	if err := s.reviewer.Reject(c.Request().Context(), id); err != nil {
		return httpError(err, "Rejection failed")
	}
	return c.JSON(http.StatusOK, RejectResponse{Success: true, Message: "Record " + id + " rejected"})
}

func (s *Server) handleEdit(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var upd entity.RecordUpdate
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		return errInvalidArg("invalid request body: " + err.Error())
	}
	rec, err := s.reviewer.Edit(c.Request().Context(), id, upd)
	if err != nil {
		return httpError(err, "Edit failed")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSource(c echo.Context) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	src, err := s.reviewer.Source(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "Failed to retrieve source")
	}
	return c.JSON(http.StatusOK, src)
}
