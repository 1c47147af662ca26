package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/storage"
)

const (
	saveWorkspaceMaxSize = 16 * 1024 * 1024 // 16 MiB
	defaultWorkspaceID   = "default"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, notifier Notifier, logger *log.Logger) {
	e.GET("/api/workspace", getWorkspace(store, auth, logger))
	e.POST("/api/workspace", postWorkspace(store, auth, notifier, logger))
	registerEntityRoutes(e, store, auth, notifier, logger)
	e.GET("/healthz", healthz())
}

type saveWorkspaceRequest struct {
	Data      domain.Workspace `json:"data"`
	Version   int64            `json:"version"`
	RequestID string           `json:"requestId"`
	UserID    string           `json:"userId,omitempty"`
}

type saveWorkspaceResponse struct {
	Version int64  `json:"version"`
	Error   string `json:"error,omitempty"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func workspaceID(c echo.Context) string {
	if id := c.QueryParam("workspaceId"); id != "" {
		return id
	}
	return defaultWorkspaceID
}

func getWorkspace(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newWorkspaceRequestMetrics(ctx, logger, "/api/workspace GET")
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		ws, fetchErr := store.FetchWorkspace(ctx, workspaceID(c))
		metrics.ObserveStorage(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		err = c.JSON(http.StatusOK, ws)
		return err
	}
}

func postWorkspace(store Storage, auth Authenticator, notifier Notifier, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newWorkspaceRequestMetrics(ctx, logger, "/api/workspace POST")
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		lr := io.LimitReader(c.Request().Body, saveWorkspaceMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()
		var req saveWorkspaceRequest
		if decodeErr := dec.Decode(&req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}

		id := workspaceID(c)
		saveStart := time.Now()
		version, saveErr := store.SaveWorkspace(ctx, id, req.Data, req.Version, req.RequestID, userID)
		metrics.ObserveStorage(time.Since(saveStart))
		switch {
		case saveErr == nil:
		case errors.Is(saveErr, storage.ErrVersionConflict):
			metrics.SetErrorStage("version_conflict")
			err = c.JSON(http.StatusConflict, saveWorkspaceResponse{Error: "version mismatch"})
			return err
		case errors.Is(saveErr, storage.ErrChangeFeed):
			// the document write was accepted; losing a feed record is not
			// worth failing the save over
			logger.WithError(saveErr).WithField("workspace", id).Warn("change feed behind")
		default:
			metrics.SetErrorStage("storage")
			c.Logger().Error(saveErr)
			err = c.String(http.StatusInternalServerError, saveErr.Error())
			return err
		}

		if notifier != nil {
			if notifyErr := notifier.WorkspaceChanged(ctx, id, version); notifyErr != nil {
				logger.WithError(notifyErr).WithField("workspace", id).Error("workspace change notification failed")
			}
		}
		err = c.JSON(http.StatusOK, saveWorkspaceResponse{Version: version})
		return err
	}
}
