package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/grid_export_service/internal/logger"
	"github.com/locvowork/grid_export_service/internal/service"
	"github.com/locvowork/grid_export_service/internal/service/serviceutils"
	"github.com/locvowork/grid_export_service/pkg/gridexport"
)

type ExportHandler struct {
	svc              service.ExportService
	folder           string
	deleteAfterServe bool
}

func NewExportHandler(svc service.ExportService, folder string, deleteAfterServe bool) *ExportHandler {
	if folder == "" {
		folder = "."
	}
	return &ExportHandler{svc: svc, folder: folder, deleteAfterServe: deleteAfterServe}
}

// statusFor maps service errors onto HTTP codes: unknown grid is a 404,
// configuration mistakes a 400, everything else a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownGrid):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case gridexport.IsConfigError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type gridInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ListGridsHandler handles GET /api/v1/grids
func (h *ExportHandler) ListGridsHandler(c echo.Context) error {
	grids := h.svc.Grids()
	out := make([]gridInfo, 0, len(grids))
	for _, g := range grids {
		out = append(out, gridInfo{Name: g.Name, Title: g.Title})
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", out)
}

// MenuHandler handles GET /api/v1/grids/:name/export/menu
func (h *ExportHandler) MenuHandler(c echo.Context) error {
	name := c.Param("name")
	action := fmt.Sprintf("/api/v1/grids/%s/export", name)

	var buf bytes.Buffer
	if err := h.svc.Menu(&buf, name, action); err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Failed to render export menu", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// ExportHandler handles POST /api/v1/grids/:name/export
func (h *ExportHandler) ExportHandler(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	name := c.Param("name")

	params, err := h.svc.Params(name)
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Unknown grid", err)
	}
	form, err := c.FormParams()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Malformed form payload", err)
	}
	req, err := gridexport.ParseRequest(form, params)
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Malformed export request", err)
	}
	if !req.Flagged {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing export flag",
			fmt.Errorf("%w: export flag not set", gridexport.ErrBadRequest))
	}

	res, err := h.svc.Export(ctx, name, req)
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Export failed", err)
	}

	if res.Vetoed {
		return serviceutils.ResponseSuccess(c, http.StatusOK, "Export cancelled by hook", res)
	}

	// A saved export answers with the download link instead of the payload.
	if res.Saved != nil {
		return serviceutils.ResponseSuccess(c, http.StatusOK, "Export saved", res)
	}

	c.Response().Header().Set(echo.HeaderContentType, res.Profile.MIME)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(res.Data)))

	if _, err := c.Response().Write(res.Data); err != nil {
		return err
	}

	logger.DebugLog(ctx, "export %s as %s: %d rows, %d bytes, elapsed %s",
		name, res.Format, res.Stats.DataRows, len(res.Data), time.Since(start).String())
	return nil
}

// BundleHandler handles POST /api/v1/grids/:name/export/bundle
func (h *ExportHandler) BundleHandler(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	name := c.Param("name")

	form, err := c.FormParams()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Malformed form payload", err)
	}
	formats := form["formats"]

	data, err := h.svc.ExportBundle(ctx, name, formats)
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Failed to build export bundle", err)
	}

	filename := fmt.Sprintf("%s_bundle.zip", gridexport.SanitizeFilename(name))
	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))

	if _, err := c.Response().Write(data); err != nil {
		return err
	}

	logger.DebugLog(ctx, "bundle %s: %d formats, %d bytes, elapsed %s",
		name, len(formats), len(data), time.Since(start).String())
	return nil
}

// DownloadHandler handles GET /api/v1/exports/files/:name
func (h *ExportHandler) DownloadHandler(c echo.Context) error {
	name := c.Param("name")

	// Only bare filenames produced by the exporter are served; anything
	// with a path component is rejected.
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid file name", nil)
	}

	path := filepath.Join(h.folder, name)
	if _, err := os.Stat(path); err != nil {
		return serviceutils.ResponseError(c, http.StatusNotFound, "Export file not found", err)
	}

	if err := c.Attachment(path, name); err != nil {
		return err
	}
	if h.deleteAfterServe {
		if err := os.Remove(path); err != nil {
			logger.WarnLog(c.Request().Context(), "remove served export %s: %v", path, err)
		}
	}
	return nil
}

// HistoryHandler handles GET /api/v1/exports/history
func (h *ExportHandler) HistoryHandler(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid limit", err)
		}
		limit = n
	}

	records, err := h.svc.History(ctx, limit)
	if err != nil {
		return serviceutils.ResponseError(c, statusFor(err), "Failed to load export history", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", records)
}
