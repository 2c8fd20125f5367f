package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/exporter"
	"fnopulse/internal/middleware"
	"fnopulse/internal/services"
)

type ctxKey string

const symbolCtxKey ctxKey = "symbol"

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// DataHandler serves the read-only options dataset.
type DataHandler struct {
	service      DataServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewDataHandler creates a data handler. Errors are rendered as RFC 7807
// problems by errorHandler.
func NewDataHandler(service DataServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *DataHandler {
	if validator == nil {
		validator = middleware.NewValidator()
	}
	return &DataHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes, mounted at /api/data.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/dates", h.GetDates)
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/snapshot/summary", h.GetSummary)
		r.Get("/table", h.GetTable)
		r.Get("/symbols", h.GetSymbols)
		r.Route("/symbols/{symbol}", func(r chi.Router) {
			r.Use(h.SymbolCtx)
			r.Get("/history", h.GetHistory)
			r.Get("/detail", h.GetDetail)
			r.Get("/record", h.GetRecord)
		})
		r.Get("/diagnostics", h.GetDiagnostics)
		r.With(middleware.AuditLog(h.logger)).Post("/reload", h.Reload)
	})

	r.Get("/export/snapshot.xlsx", h.ExportXLSX)
	r.Get("/export/snapshot.csv", h.ExportCSV)

	return r
}

// SymbolCtx validates the {symbol} segment and stores it upper-cased.
func (h *DataHandler) SymbolCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		param := SymbolParam{Symbol: strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))}
		if err := h.validator.Struct(param); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), symbolCtxKey, param.Symbol)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func symbolFrom(ctx context.Context) string {
	symbol, _ := ctx.Value(symbolCtxKey).(string)
	return symbol
}

// serviceError maps dataset errors onto API errors.
func (h *DataHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var notReady *services.NotReadyError
	switch {
	case errors.As(err, &notReady):
		if notReady.State == services.StateFailed {
			h.errorHandler.HandleError(w, r, apperrors.DatasetUnavailableError(notReady.Cause, 0))
			return
		}
		h.errorHandler.HandleError(w, r, apperrors.DatasetLoadingError(h.service.Status().RetryAfter))
	case errors.Is(err, services.ErrInvalidQuery):
		h.errorHandler.HandleError(w, r, apperrors.InvalidParameterError("query", err.Error()))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

func success(data interface{}, count int) map[string]interface{} {
	return map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	}
}

// GetDates handles GET /api/data/dates
func (h *DataHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.service.Dates(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(dates, len(dates.Dates)))
}

// GetSnapshot handles GET /api/data/snapshot?date=
func (h *DataHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	q := dateQuery(r)
	if err := h.validator.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snap, err := h.service.Snapshot(r.Context(), q.Date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(snap, len(snap.Records)))
}

// GetSummary handles GET /api/data/snapshot/summary?date=
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := dateQuery(r)
	if err := h.validator.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), q.Date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if summary == nil {
		// No records on that date.
		render.JSON(w, r, success(nil, 0))
		return
	}
	render.JSON(w, r, success(NewSummaryView(summary), summary.Total))
}

// GetTable handles GET /api/data/table?date=&sort=&dir=&q=
func (h *DataHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	params := tableParams(r)
	if err := h.validator.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	query := params.Query()
	snap, err := h.service.Table(r.Context(), params.Date, query)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(NewTableView(snap, query), len(snap.Records)))
}

// GetSymbols handles GET /api/data/symbols
func (h *DataHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.service.Symbols(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(symbols, len(symbols)))
}

// GetHistory handles GET /api/data/symbols/{symbol}/history
func (h *DataHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := symbolFrom(r.Context())
	history, err := h.service.History(r.Context(), symbol)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"symbol": symbol,
		"data":   history,
		"count":  len(history),
	})
}

// GetDetail handles GET /api/data/symbols/{symbol}/detail?date=
func (h *DataHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	q := dateQuery(r)
	if err := h.validator.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	detail, err := h.service.Detail(r.Context(), symbolFrom(r.Context()), q.Date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(NewDetailView(detail), detail.HistoryDays))
}

// GetRecord handles GET /api/data/symbols/{symbol}/record?date=
func (h *DataHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	q := dateQuery(r)
	if err := h.validator.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rec, err := h.service.Record(r.Context(), symbolFrom(r.Context()), q.Date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if rec == nil {
		render.JSON(w, r, success(nil, 0))
		return
	}
	render.JSON(w, r, success(rec, 1))
}

// GetDiagnostics handles GET /api/data/diagnostics
func (h *DataHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diag, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, success(diag, diag.Records))
}

// Reload handles POST /api/data/reload. A failed reload keeps serving the
// previous dataset.
func (h *DataHandler) Reload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", reqID))

	if err := h.service.Reload(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "dataset reload failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	status := h.service.Status()
	render.JSON(w, r, success(status, status.Records))
}

func exportFilename(date, ext string) string {
	if date == "" {
		return "options." + ext
	}
	return fmt.Sprintf("options_%s.%s", date, ext)
}

func setDownloadHeaders(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
}

// ExportXLSX handles GET /api/data/export/snapshot.xlsx. The workbook
// mirrors the table for the same date, sort and search.
func (h *DataHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	params := tableParams(r)
	if err := h.validator.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snap, err := h.service.Table(r.Context(), params.Date, params.Query())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.SnapshotXLSX(&buf, snap.Date, snap.Records); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.ExportError("xlsx", err))
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot exported",
		slog.String("format", "xlsx"),
		slog.String("date", snap.Date),
		slog.Int("records", len(snap.Records)),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	setDownloadHeaders(w, contentTypeXLSX, exportFilename(snap.Date, "xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "xlsx export write interrupted",
			slog.String("error", err.Error()))
	}
}

// ExportCSV handles GET /api/data/export/snapshot.csv in the summary file
// layout, streamed without buffering.
func (h *DataHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	params := tableParams(r)
	if err := h.validator.Struct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snap, err := h.service.Table(r.Context(), params.Date, params.Query())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	setDownloadHeaders(w, contentTypeCSV, exportFilename(snap.Date, "csv"))
	w.WriteHeader(http.StatusOK)

	stream, err := exporter.NewStreamWriter(w, exporter.RecordHeaders(), false)
	if err != nil {
		h.logger.WarnContext(r.Context(), "csv export header write failed",
			slog.String("error", err.Error()))
		return
	}
	for _, rec := range snap.Records {
		if err := stream.WriteRecord(exporter.RecordToRow(rec)); err != nil {
			h.logger.WarnContext(r.Context(), "csv export write interrupted",
				slog.String("error", err.Error()))
			return
		}
	}
	if err := stream.Close(); err != nil {
		h.logger.WarnContext(r.Context(), "csv export flush failed",
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot exported",
		slog.String("format", "csv"),
		slog.String("date", snap.Date),
		slog.Int("records", len(snap.Records)),
		slog.String("request_id", middleware.GetReqID(r.Context())))
}
