package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caratlabs/storepulse/internal/domain/charts"
	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
	"github.com/caratlabs/storepulse/internal/domain/etl/service"
	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
)

const (
	defaultWindow = 3
	// maxUploadBytes caps a multipart import request.
	maxUploadBytes = 64 << 20
)

// ImportService is the ingestion surface the import endpoint depends on.
type ImportService interface {
	ImportWorkbook(ctx context.Context, fileName string, r io.Reader) (*service.ImportSummary, error)
	ImportCSV(ctx context.Context, fileName string, kind extractor.MetricKind, r io.Reader) (*service.ImportSummary, error)
}

// StoreLister exposes the known store identifiers and their data coverage.
type StoreLister interface {
	ListStores(ctx context.Context) ([]string, error)
	DistinctDates(ctx context.Context, storeID string) ([]string, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleImport accepts multipart uploads under the "files" field. CSV files
// need a metric prefix in the file name (sales_*, customer_*, spend_*,
// labor_*); xlsx sheets are classified by header keywords.
func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	var summaries []*service.ImportSummary
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable upload part: "+header.Filename)
			return
		}

		summary, err := h.importOne(r.Context(), header.Filename, f)
		f.Close()
		if err != nil {
			h.Logger.Warn("import failed", slog.String("file", header.Filename), slog.Any("error", err))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, map[string]any{"imports": summaries})
}

func (h *Handlers) importOne(ctx context.Context, name string, f io.Reader) (*service.ImportSummary, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return h.ETL.ImportWorkbook(ctx, name, f)
	case ".csv":
		kind, ok := csvKind(name)
		if !ok {
			return nil, errors.New("cannot infer metric from csv file name: " + name)
		}
		return h.ETL.ImportCSV(ctx, name, kind, f)
	default:
		return nil, errors.New("unsupported file type: " + name)
	}
}

func csvKind(name string) (extractor.MetricKind, bool) {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasPrefix(lower, "sales"):
		return extractor.MetricSalesAmount, true
	case strings.HasPrefix(lower, "customer"):
		return extractor.MetricCustomerCount, true
	case strings.HasPrefix(lower, "spend"):
		return extractor.MetricAverageSpend, true
	case strings.HasPrefix(lower, "labor"):
		return extractor.MetricLaborHours, true
	}
	return "", false
}

func (h *Handlers) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Stores.ListStores(r.Context())
	if err != nil {
		h.Logger.Error("failed to list stores", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}
	if stores == nil {
		stores = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

// handleStoreDates returns every date a store has data for, feeding the
// dashboard's date selector.
func (h *Handlers) handleStoreDates(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	dates, err := h.Stores.DistinctDates(r.Context(), storeID)
	if err != nil {
		h.Logger.Error("failed to list dates", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"store_id": storeID, "dates": dates})
}

func (h *Handlers) handleKPIs(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	window, ok := windowParam(w, r)
	if !ok {
		return
	}

	snapshot, err := h.KPIs.Snapshot(r.Context(), storeID, window, asOfParam(r))
	if err != nil {
		if errors.Is(err, kpi.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("kpi snapshot failed", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to compute kpis")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) handleChart(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	metric := r.PathValue("metric")
	window, ok := windowParam(w, r)
	if !ok {
		return
	}

	series, err := h.KPIs.TrendSeries(r.Context(), storeID, metric, window, asOfParam(r))
	if err != nil {
		if errors.Is(err, kpi.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("trend series failed", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to compute trend")
		return
	}

	png, err := charts.RenderTrend(series)
	if err != nil {
		writeError(w, http.StatusNotFound, "no chartable data for "+metric)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handlers) handleForecast(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = string(extractor.MetricCustomerCount)
	}

	history, err := h.KPIs.MonthlyHistory(r.Context(), storeID, metric, 24, asOfParam(r))
	if err != nil {
		h.Logger.Error("forecast history failed", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	points, err := h.Forecaster.Forecast(history)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			writeError(w, http.StatusUnprocessableEntity, "forecast unavailable: "+err.Error())
			return
		}
		h.Logger.Error("forecast failed", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to forecast")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"store_id": storeID,
		"metric":   metric,
		"horizon":  forecast.Horizon,
		"points":   points,
	})
}

func (h *Handlers) handleReport(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	window, ok := windowParam(w, r)
	if !ok {
		return
	}

	md, err := h.Reports.Generate(r.Context(), storeID, window, asOfParam(r))
	if err != nil {
		if errors.Is(err, kpi.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("report failed", slog.String("store_id", storeID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// windowParam parses ?window=N, defaulting to 3. Non-integer input is a 400;
// out-of-range values are left for the KPI engine to reject.
func windowParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return defaultWindow, true
	}
	window, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "window must be an integer")
		return 0, false
	}
	return window, true
}

// asOfParam parses ?as_of=YYYY-MM-DD, defaulting to now. Pinning as_of keeps
// dashboard snapshots reproducible.
func asOfParam(r *http.Request) time.Time {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
