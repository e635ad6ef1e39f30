package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/job"
	"github.com/Clerks303/Scraping/internal/source"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "datastore unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"companies": count,
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// startRequest carries the optional acquisition parameters of a start call.
type startRequest struct {
	MinRevenue *float64 `json:"min_revenue,omitempty"`
	MinScore   *float64 `json:"min_score,omitempty"`
	Siren      string   `json:"siren,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")

	var req startRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	snap, err := s.orchestrator.StartJob(r.Context(), name, source.Params{
		MinRevenue: req.MinRevenue,
		MinScore:   req.MinScore,
		Siren:      req.Siren,
	})
	switch {
	case eris.Is(err, source.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source "+name)
	case eris.Is(err, job.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "a job is already running for source "+name)
	case err != nil:
		zap.L().Error("api: start job", zap.String("source", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start job")
	default:
		writeJSON(w, http.StatusAccepted, snap)
	}
}

func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.StatusAll())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")
	snap, err := s.orchestrator.Status(name)
	switch {
	case eris.Is(err, source.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source "+name)
	case eris.Is(err, job.ErrNotFound):
		writeError(w, http.StatusNotFound, "source "+name+" has not run")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to read status")
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")
	err := s.orchestrator.StopJob(name)
	switch {
	case eris.Is(err, source.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source "+name)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to stop job")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "stop requested"})
	}
}

const maxUploadBytes = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	updateExisting, _ := strconv.ParseBool(r.FormValue("update_existing"))

	result, err := s.importer.ImportBatch(r.Context(), file, header.Filename, updateExisting)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, eris.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}
	offset := queryInt(r, "offset", 0)

	records, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("api: list companies", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}
	total, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count companies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"limit":     limit,
		"offset":    offset,
		"companies": records,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("api: stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
