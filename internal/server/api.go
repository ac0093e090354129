package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
	"github.com/TobiSchelling/govpulse/internal/compose"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/feedback"
	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

const maxBodyBytes = 64 << 10

type analyzeRequest struct {
	Text *string `json:"text"`
}

type officeRequest struct {
	Name   string  `json:"name"`
	Region *string `json:"region"`
}

type reportRequest struct {
	OfficeID int64  `json:"office_id"`
	PeriodID string `json:"period_id"`
}

type sentimentResponse struct {
	OfficeID int64  `json:"office_id"`
	PeriodID string `json:"period_id"`
	aggregate.Result
	Cached bool `json:"cached"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.svc.Analyzer.AnalyzeText(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var sub feedback.Submission
	if !decodeJSON(w, r, &sub) {
		return
	}

	receipt, err := s.svc.Feedback.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, sentiment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "comment is required")
	case errors.Is(err, feedback.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, feedback.ErrUnknownOffice):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		internalError(w, err)
	default:
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func (s *Server) handleListOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := s.db.ListOffices()
	if err != nil {
		internalError(w, err)
		return
	}
	if offices == nil {
		offices = []database.Office{}
	}
	writeJSON(w, http.StatusOK, offices)
}

func (s *Server) handleCreateOffice(w http.ResponseWriter, r *http.Request) {
	var req officeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := s.db.InsertOffice(name, req.Region)
	if err != nil {
		internalError(w, err)
		return
	}
	if id == 0 {
		writeError(w, http.StatusConflict, "office already exists")
		return
	}
	office, err := s.db.GetOffice(id)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, office)
}

func (s *Server) handleOfficeSentiment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	periodID := r.URL.Query().Get("period")
	if periodID == "" {
		today := time.Now().UTC()
		periodID = database.MakePeriodID(today.AddDate(0, 0, -6).Format("2006-01-02"), today.Format("2006-01-02"))
	}
	if _, _, err := database.ParsePeriod(periodID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	office, err := s.db.GetOffice(id)
	if err != nil {
		internalError(w, err)
		return
	}
	if office == nil {
		writeError(w, http.StatusNotFound, "office not found")
		return
	}

	resp := sentimentResponse{OfficeID: id, PeriodID: periodID}
	if agg, hit := s.svc.Cache.Get(id, periodID); hit {
		resp.Result, resp.Cached = agg, true
	} else {
		agg, err := s.svc.Composer.Aggregate(id, periodID)
		if err != nil {
			internalError(w, err)
			return
		}
		s.svc.Cache.Set(id, periodID, agg)
		resp.Result = agg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, _, err := database.ParsePeriod(req.PeriodID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.svc.Composer.ComposeReport(r.Context(), req.OfficeID, req.PeriodID)
	switch {
	case errors.Is(err, compose.ErrUnknownOffice):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		internalError(w, err)
	default:
		writeJSON(w, http.StatusCreated, rep)
	}
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, err := s.db.GetReport(id)
	if err != nil {
		internalError(w, err)
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// limit rejects requests beyond the client's rate budget with 429.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// instrument counts requests per route and status code.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.svc.Metrics.Request(route, strconv.Itoa(rec.status))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, err error) {
	logrus.WithError(err).Error("Request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
