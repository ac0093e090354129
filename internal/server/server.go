package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/govpulse/internal/compose"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Options tunes the HTTP server.
type Options struct {
	RateLimit float64 // requests per second per client on POST endpoints; 0 disables
	RateBurst int
}

// Server serves the feedback API, report pages and metrics.
type Server struct {
	db      *database.DB
	svc     *pipeline.Services
	pages   map[string]*template.Template
	mux     *http.ServeMux
	limiter *clientLimiter
}

// New creates a new Server.
func New(db *database.DB, svc *pipeline.Services, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":     renderMarkdown,
		"formatPeriod": database.FormatPeriodDisplay,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so their "content" blocks don't collide.
	pageNames := []string{"index.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:      db,
		svc:     svc,
		pages:   pages,
		mux:     http.NewServeMux(),
		limiter: newClientLimiter(opts.RateLimit, opts.RateBurst),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /reports/{id}", s.handleReportPage)

	s.mux.HandleFunc("POST /api/analyze", s.instrument("analyze", s.limit(s.handleAnalyze)))
	s.mux.HandleFunc("POST /api/feedback", s.instrument("feedback", s.limit(s.handleSubmitFeedback)))
	s.mux.HandleFunc("GET /api/offices", s.instrument("offices", s.handleListOffices))
	s.mux.HandleFunc("POST /api/offices", s.instrument("offices", s.limit(s.handleCreateOffice)))
	s.mux.HandleFunc("GET /api/offices/{id}/sentiment", s.instrument("sentiment", s.handleOfficeSentiment))
	s.mux.HandleFunc("POST /api/reports", s.instrument("reports", s.limit(s.handleCreateReport)))
	s.mux.HandleFunc("GET /api/reports/{id}", s.instrument("report", s.handleGetReport))

	if s.svc.Metrics != nil {
		s.mux.Handle("GET /metrics", s.svc.Metrics.Handler())
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	offices, err := s.db.ListOffices()
	if err != nil {
		logrus.WithError(err).Error("Error listing offices")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	reports, err := s.db.ListReports(nil, 50)
	if err != nil {
		logrus.WithError(err).Error("Error listing reports")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	names := make(map[int64]string, len(offices))
	for _, o := range offices {
		names[o.ID] = o.Name
	}

	s.render(w, "index.html", map[string]any{
		"Offices":     offices,
		"Reports":     reports,
		"OfficeNames": names,
	})
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	rep, err := s.db.GetReport(id)
	if err != nil {
		logrus.WithError(err).WithField("report_id", id).Error("Error loading report")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rep == nil {
		http.NotFound(w, r)
		return
	}

	officeName := ""
	if office, _ := s.db.GetOffice(rep.OfficeID); office != nil {
		officeName = office.Name
	}

	s.render(w, "report.html", map[string]any{
		"Report":   rep,
		"Office":   officeName,
		"Markdown": compose.Narrative(rep).Markdown(""),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		logrus.WithField("template", name).Error("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		logrus.WithError(err).WithField("template", name).Error("Error rendering template")
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on the given port until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server listening on http://%s", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
