package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FormSubmitter принимает смету из веб-формы.
type FormSubmitter interface {
	SubmitForm(ctx context.Context, values url.Values) (estimates.Estimate, error)
}

type Server struct {
	srv *http.Server
}

// New forms может быть nil: тогда /submit-form не регистрируется.
func New(addr string, exposeMetrics bool, forms FormSubmitter, log *slog.Logger) *Server {
	return &Server{srv: &http.Server{Addr: addr, Handler: NewMux(exposeMetrics, forms, log)}}
}

func NewMux(exposeMetrics bool, forms FormSubmitter, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	if forms != nil {
		mux.Handle("POST /submit-form", &formHandler{forms: forms, log: log})
	}

	return mux
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
