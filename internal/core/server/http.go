package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formkeeper/internal/core/api"
	"github.com/solatis/formkeeper/internal/core/config"
	"github.com/solatis/formkeeper/internal/logging"
	"github.com/solatis/formkeeper/internal/types"
)

// PreviewService is the part of the form service the HTTP surface uses.
type PreviewService interface {
	Normalize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RenderPreview(ctx context.Context, req api.PreviewRequest) (*api.PreviewResult, error)
}

// HTTPServer serves the preview and normalize endpoints.
type HTTPServer struct {
	router  *chi.Mux
	server  *http.Server
	service PreviewService
	config  *config.ServiceConfig
}

// NewHTTPServer builds the router.
func NewHTTPServer(cfg *config.ServiceConfig, service PreviewService) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	r := chi.NewRouter()
	s := &HTTPServer{
		router:  r,
		service: service,
		config:  cfg,
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxPayloadBytes))

	r.Get("/healthz", s.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/normalize", s.normalize)
		r.Post("/preview", s.preview)
		r.Get("/forms/{form_id}/preview", s.storedPreview)
	})

	s.server = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// accessLogger logs each request and carries a request-scoped logger in the
// context.
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r.WithContext(logging.With(r.Context(), logger)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := api.Code(err)
	msg := status.Convert(api.Status(err)).Message()
	httpStatus := httpStatusFor(code)
	if httpStatus >= http.StatusInternalServerError {
		logging.From(r.Context()).Error("request failed", "error", err)
	}
	writeJSON(w, httpStatus, map[string]string{
		"error": msg,
		"code":  code.String(),
	})
}

func httpStatusFor(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Aborted:
		return http.StatusConflict
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// normalize accepts a raw form payload and answers with the same document
// the gRPC Normalize method returns.
func (s *HTTPServer) normalize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, status.Error(codes.InvalidArgument, "failed to read request body"))
		return
	}
	payload := new(structpb.Struct)
	if err := protojson.Unmarshal(body, payload); err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "body is not a JSON object: %v", err))
		return
	}

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"form": structpb.NewStructValue(payload),
	}}
	out, err := s.service.Normalize(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := protojson.Marshal(out)
	if err != nil {
		writeError(w, r, status.Error(codes.Internal, "failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

type previewBody struct {
	Form    map[string]any `json:"form"`
	FormID  string         `json:"form_id"`
	Answers map[string]any `json:"answers"`
	Page    int            `json:"page"`
}

func (s *HTTPServer) preview(w http.ResponseWriter, r *http.Request) {
	var body previewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err))
		return
	}
	s.renderPreview(w, r, api.PreviewRequest{
		Form:    body.Form,
		FormID:  types.FormID(body.FormID),
		Answers: types.Answers(body.Answers),
		Page:    body.Page,
	})
}

// storedPreview renders a saved form. Query parameters other than page are
// taken as answers; repeated parameters become lists.
func (s *HTTPServer) storedPreview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))

	answers := types.Answers{}
	for name, values := range query {
		if name == "page" {
			continue
		}
		if len(values) == 1 {
			answers[name] = values[0]
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		answers[name] = list
	}

	s.renderPreview(w, r, api.PreviewRequest{
		FormID:  types.FormID(chi.URLParam(r, "form_id")),
		Answers: answers,
		Page:    page,
	})
}

func (s *HTTPServer) renderPreview(w http.ResponseWriter, r *http.Request, req api.PreviewRequest) {
	res, err := s.service.RenderPreview(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Preview-Page", strconv.Itoa(res.Page))
	w.Header().Set("X-Preview-Pages", strconv.Itoa(res.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.HTML)
}
