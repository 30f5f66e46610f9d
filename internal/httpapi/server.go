// Package httpapi serves the admin back-office over HTTP: pending payments,
// decisions and the xlsx report. Every route except /api/health needs a
// bearer token issued to an admin.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/coursebot/internal/apperr"
	"github.com/example/coursebot/internal/conversation"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/payment"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Verifier checks a bearer token and returns the Telegram id it was issued to
type Verifier interface {
	Verify(token string) (int64, error)
}

// Admins tells admins apart from everybody else
type Admins interface {
	IsAdmin(id int64) bool
}

// Decider applies admin decisions the same way the chat buttons do
type Decider interface {
	Handle(ctx context.Context, actor conversation.Actor, ev conversation.Event) conversation.Outcome
}

type ctxKey struct{}

type Server struct {
	router   *mux.Router
	srv      *http.Server
	reports  excel.ReportSource
	decider  Decider
	admins   Admins
	tokens   Verifier
	currency string
	log      *logger.Logger
	now      func() time.Time
}

func New(addr string, reports excel.ReportSource, decider Decider, admins Admins, tokens Verifier, currency string, log *logger.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		reports:  reports,
		decider:  decider,
		admins:   admins,
		tokens:   tokens,
		currency: currency,
		log:      log.With("component", "HTTP"),
		now:      time.Now,
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	admin := api.PathPrefix("").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/payments", s.listPayments).Methods(http.MethodGet)
	admin.HandleFunc("/payments/{id:[0-9]+}", s.getPayment).Methods(http.MethodGet)
	admin.HandleFunc("/payments/{id:[0-9]+}/{decision:confirm|reject}", s.decide).Methods(http.MethodPost)
	admin.HandleFunc("/reports/payments.xlsx", s.report).Methods(http.MethodGet)
}

// ServeHTTP lets tests drive the router without a listener
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("http api listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http api: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "took", time.Since(start))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		id, err := s.tokens.Verify(token)
		if err != nil {
			s.log.Debug("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !s.admins.IsAdmin(id) {
			s.log.Warn("non-admin token", "user", id, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "admins only")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func adminFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKey{}).(int64)
	return id
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paymentView struct {
	ID            int64                `json:"id"`
	StudentID     int64                `json:"student_id"`
	CourseID      int64                `json:"course_id"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	Status        models.PaymentStatus `json:"status"`
	HasScreenshot bool                 `json:"has_screenshot"`
	CreatedAt     time.Time            `json:"created_at"`
	ConfirmedAt   *time.Time           `json:"confirmed_at,omitempty"`
}

type detailsView struct {
	paymentView
	StudentName string `json:"student_name"`
	TelegramID  int64  `json:"telegram_id"`
	CourseTitle string `json:"course_title"`
}

func (s *Server) view(p models.Payment) paymentView {
	return paymentView{
		ID:            p.ID,
		StudentID:     p.StudentID,
		CourseID:      p.CourseID,
		Amount:        models.FormatAmount(p.Amount),
		Currency:      s.currency,
		Status:        p.Status,
		HasScreenshot: p.ScreenshotRef != "",
		CreatedAt:     p.CreatedAt,
		ConfirmedAt:   p.ConfirmedAt,
	}
}

// listPayments defaults to pending payments; ?status=all lists everything
func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	filter := resource.PaymentFilter{Status: models.PaymentPending}
	switch status := r.URL.Query().Get("status"); status {
	case "":
	case "all":
		filter.Status = ""
	case string(models.PaymentPending), string(models.PaymentConfirmed), string(models.PaymentCancelled):
		filter.Status = models.PaymentStatus(status)
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}

	payments, err := s.reports.ListPayments(r.Context(), filter)
	if err != nil {
		s.log.Error("failed to list payments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	out := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, s.view(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	d, err := s.reports.GetPaymentDetails(r.Context(), id)
	if errors.Is(err, resource.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		s.log.Error("failed to load payment", "payment", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load payment")
		return
	}
	writeJSON(w, http.StatusOK, detailsView{
		paymentView: s.view(d.Payment),
		StudentName: d.Student.Name,
		TelegramID:  d.Student.ExternalID,
		CourseTitle: d.Course.Title,
	})
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, _ := strconv.ParseInt(vars["id"], 10, 64)
	decision := payment.DecisionReject
	if vars["decision"] == "confirm" {
		decision = payment.DecisionConfirm
	}

	admin := adminFrom(r.Context())
	out := s.decider.Handle(r.Context(), conversation.Actor{ID: admin}, conversation.AdminDecision{PaymentID: id, Decision: decision})
	if e, ok := out.(conversation.Error); ok {
		writeError(w, statusFor(e.Kind), e.Message)
		return
	}
	s.log.Info("payment resolved over http", "payment", id, "admin", admin, "decision", decision.String())
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "decision": decision.String()})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	opts := excel.ReportOptions{Status: models.PaymentStatus(r.URL.Query().Get("status")), Currency: s.currency}
	var buf bytes.Buffer
	if err := excel.WriteReport(r.Context(), s.reports, &buf, opts); err != nil {
		s.log.Error("failed to build report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", excel.ReportFileName(s.now())))
	_, _ = w.Write(buf.Bytes())
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyProcessed:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindValidation, apperr.KindInvalidOption:
		return http.StatusBadRequest
	case apperr.KindNotification:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
