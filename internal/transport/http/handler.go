package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"arcquiz-service/internal/app"
	"arcquiz-service/internal/domain"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

const visitorCookieMaxAge = 30 * 24 * time.Hour

// Options tunes the page handler.
type Options struct {
	AppName       string
	CookieName    string
	CookieSecure  bool
	DefaultAmount int
}

// Handler serves the quiz pages. Visitors are identified by an opaque id
// kept in a cookie; all state lives behind the service's session store.
type Handler struct {
	service *app.QuizService
	logger  *slog.Logger
	opts    Options
	pages   map[string]*template.Template
}

func NewHandler(service *app.QuizService, logger *slog.Logger, opts Options) (*Handler, error) {
	if opts.AppName == "" {
		opts.AppName = "ArcQuiz"
	}
	if opts.CookieName == "" {
		opts.CookieName = "arcquiz_visitor"
	}
	if opts.DefaultAmount <= 0 {
		opts.DefaultAmount = 10
	}

	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	pages := make(map[string]*template.Template)
	for _, page := range []string{"index", "quiz", "result", "highscores"} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		pages[page] = tmpl
	}

	return &Handler{service: service, logger: logger, opts: opts, pages: pages}, nil
}

// RegisterRoutes wires the page routes into mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /start", h.start)
	mux.HandleFunc("GET /quiz", h.quiz)
	mux.HandleFunc("POST /answer", h.answer)
	mux.HandleFunc("GET /result", h.result)
	mux.HandleFunc("GET /highscores", h.highscores)
	mux.HandleFunc("POST /reset", h.reset)
}

type pageData struct {
	AppName       string
	Flashes       []domain.Flash
	Available     int
	DefaultAmount int
	Question      app.QuestionView
	Result        app.ResultView
	Leaderboard   domain.Leaderboard
}

// GET /
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	available, _ := h.service.Available(r.Context())
	h.render(w, r, visitorID, "index", pageData{
		Available:     available,
		DefaultAmount: min(h.opts.DefaultAmount, available),
	})
}

// POST /start
func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	res, err := h.service.Start(r.Context(), visitorID, r.PostForm.Get("name"), r.PostForm.Get("amount"))
	if app.IsBankUnavailable(err) {
		h.logger.Warn("start without question bank", "error", err)
		h.flashAndRedirect(w, r, visitorID, "error", "No questions available. Check the question bank.", "/")
		return
	}
	if err != nil {
		h.fail(w, err, "start quiz")
		return
	}

	if res.Reduced {
		h.flashAndRedirect(w, r, visitorID, "warning", fmt.Sprintf("Amount adjusted to %d (total available).", res.Available), "/quiz")
		return
	}
	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}

// GET /quiz
func (h *Handler) quiz(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	view, outcome, err := h.service.Current(r.Context(), visitorID)
	if err != nil {
		h.fail(w, err, "load quiz")
		return
	}

	switch outcome {
	case app.OutcomeNoSession:
		h.flashAndRedirect(w, r, visitorID, "warning", "No active quiz. Start a new one.", "/")
	case app.OutcomeComplete:
		http.Redirect(w, r, "/result", http.StatusSeeOther)
	default:
		h.render(w, r, visitorID, "quiz", pageData{Question: view})
	}
}

// POST /answer
func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	outcome, err := h.service.Answer(r.Context(), visitorID, r.PostForm.Get("choice"))
	if err != nil {
		h.fail(w, err, "submit answer")
		return
	}

	switch outcome {
	case app.OutcomeNoSession:
		h.flashAndRedirect(w, r, visitorID, "warning", "No active quiz. Go back to the start.", "/")
	case app.OutcomeComplete:
		http.Redirect(w, r, "/result", http.StatusSeeOther)
	case app.OutcomeInvalidChoice:
		h.flashAndRedirect(w, r, visitorID, "error", "Select a valid option (A, B, C or D).", "/quiz")
	default:
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	}
}

// GET /result
func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	res, outcome, err := h.service.Result(r.Context(), visitorID)
	if err != nil {
		h.fail(w, err, "finalize result")
		return
	}

	switch outcome {
	case app.OutcomeNoSession:
		h.flashAndRedirect(w, r, visitorID, "warning", "No active quiz. Start a new one.", "/")
	case app.OutcomeInProgress:
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	default:
		h.render(w, r, visitorID, "result", pageData{Result: res})
	}
}

// GET /highscores
func (h *Handler) highscores(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.fail(w, err, "list highscores")
		return
	}
	h.render(w, r, visitorID, "highscores", pageData{Leaderboard: lb})
}

// POST /reset
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	visitorID := h.visitorID(w, r)
	_, err := h.service.Reset(r.Context(), visitorID)
	if app.IsBankUnavailable(err) {
		h.logger.Warn("reset without question bank", "error", err)
		h.flashAndRedirect(w, r, visitorID, "error", "No questions available. Check the question bank.", "/")
		return
	}
	if err != nil {
		h.fail(w, err, "reset quiz")
		return
	}
	h.flashAndRedirect(w, r, visitorID, "success", "New quiz started.", "/quiz")
}

// visitorID returns the id from the visitor cookie, issuing a new one when
// the cookie is missing or malformed.
func (h *Handler) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.opts.CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, visitorID, page string, data pageData) {
	flashes, err := h.service.TakeFlashes(r.Context(), visitorID)
	if err != nil {
		h.logger.Warn("take flashes", "error", err)
	}
	data.AppName = h.opts.AppName
	data.Flashes = flashes

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.fail(w, err, "render "+page)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, visitorID, kind, message, to string) {
	if err := h.service.Flash(r.Context(), visitorID, kind, message); err != nil {
		h.logger.Warn("store flash", "error", err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, err error, action string) {
	h.logger.Error("request failed", "action", action, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
