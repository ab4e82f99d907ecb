package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"notes/internal/auth"
	"notes/internal/errs"
	"notes/internal/middleware"
	"notes/internal/models"
	"notes/internal/photo"
	"notes/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index", "register", "login", "notes", "edit_note",
	"categories", "edit_category", "not_found", "error",
}

// Handlers holds dependencies for the HTML handlers
type Handlers struct {
	store     store.Store
	identity  *auth.Identity
	sessions  *auth.Sessions
	photos    *photo.Store
	logger    *slog.Logger
	staticDir string
	maxUpload int64
	pages     map[string]*template.Template
}

type Options struct {
	Store     store.Store
	Identity  *auth.Identity
	Sessions  *auth.Sessions
	Photos    *photo.Store
	Logger    *slog.Logger
	StaticDir string
	MaxUpload int64 // bytes accepted in a note form, photo included
}

// NewHandlers creates a new Handlers instance with the given dependencies
func NewHandlers(opts Options) (*Handlers, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		store:     opts.Store,
		identity:  opts.Identity,
		sessions:  opts.Sessions,
		photos:    opts.Photos,
		logger:    logger,
		staticDir: opts.StaticDir,
		maxUpload: maxUpload,
		pages:     pages,
	}, nil
}

// Routes wires every page into a mux and wraps it with the middleware
// chain: Logging -> Recover -> Auth.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	anon := middleware.AnonymousOnly
	authed := middleware.RequireAuth
	sameSite := middleware.SameSite

	mux.HandleFunc("GET /{$}", h.IndexHandler)
	mux.Handle("GET /static/", http.StripPrefix("/static/", noListing(http.FileServer(http.Dir(h.staticDir)))))

	mux.HandleFunc("GET /register", anon(h.RegisterFormHandler))
	mux.HandleFunc("POST /register", anon(h.RegisterHandler))
	mux.HandleFunc("GET /login", anon(h.LoginFormHandler))
	mux.HandleFunc("POST /login", anon(h.LoginHandler))
	mux.HandleFunc("GET /logout", sameSite(h.LogoutHandler))

	mux.HandleFunc("GET /note", authed(h.NotesHandler))
	mux.HandleFunc("POST /note", authed(h.CreateNoteHandler))
	mux.HandleFunc("GET /edit_note/{id}", authed(h.EditNoteFormHandler))
	mux.HandleFunc("POST /edit_note/{id}", authed(h.EditNoteHandler))
	mux.HandleFunc("GET /delete/{id}", sameSite(authed(h.DeleteNoteHandler)))
	mux.HandleFunc("POST /search", authed(h.SearchHandler))
	mux.HandleFunc("GET /filter", authed(h.FilterHandler))

	mux.HandleFunc("GET /category", authed(h.CategoriesHandler))
	mux.HandleFunc("POST /category", authed(h.CreateCategoryHandler))
	mux.HandleFunc("GET /edit_category/{id}", authed(h.EditCategoryFormHandler))
	mux.HandleFunc("POST /edit_category/{id}", authed(h.EditCategoryHandler))
	mux.HandleFunc("GET /delete_category/{id}", sameSite(authed(h.DeleteCategoryHandler)))

	mux.HandleFunc("/", h.notFound)

	var handler http.Handler = mux
	handler = middleware.Auth(h.sessions, h.store, h.logger, handler)
	handler = middleware.Recover(h.logger, handler)
	return middleware.Logging(h.logger, handler)
}

// pageData is what every template receives.
type pageData struct {
	Title     string
	User      *models.User
	Flash     *flash
	FormError string
	Form      map[string]string
	Errors    *errs.ValidationError

	Notes      []models.Note
	Note       *models.Note
	Categories []models.Category
	Category   *models.Category
	Selected   map[int]bool
	Search     string
	FilterID   int
	Next       string
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data.Errors == nil {
		data.Errors = &errs.ValidationError{}
	}
	data.User, _ = auth.UserFromContext(r.Context())
	data.Flash = popFlash(w, r)

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("render failed", "page", page, "error", err)
		http.Error(w, "Something went wrong. Please try again later.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// fail turns errors that have no form to go back to into a page.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	attrs := []any{"method", r.Method, "path", r.URL.Path, "error", err}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		attrs = append(attrs, "user_id", u.ID)
	}
	h.logger.Error("request failed", attrs...)
	h.render(w, r, http.StatusInternalServerError, "error", &pageData{Title: "Error"})
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", &pageData{Title: "Not found"})
}

// currentUser is only called behind RequireAuth.
func currentUser(r *http.Request) *models.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, errs.ErrNotFound
	}
	return id, nil
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
