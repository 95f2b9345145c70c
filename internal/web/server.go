// Package web serves the status page and the panel setup form.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/store"
	logp "github.com/charmbracelet/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "web",
})

// SetLogger replaces the package logger.
func SetLogger(l *logp.Logger) {
	log = l
}

var errorMessages = map[string]string{
	integration.ErrorCannotConnect: "Failed to connect",
	integration.ErrorUnknown:       "Unexpected error",
	integration.ErrorRequired:      "Required",
	integration.ErrorInvalidPort:   "Invalid port",
}

// Loader loads freshly created entries, and stops loading entries that get
// removed before they finished loading.
type Loader interface {
	Load(ctx context.Context, entry integration.ConfigEntry)
	Cancel(entryID string)
}

// Mux is where routes get registered, like the HAP server mux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

type Server struct {
	flow        *integration.ConfigFlow
	store       store.Store
	integration *integration.Integration
	loader      Loader
	templates   *template.Template
}

func New(
	flow *integration.ConfigFlow,
	st store.Store,
	integ *integration.Integration,
	loader Loader,
) *Server {
	return &Server{
		flow:        flow,
		store:       st,
		integration: integ,
		loader:      loader,
		templates: template.Must(template.New("").Funcs(template.FuncMap{
			"message": func(code string) string {
				if msg, ok := errorMessages[code]; ok {
					return msg
				}
				return code
			},
		}).ParseFS(templateFS, "templates/*.html")),
	}
}

// Register mounts the web routes.
func (s *Server) Register(mux Mux) {
	mux.Handle("/", http.HandlerFunc(s.handleIndex))
	mux.Handle("/setup", http.HandlerFunc(s.handleSetup))
	mux.Handle("/unload", http.HandlerFunc(s.handleUnload))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.store.List()
	if err != nil {
		log.Error("could not list entries", "err", err)
		http.Error(w, "could not list entries", http.StatusInternalServerError)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		rt, _ := s.integration.Runtime(entry.ID)
		views = append(views, newEntryView(entry, rt))
	}
	s.render(w, "index.html", struct{ Entries []entryView }{views})
}

type setupPage struct {
	Input  integration.UserInput
	Result integration.FlowResult
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "setup.html", setupPage{
			Input:  integration.UserInput{Port: "8080"},
			Result: s.flow.StepUser(r.Context(), nil),
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		input := integration.UserInput{
			Name: r.PostForm.Get("name"),
			Host: r.PostForm.Get("host"),
			Port: r.PostForm.Get("port"),
		}
		result := s.flow.StepUser(r.Context(), &input)
		if result.Type != integration.ResultCreateEntry {
			w.WriteHeader(http.StatusBadRequest)
			s.render(w, "setup.html", setupPage{Input: input, Result: result})
			return
		}
		entry, err := s.store.Create(result.Title, result.Data)
		if err != nil {
			log.Error("could not store entry", "err", err)
			http.Error(w, "could not store entry", http.StatusInternalServerError)
			return
		}
		log.Info("entry created", "entry", entry.ID, "name", entry.Data.Name)
		s.loader.Load(context.WithoutCancel(r.Context()), entry)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := r.PostForm.Get("id")
	if _, err := s.store.Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "could not read entry", http.StatusInternalServerError)
		return
	}

	s.loader.Cancel(id)
	ok, err := s.integration.UnloadEntry(r.Context(), id)
	if err != nil && !errors.Is(err, integration.ErrNotLoaded) {
		log.Error("could not unload entry", "entry", id, "err", err)
	}
	if !ok && !errors.Is(err, integration.ErrNotLoaded) {
		http.Error(w, "could not unload entry", http.StatusInternalServerError)
		return
	}
	if err := s.store.Delete(id); err != nil {
		log.Error("could not delete entry", "entry", id, "err", err)
		http.Error(w, "could not delete entry", http.StatusInternalServerError)
		return
	}
	log.Info("entry removed", "entry", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error("could not render template", "template", name, "err", err)
	}
}
