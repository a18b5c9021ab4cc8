package handlers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutTemplate = "templates/layout.html"
	flashCookie    = "listingdesk_flash"
)

// Page is the data every template receives.
type Page struct {
	Title  string
	User   types.User
	Flash  string
	Errors forms.Errors
	Values url.Values
	Data   any
}

// ErrorPage is the Data of the error template.
type ErrorPage struct {
	Status  int
	Message string
}

// View renders HTML pages and maps service errors to responses.
type View struct {
	pages map[string]*template.Template
	log   zerolog.Logger
}

func NewView(log zerolog.Logger) (*View, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2006-01-02") },
		"itoa": func(n int) string { return fmt.Sprint(n) },
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == layoutTemplate {
			continue
		}
		t, err := template.New(path.Base(name)).Funcs(funcs).ParseFS(templateFS, layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}

	return &View{pages: pages, log: log.With().Str("component", "view").Logger()}, nil
}

// Render writes page with template name and status. A pending flash message
// is consumed.
func (v *View) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	t, ok := v.pages[name]
	if !ok {
		v.log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if user, ok := userFromContext(r.Context()); ok {
		page.User = user
	}
	if page.Flash == "" {
		page.Flash = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		v.log.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders the error page.
func (v *View) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	v.Render(w, r, status, "error", Page{
		Title: http.StatusText(status),
		Data:  ErrorPage{Status: status, Message: message},
	})
}

// Fail maps err to an error page.
func (v *View) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		v.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	v.Error(w, r, status, message)
}

// Redirect stores flash for the next page and sends a 303 to target.
func (v *View) Redirect(w http.ResponseWriter, r *http.Request, target, flash string) {
	if flash != "" {
		setFlash(w, flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func errorStatus(err error) (int, string) {
	var syncErr *mirror.SyncError
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to access this page."
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "The requested record does not exist."
	case errors.As(err, &syncErr):
		return http.StatusBadGateway, syncMessage
	}
	return http.StatusInternalServerError, "Something went wrong."
}

// syncMessage is shown when the spreadsheet rejected a change.
const syncMessage = "The listings spreadsheet could not be updated, so nothing was saved. Please try again."

func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	message, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(message)
}
