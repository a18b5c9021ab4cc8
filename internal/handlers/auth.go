package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/listingdesk/listingdesk/config"
	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
)

const (
	sessionCookie     = "listingdesk_session"
	defaultSessionTTL = 12 * time.Hour
	loginPath         = "/login"
	homePath          = "/admin/listings"
)

// SessionUsers resolves sessions and credentials to users.
type SessionUsers interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	Authenticate(ctx context.Context, username, password string) (types.User, error)
}

// Sessions issues and reads the signed session cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewSessions(cfg config.SessionConfig) (*Sessions, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{secret: []byte(cfg.JWTSecret), ttl: ttl, secure: cfg.CookieSecure}, nil
}

// Issue starts a session for userID.
func (s *Sessions) Issue(w http.ResponseWriter, userID int) error {
	token, err := issueToken(userID, s.secret, s.ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear ends the session.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID returns the user id carried by the request's session cookie.
func (s *Sessions) UserID(r *http.Request) (int, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, err
	}
	subject, err := parseTokenSubject(cookie.Value, s.secret)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(subject)
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// AuthHandler serves login and logout and guards the admin routes.
type AuthHandler struct {
	users    SessionUsers
	sessions *Sessions
	view     *View
}

func NewAuthHandler(users SessionUsers, sessions *Sessions, view *View) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, view: view}
}

// AuthRouter registers login and logout on r.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Get(loginPath, h.LoginForm)
	r.Post(loginPath, h.Login)
	r.Post("/logout", h.Logout)
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	values := url.Values{"next": {r.URL.Query().Get("next")}}
	h.view.Render(w, r, http.StatusOK, "login", Page{Title: "Log in", Values: values})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			h.view.Fail(w, r, err)
			return
		}
		values := url.Values{"username": {username}, "next": {r.PostForm.Get("next")}}
		h.view.Render(w, r, http.StatusUnauthorized, "login", Page{
			Title:  "Log in",
			Values: values,
			Errors: forms.Errors{"form": "Invalid username or password."},
		})
		return
	}

	if err := h.sessions.Issue(w, user.ID); err != nil {
		h.view.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(r.PostForm.Get("next")), http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	h.view.Redirect(w, r, loginPath, "You have successfully been logged out.")
}

// RequireAuth loads the session user into the request context and sends
// anonymous requests to the login page.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.sessions.UserID(r)
		if err != nil {
			h.toLogin(w, r)
			return
		}
		user, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.sessions.Clear(w)
				h.toLogin(w, r)
				return
			}
			h.view.Fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireAdmin answers 403 unless the session user is an administrator.
func (h *AuthHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok || !user.IsAdmin {
			h.view.Fail(w, r, services.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) toLogin(w http.ResponseWriter, r *http.Request) {
	target := loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return homePath
	}
	return next
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
