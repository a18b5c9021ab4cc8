package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/listingdesk/listingdesk/config"
	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAdmin = types.User{ID: 1, Username: "ana", FirstName: "Ana", LastName: "Silva", IsAdmin: true}

type fakeListings struct {
	listings []types.Listing
	sources  []types.ListingSource
	err      error
	filter   types.ListingFilter
	created  []forms.Listing
	updated  map[int]forms.Listing
	deleted  []int
	actor    types.User
}

func (f *fakeListings) ListOwn(_ context.Context, actor types.User, filter types.ListingFilter) ([]types.Listing, error) {
	f.actor, f.filter = actor, filter
	return f.listings, f.err
}

func (f *fakeListings) Get(_ context.Context, _ types.User, id int) (types.Listing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return types.Listing{}, store.ErrNotFound
}

func (f *fakeListings) Sources(context.Context, types.User) ([]types.ListingSource, error) {
	return f.sources, nil
}

func (f *fakeListings) Create(_ context.Context, actor types.User, in forms.Listing) (types.Listing, error) {
	f.actor = actor
	if f.err != nil {
		return types.Listing{}, f.err
	}
	f.created = append(f.created, in)
	return types.Listing{ID: 10}, nil
}

func (f *fakeListings) Update(_ context.Context, _ types.User, id int, in forms.Listing) (types.Listing, error) {
	if f.err != nil {
		return types.Listing{}, f.err
	}
	if f.updated == nil {
		f.updated = map[int]forms.Listing{}
	}
	f.updated[id] = in
	return types.Listing{ID: id}, nil
}

func (f *fakeListings) Delete(_ context.Context, _ types.User, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUsers struct {
	users     []types.User
	deleteErr error
	createErr error
	password  string
}

func (f *fakeUsers) List(context.Context, types.User) ([]types.User, error) { return f.users, nil }

func (f *fakeUsers) Get(_ context.Context, _ types.User, id int) (types.User, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (types.User, error) {
	for _, u := range f.users {
		if u.Username == username && password == f.password {
			return u, nil
		}
	}
	return types.User{}, services.ErrInvalidCredentials
}

func (f *fakeUsers) Create(_ context.Context, _ types.User, in forms.NewUser) (types.User, error) {
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	return types.User{ID: 99, Username: in.Username}, nil
}

func (f *fakeUsers) Update(_ context.Context, _ types.User, id int, in forms.EditUser) (types.User, error) {
	return types.User{ID: id, Username: in.Username}, nil
}

func (f *fakeUsers) Delete(context.Context, types.User, int) error { return f.deleteErr }

type fakeSources struct {
	createErr error
	deleteErr error
}

func (f *fakeSources) List(context.Context, types.User) ([]types.ListingSource, error) {
	return []types.ListingSource{{ID: 2, Description: "Walk-in"}}, nil
}

func (f *fakeSources) Get(_ context.Context, _ types.User, id int) (types.ListingSource, error) {
	if id != 2 {
		return types.ListingSource{}, store.ErrNotFound
	}
	return types.ListingSource{ID: 2, Description: "Walk-in"}, nil
}

func (f *fakeSources) Create(_ context.Context, _ types.User, in forms.ListingSource) (types.ListingSource, error) {
	if f.createErr != nil {
		return types.ListingSource{}, f.createErr
	}
	return types.ListingSource{ID: 3, Description: in.Description}, nil
}

func (f *fakeSources) Update(_ context.Context, _ types.User, id int, in forms.ListingSource) (types.ListingSource, error) {
	return types.ListingSource{ID: id, Description: in.Description}, nil
}

func (f *fakeSources) Delete(context.Context, types.User, int) error { return f.deleteErr }

func newTestView(t *testing.T) *View {
	t.Helper()
	view, err := NewView(zerolog.Nop())
	require.NoError(t, err)
	return view
}

// signedIn mounts routes behind a middleware that puts user in the context.
func signedIn(t *testing.T, user types.User, mount func(r chi.Router, view *View)) http.Handler {
	t.Helper()
	view := newTestView(t)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	})
	mount(r, view)
	return r
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validListingValues() url.Values {
	return url.Values{
		"listing_date": {"2026-03-01"},
		"source_id":    {"2"},
		"name":         {"Winter coats"},
		"description":  {"Three adult winter coats"},
		"address_1":    {"1 High St"},
		"post_code":    {"AB1 2CD"},
		"outgoing":     {"y"},
	}
}

func listingRoutes(svc *fakeListings) func(chi.Router, *View) {
	return func(r chi.Router, view *View) {
		ListingRouter(r, svc, view)
	}
}

func TestListingAdd_InvalidFormIsNotSaved(t *testing.T) {
	svc := &fakeListings{sources: []types.ListingSource{{ID: 2, Description: "Walk-in"}}}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/add", url.Values{"source_id": {"2"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
	assert.Empty(t, svc.created)
}

func TestListingAdd_Success(t *testing.T) {
	svc := &fakeListings{}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/add", validListingValues()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/listings", rec.Header().Get("Location"))
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Winter coats", svc.created[0].Name)
	assert.True(t, svc.created[0].Outgoing)
	assert.Equal(t, testAdmin.ID, svc.actor.ID)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, flashCookie, cookies[0].Name)
}

func TestListingAdd_SyncFailureRerendersForm(t *testing.T) {
	svc := &fakeListings{err: &mirror.SyncError{Op: "insert", State: mirror.StateAuthenticated, Err: errors.New("timeout")}}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/add", validListingValues()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not be updated")
	assert.Contains(t, rec.Body.String(), `value="Winter coats"`)
}

func TestListingAdd_UnknownSource(t *testing.T) {
	svc := &fakeListings{err: forms.Errors{"source_id": "Not a valid choice."}}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/add", validListingValues()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not a valid choice.")
}

func TestListingEditForm_Prefilled(t *testing.T) {
	svc := &fakeListings{
		listings: []types.Listing{{ID: 7, Name: "Winter coats", SourceID: 2, ListingDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}},
		sources:  []types.ListingSource{{ID: 2, Description: "Walk-in"}},
	}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/edit/7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Winter coats"`)
	assert.Contains(t, body, `value="2026-03-01"`)
	assert.Contains(t, body, `<option value="2" selected>`)
	assert.Contains(t, body, `action="/admin/listings/edit/7"`)
}

func TestListingEdit_NotFound(t *testing.T) {
	h := signedIn(t, testAdmin, listingRoutes(&fakeListings{}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/edit/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/edit/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListingEdit_Success(t *testing.T) {
	svc := &fakeListings{}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/edit/7", validListingValues()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, svc.updated, 7)
}

func TestListingDelete(t *testing.T) {
	svc := &fakeListings{}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/delete/7", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []int{7}, svc.deleted)
}

func TestListingDelete_SyncFailure(t *testing.T) {
	svc := &fakeListings{err: &mirror.SyncError{Op: "delete", State: mirror.StateAuthenticated, Err: mirror.ErrRowNotFound}}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/delete/7", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListingDelete_Forbidden(t *testing.T) {
	svc := &fakeListings{err: services.ErrForbidden}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, postForm("/delete/7", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListingList_PassesAddressFilter(t *testing.T) {
	svc := &fakeListings{listings: []types.Listing{{ID: 1, Name: "Coats", Address: "1 High St, AB1"}}}
	h := signedIn(t, testAdmin, listingRoutes(svc))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/?address=+high+", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "high", svc.filter.Address)
	assert.Contains(t, rec.Body.String(), "1 High St, AB1")
	assert.Contains(t, rec.Body.String(), "Ana Silva")
}

func TestUserDelete_OwnerOfListingsFlashes(t *testing.T) {
	users := &fakeUsers{deleteErr: services.ErrUserHasListings}
	h := signedIn(t, testAdmin, func(r chi.Router, view *View) { UserRouter(r, users, view) })

	rec := serve(h, postForm("/delete/3", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/users", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, "This user still has listings and cannot be deleted.", popFlash(httptest.NewRecorder(), req))
}

func TestUserAdd_PasswordMismatch(t *testing.T) {
	users := &fakeUsers{}
	h := signedIn(t, testAdmin, func(r chi.Router, view *View) { UserRouter(r, users, view) })

	rec := serve(h, postForm("/add", url.Values{
		"email":            {"bo@example.org"},
		"username":         {"bo"},
		"first_name":       {"Bo"},
		"last_name":        {"Berg"},
		"password":         {"one"},
		"confirm_password": {"two"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Field must be equal to confirm_password.")
	assert.NotContains(t, rec.Body.String(), `value="one"`)
}

func TestUserAdd_DuplicateEmail(t *testing.T) {
	users := &fakeUsers{createErr: forms.Errors{"email": forms.EmailInUse}}
	h := signedIn(t, testAdmin, func(r chi.Router, view *View) { UserRouter(r, users, view) })

	rec := serve(h, postForm("/add", url.Values{
		"email":            {"ana@example.org"},
		"username":         {"bo"},
		"first_name":       {"Bo"},
		"last_name":        {"Berg"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), forms.EmailInUse)
}

func TestSourceAdd_Duplicate(t *testing.T) {
	sources := &fakeSources{createErr: forms.Errors{"description": services.DescriptionInUse}}
	h := signedIn(t, testAdmin, func(r chi.Router, view *View) { ListingSourceRouter(r, sources, view) })

	rec := serve(h, postForm("/add", url.Values{"description": {"Walk-in"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), services.DescriptionInUse)
}

func TestSourceDelete_InUse(t *testing.T) {
	sources := &fakeSources{deleteErr: services.ErrSourceInUse}
	h := signedIn(t, testAdmin, func(r chi.Router, view *View) { ListingSourceRouter(r, sources, view) })

	rec := serve(h, postForm("/delete/2", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/listingsources", rec.Header().Get("Location"))
}

func newAuthRouter(t *testing.T, users *fakeUsers) (http.Handler, *Sessions) {
	t.Helper()
	sessions, err := NewSessions(config.SessionConfig{JWTSecret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	auth := NewAuthHandler(users, sessions, newTestView(t))
	r := chi.NewRouter()
	AuthRouter(r, auth)
	r.With(auth.RequireAuth, auth.RequireAdmin).Get("/admin/listings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currentUser(r).Username))
	})
	return r, sessions
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	h, _ := newAuthRouter(t, &fakeUsers{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/admin/listings", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Flistings", rec.Header().Get("Location"))
}

func TestLogin_ThenAdminPage(t *testing.T) {
	users := &fakeUsers{users: []types.User{testAdmin}, password: "pw"}
	h, _ := newAuthRouter(t, users)

	rec := serve(h, postForm("/login", url.Values{"username": {"ana"}, "password": {"pw"}, "next": {"/admin/listings"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/listings", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/admin/listings", nil)
	req.AddCookie(session)
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", rec.Body.String())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	users := &fakeUsers{users: []types.User{testAdmin}, password: "pw"}
	h, _ := newAuthRouter(t, users)

	rec := serve(h, postForm("/login", url.Values{"username": {"ana"}, "password": {"nope"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
}

func TestRequireAdmin_NonAdminForbidden(t *testing.T) {
	plain := types.User{ID: 5, Username: "bo"}
	h, sessions := newAuthRouter(t, &fakeUsers{users: []types.User{plain}})

	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(rec, plain.ID))
	req := httptest.NewRequest(http.MethodGet, "/admin/listings", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	rec = serve(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_TamperedCookie(t *testing.T) {
	h, _ := newAuthRouter(t, &fakeUsers{users: []types.User{testAdmin}})

	other, err := NewSessions(config.SessionConfig{JWTSecret: "another-secret"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Issue(rec, testAdmin.ID))

	req := httptest.NewRequest(http.MethodGet, "/admin/listings", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	rec = serve(h, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestNewSessions_RequiresSecret(t *testing.T) {
	_, err := NewSessions(config.SessionConfig{})
	assert.Error(t, err)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/admin/users", safeNext("/admin/users"))
	assert.Equal(t, homePath, safeNext(""))
	assert.Equal(t, homePath, safeNext("https://evil.example"))
	assert.Equal(t, homePath, safeNext("//evil.example"))
}

func TestErrorStatus(t *testing.T) {
	status, _ := errorStatus(services.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = errorStatus(store.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = errorStatus(&mirror.SyncError{Err: errors.New("x")})
	assert.Equal(t, http.StatusBadGateway, status)
	status, _ = errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
