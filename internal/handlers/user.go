package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/types"
)

const usersPath = "/admin/users"

// UserService is the user administration surface the handlers need.
type UserService interface {
	List(ctx context.Context, actor types.User) ([]types.User, error)
	Get(ctx context.Context, actor types.User, id int) (types.User, error)
	Create(ctx context.Context, actor types.User, in forms.NewUser) (types.User, error)
	Update(ctx context.Context, actor types.User, id int, in forms.EditUser) (types.User, error)
	Delete(ctx context.Context, actor types.User, id int) error
}

type UserHandler struct {
	users UserService
	view  *View
}

func NewUserHandler(users UserService, view *View) *UserHandler {
	return &UserHandler{users: users, view: view}
}

func UserRouter(r chi.Router, users UserService, view *View) {
	handler := NewUserHandler(users, view)

	r.Get("/", handler.List)
	r.Get("/add", handler.AddForm)
	r.Post("/add", handler.Add)
	r.Get("/edit/{id}", handler.EditForm)
	r.Post("/edit/{id}", handler.Edit)
	r.Post("/delete/{id}", handler.Delete)
}

type userForm struct {
	Action string
	Add    bool
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), currentUser(r))
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "users", Page{Title: "Users", Data: users})
}

func (h *UserHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, url.Values{}, nil)
}

func (h *UserHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseNewUser(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, 0, r.PostForm, errs)
		return
	}
	if _, err := h.users.Create(r.Context(), currentUser(r), in); err != nil {
		h.formFailure(w, r, 0, err)
		return
	}
	h.view.Redirect(w, r, usersPath, "You have successfully added a new user.")
}

func (h *UserHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	user, err := h.users.Get(r.Context(), currentUser(r), id)
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, id, forms.UserValues(user), nil)
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseEditUser(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs)
		return
	}
	if _, err := h.users.Update(r.Context(), currentUser(r), id, in); err != nil {
		h.formFailure(w, r, id, err)
		return
	}
	h.view.Redirect(w, r, usersPath, "You have successfully edited the user.")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	err = h.users.Delete(r.Context(), currentUser(r), id)
	switch {
	case errors.Is(err, services.ErrUserHasListings):
		h.view.Redirect(w, r, usersPath, "This user still has listings and cannot be deleted.")
	case errors.Is(err, services.ErrSelfDelete):
		h.view.Redirect(w, r, usersPath, "You cannot delete your own account.")
	case err != nil:
		h.view.Fail(w, r, err)
	default:
		h.view.Redirect(w, r, usersPath, "You have successfully deleted the user.")
	}
}

func (h *UserHandler) formFailure(w http.ResponseWriter, r *http.Request, id int, err error) {
	var errs forms.Errors
	if errors.As(err, &errs) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs)
		return
	}
	h.view.Fail(w, r, err)
}

func (h *UserHandler) renderForm(w http.ResponseWriter, r *http.Request, status, id int, values url.Values, errs forms.Errors) {
	data := userForm{Action: usersPath + "/add", Add: true}
	title := "Add User"
	if id > 0 {
		data = userForm{Action: usersPath + "/edit/" + strconv.Itoa(id)}
		title = "Edit User"
	}
	// Passwords are never echoed back into the form.
	values.Del("password")
	values.Del("confirm_password")

	h.view.Render(w, r, status, "user", Page{Title: title, Errors: errs, Values: values, Data: data})
}
