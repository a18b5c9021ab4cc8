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

const sourcesPath = "/admin/listingsources"

type ListingSourceService interface {
	List(ctx context.Context, actor types.User) ([]types.ListingSource, error)
	Get(ctx context.Context, actor types.User, id int) (types.ListingSource, error)
	Create(ctx context.Context, actor types.User, in forms.ListingSource) (types.ListingSource, error)
	Update(ctx context.Context, actor types.User, id int, in forms.ListingSource) (types.ListingSource, error)
	Delete(ctx context.Context, actor types.User, id int) error
}

type ListingSourceHandler struct {
	sources ListingSourceService
	view    *View
}

func NewListingSourceHandler(sources ListingSourceService, view *View) *ListingSourceHandler {
	return &ListingSourceHandler{sources: sources, view: view}
}

func ListingSourceRouter(r chi.Router, sources ListingSourceService, view *View) {
	handler := NewListingSourceHandler(sources, view)

	r.Get("/", handler.List)
	r.Get("/add", handler.AddForm)
	r.Post("/add", handler.Add)
	r.Get("/edit/{id}", handler.EditForm)
	r.Post("/edit/{id}", handler.Edit)
	r.Post("/delete/{id}", handler.Delete)
}

type sourceForm struct {
	Action string
}

func (h *ListingSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context(), currentUser(r))
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "listingsources", Page{Title: "Listing Sources", Data: sources})
}

func (h *ListingSourceHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, url.Values{}, nil)
}

func (h *ListingSourceHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseListingSource(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, 0, r.PostForm, errs)
		return
	}
	if _, err := h.sources.Create(r.Context(), currentUser(r), in); err != nil {
		h.formFailure(w, r, 0, err)
		return
	}
	h.view.Redirect(w, r, sourcesPath, "You have successfully added a new listing source.")
}

func (h *ListingSourceHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	source, err := h.sources.Get(r.Context(), currentUser(r), id)
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, id, forms.ListingSourceValues(source), nil)
}

func (h *ListingSourceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseListingSource(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs)
		return
	}
	if _, err := h.sources.Update(r.Context(), currentUser(r), id, in); err != nil {
		h.formFailure(w, r, id, err)
		return
	}
	h.view.Redirect(w, r, sourcesPath, "You have successfully edited the listing source.")
}

func (h *ListingSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	err = h.sources.Delete(r.Context(), currentUser(r), id)
	switch {
	case errors.Is(err, services.ErrSourceInUse):
		h.view.Redirect(w, r, sourcesPath, "This listing source is used by listings and cannot be deleted.")
	case err != nil:
		h.view.Fail(w, r, err)
	default:
		h.view.Redirect(w, r, sourcesPath, "You have successfully deleted the listing source.")
	}
}

func (h *ListingSourceHandler) formFailure(w http.ResponseWriter, r *http.Request, id int, err error) {
	var errs forms.Errors
	if errors.As(err, &errs) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs)
		return
	}
	h.view.Fail(w, r, err)
}

func (h *ListingSourceHandler) renderForm(w http.ResponseWriter, r *http.Request, status, id int, values url.Values, errs forms.Errors) {
	title, action := "Add Listing Source", sourcesPath+"/add"
	if id > 0 {
		title, action = "Edit Listing Source", sourcesPath+"/edit/"+strconv.Itoa(id)
	}
	h.view.Render(w, r, status, "listingsource", Page{
		Title:  title,
		Errors: errs,
		Values: values,
		Data:   sourceForm{Action: action},
	})
}
