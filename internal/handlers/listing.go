package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/types"
)

const listingsPath = "/admin/listings"

// ListingService is the listing use-case surface the handlers need.
type ListingService interface {
	ListOwn(ctx context.Context, actor types.User, filter types.ListingFilter) ([]types.Listing, error)
	Get(ctx context.Context, actor types.User, id int) (types.Listing, error)
	Sources(ctx context.Context, actor types.User) ([]types.ListingSource, error)
	Create(ctx context.Context, actor types.User, in forms.Listing) (types.Listing, error)
	Update(ctx context.Context, actor types.User, id int, in forms.Listing) (types.Listing, error)
	Delete(ctx context.Context, actor types.User, id int) error
}

// ListingHandler provides HTTP handlers for listings.
type ListingHandler struct {
	listings ListingService
	view     *View
}

func NewListingHandler(listings ListingService, view *View) *ListingHandler {
	return &ListingHandler{listings: listings, view: view}
}

// ListingRouter registers listing routes on r.
func ListingRouter(r chi.Router, listings ListingService, view *View) {
	handler := NewListingHandler(listings, view)

	r.Get("/", handler.List)
	r.Get("/add", handler.AddForm)
	r.Post("/add", handler.Add)
	r.Get("/edit/{id}", handler.EditForm)
	r.Post("/edit/{id}", handler.Edit)
	r.Post("/delete/{id}", handler.Delete)
}

type listingForm struct {
	Action  string
	Sources []types.ListingSource
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := types.ListingFilter{Address: strings.TrimSpace(r.URL.Query().Get("address"))}
	listings, err := h.listings.ListOwn(r.Context(), currentUser(r), filter)
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "listings", Page{
		Title:  "Listings",
		Values: url.Values{"address": {filter.Address}},
		Data:   listings,
	})
}

func (h *ListingHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, url.Values{}, nil, "")
}

func (h *ListingHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseListing(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, 0, r.PostForm, errs, "")
		return
	}

	if _, err := h.listings.Create(r.Context(), currentUser(r), in); err != nil {
		h.formFailure(w, r, 0, err)
		return
	}
	h.view.Redirect(w, r, listingsPath, "You have successfully added a new listing.")
}

func (h *ListingHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	listing, err := h.listings.Get(r.Context(), currentUser(r), id)
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, id, forms.ListingValues(listing), nil, "")
}

func (h *ListingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.view.Error(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in, errs := forms.ParseListing(r.PostForm)
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs, "")
		return
	}

	if _, err := h.listings.Update(r.Context(), currentUser(r), id, in); err != nil {
		h.formFailure(w, r, id, err)
		return
	}
	h.view.Redirect(w, r, listingsPath, "You have successfully edited the listing.")
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.view.Error(w, r, http.StatusNotFound, "The requested record does not exist.")
		return
	}
	if err := h.listings.Delete(r.Context(), currentUser(r), id); err != nil {
		h.view.Fail(w, r, err)
		return
	}
	h.view.Redirect(w, r, listingsPath, "You have successfully deleted the listing.")
}

// formFailure re-renders the form for field and spreadsheet errors and shows
// the error page for everything else.
func (h *ListingHandler) formFailure(w http.ResponseWriter, r *http.Request, id int, err error) {
	var errs forms.Errors
	if errors.As(err, &errs) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, r.PostForm, errs, "")
		return
	}
	var syncErr *mirror.SyncError
	if errors.As(err, &syncErr) {
		h.view.log.Error().Err(err).Int("listing_id", id).Msg("listing not saved")
		h.renderForm(w, r, http.StatusBadGateway, id, r.PostForm, nil, syncMessage)
		return
	}
	h.view.Fail(w, r, err)
}

func (h *ListingHandler) renderForm(w http.ResponseWriter, r *http.Request, status, id int, values url.Values, errs forms.Errors, flash string) {
	sources, err := h.listings.Sources(r.Context(), currentUser(r))
	if err != nil {
		h.view.Fail(w, r, err)
		return
	}

	title, action := "Add Listing", listingsPath+"/add"
	if id > 0 {
		title, action = "Edit Listing", listingsPath+"/edit/"+strconv.Itoa(id)
	}
	h.view.Render(w, r, status, "listing", Page{
		Title:  title,
		Flash:  flash,
		Errors: errs,
		Values: values,
		Data:   listingForm{Action: action, Sources: sources},
	})
}
