package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
)

// memData is one snapshot of the tables. Transactions work on a copy and
// replace the committed snapshot on Commit.
type memData struct {
	nextID   int
	users    map[int]types.User
	sources  map[int]types.ListingSource
	listings map[int]types.Listing
}

func newMemData() *memData {
	return &memData{
		nextID:   1,
		users:    map[int]types.User{},
		sources:  map[int]types.ListingSource{},
		listings: map[int]types.Listing{},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:   d.nextID,
		users:    make(map[int]types.User, len(d.users)),
		sources:  make(map[int]types.ListingSource, len(d.sources)),
		listings: make(map[int]types.Listing, len(d.listings)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.sources {
		c.sources[k] = v
	}
	for k, v := range d.listings {
		c.listings[k] = v
	}
	return c
}

func (d *memData) id() int {
	id := d.nextID
	d.nextID++
	return id
}

type memStore struct {
	mu        sync.Mutex
	data      *memData
	commits   int
	rollbacks int
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{data: newMemData()}
}

func (s *memStore) Users() UserRepository            { return memUsers{d: s.data} }
func (s *memStore) Sources() ListingSourceRepository { return memSources{d: s.data} }
func (s *memStore) Listings() ListingRepository      { return memListings{d: s.data} }

func (s *memStore) Begin(context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{s: s, data: s.data.clone()}, nil
}

// seedUser stores u directly, bypassing transactions.
func (s *memStore) seedUser(u types.User) types.User {
	u.ID = s.data.id()
	s.data.users[u.ID] = u
	return u
}

func (s *memStore) seedSource(description string) types.ListingSource {
	src := types.ListingSource{ID: s.data.id(), Description: description}
	s.data.sources[src.ID] = src
	return src
}

func (s *memStore) seedListing(l types.Listing) types.Listing {
	l.ID = s.data.id()
	l.Address = l.FormattedAddress()
	s.data.listings[l.ID] = l
	return l
}

type memTx struct {
	s    *memStore
	data *memData
	done bool
}

func (t *memTx) Users() UserRepository            { return memUsers{d: t.data} }
func (t *memTx) Sources() ListingSourceRepository { return memSources{d: t.data} }
func (t *memTx) Listings() ListingRepository      { return memListings{d: t.data} }

func (t *memTx) Commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	if t.s.commitErr != nil {
		return t.s.commitErr
	}
	t.s.data = t.data
	t.s.commits++
	return nil
}

func (t *memTx) Rollback() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.s.rollbacks++
	return nil
}

type memUsers struct{ d *memData }

func (r memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, u := range r.d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memUsers) List(context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	user.ID = r.d.id()
	r.d.users[user.ID] = user
	return user, nil
}

func (r memUsers) Update(_ context.Context, user types.User) (types.User, error) {
	current, ok := r.d.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.PasswordHash = current.PasswordHash
	r.d.users[user.ID] = user
	return user, nil
}

func (r memUsers) Delete(_ context.Context, id int) error {
	if _, ok := r.d.users[id]; !ok {
		return store.ErrNotFound
	}
	for _, l := range r.d.listings {
		if l.UserID == id {
			return &store.ConstraintError{Kind: store.ErrReferenced, Constraint: "listing_user_id_fkey"}
		}
	}
	delete(r.d.users, id)
	return nil
}

type memSources struct{ d *memData }

func (r memSources) Get(_ context.Context, id int) (types.ListingSource, error) {
	src, ok := r.d.sources[id]
	if !ok {
		return types.ListingSource{}, store.ErrNotFound
	}
	return src, nil
}

func (r memSources) List(context.Context) ([]types.ListingSource, error) {
	out := make([]types.ListingSource, 0, len(r.d.sources))
	for _, src := range r.d.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (r memSources) duplicate(source types.ListingSource) error {
	for _, other := range r.d.sources {
		if other.ID != source.ID && other.Description == source.Description {
			return &store.ConstraintError{Kind: store.ErrDuplicate, Constraint: store.ConstraintSourceDescription}
		}
	}
	return nil
}

func (r memSources) Create(_ context.Context, source types.ListingSource) (types.ListingSource, error) {
	if err := r.duplicate(source); err != nil {
		return types.ListingSource{}, err
	}
	source.ID = r.d.id()
	r.d.sources[source.ID] = source
	return source, nil
}

func (r memSources) Update(_ context.Context, source types.ListingSource) (types.ListingSource, error) {
	if _, ok := r.d.sources[source.ID]; !ok {
		return types.ListingSource{}, store.ErrNotFound
	}
	if err := r.duplicate(source); err != nil {
		return types.ListingSource{}, err
	}
	r.d.sources[source.ID] = source
	return source, nil
}

func (r memSources) Delete(_ context.Context, id int) error {
	if _, ok := r.d.sources[id]; !ok {
		return store.ErrNotFound
	}
	for _, l := range r.d.listings {
		if l.SourceID == id {
			return &store.ConstraintError{Kind: store.ErrReferenced, Constraint: "listing_source_id_fkey"}
		}
	}
	delete(r.d.sources, id)
	return nil
}

type memListings struct{ d *memData }

func (r memListings) joined(l types.Listing) types.Listing {
	l.SourceName = r.d.sources[l.SourceID].Description
	l.AuthorUsername = r.d.users[l.UserID].Username
	l.Address = l.FormattedAddress()
	return l
}

func (r memListings) Get(_ context.Context, id int) (types.Listing, error) {
	l, ok := r.d.listings[id]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	return r.joined(l), nil
}

func (r memListings) ListByOwner(_ context.Context, userID int, filter types.ListingFilter) ([]types.Listing, error) {
	needle := strings.ToLower(filter.Address)
	var out []types.Listing
	for _, l := range r.sorted() {
		if l.UserID != userID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(l.FormattedAddress()), needle) {
			continue
		}
		out = append(out, r.joined(l))
	}
	return out, nil
}

func (r memListings) ListAll(context.Context) ([]types.Listing, error) {
	var out []types.Listing
	for _, l := range r.sorted() {
		out = append(out, r.joined(l))
	}
	return out, nil
}

func (r memListings) sorted() []types.Listing {
	out := make([]types.Listing, 0, len(r.d.listings))
	for _, l := range r.d.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memListings) Create(_ context.Context, listing types.Listing) (types.Listing, error) {
	listing.ID = r.d.id()
	listing.Address = listing.FormattedAddress()
	r.d.listings[listing.ID] = listing
	return listing, nil
}

func (r memListings) Update(_ context.Context, listing types.Listing) (types.Listing, error) {
	current, ok := r.d.listings[listing.ID]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	listing.UserID = current.UserID
	listing.CreatedDate = current.CreatedDate
	listing.Address = listing.FormattedAddress()
	r.d.listings[listing.ID] = listing
	return listing, nil
}

func (r memListings) Delete(_ context.Context, id int) error {
	if _, ok := r.d.listings[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.d.listings, id)
	return nil
}

// fakeMirror records the rows it was asked to write. commitsSeen captures how
// many commits the store had made when each call arrived.
type fakeMirror struct {
	store       *memStore
	err         error
	inserted    []mirror.Row
	updated     []mirror.Row
	deleted     []int
	commitsSeen []int
}

func (m *fakeMirror) observe() {
	commits := 0
	if m.store != nil {
		commits = m.store.commits
	}
	m.commitsSeen = append(m.commitsSeen, commits)
}

func (m *fakeMirror) Insert(_ context.Context, row mirror.Row) error {
	m.observe()
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, row)
	return nil
}

func (m *fakeMirror) Update(_ context.Context, row mirror.Row) error {
	m.observe()
	if m.err != nil {
		return m.err
	}
	m.updated = append(m.updated, row)
	return nil
}

func (m *fakeMirror) Delete(_ context.Context, id int) error {
	m.observe()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *fakeMirror) calls() int {
	return len(m.commitsSeen)
}

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	err      error
	messages []published
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}
