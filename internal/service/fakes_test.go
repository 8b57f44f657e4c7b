package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sumire/hypeshelf/internal/domain"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	nextID  int64
	byExt   map[string]*domain.User
	inserts int
	findErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byExt: map[string]*domain.User{}}
}

func (f *fakeUserStore) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byExt[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(_ context.Context, user domain.User) (*domain.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byExt[user.ExternalID]; ok {
		cp := *u
		return &cp, false, nil
	}
	f.nextID++
	f.inserts++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.byExt[user.ExternalID] = &user
	cp := user
	return &cp, true, nil
}

func (f *fakeUserStore) UpdateRole(_ context.Context, externalID string, role domain.Role) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byExt[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

// add registers a user directly and returns it.
func (f *fakeUserStore) add(externalID, name string, role domain.Role) domain.User {
	u, _, _ := f.Create(context.Background(), domain.User{ExternalID: externalID, DisplayName: name, Role: role})
	f.mu.Lock()
	f.inserts--
	f.mu.Unlock()
	return *u
}

func (f *fakeUserStore) byID(id int64) (domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byExt {
		if u.ID == id {
			return *u, true
		}
	}
	return domain.User{}, false
}

// fakeRecStore is an in-memory SeedStore. Creation order is tracked by ID.
type fakeRecStore struct {
	mu     sync.Mutex
	nextID int64
	recs   map[int64]*domain.Recommendation
	users  *fakeUserStore
}

func newFakeRecStore(users *fakeUserStore) *fakeRecStore {
	return &fakeRecStore{recs: map[int64]*domain.Recommendation{}, users: users}
}

func (f *fakeRecStore) Create(_ context.Context, rec domain.NewRecommendation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.recs[f.nextID] = &domain.Recommendation{
		ID:        f.nextID,
		UserID:    rec.UserID,
		Title:     rec.Title,
		Genre:     rec.Genre,
		Link:      rec.Link,
		Blurb:     rec.Blurb,
		CreatedAt: time.Unix(f.nextID, 0),
	}
	return f.nextID, nil
}

func (f *fakeRecStore) FindByID(_ context.Context, id int64) (*domain.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecStore) newestFirst() []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(f.recs))
	for _, r := range f.recs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeRecStore) ownerName(id int64) string {
	if f.users == nil {
		return domain.UnknownOwnerName
	}
	u, ok := f.users.byID(id)
	if !ok {
		return domain.UnknownOwnerName
	}
	return u.DisplayName
}

func (f *fakeRecStore) List(_ context.Context, filter domain.RecommendationFilter) ([]domain.RecommendationWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RecommendationWithOwner
	for _, r := range f.newestFirst() {
		if filter.Genre != nil && r.Genre != *filter.Genre {
			continue
		}
		out = append(out, domain.RecommendationWithOwner{
			Recommendation: r,
			Owner:          domain.Owner{ID: r.UserID, Name: f.ownerName(r.UserID)},
		})
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecStore) ListPublic(_ context.Context, limit int) ([]domain.PublicRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PublicRecommendation
	for _, r := range f.newestFirst() {
		if len(out) == limit {
			break
		}
		out = append(out, domain.PublicRecommendation{
			ID:          r.ID,
			Title:       r.Title,
			Genre:       r.Genre,
			Link:        r.Link,
			Blurb:       r.Blurb,
			IsStaffPick: r.IsStaffPick,
			UserName:    f.ownerName(r.UserID),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeRecStore) ListTitles(_ context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int64{}
	for id, r := range f.recs {
		out[r.Title] = id
	}
	return out, nil
}

func (f *fakeRecStore) FindStaffPicks(_ context.Context) ([]domain.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Recommendation
	for _, r := range f.recs {
		if r.IsStaffPick {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecStore) SetStaffPick(_ context.Context, id int64, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.IsStaffPick = value
	return nil
}

func (f *fakeRecStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

func (f *fakeRecStore) staffPickCount() int {
	picks, _ := f.FindStaffPicks(context.Background())
	return len(picks)
}

// fakeTx serializes transactions with a mutex.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fn(ctx)
}

func asCaller(subject string) context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{Subject: subject})
}
