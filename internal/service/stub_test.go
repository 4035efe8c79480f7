package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
)

// memRepo хранит данные в памяти и повторяет условные переходы статусов PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	users         map[string]*model.User
	listings      map[string]*model.Listing
	claims        map[string]*model.Claim
	attempts      []model.SignupAttempt
	notifications map[string]*model.Notification
	totals        model.PlatformTotals

	countErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:         make(map[string]*model.User),
		listings:      make(map[string]*model.Listing),
		claims:        make(map[string]*model.Claim),
		notifications: make(map[string]*model.Notification),
	}
}

func (r *memRepo) Close() error                   { return nil }
func (r *memRepo) Ping(ctx context.Context) error { return nil }

func (r *memRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.User
	for _, u := range r.users {
		res = append(res, *u)
	}
	return res, nil
}

func (r *memRepo) SetUserRole(ctx context.Context, email string, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u.Role = role
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r *memRepo) CreateListing(ctx context.Context, l *model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	r.listings[l.ID] = &cp
	return nil
}

func (r *memRepo) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) ListAvailableListings(ctx context.Context, filter repository.ListingFilter, now time.Time) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Listing
	for _, l := range r.listings {
		if l.Status != model.ListingAvailable || l.ExpiryDate.Before(now) {
			continue
		}
		if filter.Category != nil && l.Category != *filter.Category {
			continue
		}
		res = append(res, *l)
	}
	return res, nil
}

func (r *memRepo) ListListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Listing
	for _, l := range r.listings {
		if l.DonorID == donorID {
			res = append(res, *l)
		}
	}
	return res, nil
}

func (r *memRepo) ListAllListings(ctx context.Context) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Listing
	for _, l := range r.listings {
		res = append(res, *l)
	}
	return res, nil
}

func (r *memRepo) CompleteListing(ctx context.Context, listingID string, now time.Time) (*model.Listing, []model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return nil, nil, repository.ErrListingNotFound
	}
	if l.Status != model.ListingClaimed {
		return nil, nil, fmt.Errorf("%w: listing is %s", repository.ErrInvalidState, l.Status)
	}
	l.Status = model.ListingCompleted
	l.CompletedAt = &now

	var claims []model.Claim
	for _, c := range r.claims {
		if c.ListingID == listingID && c.Status != model.ClaimCancelled {
			c.CompletedAt = &now
			claims = append(claims, *c)
		}
	}
	cp := *l
	return &cp, claims, nil
}

func (r *memRepo) ExpireListings(ctx context.Context, now time.Time) ([]model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Listing
	for _, l := range r.listings {
		if l.Status == model.ListingAvailable && l.ExpiryDate.Before(now) {
			l.Status = model.ListingExpired
			res = append(res, *l)
		}
	}
	return res, nil
}

func (r *memRepo) AddListingImage(ctx context.Context, listingID, url string) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	l.Images = append(l.Images, url)
	cp := *l
	return &cp, nil
}

func (r *memRepo) RemoveListingImage(ctx context.Context, listingID, url string) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	images := []string{}
	for _, img := range l.Images {
		if img != url {
			images = append(images, img)
		}
	}
	l.Images = images
	cp := *l
	return &cp, nil
}

func (r *memRepo) ClaimListing(ctx context.Context, req repository.ClaimRequest, now time.Time) (*model.Listing, *model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[req.ListingID]
	if !ok {
		return nil, nil, repository.ErrListingNotFound
	}
	if l.DonorID == req.UserID {
		return nil, nil, repository.ErrSelfClaim
	}
	if l.Status != model.ListingAvailable {
		return nil, nil, fmt.Errorf("%w: listing is %s", repository.ErrInvalidState, l.Status)
	}

	l.Status = model.ListingClaimed
	l.ClaimedBy = &req.UserID
	l.ClaimedAt = &now

	c := &model.Claim{
		ID:                req.ClaimID,
		ListingID:         req.ListingID,
		ClaimedBy:         req.UserID,
		QuantityRequested: req.QuantityRequested,
		Status:            model.ClaimPending,
		Notes:             req.Notes,
		ClaimedAt:         now,
	}
	r.claims[c.ID] = c

	lcp, ccp := *l, *c
	return &lcp, &ccp, nil
}

func (r *memRepo) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, repository.ErrClaimNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) ListClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Claim
	for _, c := range r.claims {
		if c.ClaimedBy == userID {
			res = append(res, *c)
		}
	}
	return res, nil
}

func (r *memRepo) ListClaimsByListing(ctx context.Context, listingID string) ([]model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Claim
	for _, c := range r.claims {
		if c.ListingID == listingID {
			res = append(res, *c)
		}
	}
	return res, nil
}

func (r *memRepo) ListAllClaims(ctx context.Context) ([]model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Claim
	for _, c := range r.claims {
		res = append(res, *c)
	}
	return res, nil
}

func (r *memRepo) MarkClaimReceived(ctx context.Context, claimID string, now time.Time) (*model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[claimID]
	if !ok {
		return nil, repository.ErrClaimNotFound
	}
	if c.Status != model.ClaimPending {
		return nil, fmt.Errorf("%w: claim is %s", repository.ErrInvalidState, c.Status)
	}
	c.Status = model.ClaimReceived
	c.ReceivedAt = &now
	cp := *c
	return &cp, nil
}

func (r *memRepo) CancelClaim(ctx context.Context, claimID string, now time.Time) (*model.Claim, *model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[claimID]
	if !ok {
		return nil, nil, repository.ErrClaimNotFound
	}
	if c.Status != model.ClaimPending {
		return nil, nil, fmt.Errorf("%w: claim is %s", repository.ErrInvalidState, c.Status)
	}
	l := r.listings[c.ListingID]
	if l.Status != model.ListingClaimed {
		return nil, nil, fmt.Errorf("%w: listing is %s", repository.ErrInvalidState, l.Status)
	}

	c.Status = model.ClaimCancelled
	c.CancelledAt = &now
	l.Status = model.ListingAvailable
	l.ClaimedBy = nil
	l.ClaimedAt = nil

	ccp, lcp := *c, *l
	return &ccp, &lcp, nil
}

func (r *memRepo) CountSignupAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, a := range r.attempts {
		if a.IPAddress == ip && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountSignupAttemptsByEmail(ctx context.Context, email string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, a := range r.attempts {
		if a.Email == email && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) RecordSignupAttempt(ctx context.Context, a *model.SignupAttempt) error {
	// Как и pgx, запись на завершённом контексте не выполняется.
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *memRepo) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			res = append(res, *n)
		}
	}
	return res, nil
}

func (r *memRepo) MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return nil, repository.ErrNotificationNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (r *memRepo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, nt := range r.notifications {
		if nt.UserID == userID && !nt.Read {
			nt.Read = true
			n++
		}
	}
	return n, nil
}

func (r *memRepo) DeleteNotification(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *memRepo) GetPlatformTotals(ctx context.Context) (*model.PlatformTotals, error) {
	t := r.totals
	return &t, nil
}

func (r *memRepo) addListing(id, donorID string, status model.ListingStatus) *model.Listing {
	l := &model.Listing{
		ID:         id,
		DonorID:    donorID,
		Title:      "Listing " + id,
		Quantity:   "5 kg",
		Category:   model.CategoryVegetables,
		ExpiryDate: time.Now().Add(24 * time.Hour),
		Images:     []string{},
		Status:     status,
	}
	if status == model.ListingClaimed || status == model.ListingCompleted {
		other := "someone-else"
		l.ClaimedBy = &other
	}
	r.listings[id] = l
	return l
}

type stubProvider struct {
	calls    int
	lastData model.UserData
	err      error
	// hang заставляет CreateUser ждать завершения контекста.
	hang bool

	signInUser *model.User
	signInErr  error
}

func (p *stubProvider) CreateUser(ctx context.Context, email, password string, data model.UserData) (*model.User, error) {
	p.calls++
	p.lastData = data
	if p.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return &model.User{ID: fmt.Sprintf("user-%d", p.calls), Email: email, Role: model.Role(data.Role)}, nil
}

func (p *stubProvider) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	return p.signInUser, p.signInErr
}

type event struct {
	table     string
	eventType model.EventType
}

type stubPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *stubPublisher) Publish(table string, eventType model.EventType, newRow, oldRow any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{table: table, eventType: eventType})
}

type notice struct {
	userID string
	typ    model.NotificationType
}

type stubNotifier struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (n *stubNotifier) Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, listingID *string) (*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{userID: userID, typ: typ})
	if n.err != nil {
		return nil, n.err
	}
	return &model.Notification{ID: "n", UserID: userID, Type: typ}, nil
}

type stubImages struct {
	uploaded []string
	deleted  []string
	err      error
}

func (s *stubImages) Upload(ctx context.Context, listingID string, file io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	url := "https://res.cloudinary.com/demo/image/upload/v1/food-listings/" + listingID + "/img.jpg"
	s.uploaded = append(s.uploaded, url)
	return url, nil
}

func (s *stubImages) Delete(ctx context.Context, imageURL string) error {
	s.deleted = append(s.deleted, imageURL)
	return s.err
}
