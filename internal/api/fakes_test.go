package api

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/repository"
	"github.com/stretchr/testify/mock"
)

// memDB is an in-memory stand-in for Postgres. Each memX type below
// implements one repository interface over the same data, so cascades
// and joins behave the way the real schema does.
type memDB struct {
	mu        sync.Mutex
	clock     time.Time
	users     map[uuid.UUID]*models.User
	videos    map[uuid.UUID]*models.Video
	comments  map[uuid.UUID]*models.Comment
	likes     []memLike
	subs      []memSub
	playlists map[uuid.UUID]*models.Playlist
}

type memLike struct {
	target models.LikeTarget
	userID uuid.UUID
	at     time.Time
}

type memSub struct {
	subscriberID uuid.UUID
	channelID    uuid.UUID
	at           time.Time
}

func newMemDB() *memDB {
	return &memDB{
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     make(map[uuid.UUID]*models.User),
		videos:    make(map[uuid.UUID]*models.Video),
		comments:  make(map[uuid.UUID]*models.Comment),
		playlists: make(map[uuid.UUID]*models.Playlist),
	}
}

// tick returns a strictly increasing timestamp so "newest first" orders
// are deterministic.
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) owner(id uuid.UUID) *models.Owner {
	u, ok := db.users[id]
	if !ok {
		return nil
	}
	o := u.AsOwner()
	return &o
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.WatchHistory = append([]uuid.UUID{}, u.WatchHistory...)
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		cp.RefreshToken = &tok
	}
	return &cp
}

func (db *memDB) video(v *models.Video) *models.Video {
	cp := *v
	cp.Owner = db.owner(v.OwnerID)
	return &cp
}

func (db *memDB) comment(c *models.Comment) *models.Comment {
	cp := *c
	cp.Owner = db.owner(c.OwnerID)
	return &cp
}

func copyPlaylist(p *models.Playlist) *models.Playlist {
	cp := *p
	cp.VideoIDs = append(make([]uuid.UUID, 0, len(p.VideoIDs)), p.VideoIDs...)
	return &cp
}

// --- users ---

type memUsers struct{ db *memDB }

func (r *memUsers) Create(_ context.Context, nu repository.NewUser) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.UserName == nu.UserName || u.Email == nu.Email {
			return nil, repository.ErrConflict
		}
	}
	now := r.db.tick()
	u := &models.User{
		ID:           uuid.New(),
		UserName:     nu.UserName,
		Email:        nu.Email,
		FullName:     nu.FullName,
		Avatar:       nu.Avatar,
		CoverImage:   nu.CoverImage,
		WatchHistory: []uuid.UUID{},
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.db.users[u.ID] = u
	return copyUser(u), nil
}

func (r *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *memUsers) FindByIdentifier(_ context.Context, userName, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if (userName != "" && u.UserName == userName) || (email != "" && u.Email == email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *memUsers) SetRefreshToken(_ context.Context, id uuid.UUID, token *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		if token == nil {
			u.RefreshToken = nil
		} else {
			tok := *token
			u.RefreshToken = &tok
		}
	}
	return nil
}

func (r *memUsers) SwapRefreshToken(_ context.Context, id uuid.UUID, current, next string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next
	return true, nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUsers) UpdateAccount(_ context.Context, id uuid.UUID, fullName, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, other := range r.db.users {
		if other.ID != id && other.Email == email {
			return nil, repository.ErrConflict
		}
	}
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	u.FullName, u.Email = fullName, email
	return copyUser(u), nil
}

func (r *memUsers) update(id uuid.UUID, fn func(u *models.User)) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	fn(u)
	return copyUser(u), nil
}

func (r *memUsers) UpdateAvatar(_ context.Context, id uuid.UUID, url string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.Avatar = url })
}

func (r *memUsers) UpdateCoverImage(_ context.Context, id uuid.UUID, url string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.CoverImage = url })
}

func (r *memUsers) ChannelProfile(_ context.Context, userName string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.UserName != userName {
			continue
		}
		p := &models.ChannelProfile{
			ID:         u.ID,
			UserName:   u.UserName,
			FullName:   u.FullName,
			Email:      u.Email,
			Avatar:     u.Avatar,
			CoverImage: u.CoverImage,
		}
		for _, s := range r.db.subs {
			if s.channelID == u.ID {
				p.SubscribersCount++
				if s.subscriberID == viewerID {
					p.IsSubscribed = true
				}
			}
			if s.subscriberID == u.ID {
				p.ChannelsSubscribedToCount++
			}
		}
		return p, nil
	}
	return nil, nil
}

func (r *memUsers) PushWatchHistory(_ context.Context, userID, videoID uuid.UUID, maxEntries int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u, ok := r.db.users[userID]; ok {
		u.WatchHistory = models.PushHistory(u.WatchHistory, videoID, maxEntries)
	}
	return nil
}

// --- videos ---

type memVideos struct{ db *memDB }

func (r *memVideos) Create(_ context.Context, nv repository.NewVideo) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.tick()
	v := &models.Video{
		ID:          uuid.New(),
		OwnerID:     nv.OwnerID,
		Title:       nv.Title,
		Description: nv.Description,
		VideoFile:   nv.VideoFile,
		Thumbnail:   nv.Thumbnail,
		Duration:    nv.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.db.videos[v.ID] = v
	return r.db.video(v), nil
}

func (r *memVideos) GetByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.videos[id]
	if !ok {
		return nil, nil
	}
	return r.db.video(v), nil
}

func (r *memVideos) IncrementViews(_ context.Context, id uuid.UUID) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.videos[id]
	if !ok {
		return nil, nil
	}
	v.Views++
	return r.db.video(v), nil
}

func (r *memVideos) Update(_ context.Context, id uuid.UUID, upd models.VideoUpdate) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.videos[id]
	if !ok {
		return nil, nil
	}
	if upd.Title != nil {
		v.Title = *upd.Title
	}
	if upd.Description != nil {
		v.Description = *upd.Description
	}
	if upd.Duration != nil {
		v.Duration = *upd.Duration
	}
	if upd.Thumbnail != nil {
		v.Thumbnail = *upd.Thumbnail
	}
	v.UpdatedAt = r.db.tick()
	return r.db.video(v), nil
}

func (r *memVideos) SetPublished(_ context.Context, id uuid.UUID, published bool) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.videos[id]
	if !ok {
		return nil, nil
	}
	v.IsPublished = published
	return r.db.video(v), nil
}

// Delete mirrors ON DELETE CASCADE: comments on the video and likes on the
// video or its comments go too.
func (r *memVideos) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.videos, id)
	for cid, c := range r.db.comments {
		if c.VideoID == id {
			delete(r.db.comments, cid)
		}
	}
	kept := r.db.likes[:0]
	for _, l := range r.db.likes {
		if l.target.Kind == models.LikeVideo && l.target.ID == id {
			continue
		}
		if l.target.Kind == models.LikeComment {
			if _, ok := r.db.comments[l.target.ID]; !ok {
				continue
			}
		}
		kept = append(kept, l)
	}
	r.db.likes = kept
	return nil
}

func (r *memVideos) matching(f repository.VideoFilter) []*models.Video {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*models.Video
	for _, v := range r.db.videos {
		if f.PublishedOnly && !v.IsPublished {
			continue
		}
		if f.OwnerID != nil && v.OwnerID != *f.OwnerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(v.Title), q) &&
			!strings.Contains(strings.ToLower(v.Description), q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (r *memVideos) List(_ context.Context, f repository.VideoFilter) ([]models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	found := r.matching(f)
	less := func(a, b *models.Video) bool {
		switch f.SortBy {
		case "views":
			return a.Views < b.Views
		case "duration":
			return a.Duration < b.Duration
		case "title":
			return a.Title < b.Title
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(found, func(i, j int) bool {
		if f.SortAsc {
			return less(found[i], found[j])
		}
		return less(found[j], found[i])
	})

	out := make([]models.Video, 0)
	for i := f.Offset(); i < len(found) && len(out) < f.Limit; i++ {
		out = append(out, *r.db.video(found[i]))
	}
	return out, nil
}

func (r *memVideos) Count(_ context.Context, f repository.VideoFilter) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.matching(f))), nil
}

func (r *memVideos) ListByIDs(_ context.Context, ids []uuid.UUID, viewerID uuid.UUID) ([]models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]models.Video, 0)
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if v, ok := r.db.videos[id]; ok && !seen[id] && v.VisibleTo(viewerID) {
			seen[id] = true
			out = append(out, *r.db.video(v))
		}
	}
	return out, nil
}

// --- comments ---

type memComments struct{ db *memDB }

func (r *memComments) Create(_ context.Context, videoID, ownerID uuid.UUID, content string) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.videos[videoID]; !ok {
		return nil, repository.ErrNotFound
	}
	now := r.db.tick()
	c := &models.Comment{
		ID:        uuid.New(),
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.db.comments[c.ID] = c
	return r.db.comment(c), nil
}

func (r *memComments) GetByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, nil
	}
	return r.db.comment(c), nil
}

func (r *memComments) UpdateContent(_ context.Context, id uuid.UUID, content string) (*models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.comments[id]
	if !ok {
		return nil, nil
	}
	c.Content = content
	c.UpdatedAt = r.db.tick()
	return r.db.comment(c), nil
}

func (r *memComments) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.comments, id)
	kept := r.db.likes[:0]
	for _, l := range r.db.likes {
		if l.target.Kind == models.LikeComment && l.target.ID == id {
			continue
		}
		kept = append(kept, l)
	}
	r.db.likes = kept
	return nil
}

func (r *memComments) ListByVideo(_ context.Context, videoID uuid.UUID, p repository.Page) ([]models.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var found []*models.Comment
	for _, c := range r.db.comments {
		if c.VideoID == videoID {
			found = append(found, c)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })

	out := make([]models.Comment, 0)
	for i := p.Offset(); i < len(found) && len(out) < p.Limit; i++ {
		out = append(out, *r.db.comment(found[i]))
	}
	return out, nil
}

func (r *memComments) CountByVideo(_ context.Context, videoID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, c := range r.db.comments {
		if c.VideoID == videoID {
			n++
		}
	}
	return n, nil
}

// --- likes ---

type memLikes struct{ db *memDB }

func (r *memLikes) Toggle(_ context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i, l := range r.db.likes {
		if l.target == target && l.userID == userID {
			r.db.likes = append(r.db.likes[:i], r.db.likes[i+1:]...)
			return false, nil
		}
	}
	r.db.likes = append(r.db.likes, memLike{target: target, userID: userID, at: r.db.tick()})
	return true, nil
}

func (r *memLikes) IsLiked(_ context.Context, target models.LikeTarget, userID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, l := range r.db.likes {
		if l.target == target && l.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memLikes) Count(_ context.Context, target models.LikeTarget) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, l := range r.db.likes {
		if l.target == target {
			n++
		}
	}
	return n, nil
}

func (r *memLikes) LikedVideos(_ context.Context, userID uuid.UUID) ([]models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]models.Video, 0)
	for i := len(r.db.likes) - 1; i >= 0; i-- {
		l := r.db.likes[i]
		if l.userID != userID || l.target.Kind != models.LikeVideo {
			continue
		}
		if v, ok := r.db.videos[l.target.ID]; ok && v.VisibleTo(userID) {
			out = append(out, *r.db.video(v))
		}
	}
	return out, nil
}

// --- subscriptions ---

type memSubs struct{ db *memDB }

func (r *memSubs) Toggle(_ context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[channelID]; !ok {
		return false, repository.ErrNotFound
	}
	for i, s := range r.db.subs {
		if s.subscriberID == subscriberID && s.channelID == channelID {
			r.db.subs = append(r.db.subs[:i], r.db.subs[i+1:]...)
			return false, nil
		}
	}
	r.db.subs = append(r.db.subs, memSub{subscriberID: subscriberID, channelID: channelID, at: r.db.tick()})
	return true, nil
}

func (r *memSubs) CountSubscribers(_ context.Context, channelID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, s := range r.db.subs {
		if s.channelID == channelID {
			n++
		}
	}
	return n, nil
}

func (r *memSubs) list(pick func(s memSub) (uuid.UUID, bool)) []models.Owner {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]models.Owner, 0)
	for i := len(r.db.subs) - 1; i >= 0; i-- {
		if id, ok := pick(r.db.subs[i]); ok {
			if o := r.db.owner(id); o != nil {
				out = append(out, *o)
			}
		}
	}
	return out
}

func (r *memSubs) ListSubscribers(_ context.Context, channelID uuid.UUID) ([]models.Owner, error) {
	return r.list(func(s memSub) (uuid.UUID, bool) { return s.subscriberID, s.channelID == channelID }), nil
}

func (r *memSubs) ListSubscribedChannels(_ context.Context, subscriberID uuid.UUID) ([]models.Owner, error) {
	return r.list(func(s memSub) (uuid.UUID, bool) { return s.channelID, s.subscriberID == subscriberID }), nil
}

// --- playlists ---

type memPlaylists struct{ db *memDB }

func (r *memPlaylists) Create(_ context.Context, ownerID uuid.UUID, name, description string) (*models.Playlist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.tick()
	p := &models.Playlist{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		VideoIDs:    []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.db.playlists[p.ID] = p
	return copyPlaylist(p), nil
}

func (r *memPlaylists) GetByID(_ context.Context, id uuid.UUID) (*models.Playlist, error) {
	return r.update(id, func(*models.Playlist) {})
}

func (r *memPlaylists) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Playlist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]models.Playlist, 0)
	for _, p := range r.db.playlists {
		if p.OwnerID == ownerID {
			out = append(out, *copyPlaylist(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPlaylists) update(id uuid.UUID, fn func(p *models.Playlist)) (*models.Playlist, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.playlists[id]
	if !ok {
		return nil, nil
	}
	fn(p)
	return copyPlaylist(p), nil
}

func (r *memPlaylists) Update(_ context.Context, id uuid.UUID, name, description *string) (*models.Playlist, error) {
	return r.update(id, func(p *models.Playlist) {
		if name != nil {
			p.Name = *name
		}
		if description != nil {
			p.Description = *description
		}
	})
}

func (r *memPlaylists) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.playlists, id)
	return nil
}

func (r *memPlaylists) AddVideo(_ context.Context, id, videoID uuid.UUID) (*models.Playlist, error) {
	return r.update(id, func(p *models.Playlist) {
		for _, v := range p.VideoIDs {
			if v == videoID {
				return
			}
		}
		p.VideoIDs = append(p.VideoIDs, videoID)
	})
}

func (r *memPlaylists) RemoveVideo(_ context.Context, id, videoID uuid.UUID) (*models.Playlist, error) {
	return r.update(id, func(p *models.Playlist) {
		kept := make([]uuid.UUID, 0, len(p.VideoIDs))
		for _, v := range p.VideoIDs {
			if v != videoID {
				kept = append(kept, v)
			}
		}
		p.VideoIDs = kept
	})
}

// --- dashboard ---

type memDashboard struct{ db *memDB }

func (r *memDashboard) ChannelStats(_ context.Context, ownerID uuid.UUID) (*models.ChannelStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var st models.ChannelStats
	for _, v := range r.db.videos {
		if v.OwnerID == ownerID {
			st.TotalVideos++
			st.TotalViews += v.Views
		}
	}
	for _, s := range r.db.subs {
		if s.channelID == ownerID {
			st.TotalSubscribers++
		}
	}
	for _, l := range r.db.likes {
		if l.target.Kind != models.LikeVideo {
			continue
		}
		if v, ok := r.db.videos[l.target.ID]; ok && v.OwnerID == ownerID {
			st.TotalLikes++
		}
	}
	return &st, nil
}

// MockUploader is a testify mock of media.Uploader. Like the real
// uploaders it removes the local file whatever the outcome.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath string) (*media.Result, error) {
	defer os.Remove(localPath)

	args := m.Called(ctx, localPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Result), args.Error(1)
}
