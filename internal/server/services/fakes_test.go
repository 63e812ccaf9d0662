package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/dmitrijs2005/linkkeeper/internal/server/config"
	"github.com/dmitrijs2005/linkkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	folderrepo "github.com/dmitrijs2005/linkkeeper/internal/server/repositories/folders"
	linkrepo "github.com/dmitrijs2005/linkkeeper/internal/server/repositories/links"
	userrepo "github.com/dmitrijs2005/linkkeeper/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                  "k",
		TokenValidityDuration:      time.Hour,
		ResetTokenValidityDuration: time.Hour,
		ResetURLBase:               "http://example.test/",
	}
}

// --- in-memory repositories ---

// store is the shared state behind the fake repositories, so that folders
// and links see each other the way tables do.
type store struct {
	mu      sync.Mutex
	users   map[string]*models.User
	folders map[string]*models.Folder
	links   map[string]*models.Link
	seq     int
}

func newStore() *store {
	return &store{
		users:   map[string]*models.User{},
		folders: map[string]*models.Folder{},
		links:   map[string]*models.Link{},
	}
}

func (s *store) tick() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, s.seq, 0, time.UTC)
}

type fakeUsersRepo struct {
	s *store

	getErr    error
	createErr error
	touchErr  error
	resetErr  error
	created   int
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.users {
		if o.Username == u.Username || o.Email == u.Email {
			return nil, common.ErrDuplicateIdentity
		}
	}
	c := *u
	c.CreatedAt = f.s.tick()
	f.s.users[c.ID] = &c
	f.created++
	out := c
	return &out, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) IdentityTaken(_ context.Context, username, email, excludeID string) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.ID == excludeID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id, username, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Username, u.Email = username, email
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLogin = &at
	return nil
}

func (f *fakeUsersRepo) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordResetToken = &tokenHash
	u.PasswordResetExpires = &expires
	return nil
}

func (f *fakeUsersRepo) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, newHash string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == tokenHash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			u.PasswordHash = newHash
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeFoldersRepo struct {
	s *store

	listErr   error
	getErr    error
	createErr error
	updateErr error
	delErr    error
}

func (f *fakeFoldersRepo) ListByUser(_ context.Context, userID string) ([]*models.Folder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*models.Folder{}
	for _, fl := range f.s.folders {
		if fl.UserID == userID {
			c := *fl
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeFoldersRepo) GetOwned(_ context.Context, userID, id string) (*models.Folder, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	fl, ok := f.s.folders[id]
	if !ok || fl.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *fl
	return &c, nil
}

func (f *fakeFoldersRepo) GetByID(_ context.Context, id string) (*models.Folder, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	fl, ok := f.s.folders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *fl
	return &c, nil
}

func (f *fakeFoldersRepo) NameTaken(_ context.Context, userID, name, excludeID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, fl := range f.s.folders {
		if fl.UserID == userID && fl.Name == name && fl.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFoldersRepo) Create(_ context.Context, folder *models.Folder) (*models.Folder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, fl := range f.s.folders {
		if fl.UserID == folder.UserID && fl.Name == folder.Name {
			return nil, common.ErrDuplicateName
		}
	}
	c := *folder
	c.CreatedAt = f.s.tick()
	c.UpdatedAt = c.CreatedAt
	f.s.folders[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeFoldersRepo) Update(_ context.Context, folder *models.Folder) (*models.Folder, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	fl, ok := f.s.folders[folder.ID]
	if !ok || fl.UserID != folder.UserID {
		return nil, common.ErrorNotFound
	}
	fl.Name, fl.Description = folder.Name, folder.Description
	fl.UpdatedAt = f.s.tick()
	c := *fl
	return &c, nil
}

func (f *fakeFoldersRepo) Delete(_ context.Context, userID, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	fl, ok := f.s.folders[id]
	if !ok || fl.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.s.folders, id)
	return nil
}

type fakeLinksRepo struct {
	s *store

	deleteByFolderErr error
}

func (f *fakeLinksRepo) ListByFolder(_ context.Context, folderID string) ([]*models.Link, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*models.Link{}
	for _, l := range f.s.links {
		if l.FolderID == folderID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLinksRepo) GetByID(_ context.Context, id string) (*models.Link, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.links[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *l
	return &c, nil
}

func (f *fakeLinksRepo) Create(_ context.Context, link *models.Link) (*models.Link, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *link
	c.CreatedAt = f.s.tick()
	c.UpdatedAt = c.CreatedAt
	f.s.links[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeLinksRepo) Update(_ context.Context, link *models.Link) (*models.Link, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.links[link.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	l.Title, l.URL, l.Note = link.Title, link.URL, link.Note
	l.UpdatedAt = f.s.tick()
	c := *l
	return &c, nil
}

func (f *fakeLinksRepo) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.links[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.links, id)
	return nil
}

func (f *fakeLinksRepo) DeleteByFolder(_ context.Context, folderID string) (int64, error) {
	if f.deleteByFolderErr != nil {
		return 0, f.deleteByFolderErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for id, l := range f.s.links {
		if l.FolderID == folderID {
			delete(f.s.links, id)
			n++
		}
	}
	return n, nil
}

// fakeRepoManager hands out the same fakes for the pool and for a
// transaction and records which handle each repository was bound to.
type fakeRepoManager struct {
	u *fakeUsersRepo
	f *fakeFoldersRepo
	l *fakeLinksRepo

	mu       sync.Mutex
	boundTxs int
}

func newFakeRepoManager() *fakeRepoManager {
	s := newStore()
	return &fakeRepoManager{
		u: &fakeUsersRepo{s: s},
		f: &fakeFoldersRepo{s: s},
		l: &fakeLinksRepo{s: s},
	}
}

func (m *fakeRepoManager) bind(db dbx.DBTX) {
	if _, ok := db.(*sql.Tx); ok {
		m.mu.Lock()
		m.boundTxs++
		m.mu.Unlock()
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) userrepo.Repository     { m.bind(db); return m.u }
func (m *fakeRepoManager) Folders(db dbx.DBTX) folderrepo.Repository { m.bind(db); return m.f }
func (m *fakeRepoManager) Links(db dbx.DBTX) linkrepo.Repository     { m.bind(db); return m.l }

// --- publisher ---

type fakePublisher struct {
	mu   sync.Mutex
	msgs []mailer.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg mailer.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// --- wiring ---

type fixture struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	rm      *fakeRepoManager
	pub     *fakePublisher
	creds   *CredentialService
	ident   *IdentityService
	folders *FolderService
	links   *LinkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	pub := &fakePublisher{}
	cfg := testConfig()

	creds := NewCredentialService(db, rm, cfg)
	folders := NewFolderService(db, rm)
	return &fixture{
		db:      db,
		mock:    mock,
		rm:      rm,
		pub:     pub,
		creds:   creds,
		ident:   NewIdentityService(db, rm, cfg, creds, pub, logging.Nop()),
		folders: folders,
		links:   NewLinkService(folders),
	}
}
