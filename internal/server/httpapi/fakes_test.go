package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "good-token"
	testUser  = "7f1d2c3b-0000-4000-8000-000000000001"
)

type fakeIdentity struct {
	verifyErr error

	registerFn func(username, email, password string) (*models.User, string, error)
	loginFn    func(email, password string) (string, *models.User, error)
	profileErr error
	updateFn   func(userID, username, email string) (*models.User, error)
	changeErr  error
	forgotErr  error
	forgotArgs []string
	resetFn    func(token, password string) error
}

func (f *fakeIdentity) VerifyToken(_ context.Context, token string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	if token == "" {
		return "", common.ErrUnauthenticated
	}
	if token != testToken {
		return "", common.ErrInvalidToken
	}
	return testUser, nil
}

func (f *fakeIdentity) Register(_ context.Context, username, email, password string) (*models.User, string, error) {
	return f.registerFn(username, email, password)
}

func (f *fakeIdentity) Login(_ context.Context, email, password string) (string, *models.User, error) {
	return f.loginFn(email, password)
}

func (f *fakeIdentity) GetProfile(_ context.Context, userID string) (*models.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.User{ID: userID, Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$10$secret"}, nil
}

func (f *fakeIdentity) UpdateProfile(_ context.Context, userID, username, email string) (*models.User, error) {
	return f.updateFn(userID, username, email)
}

func (f *fakeIdentity) ChangePassword(context.Context, string, string, string) error {
	return f.changeErr
}

func (f *fakeIdentity) ForgotPassword(_ context.Context, email string) error {
	f.forgotArgs = append(f.forgotArgs, email)
	return f.forgotErr
}

func (f *fakeIdentity) ResetPassword(_ context.Context, token, password string) error {
	return f.resetFn(token, password)
}

type fakeFolders struct {
	err       error
	gotUserID string
	gotID     string
}

func (f *fakeFolders) List(_ context.Context, userID string) ([]*models.Folder, error) {
	f.gotUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Folder{{ID: "f1", UserID: userID, Name: "one"}}, nil
}

func (f *fakeFolders) Get(_ context.Context, userID, id string) (*models.Folder, error) {
	f.gotUserID, f.gotID = userID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Folder{ID: id, UserID: userID, Name: "one"}, nil
}

func (f *fakeFolders) Create(_ context.Context, userID, name, description string) (*models.Folder, error) {
	f.gotUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Folder{ID: "new", UserID: userID, Name: name, Description: description}, nil
}

func (f *fakeFolders) Update(_ context.Context, userID, id, name, description string) (*models.Folder, error) {
	f.gotUserID, f.gotID = userID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Folder{ID: id, UserID: userID, Name: name, Description: description}, nil
}

func (f *fakeFolders) Delete(_ context.Context, userID, id string) (int64, error) {
	f.gotUserID, f.gotID = userID, id
	return 2, f.err
}

type fakeLinks struct {
	err       error
	gotUserID string
	gotID     string
}

func (f *fakeLinks) ListByFolder(_ context.Context, userID, folderID string) ([]*models.Link, error) {
	f.gotUserID, f.gotID = userID, folderID
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Link{{ID: "l1", FolderID: folderID, Title: "Go"}}, nil
}

func (f *fakeLinks) Create(_ context.Context, userID, folderID, title, url, note string) (*models.Link, error) {
	f.gotUserID, f.gotID = userID, folderID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Link{ID: "l1", FolderID: folderID, Title: title, URL: url, Note: note}, nil
}

func (f *fakeLinks) Update(_ context.Context, userID, id, title, url, note string) (*models.Link, error) {
	f.gotUserID, f.gotID = userID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Link{ID: id, Title: title, URL: url, Note: note}, nil
}

func (f *fakeLinks) Delete(_ context.Context, userID, id string) error {
	f.gotUserID, f.gotID = userID, id
	return f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	identity *fakeIdentity
	folders  *fakeFolders
	links    *fakeLinks
	pinger   *fakePinger
	server   *HTTPServer
	handler  http.Handler
}

func newTestEnv(t *testing.T, limits Limits) *testEnv {
	t.Helper()
	env := &testEnv{
		identity: &fakeIdentity{},
		folders:  &fakeFolders{},
		links:    &fakeLinks{},
		pinger:   &fakePinger{},
	}
	env.server = NewHTTPServer("127.0.0.1:0", logging.Nop(), Services{
		Identity: env.identity,
		Folders:  env.folders,
		Links:    env.links,
		Health:   env.pinger,
	}, time.Second, limits)
	env.handler = env.server.Router()
	return env
}

// do sends a request through the router. A non-nil body is JSON-encoded;
// a string body is sent as is.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
