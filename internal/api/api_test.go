package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notes/internal/auth"
	"notes/internal/models"
	"notes/internal/photo"
	"notes/internal/store/sqlstore"
)

type testApp struct {
	srv       *httptest.Server
	store     *sqlstore.SQLStore
	staticDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	st, err := sqlstore.New("sqlite3", filepath.Join(dir, "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	identity, err := auth.NewIdentity(st, bcrypt.MinCost)
	require.NoError(t, err)
	staticDir := filepath.Join(dir, "static")

	h, err := NewHandlers(Options{
		Store:     st,
		Identity:  identity,
		Sessions:  auth.NewSessions(auth.SessionConfig{Secret: "test", TTL: time.Hour, RememberTTL: 24 * time.Hour}),
		Photos:    photo.New(staticDir, 250, 250),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		StaticDir: staticDir,
		MaxUpload: 1 << 20,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, store: st, staticDir: staticDir}
}

func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(a.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) postNote(t *testing.T, c *http.Client, title, text string, categoryIDs []int, photoPNG []byte) (*http.Response, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("text", text))
	for _, id := range categoryIDs {
		require.NoError(t, mw.WriteField("categories", strconv.Itoa(id)))
	}
	if photoPNG != nil {
		fw, err := mw.CreateFormFile("photo", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(photoPNG)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := c.Post(a.srv.URL+"/note", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) signUp(t *testing.T, name, email string) *http.Client {
	t.Helper()
	c := a.client(t)
	resp, _ := a.post(t, c, "/register", url.Values{
		"name": {name}, "email": {email}, "password": {"secret1"}, "repeat_password": {"secret1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.post(t, c, "/login", url.Values{"email": {email}, "password": {"secret1"}})
	require.Equal(t, "/", resp.Request.URL.Path)
	return c
}

func (a *testApp) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := a.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// sessionCookie returns the session cookie c holds for the test server.
func (a *testApp) sessionCookie(t *testing.T, c *http.Client) *http.Cookie {
	t.Helper()
	u, err := url.Parse(a.srv.URL)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == auth.CookieName {
			return ck
		}
	}
	return nil
}

// hugePNG is a tiny file whose header claims an 8000x8000 image.
func hugePNG(t *testing.T) []byte {
	t.Helper()
	b := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(b[16:20], 8000)
	binary.BigEndian.PutUint32(b[20:24], 8000)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestAliceScenario(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.post(t, c, "/register", url.Values{
		"name": {"alice"}, "email": {"alice@example.com"}, "password": {"secret1"}, "repeat_password": {"secret1"},
	})
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Contains(t, body, "Registration Successful! Log in!")

	resp, body = app.post(t, c, "/register", url.Values{
		"name": {"alice2"}, "email": {"alice@example.com"}, "password": {"secret1"}, "repeat_password": {"secret1"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "This email is used. Please enter other email.")
	assert.Equal(t, "alice", app.user(t, "alice@example.com").Name, "duplicate left the account alone")

	resp, body = app.post(t, c, "/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome back, alice")
	alice := app.user(t, "alice@example.com")

	_, body = app.post(t, c, "/category", url.Values{"name": {"Work"}})
	assert.Contains(t, body, "Work")
	categories, err := app.store.ListCategories(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	work := categories[0]

	resp, body = app.postNote(t, c, "Groceries", "milk, eggs", []int{work.ID}, pngBytes(t, 500, 100))
	assert.Equal(t, "/note", resp.Request.URL.Path)
	assert.Contains(t, body, "Groceries")
	notes, err := app.store.ListNotes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	note := notes[0]
	require.NotEmpty(t, note.Photo)
	assert.FileExists(t, filepath.Join(app.staticDir, note.Photo))

	resp, _ = app.get(t, c, "/static/"+note.Photo)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = app.get(t, c, "/filter?category="+strconv.Itoa(work.ID))
	assert.Contains(t, body, "Groceries")

	_, body = app.post(t, c, "/search", url.Values{"search": {"Groc"}})
	assert.Contains(t, body, "Groceries")
	_, body = app.post(t, c, "/search", url.Values{"search": {"xyz"}})
	assert.NotContains(t, body, "<h3>Groceries</h3>")
	assert.Contains(t, body, "No notes found.")

	resp, _ = app.get(t, c, "/delete_category/"+strconv.Itoa(work.ID))
	assert.Equal(t, "/category", resp.Request.URL.Path)
	kept, err := app.store.GetNote(ctx, alice.ID, note.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Categories)

	resp, _ = app.get(t, c, "/delete/"+strconv.Itoa(note.ID))
	assert.Equal(t, "/note", resp.Request.URL.Path)
	assert.NoFileExists(t, filepath.Join(app.staticDir, note.Photo))
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	for _, path := range []string{"/note", "/category", "/edit_note/1", "/delete/1", "/filter?category=1"} {
		resp, body := app.get(t, c, path)
		assert.Equal(t, "/login", resp.Request.URL.Path, path)
		assert.Equal(t, path, resp.Request.URL.Query().Get("next"))
		assert.Contains(t, body, `name="next"`)
	}
}

func TestLoginResumesNext(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "alice@example.com")

	c := app.client(t)
	resp, _ := app.post(t, c, "/login", url.Values{
		"email": {"alice@example.com"}, "password": {"secret1"}, "next": {"/category"},
	})
	assert.Equal(t, "/category", resp.Request.URL.Path)

	c = app.client(t)
	resp, _ = app.post(t, c, "/login", url.Values{
		"email": {"alice@example.com"}, "password": {"secret1"}, "next": {"https://evil.example/"},
	})
	assert.Equal(t, app.srv.URL+"/", resp.Request.URL.String())
}

func TestLoginFailure(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "alice@example.com")
	c := app.client(t)

	noSession := func(resp *http.Response) {
		t.Helper()
		for _, ck := range resp.Cookies() {
			assert.NotEqual(t, auth.CookieName, ck.Name, "failed login set a session")
		}
		assert.Nil(t, app.sessionCookie(t, c))
		resp, _ = app.get(t, c, "/note")
		assert.Equal(t, "/login", resp.Request.URL.Path)
	}

	resp, body := app.post(t, c, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Failed to sign in. Check email and password")
	noSession(resp)

	resp, body = app.post(t, c, "/login", url.Values{"email": {"nobody@example.com"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Failed to sign in. Check email and password")
	noSession(resp)

	resp, body = app.post(t, c, "/login", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")
	noSession(resp)
}

func TestRememberMeCookie(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "alice", "alice@example.com")

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, _ := app.post(t, noRedirect, "/login", url.Values{
		"email": {"alice@example.com"}, "password": {"secret1"}, "remember": {"1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.Positive(t, session.MaxAge)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, body := app.post(t, c, "/register", url.Values{
		"name": {"bob"}, "email": {"not-an-email"}, "password": {"abc"}, "repeat_password": {"abd"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "Password must be at least 6 characters.")
	assert.Contains(t, body, "Passwords have to match.")
	assert.Contains(t, body, `value="bob"`)
}

func TestAnonymousOnlyPages(t *testing.T) {
	app := newTestApp(t)
	c := app.signUp(t, "alice", "alice@example.com")

	resp, _ := app.get(t, c, "/register")
	assert.Equal(t, "/", resp.Request.URL.Path)
	resp, _ = app.get(t, c, "/login")
	assert.Equal(t, "/", resp.Request.URL.Path)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.signUp(t, "alice", "alice@example.com")

	resp, _ := app.get(t, c, "/note")
	assert.Equal(t, "/note", resp.Request.URL.Path)

	stolen := app.sessionCookie(t, c)
	require.NotNil(t, stolen)
	other := app.signUp(t, "bob", "bob@example.com")

	_, body := app.get(t, c, "/logout")
	assert.Contains(t, body, "Log in")

	resp, _ = app.get(t, c, "/note")
	assert.Equal(t, "/login", resp.Request.URL.Path)

	// a copy of the old cookie no longer signs anyone in
	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/note", nil)
	require.NoError(t, err)
	req.AddCookie(stolen)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp, _ = app.get(t, other, "/note")
	assert.Equal(t, "/note", resp.Request.URL.Path, "other users stay signed in")

	// signing in again works
	resp, _ = app.post(t, c, "/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	assert.Equal(t, "/", resp.Request.URL.Path)
	resp, _ = app.get(t, c, "/note")
	assert.Equal(t, "/note", resp.Request.URL.Path)
}

func TestCrossSiteDeleteRefused(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	c := app.signUp(t, "alice", "alice@example.com")
	aliceID := app.user(t, "alice@example.com").ID

	app.postNote(t, c, "Keep", "text", nil, nil)
	app.post(t, c, "/category", url.Values{"name": {"Work"}})
	notes, err := app.store.ListNotes(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	cats, err := app.store.ListCategories(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, cats, 1)

	for _, path := range []string{
		"/delete/" + strconv.Itoa(notes[0].ID),
		"/delete_category/" + strconv.Itoa(cats[0].ID),
		"/logout",
	} {
		req, err := http.NewRequest(http.MethodGet, app.srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		resp, err := c.Do(req)
		require.NoError(t, err)
		readBody(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	_, err = app.store.GetNote(ctx, aliceID, notes[0].ID)
	assert.NoError(t, err)
	_, err = app.store.GetCategory(ctx, aliceID, cats[0].ID)
	assert.NoError(t, err)
	resp, _ := app.get(t, c, "/note")
	assert.Equal(t, "/note", resp.Request.URL.Path, "still signed in")
}

func TestNoteValidation(t *testing.T) {
	app := newTestApp(t)
	c := app.signUp(t, "alice", "alice@example.com")

	resp, body := app.postNote(t, c, "", "some text", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "some text")

	resp, body = app.postNote(t, c, strings.Repeat("x", 21), "text", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Must be at most 20 characters.")

	resp, body = app.postNote(t, c, "Pic", "text", nil, []byte("not a png"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "The file is not a readable image.")

	resp, body = app.postNote(t, c, "Pic", "text", nil, hugePNG(t))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "The image is too large.")

	notes, err := app.store.ListNotes(context.Background(), app.user(t, "alice@example.com").ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestForeignCategoryRejected(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.signUp(t, "alice", "alice@example.com")
	bob := app.signUp(t, "bob", "bob@example.com")

	app.post(t, bob, "/category", url.Values{"name": {"Secret"}})
	bobCats, err := app.store.ListCategories(ctx, app.user(t, "bob@example.com").ID)
	require.NoError(t, err)
	require.Len(t, bobCats, 1)

	resp, body := app.postNote(t, alice, "Mine", "text", []int{bobCats[0].ID}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Choose from your own categories.")
	assert.NotContains(t, body, "Secret")
}

func TestOwnerScoping(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	alice := app.signUp(t, "alice", "alice@example.com")
	bob := app.signUp(t, "bob", "bob@example.com")

	app.postNote(t, alice, "Diary", "private", nil, nil)
	app.post(t, alice, "/category", url.Values{"name": {"Home"}})
	aliceID := app.user(t, "alice@example.com").ID
	notes, err := app.store.ListNotes(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	cats, err := app.store.ListCategories(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	noteID, catID := strconv.Itoa(notes[0].ID), strconv.Itoa(cats[0].ID)

	for _, path := range []string{
		"/edit_note/" + noteID,
		"/delete/" + noteID,
		"/edit_category/" + catID,
		"/delete_category/" + catID,
		"/edit_note/999",
		"/edit_note/abc",
	} {
		resp, body := app.get(t, bob, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.NotContains(t, body, "Diary", path)
	}
	resp, _ := app.post(t, bob, "/edit_note/"+noteID, url.Values{"title": {"Hacked"}, "text": {"x"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body := app.get(t, bob, "/note")
	assert.NotContains(t, body, "Diary")

	note, err := app.store.GetNote(ctx, aliceID, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Diary", note.Title)
	_, err = app.store.GetCategory(ctx, aliceID, cats[0].ID)
	assert.NoError(t, err)
}

func TestEditNoteAndCategory(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	c := app.signUp(t, "alice", "alice@example.com")
	aliceID := app.user(t, "alice@example.com").ID

	app.post(t, c, "/category", url.Values{"name": {"Work"}})
	app.post(t, c, "/category", url.Values{"name": {"Home"}})
	cats, err := app.store.ListCategories(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	home, work := cats[0], cats[1]

	app.postNote(t, c, "Plan", "draft", []int{work.ID}, nil)
	notes, err := app.store.ListNotes(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	id := strconv.Itoa(notes[0].ID)

	_, body := app.get(t, c, "/edit_note/"+id)
	assert.Contains(t, body, `value="Plan"`)

	resp, _ := app.post(t, c, "/edit_note/"+id, url.Values{
		"title": {"Plan v2"}, "text": {"final"}, "categories": {strconv.Itoa(home.ID)},
	})
	assert.Equal(t, "/note", resp.Request.URL.Path)
	note, err := app.store.GetNote(ctx, aliceID, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan v2", note.Title)
	require.Len(t, note.Categories, 1)
	assert.Equal(t, home.ID, note.Categories[0].ID)

	resp, body = app.post(t, c, "/edit_note/"+id, url.Values{"title": {""}, "text": {"final"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")

	resp, _ = app.post(t, c, "/edit_category/"+strconv.Itoa(work.ID), url.Values{"name": {"Office"}})
	assert.Equal(t, "/category", resp.Request.URL.Path)
	renamed, err := app.store.GetCategory(ctx, aliceID, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "Office", renamed.Name)

	resp, _ = app.post(t, c, "/edit_category/"+strconv.Itoa(work.ID), url.Values{"name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestNotFoundPage(t *testing.T) {
	app := newTestApp(t)
	resp, body := app.get(t, app.client(t), "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Not found")
}
