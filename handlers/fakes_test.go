package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juspost/handlers"
	"juspost/models"
	"juspost/routes"
	"juspost/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *memUserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = *user
	return nil
}

func (s *memUserStore) All(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *memUserStore) UpdateNickname(_ context.Context, username, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Nickname = nickname
	s.users[username] = user
	return nil
}

func (s *memUserStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *memUserStore) roleOf(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[username]; ok {
		return user.Role
	}
	return models.RoleUser
}

type memPostStore struct {
	mu    sync.Mutex
	posts []models.Post
	users *memUserStore
}

func newMemPostStore(users *memUserStore) *memPostStore {
	return &memPostStore{users: users}
}

func (s *memPostStore) ListWithAuthorRole(_ context.Context) ([]models.Post, error) {
	s.mu.Lock()
	posts := make([]models.Post, len(s.posts))
	copy(posts, s.posts)
	s.mu.Unlock()

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	for i := range posts {
		posts[i].AuthorRole = s.users.roleOf(posts[i].Username)
	}
	return posts, nil
}

func (s *memPostStore) Insert(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *post
	p.AuthorRole = ""
	s.posts = append(s.posts, p)
	return nil
}

func (s *memPostStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memPostStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memPostStore) SetLikes(_ context.Context, id primitive.ObjectID, likes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Likes = append([]string{}, likes...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memPostStore) FindByUsername(_ context.Context, username string) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []models.Post
	for _, p := range s.posts {
		if p.Username == username {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (s *memPostStore) RenameNickname(_ context.Context, username, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].Username == username {
			s.posts[i].Nickname = nickname
		}
	}
	return nil
}

func (s *memPostStore) Anonymize(_ context.Context, username, placeholder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].Username == username {
			s.posts[i].Username = placeholder
			s.posts[i].Nickname = models.AnonymousNickname
		}
	}
	return nil
}

func (s *memPostStore) all() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]models.Post, len(s.posts))
	copy(posts, s.posts)
	return posts
}

type memPrivateStore struct {
	mu    sync.Mutex
	posts map[string]models.PrivatePost
	users *memUserStore
	now   func() time.Time
}

func newMemPrivateStore(users *memUserStore) *memPrivateStore {
	return &memPrivateStore{
		posts: make(map[string]models.PrivatePost),
		users: users,
		now:   time.Now,
	}
}

func (s *memPrivateStore) expired(p models.PrivatePost) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(s.now())
}

func (s *memPrivateStore) Insert(_ context.Context, post *models.PrivatePost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.UniqueID] = *post
	return nil
}

func (s *memPrivateStore) FindByCode(_ context.Context, code string) (*models.PrivatePost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[code]
	if !ok || s.expired(post) {
		return nil, store.ErrNotFound
	}
	return &post, nil
}

func (s *memPrivateStore) ListWithAuthorRole(_ context.Context) ([]models.PrivatePost, error) {
	s.mu.Lock()
	var posts []models.PrivatePost
	for _, p := range s.posts {
		if !s.expired(p) {
			posts = append(posts, p)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	for i := range posts {
		posts[i].AuthorRole = s.users.roleOf(posts[i].AuthorID)
	}
	return posts, nil
}

func (s *memPrivateStore) DeleteByCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[code]; !ok {
		return store.ErrNotFound
	}
	delete(s.posts, code)
	return nil
}

type emitted struct {
	Event   string
	Payload interface{}
}

type recordNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *recordNotifier) Emit(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{Event: event, Payload: payload})
}

func (n *recordNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, len(n.events))
	for i, e := range n.events {
		names[i] = e.Event
	}
	return names
}

func (n *recordNotifier) count(event string) int {
	total := 0
	for _, name := range n.names() {
		if name == event {
			total++
		}
	}
	return total
}

type testEnv struct {
	router   *gin.Engine
	users    *memUserStore
	posts    *memPostStore
	privates *memPrivateStore
	notifier *recordNotifier
}

// newTestEnv assembles the real router over in-memory stores, with the
// reserved admin account already seeded.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUserStore()
	users.users["admin"] = models.User{
		ID:       primitive.NewObjectID(),
		Username: "admin",
		Nickname: "Admin",
		Role:     models.RoleAdmin,
	}

	posts := newMemPostStore(users)
	privates := newMemPrivateStore(users)
	notifier := &recordNotifier{}

	router := routes.SetupRouter(
		handlers.NewPostHandler(posts, users, notifier),
		handlers.NewUserHandler(users, posts, notifier, "admin"),
		handlers.NewPrivatePostHandler(privates, users),
	)

	return &testEnv{router: router, users: users, posts: posts, privates: privates, notifier: notifier}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func (e *testEnv) addUser(username, nickname, role string) {
	e.users.users[username] = models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Nickname: nickname,
		Role:     role,
	}
}

func (e *testEnv) addPost(username, nickname, message string, createdAt time.Time) models.Post {
	post := models.Post{
		ID:        primitive.NewObjectID(),
		Message:   message,
		Username:  username,
		Nickname:  nickname,
		Likes:     []string{},
		CreatedAt: createdAt,
	}
	e.posts.Insert(context.Background(), &post)
	return post
}
