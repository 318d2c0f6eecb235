package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/realtime"
)

// fakeStore is an in-memory DataStore for handler tests.
type fakeStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*models.Room
	keys  map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms: make(map[uuid.UUID]*models.Room),
		keys:  make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) Close()                         {}
func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) CreateRoom(ctx context.Context, name string, isPrivate bool, keyHash string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := &models.Room{
		ID:           uuid.New(),
		Name:         name,
		IsPrivate:    isPrivate,
		CreatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}
	f.rooms[room.ID] = room
	if keyHash != "" {
		f.keys[room.ID] = keyHash
	}
	return room, nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, nil
	}
	copied := *room
	return &copied, nil
}

func (f *fakeStore) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, room := range f.rooms {
		if room.Name == name {
			copied := *room
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetRoomKeyHash(ctx context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[id], nil
}

func (f *fakeStore) ListPublicRooms(ctx context.Context, limit, offset int) ([]models.Room, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rooms []models.Room
	for _, room := range f.rooms {
		if !room.IsPrivate {
			rooms = append(rooms, *room)
		}
	}
	total := len(rooms)
	if offset > len(rooms) {
		offset = len(rooms)
	}
	rooms = rooms[offset:]
	if len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, total, nil
}

func (f *fakeStore) UpdateRoomActivity(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[id]; ok {
		room.MessageCount++
		room.LastActiveAt = time.Now()
	}
	return nil
}

func (f *fakeStore) CountPublicRooms(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, room := range f.rooms {
		if !room.IsPrivate {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SumMessageCount(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, room := range f.rooms {
		sum += room.MessageCount
	}
	return sum, nil
}

func (f *fakeStore) GetMostRecentActivity(ctx context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *time.Time
	for _, room := range f.rooms {
		t := room.LastActiveAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func (f *fakeStore) GetTopActiveRooms(ctx context.Context, limit int) ([]models.Room, error) {
	rooms, _, err := f.ListPublicRooms(ctx, limit, 0)
	return rooms, err
}

// newTestRouter builds a chi router over a fresh handler. Redis-backed
// endpoints are only exercised up to the point where they would touch Redis.
func newTestRouter(t *testing.T) (*chi.Mux, *fakeStore, *realtime.Controller) {
	t.Helper()
	db := newFakeStore()
	ctrl := realtime.NewController(zerolog.Nop())
	h := NewHandler(db, nil, ctrl)

	r := chi.NewRouter()
	r.Get("/rooms", h.ListRooms)
	r.Post("/rooms", h.CreateRoom)
	r.Get("/rooms/{id}", h.GetRoom)
	r.Get("/rooms/{id}/messages", h.GetRoomMessages)
	r.Post("/rooms/{id}/messages", h.PostMessage)
	r.Get("/online", h.Online)
	r.Get("/stats", h.Stats)
	return r, db, ctrl
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoom(t *testing.T) {
	router, db, _ := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/rooms", CreateRoomRequest{Name: "lounge"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CreateRoomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "lounge" || resp.IsPrivate {
		t.Fatalf("unexpected response: %+v", resp)
	}

	room, err := db.GetRoom(context.Background(), uuid.MustParse(resp.ID))
	if err != nil || room == nil {
		t.Fatalf("room not persisted: %v", err)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	cases := []struct {
		name string
		req  CreateRoomRequest
	}{
		{"empty name", CreateRoomRequest{Name: ""}},
		{"bad characters", CreateRoomRequest{Name: "no spaces!"}},
		{"private without key", CreateRoomRequest{Name: "secret", IsPrivate: true}},
		{"private short key", CreateRoomRequest{Name: "secret", IsPrivate: true, Key: "short"}},
	}

	for _, tc := range cases {
		rec := doJSON(t, router, "POST", "/rooms", tc.req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestCreateRoomPrivateHashesKey(t *testing.T) {
	router, db, _ := newTestRouter(t)

	key := "a-long-enough-invite-key"
	rec := doJSON(t, router, "POST", "/rooms", CreateRoomRequest{Name: "secret", IsPrivate: true, Key: key})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CreateRoomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	hash, err := db.GetRoomKeyHash(context.Background(), uuid.MustParse(resp.ID))
	if err != nil {
		t.Fatal(err)
	}
	if hash == "" || hash == key {
		t.Fatal("key should be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		t.Fatalf("hash does not match key: %v", err)
	}
}

func TestListRooms(t *testing.T) {
	router, db, _ := newTestRouter(t)

	db.CreateRoom(context.Background(), "one", false, "")
	db.CreateRoom(context.Background(), "two", false, "")
	db.CreateRoom(context.Background(), "hidden", true, "hash")

	rec := doJSON(t, router, "GET", "/rooms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp RoomListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Rooms) != 2 {
		t.Fatalf("expected 2 public rooms, got total=%d len=%d", resp.Total, len(resp.Rooms))
	}
}

func TestGetRoomNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/rooms/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/rooms/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad UUID, got %d", rec.Code)
	}
}

func TestPrivateRoomRequiresKey(t *testing.T) {
	router, db, _ := newTestRouter(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("the-room-invite-key"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}
	room, err := db.CreateRoom(context.Background(), "secret", true, string(hash))
	if err != nil {
		t.Fatal(err)
	}

	// No key header
	rec := doJSON(t, router, "GET", "/rooms/"+room.ID.String()+"/messages", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without key, got %d", rec.Code)
	}

	// Wrong key
	req := httptest.NewRequest("GET", "/rooms/"+room.ID.String()+"/messages", nil)
	req.Header.Set(RoomKeyHeader, "wrong-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", rec.Code)
	}
}

func TestPostMessageValidation(t *testing.T) {
	router, db, _ := newTestRouter(t)

	room, err := db.CreateRoom(context.Background(), "general", false, "")
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, "POST", "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{Name: "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", rec.Code)
	}

	long := make([]byte, maxMessageTextBytes+1)
	for i := range long {
		long[i] = 'x'
	}
	rec = doJSON(t, router, "POST", "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{Name: "alice", Text: string(long)})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for oversized text, got %d", rec.Code)
	}

	rec = doJSON(t, router, "POST", "/rooms/"+uuid.NewString()+"/messages", PostMessageRequest{Name: "alice", Text: "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", rec.Code)
	}
}

func TestOnline(t *testing.T) {
	router, _, ctrl := newTestRouter(t)

	ctrl.Connect("c1", "alice", nopSender{})
	ctrl.Connect("c2", "", nopSender{})

	rec := doJSON(t, router, "GET", "/online", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp OnlineResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 online users, got %d", resp.Total)
	}

	names := map[string]bool{}
	for _, u := range resp.Users {
		names[u.Name] = true
	}
	if !names["alice"] || !names[realtime.DefaultDisplayName] {
		t.Fatalf("unexpected users: %+v", resp.Users)
	}
}

func TestStats(t *testing.T) {
	router, db, ctrl := newTestRouter(t)

	room, _ := db.CreateRoom(context.Background(), "general", false, "")
	db.IncrementMessageCount(context.Background(), room.ID)
	db.IncrementMessageCount(context.Background(), room.ID)
	ctrl.Connect("c1", "alice", nopSender{})

	rec := doJSON(t, router, "GET", "/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.OnlineUsers != 1 || resp.TotalRooms != 1 || resp.TotalMessages != 2 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
	if len(resp.TopRooms) != 1 || resp.TopRooms[0].Name != "general" {
		t.Fatalf("unexpected top rooms: %+v", resp.TopRooms)
	}
}

// nopSender drops every event.
type nopSender struct{}

func (nopSender) Send(event string, payload any) error { return nil }
