package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/models"
)

// stubSongService records the caller identity each operation saw.
type stubSongService struct {
	lastCaller core.Identity
	err        error
}

func (s *stubSongService) CreateSong(ctx context.Context, caller core.Identity, req models.CreateSongRequest) (*models.SongRecord, error) {
	s.lastCaller = caller
	if s.err != nil {
		return nil, s.err
	}
	return &models.SongRecord{ID: "song-1", UserID: caller.StorageID(), Name: req.Name, Status: models.SongStatusPending}, nil
}

func (s *stubSongService) GetUserSongs(ctx context.Context, caller core.Identity) ([]*models.SongRecord, error) {
	s.lastCaller = caller
	return nil, s.err
}

func (s *stubSongService) GetSongByID(ctx context.Context, caller core.Identity, songID string) (*models.SongRecord, error) {
	s.lastCaller = caller
	if s.err != nil {
		return nil, s.err
	}
	return &models.SongRecord{ID: songID, UserID: caller.StorageID()}, nil
}

func (s *stubSongService) SaveSong(ctx context.Context, caller core.Identity, songID string, req models.SaveSongRequest) (*models.SongRecord, error) {
	s.lastCaller = caller
	if s.err != nil {
		return nil, s.err
	}
	return &models.SongRecord{ID: songID, UserID: caller.StorageID()}, nil
}

func (s *stubSongService) DeleteSong(ctx context.Context, caller core.Identity, songID string) error {
	s.lastCaller = caller
	return s.err
}

func newSongRouter(svc core.SongService, authedUserID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if authedUserID != "" {
		router.Use(func(c *gin.Context) { c.Set("userID", authedUserID) })
	}
	handler := NewSongHandler(svc, zap.NewNop())
	router.POST("/songs", handler.CreateSong)
	router.GET("/songs", handler.ListSongs)
	return router
}

var createBody = []byte(`{"name":"For Dad","celebrationType":"birthday","style":"rock"}`)

func TestCreateSong_AuthenticatedCaller(t *testing.T) {
	svc := &stubSongService{}
	router := newSongRouter(svc, "uid-1")

	req := httptest.NewRequest(http.MethodPost, "/songs", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastCaller.IsAnonymous() || svc.lastCaller.UserID() != "uid-1" {
		t.Errorf("service saw caller %+v", svc.lastCaller)
	}
}

func TestCreateSong_AnonymousCallerViaBody(t *testing.T) {
	svc := &stubSongService{}
	router := newSongRouter(svc, "")

	body := []byte(`{"name":"For Dad","celebrationType":"birthday","style":"rock","visitorId":"vis-7"}`)
	req := httptest.NewRequest(http.MethodPost, "/songs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !svc.lastCaller.IsAnonymous() {
		t.Errorf("service saw caller %+v, want anonymous", svc.lastCaller)
	}
}

func TestCreateSong_NoIdentityRejected(t *testing.T) {
	svc := &stubSongService{}
	router := newSongRouter(svc, "")

	req := httptest.NewRequest(http.MethodPost, "/songs", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateSong_NoCreditsMapsTo402(t *testing.T) {
	svc := &stubSongService{err: core.ErrNotEligible}
	router := newSongRouter(svc, "uid-1")

	req := httptest.NewRequest(http.MethodPost, "/songs", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", w.Code)
	}
}

func TestListSongs_AnonymousViaHeader(t *testing.T) {
	svc := &stubSongService{}
	router := newSongRouter(svc, "")

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	req.Header.Set("X-Visitor-Id", "vis-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastCaller != core.Anonymous("vis-7") {
		t.Errorf("service saw caller %+v", svc.lastCaller)
	}
}
