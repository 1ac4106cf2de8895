package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/models"
)

// visitorIDHeader carries the anonymous visitor id on requests that have no
// Authorization header.
const visitorIDHeader = "X-Visitor-Id"

// SongHandler handles API endpoints for song creation and management.
type SongHandler struct {
	songService core.SongService
	log         *zap.Logger
}

// NewSongHandler creates a new SongHandler.
func NewSongHandler(ss core.SongService, logger *zap.Logger) *SongHandler {
	return &SongHandler{songService: ss, log: logger}
}

// mapSongErrorToStatus maps errors from core.SongService to HTTP status codes.
func (h *SongHandler) mapSongErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrSongNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrSongNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	case errors.Is(err, core.ErrNotEligible), errors.Is(err, core.ErrNoCredits):
		// 402: the remedy is purchasing credits.
		statusCode = http.StatusPaymentRequired
		errResponse = ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
		errResponse = ErrorResponse{Error: core.ErrRateLimited.Error()}
	default:
		h.log.Error("Unexpected song service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// callerIdentity resolves the caller from the optional-auth context: a user
// id set by the auth middleware wins, otherwise the visitor id supplied by
// the client identifies an anonymous caller.
func callerIdentity(c *gin.Context, visitorID string) (core.Identity, bool) {
	if userID, exists := c.Get("userID"); exists {
		return core.Authenticated(userID.(string)), true
	}
	if visitorID == "" {
		visitorID = c.GetHeader(visitorIDHeader)
	}
	if visitorID == "" {
		visitorID = c.Query("visitorId")
	}
	if visitorID == "" {
		return core.Identity{}, false
	}
	return core.Anonymous(visitorID), true
}

// CreateSong handles POST /songs
func (h *SongHandler) CreateSong(c *gin.Context) {
	var req models.CreateSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	caller, ok := callerIdentity(c, req.VisitorID)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either authentication or a visitorId is required"})
		return
	}

	song, err := h.songService.CreateSong(c.Request.Context(), caller, req)
	if err != nil {
		h.mapSongErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

// ListSongs handles GET /songs
func (h *SongHandler) ListSongs(c *gin.Context) {
	caller, ok := callerIdentity(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either authentication or a visitorId is required"})
		return
	}

	songs, err := h.songService.GetUserSongs(c.Request.Context(), caller)
	if err != nil {
		h.mapSongErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

// GetSong handles GET /songs/:songId
func (h *SongHandler) GetSong(c *gin.Context) {
	caller, ok := callerIdentity(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either authentication or a visitorId is required"})
		return
	}
	songID := c.Param("songId")
	if songID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Song ID is required"})
		return
	}

	song, err := h.songService.GetSongByID(c.Request.Context(), caller, songID)
	if err != nil {
		h.mapSongErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// SaveSong handles POST /songs/:songId/save
func (h *SongHandler) SaveSong(c *gin.Context) {
	caller, ok := callerIdentity(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either authentication or a visitorId is required"})
		return
	}
	songID := c.Param("songId")
	if songID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Song ID is required"})
		return
	}

	var req models.SaveSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	song, err := h.songService.SaveSong(c.Request.Context(), caller, songID, req)
	if err != nil {
		h.mapSongErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// DeleteSong handles DELETE /songs/:songId
func (h *SongHandler) DeleteSong(c *gin.Context) {
	caller, ok := callerIdentity(c, "")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either authentication or a visitorId is required"})
		return
	}
	songID := c.Param("songId")
	if songID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Song ID is required"})
		return
	}

	if err := h.songService.DeleteSong(c.Request.Context(), caller, songID); err != nil {
		h.mapSongErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
