package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/credential"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/progress"
)

var errMissingBackend = errors.New("backend dependency required")

// Backend is the application surface the HTTP API exposes.
type Backend interface {
	Groups(mode kanji.FilterMode) []kanji.LevelGroup
	Group(level int, mode kanji.FilterMode) (kanji.LevelGroup, bool)
	Find(level int, character string) (kanji.Record, bool)
	Update(id string, changes kanji.Changes) (bool, error)
	ImportImage(id string, r io.Reader) (bool, error)
	Progress() progress.Snapshot
	SyncNow(ctx context.Context) error
	SaveCredential(ctx context.Context, key string) error
	Notifications() []notify.Notification
	Dismiss(id string) bool
}

// Dependencies configure NewHTTPHandler.
type Dependencies struct {
	Backend Backend
	Logger  *zap.Logger
	// AllowOrigins lists extra CORS origins. Loopback origins are always
	// allowed.
	AllowOrigins []string
}

// NewHTTPHandler builds the gin router for the local API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Backend == nil {
		return nil, errMissingBackend
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowOrigins...))

	handler := &httpHandler{
		backend: deps.Backend,
		logger:  logger,
	}

	api := router.Group("/api")
	api.GET("/levels", handler.handleListLevels)
	api.GET("/levels/:level", handler.handleGetLevel)
	api.GET("/kanji/:level/:character", handler.handleGetKanji)
	api.PATCH("/kanji/:id", handler.handleUpdateKanji)
	api.POST("/kanji/:id/image", handler.handleUploadImage)
	api.GET("/progress", handler.handleGetProgress)
	api.POST("/progress/sync", handler.handleSync)
	api.PUT("/credential", handler.handleSaveCredential)
	api.GET("/notifications", handler.handleListNotifications)
	api.DELETE("/notifications/:id", handler.handleDismissNotification)

	return router, nil
}

func corsMiddleware(extra ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(extra))
	for _, origin := range extra {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if _, ok := allowed[origin]; ok {
				return true
			}
			return isLoopbackOrigin(origin)
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	})
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

type httpHandler struct {
	backend Backend
	logger  *zap.Logger
}

type levelsResponsePayload struct {
	Filter kanji.FilterMode   `json:"filter"`
	Levels []kanji.LevelGroup `json:"levels"`
}

func (h *httpHandler) handleListLevels(c *gin.Context) {
	mode := kanji.ParseFilterMode(c.Query("filter"))
	c.JSON(http.StatusOK, levelsResponsePayload{Filter: mode, Levels: h.backend.Groups(mode)})
}

func (h *httpHandler) handleGetLevel(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil || level <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_level"})
		return
	}
	group, ok := h.backend.Group(level, kanji.ParseFilterMode(c.Query("filter")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "level_not_found"})
		return
	}
	c.JSON(http.StatusOK, group)
}

type kanjiResponsePayload struct {
	Record    kanji.Record     `json:"record"`
	Mnemonic  string           `json:"effectiveMnemonic"`
	Learned   bool             `json:"learned"`
	Progress  *progress.Detail `json:"progress"`
	ImageType string           `json:"imageType,omitempty"`
}

func (h *httpHandler) handleGetKanji(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil || level <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_level"})
		return
	}
	record, ok := h.backend.Find(level, c.Param("character"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "kanji_not_found"})
		return
	}

	snap := h.backend.Progress()
	response := kanjiResponsePayload{
		Record:   record,
		Mnemonic: record.EffectiveMnemonic(),
		Learned:  snap.IsLearned(record.Character),
	}
	if detail, ok := snap.DetailFor(record.Character); ok {
		response.Progress = &detail
	}
	if mime, _, ok := imageimport.Describe(record.Image); ok {
		response.ImageType = mime
	}
	c.JSON(http.StatusOK, response)
}

type updateRequestPayload struct {
	Mnemonic *string `json:"mnemonic"`
	Image    *string `json:"image"`
}

func (h *httpHandler) handleUpdateKanji(c *gin.Context) {
	var request updateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Image != nil && *request.Image != "" {
		if _, _, ok := imageimport.Describe(*request.Image); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_image"})
			return
		}
	}

	changed, err := h.backend.Update(c.Param("id"), kanji.Changes{Mnemonic: request.Mnemonic, Image: request.Image})
	if err != nil {
		h.writeUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *httpHandler) handleUploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open uploaded image failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
		return
	}
	defer func() { _ = file.Close() }()

	changed, err := h.backend.ImportImage(c.Param("id"), file)
	if err != nil {
		h.writeUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *httpHandler) writeUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, kanji.ErrUnknownRecord):
		c.JSON(http.StatusNotFound, gin.H{"error": "kanji_not_found"})
	case errors.Is(err, imageimport.ErrNotImage), errors.Is(err, imageimport.ErrEmpty):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "not_an_image"})
	case errors.Is(err, imageimport.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image_too_large"})
	default:
		h.logger.Error("update kanji failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
	}
}

func (h *httpHandler) handleGetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.Progress())
}

type syncErrorPayload struct {
	Error  string `json:"error"`
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail"`
}

// syncContext detaches a sync from the request so a client disconnect
// cannot abort it halfway and reset the snapshot. The WaniKani client's
// request timeout still bounds each call.
func syncContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *httpHandler) handleSync(c *gin.Context) {
	err := h.backend.SyncNow(syncContext(c))
	if err != nil {
		h.writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.backend.Progress())
}

func (h *httpHandler) writeSyncError(c *gin.Context, err error) {
	if errors.Is(err, progress.ErrMissingCredential) {
		c.JSON(http.StatusConflict, syncErrorPayload{Error: "api_key_not_set", Detail: h.backend.Progress().LastError})
		return
	}
	payload := syncErrorPayload{Error: "sync_failed", Detail: err.Error()}
	var fetchErr *progress.FetchError
	if errors.As(err, &fetchErr) {
		payload.Stage = fetchErr.Stage
		payload.Detail = fetchErr.Detail
	}
	c.JSON(http.StatusBadGateway, payload)
}

type credentialRequestPayload struct {
	Key string `json:"key"`
}

func (h *httpHandler) handleSaveCredential(c *gin.Context) {
	var request credentialRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	err := h.backend.SaveCredential(syncContext(c), request.Key)
	switch {
	case errors.Is(err, credential.ErrBlank):
		c.JSON(http.StatusBadRequest, gin.H{"error": "blank_key", "detail": credential.BlankMessage})
		return
	case err == nil:
	case errors.Is(err, progress.ErrMissingCredential):
	default:
		var fetchErr *progress.FetchError
		if !errors.As(err, &fetchErr) {
			h.logger.Error("save credential failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
			return
		}
	}
	// The key is stored even when the follow-up sync fails; the sync
	// outcome is reported through the progress snapshot.
	c.JSON(http.StatusOK, gin.H{"saved": true, "progress": h.backend.Progress()})
}

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	notes := h.backend.Notifications()
	if notes == nil {
		notes = []notify.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

func (h *httpHandler) handleDismissNotification(c *gin.Context) {
	if !h.backend.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification_not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}
