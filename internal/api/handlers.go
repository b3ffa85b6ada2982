package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"homekeys/server/internal/catalog"
	"homekeys/server/internal/conversation"
	"homekeys/server/internal/mapview"
	"homekeys/server/internal/models"
	"homekeys/server/internal/pagination"
	"homekeys/server/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CallRequester places outbound calls
type CallRequester interface {
	Request(ctx context.Context, req models.CallRequest) (models.CallOutcome, error)
}

// Dependencies are the services the handlers read from
type Dependencies struct {
	Store    *catalog.Store
	Sessions *selection.Manager
	Journal  *conversation.Journal
	Calls    CallRequester
	// Locator is optional; without it only listings with coordinates are placed
	Locator  mapview.Locator
	Region   mapview.Viewport
	PageSize int
	// Interval paces the conversation stream
	Interval time.Duration
}

type Handler struct {
	store    *catalog.Store
	sessions *selection.Manager
	journal  *conversation.Journal
	calls    CallRequester
	locator  mapview.Locator
	region   mapview.Viewport
	pageSize int
	interval time.Duration
	logger   *logrus.Logger
}

func NewHandler(deps Dependencies, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if deps.Store == nil {
		deps.Store = catalog.Empty()
	}
	if deps.PageSize < 1 {
		deps.PageSize = pagination.DefaultPageSize
	}
	if deps.Sessions == nil {
		deps.Sessions = selection.NewManager(deps.Store, deps.PageSize, logger)
	}
	if deps.Journal == nil {
		deps.Journal = conversation.NewJournal(0)
	}
	if deps.Interval <= 0 {
		deps.Interval = conversation.DefaultInterval
	}

	return &Handler{
		store:    deps.Store,
		sessions: deps.Sessions,
		journal:  deps.Journal,
		calls:    deps.Calls,
		locator:  deps.Locator,
		region:   deps.Region,
		pageSize: deps.PageSize,
		interval: deps.Interval,
		logger:   logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"properties": h.store.Len(),
		"sessions":   h.sessions.Len(),
	})
}
