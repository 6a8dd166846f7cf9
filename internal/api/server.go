// Package api serves the local status and control endpoints of the sync daemon.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/repository"
	"github.com/vipul43/tillsync/internal/syncer"
)

// Runner triggers push and pull runs; the watcher serializes them with its own schedule
type Runner interface {
	Push(ctx context.Context, organization string) (map[models.EntityType]syncer.PushReport, error)
	Pull(ctx context.Context, organization string) (map[models.EntityType]syncer.PullReport, error)
	LastRuns() (push, pull time.Time)
}

type CacheInspector interface {
	CachedDataState(ctx context.Context) (map[models.EntityType]bool, error)
}

type MetadataStore interface {
	List(ctx context.Context) ([]models.SyncMetadata, error)
	Reset(ctx context.Context, entityType models.EntityType) error
}

type OperationAdmin interface {
	Stats(ctx context.Context, threshold int) ([]repository.OperationStats, error)
	Requeue(ctx context.Context, entityType models.EntityType, threshold int) (int64, error)
}

type Options struct {
	Runner       Runner
	Cache        CacheInspector
	Metadata     MetadataStore
	Operations   OperationAdmin
	Gatherer     prometheus.Gatherer
	Organization string
	// OrganizationID stamps records written through the API
	OrganizationID string
	// Records mounts the write path routes when set
	Records *Records
	// MaxFailedAttempts separates retrying rows from parked ones in stats and requeue
	MaxFailedAttempts int
}

type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{opts: opts}
}

// Handler returns the gin engine with every route mounted
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.POST("/sync/push", s.handlePush)
		v1.POST("/sync/pull", s.handlePull)
		v1.POST("/sync/reset", s.handleReset)
		v1.POST("/operations/requeue", s.handleRequeue)
	}
	s.mountRecords(v1)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	return r
}

type entityStatus struct {
	EntityType        models.EntityType `json:"entity_type"`
	HasCachedData     bool              `json:"has_cached_data"`
	LastSyncTimestamp *int64            `json:"last_sync_timestamp,omitempty"`
	LastSyncSuccess   bool              `json:"last_sync_success"`
	LastSyncMode      *models.SyncMode  `json:"last_sync_mode,omitempty"`
	LastError         *string           `json:"last_error,omitempty"`
	RetryCount        int               `json:"retry_count"`
	Pending           int64             `json:"pending"`
	Failed            int64             `json:"failed"`
}

type statusResponse struct {
	Organization string         `json:"organization"`
	LastPush     *time.Time     `json:"last_push,omitempty"`
	LastPull     *time.Time     `json:"last_pull,omitempty"`
	Entities     []entityStatus `json:"entities"`
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	cached, err := s.opts.Cache.CachedDataState(ctx)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	metadata, err := s.opts.Metadata.List(ctx)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	stats, err := s.opts.Operations.Stats(ctx, s.opts.MaxFailedAttempts)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}

	byEntity := make(map[models.EntityType]*entityStatus)
	row := func(entity models.EntityType) *entityStatus {
		st, ok := byEntity[entity]
		if !ok {
			st = &entityStatus{EntityType: entity}
			byEntity[entity] = st
		}
		return st
	}
	for entity, has := range cached {
		row(entity).HasCachedData = has
	}
	for _, m := range metadata {
		st := row(m.EntityType)
		st.LastSyncTimestamp = m.LastSyncTimestamp
		st.LastSyncSuccess = m.LastSyncSuccess
		st.LastSyncMode = m.LastSyncMode
		st.LastError = m.LastError
		st.RetryCount = m.RetryCount
	}
	for _, op := range stats {
		st := row(op.EntityType)
		st.Pending = op.Pending
		st.Failed = op.Failed
	}

	resp := statusResponse{Organization: s.organization(c), Entities: make([]entityStatus, 0, len(byEntity))}
	for _, st := range byEntity {
		resp.Entities = append(resp.Entities, *st)
	}
	sort.Slice(resp.Entities, func(i, j int) bool {
		return resp.Entities[i].EntityType < resp.Entities[j].EntityType
	})
	push, pull := s.opts.Runner.LastRuns()
	if !push.IsZero() {
		resp.LastPush = &push
	}
	if !pull.IsZero() {
		resp.LastPull = &pull
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePush(c *gin.Context) {
	// an explicit org narrows the push; no org pushes every organization
	reports, err := s.opts.Runner.Push(c.Request.Context(), c.Query("org"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"reports": reports, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) handlePull(c *gin.Context) {
	org := s.organization(c)
	if org == "" {
		abortError(c, http.StatusBadRequest, errors.New("org is required"))
		return
	}

	reports, err := s.opts.Runner.Pull(c.Request.Context(), org)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"organization": org, "reports": reports, "errors": splitErrors(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org, "reports": reports})
}

func (s *Server) handleRequeue(c *gin.Context) {
	entity := models.EntityType(c.Query("entity"))
	n, err := s.opts.Operations.Requeue(c.Request.Context(), entity, s.opts.MaxFailedAttempts)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_type": entity, "requeued": n})
}

// handleReset forgets pull watermarks so the next pull of those entities is full
func (s *Server) handleReset(c *gin.Context) {
	ctx := c.Request.Context()

	entities := []models.EntityType{}
	if entity := c.Query("entity"); entity != "" {
		entities = append(entities, models.EntityType(entity))
	} else {
		metadata, err := s.opts.Metadata.List(ctx)
		if err != nil {
			abortError(c, http.StatusInternalServerError, err)
			return
		}
		for _, m := range metadata {
			entities = append(entities, m.EntityType)
		}
	}

	for _, entity := range entities {
		if err := s.opts.Metadata.Reset(ctx, entity); err != nil {
			abortError(c, http.StatusInternalServerError, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"reset": entities})
}

func (s *Server) organization(c *gin.Context) string {
	if org := c.Query("org"); org != "" {
		return org
	}
	return s.opts.Organization
}

// splitErrors unpacks an errors.Join result into one message per entity type
func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

func abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
