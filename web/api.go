package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/fanout/activitypub"
	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createCommentRequest struct {
	ActorId string `json:"actorId" binding:"required,uuid"`
	Text    string `json:"text" binding:"required,max=10000"`
}

type rateVideoRequest struct {
	ActorId string `json:"actorId" binding:"required,uuid"`
	Rating  string `json:"rating" binding:"required,oneof=like dislike"`
}

type jobResponse struct {
	Id          uuid.UUID       `json:"id"`
	Type        domain.JobType  `json:"type"`
	Attempts    int             `json:"attempts"`
	NextRetryAt time.Time       `json:"nextRetryAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	Payload     json.RawMessage `json:"payload"`
}

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 100
)

// apiError answers with the status matching err
func apiError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	log.Printf("API: Request failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

func videoIdParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return uuid.Nil, false
	}
	return id, true
}

// localActorById resolves the acting actor, which must live here
func (s *Server) localActorById(c *gin.Context, rawId string) (*domain.Actor, bool) {
	actor, err := s.db.ReadActorById(c.Request.Context(), nil, uuid.MustParse(rawId))
	if err != nil {
		apiError(c, err)
		return nil, false
	}
	if !actor.Local {
		c.JSON(http.StatusForbidden, gin.H{"error": "Actor is not local"})
		return nil, false
	}
	return actor, true
}

func (s *Server) handleCreateComment(c *gin.Context) {
	videoId, ok := videoIdParam(c)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, ok := s.localActorById(c, req.ActorId)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	comment := &domain.VideoComment{
		Id:        uuid.New(),
		VideoId:   videoId,
		ActorId:   actor.Id,
		Text:      req.Text,
		CreatedAt: time.Now(),
		Actor:     actor,
	}
	err := s.db.WithTransaction(ctx, func(tx *db.Tx) error {
		video, err := s.db.ReadVideoById(ctx, tx, videoId)
		if err != nil {
			return err
		}
		comment.URL = activitypub.CommentURL(video, comment.Id)
		if err := s.db.CreateVideoComment(ctx, tx, comment); err != nil {
			return err
		}
		return s.dist.SendVideoRelatedActivity(ctx, activitypub.CreateCommentActivity(comment, actor, video), actor, video, tx)
	})
	if err != nil {
		apiError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": comment.Id, "url": comment.URL})
}

func (s *Server) handleRateVideo(c *gin.Context) {
	videoId, ok := videoIdParam(c)
	if !ok {
		return
	}
	var req rateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, ok := s.localActorById(c, req.ActorId)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := s.db.WithTransaction(ctx, func(tx *db.Tx) error {
		video, err := s.db.ReadVideoById(ctx, tx, videoId)
		if err != nil {
			return err
		}
		rating := domain.Rating(req.Rating)
		rate := &domain.VideoRate{
			URL:     activitypub.RateURL(actor, rating, video),
			ActorId: actor.Id,
			VideoId: video.Id,
			Type:    rating,
		}
		if err := s.db.UpsertVideoRate(ctx, tx, rate); err != nil {
			return err
		}
		return s.dist.SendVideoRelatedActivity(ctx, activitypub.RateActivity(rate, actor, video), actor, video, tx)
	})
	if err != nil {
		apiError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleAddView sends a View by the server actor, nothing is stored
func (s *Server) handleAddView(c *gin.Context) {
	videoId, ok := videoIdParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := s.sendView(ctx, videoId); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sendView(ctx context.Context, videoId uuid.UUID) error {
	serverActor, err := s.serverActor.Get(ctx)
	if err != nil {
		return err
	}
	video, err := s.db.ReadVideoById(ctx, nil, videoId)
	if err != nil {
		return err
	}
	build := activitypub.ViewActivity(activitypub.ViewURL(video), serverActor, video)
	return s.dist.SendVideoRelatedActivity(ctx, build, serverActor, video, nil)
}

func (s *Server) handleListJobs(c *gin.Context) {
	limit := defaultJobsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJobsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	jobs, err := s.db.ReadPendingJobs(c.Request.Context(), limit)
	if err != nil {
		apiError(c, err)
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobResponse{
			Id:          job.Id,
			Type:        job.Type,
			Attempts:    job.Attempts,
			NextRetryAt: job.NextRetryAt,
			CreatedAt:   job.CreatedAt,
			Payload:     job.Payload,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "data": out})
}
