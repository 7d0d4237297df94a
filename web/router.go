package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/deemkeen/fanout/activitypub"
	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

const activityJSON = "application/activity+json; charset=utf-8"

// Server holds what the HTTP handlers need
type Server struct {
	conf        *util.AppConfig
	db          *db.DB
	dist        *activitypub.Distributor
	inbox       *activitypub.Inbox
	serverActor *activitypub.ServerActor
}

func NewServer(conf *util.AppConfig, database *db.DB, dist *activitypub.Distributor, inbox *activitypub.Inbox, serverActor *activitypub.ServerActor) *Server {
	return &Server{conf: conf, db: database, dist: dist, inbox: inbox, serverActor: serverActor}
}

// Handler builds the gin engine with every route
func (s *Server) Handler() *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	g.Use(RateLimit(s.conf.Conf.GlobalRateLimit, s.conf.Conf.GlobalBurst))

	g.GET("/feeds/videos", s.handleVideosFeed)
	g.GET("/feeds/videos/:format", s.handleVideosFeed)
	g.GET("/feeds/video-comments", s.handleVideoCommentsFeed)
	g.GET("/feeds/video-comments/:format", s.handleVideoCommentsFeed)

	if !s.conf.Conf.WithAp {
		return g
	}

	apLimiter := RateLimit(s.conf.Conf.InboxRateLimit, s.conf.Conf.InboxBurst)

	// Max 1MB request body size for ActivityPub activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	g.POST("/inbox", apLimiter, maxBodySize, s.handleInbox)
	g.POST("/accounts/:name/inbox", apLimiter, maxBodySize, s.handleInbox)
	g.POST("/video-channels/:name/inbox", apLimiter, maxBodySize, s.handleInbox)

	g.GET("/accounts/:name", s.handleActor(kindAccounts))
	g.GET("/video-channels/:name", s.handleActor(kindVideoChannels))
	g.GET("/accounts/:name/followers", s.handleFollowers(kindAccounts))
	g.GET("/video-channels/:name/followers", s.handleFollowers(kindVideoChannels))

	api := g.Group("/api/v1", apLimiter, maxBodySize)
	api.POST("/videos/:id/comments", s.handleCreateComment)
	api.POST("/videos/:id/rate", s.handleRateVideo)
	api.POST("/videos/:id/views", s.handleAddView)
	api.GET("/jobs", s.handleListJobs)

	return g
}

func (s *Server) handleInbox(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("Inbox: Failed to read body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	err = s.inbox.Handle(c.Request.Context(), body)
	switch {
	case errors.Is(err, activitypub.ErrInvalidActivity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid activity"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process activity"})
	default:
		c.Status(http.StatusNoContent)
	}
}
