package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/deemkeen/fanout/activitypub"
	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/gin-gonic/gin"
)

type actorKind string

const (
	kindAccounts      actorKind = "accounts"
	kindVideoChannels actorKind = "video-channels"
)

func getIRI(sslDomain string, kind actorKind, name string) string {
	return fmt.Sprintf("https://%s/%s/%s", sslDomain, kind, name)
}

func actorDocument(actor *domain.Actor) gin.H {
	return gin.H{
		"@context":          []string{activitypub.ContextActivityStreams, "https://w3id.org/security/v1"},
		"id":                actor.URL,
		"type":              actor.Type,
		"preferredUsername": actor.PreferredUsername,
		"name":              actor.PreferredUsername,
		"url":               actor.URL,
		"inbox":             actor.InboxURL,
		"outbox":            actor.URL + "/outbox",
		"followers":         actor.FollowersURL,
		"following":         actor.URL + "/following",
		"endpoints": gin.H{
			"sharedInbox": actor.SharedInboxURL,
		},
	}
}

func (s *Server) localActor(c *gin.Context, kind actorKind) (*domain.Actor, bool) {
	actor, err := s.db.ReadActorByURL(c.Request.Context(), nil, getIRI(s.conf.Conf.SslDomain, kind, c.Param("name")))
	if err == nil && actor.Local {
		return actor, true
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read actor"})
		return nil, false
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
	return nil, false
}

func (s *Server) handleActor(kind actorKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := s.localActor(c, kind)
		if !ok {
			return
		}
		c.Header("Content-Type", activityJSON)
		c.JSON(http.StatusOK, actorDocument(actor))
	}
}

func (s *Server) handleFollowers(kind actorKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := s.localActor(c, kind)
		if !ok {
			return
		}

		total, err := s.db.CountAcceptedFollowers(c.Request.Context(), actor.Id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count followers"})
			return
		}

		c.Header("Content-Type", activityJSON)
		c.JSON(http.StatusOK, gin.H{
			"@context":   activitypub.ContextActivityStreams,
			"id":         actor.FollowersURL,
			"type":       "OrderedCollection",
			"totalItems": total,
		})
	}
}
