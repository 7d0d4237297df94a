package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"github.com/google/uuid"
)

var contentTypes = map[feedFormat]string{
	formatRSS:  "application/rss+xml; charset=utf-8",
	formatAtom: "application/atom+xml; charset=utf-8",
	formatJSON: "application/json; charset=utf-8",
}

func renderFeed(feed *feeds.Feed, format feedFormat) (string, error) {
	switch format {
	case formatAtom:
		return feed.ToAtom()
	case formatJSON:
		return feed.ToJSON()
	default:
		return feed.ToRss()
	}
}

func (s *Server) writeFeed(c *gin.Context, feed *feeds.Feed, format feedFormat) {
	out, err := renderFeed(feed, format)
	if err != nil {
		log.Printf("Feeds: Failed to render %s feed: %v", format, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render feed"})
		return
	}
	c.Data(http.StatusOK, contentTypes[format], []byte(out))
}

func (s *Server) baseURL() string {
	return fmt.Sprintf("https://%s", s.conf.Conf.SslDomain)
}

// feedLookupFailed answers a failed filter lookup, 404 when the entity does not exist
func feedLookupFailed(c *gin.Context, what string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	log.Printf("Feeds: Failed to read %s: %v", what, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read " + what})
}

func (s *Server) handleVideosFeed(c *gin.Context) {
	q, format, err := validateVideosFeedQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	title := s.conf.Conf.SslDomain
	link := s.baseURL() + "/videos"
	var filter db.VideoFilter

	// every filter that is present must resolve, the name form wins over the id form
	var account *domain.Account
	if q.AccountId != "" {
		if account, err = s.db.ReadAccountById(ctx, parseOptionalId(q.AccountId)); err != nil {
			feedLookupFailed(c, "Account", err)
			return
		}
	}
	if q.AccountName != "" {
		if account, err = s.db.ReadAccountByNameWithHost(ctx, q.AccountName); err != nil {
			feedLookupFailed(c, "Account", err)
			return
		}
	}
	if account != nil {
		filter.AccountId = account.Id
		title = account.Name
		link = account.Actor.URL
	}

	var channel *domain.VideoChannel
	if q.VideoChannelId != "" {
		if channel, err = s.db.ReadVideoChannelById(ctx, parseOptionalId(q.VideoChannelId)); err != nil {
			feedLookupFailed(c, "Video channel", err)
			return
		}
	}
	if q.VideoChannelName != "" {
		if channel, err = s.db.ReadVideoChannelByNameWithHost(ctx, q.VideoChannelName); err != nil {
			feedLookupFailed(c, "Video channel", err)
			return
		}
	}
	if channel != nil {
		filter.ChannelId = channel.Id
		title = channel.Name
		link = channel.Actor.URL
	}

	videos, err := s.db.ListVideos(ctx, filter, s.conf.Conf.FeedLimit)
	if err != nil {
		log.Printf("Feeds: Failed to list videos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list videos"})
		return
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Latest videos on " + s.conf.Conf.SslDomain,
		Created:     time.Now(),
	}
	for _, video := range videos {
		item := &feeds.Item{
			Id:          video.URL,
			Title:       video.Name,
			Link:        &feeds.Link{Href: video.URL},
			Description: video.Description,
			Created:     video.CreatedAt,
		}
		if owner := video.OwnerActor(); owner != nil {
			item.Author = &feeds.Author{Name: video.Channel.Account.Name, Email: owner.PreferredUsername + "@" + owner.Host}
		}
		feed.Items = append(feed.Items, item)
	}

	s.writeFeed(c, feed, format)
}

func (s *Server) handleVideoCommentsFeed(c *gin.Context) {
	q, format, err := validateCommentsFeedQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	title := s.conf.Conf.SslDomain + " - Comments"
	link := s.baseURL()
	videoId := uuid.Nil

	if q.VideoId != "" {
		video, err := s.db.ReadVideoById(ctx, nil, parseOptionalId(q.VideoId))
		if err != nil {
			feedLookupFailed(c, "Video", err)
			return
		}
		videoId = video.Id
		title = video.Name + " - Comments"
		link = video.URL
	}

	comments, err := s.db.ListVideoComments(ctx, videoId, s.conf.Conf.FeedLimit)
	if err != nil {
		log.Printf("Feeds: Failed to list comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comments"})
		return
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Latest comments on " + s.conf.Conf.SslDomain,
		Created:     time.Now(),
	}
	for _, comment := range comments {
		author := comment.Actor.PreferredUsername + "@" + comment.Actor.Host
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      comment.URL,
			Title:   "Comment by " + author,
			Link:    &feeds.Link{Href: comment.URL},
			Content: comment.Text,
			Author:  &feeds.Author{Name: author},
			Created: comment.CreatedAt,
		})
	}

	s.writeFeed(c, feed, format)
}
