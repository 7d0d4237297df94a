package web

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type feedFormat string

const (
	formatRSS  feedFormat = "rss"
	formatAtom feedFormat = "atom"
	formatJSON feedFormat = "json"
)

var feedFormats = map[string]feedFormat{
	"xml":   formatRSS,
	"rss":   formatRSS,
	"rss2":  formatRSS,
	"atom":  formatAtom,
	"atom1": formatAtom,
	"json":  formatJSON,
	"json1": formatJSON,
}

type videosFeedQuery struct {
	Format           string `form:"format"`
	AccountId        string `form:"accountId" binding:"omitempty,uuid"`
	AccountName      string `form:"accountName" binding:"omitempty,max=255"`
	VideoChannelId   string `form:"videoChannelId" binding:"omitempty,uuid"`
	VideoChannelName string `form:"videoChannelName" binding:"omitempty,max=255"`
}

type commentsFeedQuery struct {
	Format  string `form:"format"`
	VideoId string `form:"videoId" binding:"omitempty,uuid"`
}

// parseFeedFormat reads the format from the path, then the query, defaulting to RSS.
// A query format is checked even when the path one is used.
func parseFeedFormat(c *gin.Context, query string) (feedFormat, error) {
	format := formatRSS
	if query != "" {
		f, ok := feedFormats[strings.ToLower(query)]
		if !ok {
			return "", errors.New("unknown feed format " + query)
		}
		format = f
	}
	if raw := c.Param("format"); raw != "" {
		f, ok := feedFormats[strings.ToLower(raw)]
		if !ok {
			return "", errors.New("unknown feed format " + raw)
		}
		format = f
	}
	return format, nil
}

func validateVideosFeedQuery(c *gin.Context) (*videosFeedQuery, feedFormat, error) {
	var q videosFeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return nil, "", err
	}
	format, err := parseFeedFormat(c, q.Format)
	if err != nil {
		return nil, "", err
	}
	return &q, format, nil
}

func validateCommentsFeedQuery(c *gin.Context) (*commentsFeedQuery, feedFormat, error) {
	var q commentsFeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return nil, "", err
	}
	format, err := parseFeedFormat(c, q.Format)
	if err != nil {
		return nil, "", err
	}
	return &q, format, nil
}

// parseOptionalId parses an already validated id, empty gives uuid.Nil
func parseOptionalId(id string) uuid.UUID {
	if id == "" {
		return uuid.Nil
	}
	return uuid.MustParse(id)
}
