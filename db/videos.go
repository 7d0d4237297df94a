package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/fanout/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertAccount      = `INSERT INTO accounts(id, name, actor_id) VALUES (?, ?, ?)`
	sqlInsertVideoChannel = `INSERT INTO video_channels(id, name, account_id, actor_id) VALUES (?, ?, ?, ?)`
	sqlInsertVideo        = `INSERT INTO videos(id, url, name, description, channel_id, remote, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlSelectAccountActorByVideoId = `SELECT %s FROM videos
		INNER JOIN video_channels ON video_channels.id = videos.channel_id
		INNER JOIN accounts ON accounts.id = video_channels.account_id
		INNER JOIN actors ON actors.id = accounts.actor_id
		WHERE videos.id = ?`
)

var (
	accountSelect = `SELECT accounts.id, accounts.name, accounts.actor_id, ` + actorColumns("actors") + ` FROM accounts
		INNER JOIN actors ON actors.id = accounts.actor_id `
	channelSelect = `SELECT video_channels.id, video_channels.name, video_channels.account_id, video_channels.actor_id, ` +
		actorColumns("actors") + ` FROM video_channels
		INNER JOIN actors ON actors.id = video_channels.actor_id `

	// videoSelect loads the whole channel -> account -> actor chain
	videoSelect = `SELECT videos.id, videos.url, videos.name, videos.description, videos.channel_id, videos.remote, videos.created_at,
		video_channels.id, video_channels.name, video_channels.account_id, video_channels.actor_id,
		accounts.id, accounts.name, accounts.actor_id, ` +
		actorColumns("account_actor") + `, ` + actorColumns("channel_actor") + ` FROM videos
		INNER JOIN video_channels ON video_channels.id = videos.channel_id
		INNER JOIN accounts ON accounts.id = video_channels.account_id
		INNER JOIN actors AS account_actor ON account_actor.id = accounts.actor_id
		INNER JOIN actors AS channel_actor ON channel_actor.id = video_channels.actor_id `
)

func (db *DB) CreateAccount(ctx context.Context, tx *Tx, account *domain.Account) error {
	if account.Id == uuid.Nil {
		account.Id = uuid.New()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertAccount, account.Id.String(), account.Name, account.ActorId.String())
	return err
}

func (db *DB) CreateVideoChannel(ctx context.Context, tx *Tx, channel *domain.VideoChannel) error {
	if channel.Id == uuid.Nil {
		channel.Id = uuid.New()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertVideoChannel, channel.Id.String(), channel.Name, channel.AccountId.String(), channel.ActorId.String())
	return err
}

func (db *DB) CreateVideo(ctx context.Context, tx *Tx, video *domain.Video) error {
	if video.Id == uuid.Nil {
		video.Id = uuid.New()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertVideo,
		video.Id.String(),
		video.URL,
		video.Name,
		video.Description,
		video.ChannelId.String(),
		video.Remote,
		video.CreatedAt,
	)
	return err
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var acc domain.Account
	var actor domain.Actor
	err := row.Scan(&acc.Id, &acc.Name, &acc.ActorId,
		&actor.Id, &actor.Type, &actor.PreferredUsername, &actor.Host, &actor.URL, &actor.InboxURL,
		&actor.SharedInboxURL, &actor.FollowersURL, &actor.Local, &actor.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Actor = &actor
	return &acc, nil
}

func scanChannel(row rowScanner) (*domain.VideoChannel, error) {
	var ch domain.VideoChannel
	var actor domain.Actor
	err := row.Scan(&ch.Id, &ch.Name, &ch.AccountId, &ch.ActorId,
		&actor.Id, &actor.Type, &actor.PreferredUsername, &actor.Host, &actor.URL, &actor.InboxURL,
		&actor.SharedInboxURL, &actor.FollowersURL, &actor.Local, &actor.CreatedAt)
	if err != nil {
		return nil, err
	}
	ch.Actor = &actor
	return &ch, nil
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var v domain.Video
	var ch domain.VideoChannel
	var acc domain.Account
	var accActor, chActor domain.Actor
	err := row.Scan(&v.Id, &v.URL, &v.Name, &v.Description, &v.ChannelId, &v.Remote, &v.CreatedAt,
		&ch.Id, &ch.Name, &ch.AccountId, &ch.ActorId,
		&acc.Id, &acc.Name, &acc.ActorId,
		&accActor.Id, &accActor.Type, &accActor.PreferredUsername, &accActor.Host, &accActor.URL, &accActor.InboxURL,
		&accActor.SharedInboxURL, &accActor.FollowersURL, &accActor.Local, &accActor.CreatedAt,
		&chActor.Id, &chActor.Type, &chActor.PreferredUsername, &chActor.Host, &chActor.URL, &chActor.InboxURL,
		&chActor.SharedInboxURL, &chActor.FollowersURL, &chActor.Local, &chActor.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Actor = &accActor
	ch.Account = &acc
	ch.Actor = &chActor
	v.Channel = &ch
	return &v, nil
}

func (db *DB) ReadAccountById(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := scanAccount(db.db.QueryRowContext(ctx, accountSelect+`WHERE accounts.id = ?`, id.String()))
	return acc, notFound(err)
}

// ReadAccountByNameWithHost resolves "name" (local) or "name@host"
func (db *DB) ReadAccountByNameWithHost(ctx context.Context, nameWithHost string) (*domain.Account, error) {
	name, host := splitNameWithHost(nameWithHost)
	query := accountSelect + `WHERE accounts.name = ? AND actors.local = 1`
	args := []any{name}
	if host != "" {
		query = accountSelect + `WHERE accounts.name = ? AND actors.host = ?`
		args = append(args, host)
	}
	acc, err := scanAccount(db.db.QueryRowContext(ctx, query, args...))
	return acc, notFound(err)
}

func (db *DB) ReadVideoChannelById(ctx context.Context, id uuid.UUID) (*domain.VideoChannel, error) {
	ch, err := scanChannel(db.db.QueryRowContext(ctx, channelSelect+`WHERE video_channels.id = ?`, id.String()))
	return ch, notFound(err)
}

// ReadVideoChannelByNameWithHost resolves "name" (local) or "name@host"
func (db *DB) ReadVideoChannelByNameWithHost(ctx context.Context, nameWithHost string) (*domain.VideoChannel, error) {
	name, host := splitNameWithHost(nameWithHost)
	query := channelSelect + `WHERE video_channels.name = ? AND actors.local = 1`
	args := []any{name}
	if host != "" {
		query = channelSelect + `WHERE video_channels.name = ? AND actors.host = ?`
		args = append(args, host)
	}
	ch, err := scanChannel(db.db.QueryRowContext(ctx, query, args...))
	return ch, notFound(err)
}

func (db *DB) ReadVideoById(ctx context.Context, tx *Tx, id uuid.UUID) (*domain.Video, error) {
	v, err := scanVideo(db.q(tx).QueryRowContext(ctx, videoSelect+`WHERE videos.id = ?`, id.String()))
	return v, notFound(err)
}

func (db *DB) ReadVideoByURL(ctx context.Context, tx *Tx, url string) (*domain.Video, error) {
	v, err := scanVideo(db.q(tx).QueryRowContext(ctx, videoSelect+`WHERE videos.url = ?`, url))
	return v, notFound(err)
}

// ReadAccountActorByVideoId walks video -> channel -> account -> actor
func (db *DB) ReadAccountActorByVideoId(ctx context.Context, tx *Tx, videoId uuid.UUID) (*domain.Actor, error) {
	actor, err := scanActor(db.q(tx).QueryRowContext(ctx, fmt.Sprintf(sqlSelectAccountActorByVideoId, actorColumns("actors")), videoId.String()))
	return actor, notFound(err)
}

// VideoFilter narrows ListVideos, zero fields match everything
type VideoFilter struct {
	AccountId uuid.UUID
	ChannelId uuid.UUID
}

func (db *DB) ListVideos(ctx context.Context, filter VideoFilter, limit int) ([]*domain.Video, error) {
	var where []string
	var args []any
	if filter.AccountId != uuid.Nil {
		where = append(where, "accounts.id = ?")
		args = append(args, filter.AccountId.String())
	}
	if filter.ChannelId != uuid.Nil {
		where = append(where, "video_channels.id = ?")
		args = append(args, filter.ChannelId.String())
	}

	query := videoSelect
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + " "
	}
	query += "ORDER BY videos.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return videos, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func splitNameWithHost(nameWithHost string) (string, string) {
	name, host, _ := strings.Cut(nameWithHost, "@")
	return name, host
}

// Comments

var commentSelect = `SELECT video_comments.id, video_comments.url, video_comments.video_id, video_comments.actor_id,
	video_comments.text, video_comments.created_at, ` + actorColumns("actors") + ` FROM video_comments
	INNER JOIN actors ON actors.id = video_comments.actor_id `

const (
	sqlInsertVideoComment      = `INSERT INTO video_comments(id, url, video_id, actor_id, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlDeleteVideoCommentByURL = `DELETE FROM video_comments WHERE url = ?`
)

func (db *DB) CreateVideoComment(ctx context.Context, tx *Tx, comment *domain.VideoComment) error {
	if comment.Id == uuid.Nil {
		comment.Id = uuid.New()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertVideoComment,
		comment.Id.String(),
		comment.URL,
		comment.VideoId.String(),
		comment.ActorId.String(),
		comment.Text,
		comment.CreatedAt,
	)
	return err
}

func scanComment(row rowScanner) (*domain.VideoComment, error) {
	var c domain.VideoComment
	var actor domain.Actor
	err := row.Scan(&c.Id, &c.URL, &c.VideoId, &c.ActorId, &c.Text, &c.CreatedAt,
		&actor.Id, &actor.Type, &actor.PreferredUsername, &actor.Host, &actor.URL, &actor.InboxURL,
		&actor.SharedInboxURL, &actor.FollowersURL, &actor.Local, &actor.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Actor = &actor
	return &c, nil
}

func (db *DB) ReadVideoCommentByURL(ctx context.Context, tx *Tx, url string) (*domain.VideoComment, error) {
	c, err := scanComment(db.q(tx).QueryRowContext(ctx, commentSelect+`WHERE video_comments.url = ?`, url))
	return c, notFound(err)
}

func (db *DB) DeleteVideoCommentByURL(ctx context.Context, tx *Tx, url string) error {
	_, err := db.q(tx).ExecContext(ctx, sqlDeleteVideoCommentByURL, url)
	return err
}

// ListVideoComments returns the latest comments, of one video when videoId is set
func (db *DB) ListVideoComments(ctx context.Context, videoId uuid.UUID, limit int) ([]*domain.VideoComment, error) {
	var rows *sql.Rows
	var err error
	if videoId != uuid.Nil {
		rows, err = db.db.QueryContext(ctx, commentSelect+`WHERE video_comments.video_id = ? ORDER BY video_comments.created_at DESC LIMIT ?`, videoId.String(), limit)
	} else {
		rows, err = db.db.QueryContext(ctx, commentSelect+`ORDER BY video_comments.created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.VideoComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return comments, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Shares

const (
	sqlInsertVideoShare = `INSERT INTO video_shares(id, url, actor_id, video_id, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(actor_id, video_id) DO UPDATE SET url = excluded.url`
	sqlDeleteVideoShareByURL = `DELETE FROM video_shares WHERE url = ?`
)

func (db *DB) CreateVideoShare(ctx context.Context, tx *Tx, share *domain.VideoShare) error {
	if share.Id == uuid.Nil {
		share.Id = uuid.New()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlInsertVideoShare,
		share.Id.String(),
		share.URL,
		share.ActorId.String(),
		share.VideoId.String(),
		share.CreatedAt,
	)
	return err
}

func (db *DB) DeleteVideoShareByURL(ctx context.Context, tx *Tx, url string) error {
	_, err := db.q(tx).ExecContext(ctx, sqlDeleteVideoShareByURL, url)
	return err
}

// ListActorsByVideoShare returns the actors that announced the video
func (db *DB) ListActorsByVideoShare(ctx context.Context, tx *Tx, videoId uuid.UUID) ([]*domain.Actor, error) {
	rows, err := db.q(tx).QueryContext(ctx, actorSelect+`INNER JOIN video_shares ON video_shares.actor_id = actors.id
		WHERE video_shares.video_id = ? ORDER BY video_shares.created_at`, videoId.String())
	if err != nil {
		return nil, err
	}
	return collectActors(rows)
}

// Rates

const (
	sqlUpsertVideoRate = `INSERT INTO video_rates(id, url, actor_id, video_id, type, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(actor_id, video_id) DO UPDATE SET url = excluded.url, type = excluded.type`
	sqlDeleteVideoRateByURL = `DELETE FROM video_rates WHERE url = ?`
	sqlCountVideoRates      = `SELECT COUNT(*) FROM video_rates WHERE video_id = ? AND type = ?`
)

func (db *DB) UpsertVideoRate(ctx context.Context, tx *Tx, rate *domain.VideoRate) error {
	if rate.Id == uuid.Nil {
		rate.Id = uuid.New()
	}
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = time.Now()
	}
	_, err := db.q(tx).ExecContext(ctx, sqlUpsertVideoRate,
		rate.Id.String(),
		rate.URL,
		rate.ActorId.String(),
		rate.VideoId.String(),
		string(rate.Type),
		rate.CreatedAt,
	)
	return err
}

func (db *DB) DeleteVideoRateByURL(ctx context.Context, tx *Tx, url string) error {
	_, err := db.q(tx).ExecContext(ctx, sqlDeleteVideoRateByURL, url)
	return err
}

func (db *DB) CountVideoRates(ctx context.Context, videoId uuid.UUID, rating domain.Rating) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, sqlCountVideoRates, videoId.String(), string(rating)).Scan(&count)
	return count, err
}
