// Package post owns blog posts: CRUD, slug generation, listing, search,
// and the read-through cache in front of the list and search queries.
package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/inkpressd/inkpress/server/cache"
	"github.com/inkpressd/inkpress/server/model"
	"gorm.io/gorm"
)

const (
	// Cache keys for list and search results. Writes invalidate both
	// families wholesale rather than tracking which entries a given post
	// appears in.
	cacheKeyListPrefix   = "posts:list:"
	cacheKeySearchPrefix = "posts:search:"
	cacheTTL             = 60 * time.Second

	defaultPageSize = 20
	maxPageSize     = 100

	// maxSlugProbes bounds the -2, -3, ... suffix search when a slug
	// collides.
	maxSlugProbes = 100
)

type PostServer struct {
	db    *gorm.DB
	log   logs.Log
	cache *cache.Cache

	timeNow func() time.Time
}

func NewPostServer(db *gorm.DB, log logs.Log, cache *cache.Cache) *PostServer {
	return &PostServer{
		db:      db,
		log:     log,
		cache:   cache,
		timeNow: time.Now,
	}
}

// slugify lowercases, maps runs of non-alphanumerics to single hyphens,
// and trims hyphens at the ends. "Hello, World!" becomes "hello-world".
func slugify(title string) string {
	b := strings.Builder{}
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// generateUniqueSlug returns slugify(title), or that plus a -2, -3, ...
// suffix if the base slug is taken. Uniqueness is ultimately enforced by
// the unique index; this probing just picks a candidate that was free at
// read time.
func (s *PostServer) generateUniqueSlug(title string, excludePostID int64) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "post"
	}
	for i := 1; i <= maxSlugProbes; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%v-%v", base, i)
		}
		existing := model.Post{}
		s.db.Where("slug = ? AND id <> ?", candidate, excludePostID).Find(&existing)
		if existing.ID == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("Unable to find a unique slug for %q", base)
}

// invalidateCaches drops every cached list and search result. Called on
// any write to a post.
func (s *PostServer) invalidateCaches(ctx context.Context) {
	s.cache.DeleteByPattern(ctx, cacheKeyListPrefix+"*")
	s.cache.DeleteByPattern(ctx, cacheKeySearchPrefix+"*")
}

type listQuery struct {
	Status   string
	AuthorID int64
	// Sort is "newest" (default) or "oldest", by creation time.
	Sort  string
	Page  int
	Limit int
}

func (q *listQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Sort == "" {
		q.Sort = "newest"
	}
}

func (q *listQuery) order() string {
	if q.Sort == "oldest" {
		return "created_at ASC"
	}
	return "created_at DESC"
}

func (q *listQuery) apply(tx *gorm.DB) *gorm.DB {
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.AuthorID != 0 {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	return tx.Order(q.order()).Offset((q.Page - 1) * q.Limit).Limit(q.Limit)
}

// listPosts returns a page of post summaries through the cache.
func (s *PostServer) listPosts(ctx context.Context, q listQuery) ([]model.PostSummary, error) {
	q.normalize()
	key := fmt.Sprintf("%v%v:%v:%v:%v:%v", cacheKeyListPrefix, q.Status, q.AuthorID, q.Sort, q.Page, q.Limit)
	posts := []model.PostSummary{}
	if s.cache.GetJSON(ctx, key, &posts) {
		return posts, nil
	}

	err := q.apply(s.db.Model(&model.Post{})).Find(&posts).Error
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, posts, cacheTTL)
	return posts, nil
}

// searchPosts matches a term against title, summary and content, through
// the cache. The term is embedded in a LIKE pattern with its own wildcard
// characters escaped.
func (s *PostServer) searchPosts(ctx context.Context, term string, q listQuery) ([]model.PostSummary, error) {
	q.normalize()
	key := fmt.Sprintf("%v%v:%v:%v:%v:%v:%v", cacheKeySearchPrefix, term, q.Status, q.AuthorID, q.Sort, q.Page, q.Limit)
	posts := []model.PostSummary{}
	if s.cache.GetJSON(ctx, key, &posts) {
		return posts, nil
	}

	pattern := "%" + escapeLike(term) + "%"
	tx := s.db.Model(&model.Post{}).
		Where("title LIKE ? ESCAPE '\\' OR summary LIKE ? ESCAPE '\\' OR content LIKE ? ESCAPE '\\'", pattern, pattern, pattern)
	err := q.apply(tx).Find(&posts).Error
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, posts, cacheTTL)
	return posts, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
