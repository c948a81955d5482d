package post

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/inkpressd/inkpress/server/auth"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/julienschmidt/httprouter"
)

// Posts can hold substantial articles, but not arbitrary uploads.
const maxPostBodyBytes = 1024 * 1024

type postRequest struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Content      string `json:"content"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Status       string `json:"status"`
}

func validateStatus(status string) {
	switch status {
	case model.PostStatusDraft, model.PostStatusPublished, model.PostStatusArchived:
	default:
		www.PanicBadRequestf("Invalid status: %v", status)
	}
}

func (s *PostServer) HttpCreatePost(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	req := postRequest{}
	www.ReadJSON(w, r, &req, maxPostBodyBytes)
	if req.Title == "" {
		www.PanicBadRequestf("Title is required")
	}
	if req.Status == "" {
		req.Status = model.PostStatusDraft
	}
	validateStatus(req.Status)

	slug, err := s.generateUniqueSlug(req.Title, 0)
	www.Check(err)

	now := s.timeNow()
	post := model.Post{
		Title:        req.Title,
		Slug:         slug,
		Summary:      req.Summary,
		Content:      req.Content,
		ThumbnailURL: req.ThumbnailURL,
		Status:       req.Status,
		AuthorID:     cred.User.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if post.Status == model.PostStatusPublished {
		post.PublishedAt = &now
	}
	www.Check(s.db.Create(&post).Error)
	s.invalidateCaches(r.Context())
	s.log.Infof("Post %v (%v) created by user %v", post.ID, post.Slug, cred.User.ID)
	www.SendJSON(w, &post)
}

func (s *PostServer) HttpGetPost(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	post := s.loadPost(www.ParseID(params.ByName("id")))
	www.SendJSON(w, post)
}

func (s *PostServer) HttpGetPostBySlug(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	post := model.Post{}
	s.db.Where("slug = ?", params.ByName("slug")).Find(&post)
	if post.ID == 0 {
		www.PanicNotFound()
	}
	www.SendJSON(w, &post)
}

// HttpGetSharedPost serves the single post a shared link points at. It is
// the only post route a shared-link credential can reach, and the link's
// own PostID is the only post it returns, regardless of URL parameters.
func (s *PostServer) HttpGetSharedPost(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	if cred.SharedLink == nil {
		www.PanicForbiddenf("This route requires a share key or share slug")
	}
	post := s.loadPost(cred.SharedLink.PostID)
	www.SendJSON(w, post)
}

// HttpUpdatePost applies a full update. The slug is regenerated if the
// title changed, and PublishedAt is stamped on the first transition to
// PUBLISHED.
func (s *PostServer) HttpUpdatePost(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	post := s.loadPost(www.ParseID(params.ByName("id")))
	req := postRequest{}
	www.ReadJSON(w, r, &req, maxPostBodyBytes)
	if req.Title == "" {
		www.PanicBadRequestf("Title is required")
	}
	if req.Status == "" {
		req.Status = post.Status
	}
	validateStatus(req.Status)

	if req.Title != post.Title {
		slug, err := s.generateUniqueSlug(req.Title, post.ID)
		www.Check(err)
		post.Slug = slug
	}
	now := s.timeNow()
	if req.Status == model.PostStatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
	post.Title = req.Title
	post.Summary = req.Summary
	post.Content = req.Content
	post.ThumbnailURL = req.ThumbnailURL
	post.Status = req.Status
	post.UpdatedAt = now
	www.Check(s.db.Save(post).Error)
	s.invalidateCaches(r.Context())
	www.SendJSON(w, post)
}

func (s *PostServer) HttpDeletePost(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	post := s.loadPost(www.ParseID(params.ByName("id")))
	www.Check(s.db.Delete(post).Error)
	// Shared links to a deleted post resolve, then 404 on fetch.
	s.invalidateCaches(r.Context())
	s.log.Infof("Post %v deleted by user %v", post.ID, cred.User.ID)
	www.SendOK(w)
}

func readListQuery(r *http.Request) listQuery {
	q := listQuery{
		Status:   www.QueryValue(r, "status"),
		AuthorID: www.QueryInt64(r, "author"),
		Sort:     www.QueryValue(r, "sort"),
		Page:     www.QueryInt(r, "page"),
		Limit:    www.QueryInt(r, "limit"),
	}
	if q.Status != "" {
		validateStatus(q.Status)
	}
	switch q.Sort {
	case "", "newest", "oldest":
	default:
		www.PanicBadRequestf("Invalid sort: %v", q.Sort)
	}
	return q
}

func (s *PostServer) HttpListPosts(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	posts, err := s.listPosts(r.Context(), readListQuery(r))
	www.Check(err)
	www.SendJSON(w, posts)
}

func (s *PostServer) HttpSearchPosts(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	term := www.RequiredQueryValue(r, "q")
	posts, err := s.searchPosts(r.Context(), term, readListQuery(r))
	www.Check(err)
	www.SendJSON(w, posts)
}

func (s *PostServer) loadPost(id int64) *model.Post {
	post := model.Post{}
	s.db.Where("id = ?", id).Find(&post)
	if post.ID == 0 {
		www.PanicNotFound()
	}
	return &post
}
