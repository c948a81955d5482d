// Package image handles image uploads into blob storage, and serves them
// back out. The database row is the source of truth; if the row can't be
// written after the blob upload succeeds, we delete the blob again.
package image

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/google/uuid"
	"github.com/inkpressd/inkpress/server/auth"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/inkpressd/inkpress/server/storage"
	"github.com/julienschmidt/httprouter"
	"gorm.io/gorm"
)

const maxImageBytes = 16 * 1024 * 1024

type ImageServer struct {
	db      *gorm.DB
	log     logs.Log
	storage storage.Storage

	timeNow func() time.Time
}

func NewImageServer(db *gorm.DB, log logs.Log, store storage.Storage) *ImageServer {
	return &ImageServer{
		db:      db,
		log:     log,
		storage: store,
		timeNow: time.Now,
	}
}

// HttpUploadImage accepts a multipart form with a single "file" part.
// The blob is stored under a random key, so the client-supplied filename
// only contributes its extension.
func (s *ImageServer) HttpUploadImage(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	www.CheckClient(r.ParseMultipartForm(maxImageBytes))
	file, header, err := r.FormFile("file")
	if err != nil {
		www.PanicBadRequestf("Missing 'file' form field: %v", err)
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		www.Panic(http.StatusRequestEntityTooLarge, fmt.Sprintf("Image exceeds the %v byte limit", maxImageBytes))
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		www.PanicBadRequestf("Unsupported content type %v (only images are accepted)", contentType)
	}

	key := "images/" + uuid.NewString() + strings.ToLower(path.Ext(header.Filename))
	www.Check(storage.WriteFile(s.storage, key, file))

	img := model.Image{
		StorageKey:  key,
		ContentType: contentType,
		Size:        header.Size,
		CreatedBy:   cred.User.ID,
		CreatedAt:   s.timeNow(),
	}
	if err := s.db.Create(&img).Error; err != nil {
		// The blob is orphaned unless we remove it now.
		if delErr := s.storage.DeleteFile(key); delErr != nil {
			s.log.Errorf("Failed to delete orphaned blob %v: %v", key, delErr)
		}
		www.Check(err)
	}
	img.URL = fmt.Sprintf("/api/image/%v", img.ID)
	www.Check(s.db.Model(&model.Image{}).Where("id = ?", img.ID).Update("url", img.URL).Error)

	s.log.Infof("Image %v uploaded by user %v (%v, %v bytes)", img.ID, cred.User.ID, contentType, header.Size)
	www.SendJSON(w, &img)
}

// HttpGetImage streams an image out of blob storage. Content is immutable
// (the key is random and never reused), so clients may cache forever.
func (s *ImageServer) HttpGetImage(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	img := s.loadImage(www.ParseID(params.ByName("id")))
	f, err := s.storage.ReadFile(img.StorageKey)
	if err != nil {
		s.log.Errorf("Image %v exists in the DB but not in storage: %v", img.ID, err)
		www.PanicNotFound()
	}
	defer f.Reader.Close()
	www.CacheImmutable(w)
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%v", f.Size))
	io.Copy(w, f.Reader)
}

func (s *ImageServer) HttpListImages(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	images := []model.Image{}
	www.Check(s.db.Order("id DESC").Find(&images).Error)
	www.SendJSON(w, images)
}

// HttpDeleteImage removes the row first, then the blob. A blob deletion
// failure leaves an orphan in storage, which is harmless.
func (s *ImageServer) HttpDeleteImage(w http.ResponseWriter, r *http.Request, params httprouter.Params, cred *auth.Credentials) {
	img := s.loadImage(www.ParseID(params.ByName("id")))
	www.Check(s.db.Delete(img).Error)
	if err := s.storage.DeleteFile(img.StorageKey); err != nil {
		s.log.Warnf("Failed to delete blob %v for image %v: %v", img.StorageKey, img.ID, err)
	}
	www.SendOK(w)
}

func (s *ImageServer) loadImage(id int64) *model.Image {
	img := model.Image{}
	s.db.Where("id = ?", id).Find(&img)
	if img.ID == 0 {
		www.PanicNotFound()
	}
	return &img
}
