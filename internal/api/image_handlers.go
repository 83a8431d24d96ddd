package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mseller-cloud/mseller-server/internal/images"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
)

// imageDeletedEvent is published on the events bus after an image
// asset is removed so listeners can clean up the stored objects
type imageDeletedEvent struct {
	ImageID      uuid.UUID `json:"imageId"`
	BusinessID   uuid.UUID `json:"businessId"`
	ObjectKey    string    `json:"objectKey"`
	ThumbnailKey string    `json:"thumbnailKey"`
}

const imagesDeletedSubject = "images.deleted"

// ========== Image handlers ==========

// HandleListImages lists image assets of the caller's business
func (s *RESTServer) HandleListImages(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var ownerID *uuid.UUID
	if raw := r.URL.Query().Get("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid owner ID")
			return
		}
		ownerID = &id
	}

	assets, err := s.store.ListImageAssets(r.Context(), claims.BusinessID, ownerID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"images": assets,
		"count":  len(assets),
	})
}

// HandleUploadImages decodes a batch of data-URI images, stores each
// original alongside a generated thumbnail and records the assets. The
// images are processed concurrently and one failure aborts the batch.
func (s *RESTServer) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		Kind   string   `json:"kind" validate:"required,oneof=logo photo product signature"`
		Images []string `json:"images" validate:"required,min=1,max=20,dive,required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	assets := make([]*models.ImageAsset, len(req.Images))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for i, uri := range req.Images {
		i, uri := i, uri
		g.Go(func() error {
			decoded, err := images.DecodeDataURI(uri)
			if err != nil {
				return err
			}

			original, err := images.EncodeJPEG(decoded.Image)
			if err != nil {
				return err
			}
			thumb, err := images.EncodeJPEG(images.Thumbnail(decoded.Image))
			if err != nil {
				return err
			}

			asset := &models.ImageAsset{
				ID:         uuid.New(),
				BusinessID: claims.BusinessID,
				OwnerID:    claims.UserID,
				Kind:       req.Kind,
				Format:     decoded.Format,
				Width:      decoded.Width,
				Height:     decoded.Height,
				Size:       int64(len(original)),
				CreatedAt:  time.Now(),
			}
			asset.ObjectKey = fmt.Sprintf("%s/%s/images/original/%s.jpg", claims.BusinessID, req.Kind, asset.ID)
			asset.ThumbnailKey = fmt.Sprintf("%s/%s/images/thumbnail/%s.jpg", claims.BusinessID, req.Kind, asset.ID)

			url, err := s.objects.Put(ctx, asset.ObjectKey, original, "image/jpeg")
			if err != nil {
				return err
			}
			asset.URL = url

			thumbURL, err := s.objects.Put(ctx, asset.ThumbnailKey, thumb, "image/jpeg")
			if err != nil {
				return err
			}
			asset.ThumbnailURL = thumbURL

			if err := s.store.CreateImageAsset(ctx, asset); err != nil {
				return err
			}

			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().
		Str("business", claims.BusinessID.String()).
		Str("kind", req.Kind).
		Int("count", len(assets)).
		Msg("Images uploaded")

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"images": assets,
		"count":  len(assets),
	})
}

// HandleDeleteImage removes a single image asset
func (s *RESTServer) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid image ID")
		return
	}

	if err := s.deleteImage(r, id, claims.BusinessID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleBatchDeleteImages removes a set of image assets concurrently
func (s *RESTServer) HandleBatchDeleteImages(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		ImageIDs []uuid.UUID `json:"imageIds" validate:"required,min=1,max=100"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for _, id := range req.ImageIDs {
		id := id
		g.Go(func() error {
			return s.deleteImage(r, id, claims.BusinessID)
		})
	}
	if err := g.Wait(); err != nil {
		s.respondAppError(w, err)
		return
	}

	log.Info().
		Str("business", claims.BusinessID.String()).
		Int("count", len(req.ImageIDs)).
		Msg("Images deleted")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": len(req.ImageIDs),
	})
}

// deleteImage deletes the record and publishes the cleanup event. The
// object itself is removed by the events subscriber.
func (s *RESTServer) deleteImage(r *http.Request, id, businessID uuid.UUID) error {
	img, err := s.store.GetImageAsset(r.Context(), id)
	if err != nil {
		return err
	}
	if img.BusinessID != businessID {
		return storage.ErrNotFound
	}

	if err := s.store.DeleteImageAsset(r.Context(), id); err != nil {
		return err
	}

	event := imageDeletedEvent{
		ImageID:      img.ID,
		BusinessID:   img.BusinessID,
		ObjectKey:    img.ObjectKey,
		ThumbnailKey: img.ThumbnailKey,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.events.Publish(imagesDeletedSubject, data); err != nil {
		log.Error().Err(err).
			Str("image", id.String()).
			Msg("Failed to publish image cleanup event")
	}
	return nil
}
