package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/megusto0/tgintegration/internal"
	"github.com/megusto0/tgintegration/internal/auth"
	"github.com/megusto0/tgintegration/internal/media"
	"github.com/megusto0/tgintegration/internal/nightscout"
	"github.com/megusto0/tgintegration/internal/response"
	"github.com/megusto0/tgintegration/internal/treatment"
)

// TreatmentView is the normalized record shape returned to the Mini App.
type TreatmentView struct {
	ID        string   `json:"id"`
	EventType string   `json:"eventType"`
	Insulin   *float64 `json:"insulin"`
	Carbs     *float64 `json:"carbs"`
	Calories  *int     `json:"calories"`
	Protein   *int     `json:"protein"`
	Meal      *string  `json:"meal"`
	PhotoURL  *string  `json:"photoUrl"`
	Notes     string   `json:"notes,omitempty"`
}

func viewOf(rec treatment.Record) TreatmentView {
	eventType := "None"
	if rec.EventType != nil {
		eventType = *rec.EventType
	}
	return TreatmentView{
		ID:        rec.ID,
		EventType: eventType,
		Insulin:   rec.Insulin,
		Carbs:     rec.Carbs,
		Calories:  rec.Calories,
		Protein:   rec.Protein,
		Meal:      rec.Meal,
		PhotoURL:  rec.PhotoURL,
		Notes:     rec.Notes,
	}
}

func actingUserID(c *gin.Context) int64 {
	if v, ok := c.Get(auth.IdentityKey); ok {
		if identity, ok := v.(*internal.Identity); ok {
			return identity.ID
		}
	}
	return 0
}

func Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func GetTreatment(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.Query("cid")
		if cid == "" {
			c.JSON(http.StatusBadRequest, response.BadRequest("missing cid"))
			return
		}

		doc, err := app.Treatments().FetchByClientID(c.Request.Context(), cid)
		if err != nil {
			HandleError(c, app.Logger(), err, "Treatment not found")
			return
		}

		c.JSON(http.StatusOK, viewOf(treatment.FromDocument(doc)))
	}
}

func UpdateTreatment(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.PostForm("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, response.BadRequest("missing id"))
			return
		}
		cid := c.PostForm("cid")

		changes, err := treatment.ParseChangeSet(c.Request.PostForm)
		if err != nil {
			HandleError(c, app.Logger(), err, "Validation failed")
			return
		}

		ctx := c.Request.Context()
		doc, err := app.Treatments().FetchByID(ctx, id)
		if errors.Is(err, nightscout.ErrNotFound) && cid != "" {
			doc, err = app.Treatments().FetchByClientID(ctx, cid)
		}
		if err != nil {
			HandleError(c, app.Logger(), err, "Treatment not found")
			return
		}

		rec := treatment.FromDocument(doc)
		updated, patch := treatment.Merge(rec, changes)
		if len(patch) > 0 {
			targetID := rec.ID
			if targetID == "" {
				targetID = id
			}
			if err := app.Treatments().Update(ctx, targetID, patch, doc); err != nil {
				HandleError(c, app.Logger(), err, "Failed to update treatment")
				return
			}
			app.Logger().Infof("[request_id=%s] user %d updated treatment %s (%d fields)",
				c.GetString("request_id"), actingUserID(c), targetID, len(patch))
		}

		c.JSON(http.StatusOK, viewOf(updated))
	}
}

func UploadImage(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, response.BadRequest("missing image"))
			return
		}
		if fileHeader.Size > media.MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, response.PayloadTooLarge("file too large"))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to read image")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadSize+1))
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to read image")
			return
		}
		if len(data) > media.MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, response.PayloadTooLarge("file too large"))
			return
		}

		url, err := app.Media().Save(data, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to store image")
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}
