package handler

import (
	"net/http"
	"strconv"
	"strings"

	"webstarter-backend/internal/service"
	"webstarter-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const unsplashUsage = "search, random, photo, or list"

type UnsplashHandler struct {
	photoService *service.PhotoService
}

func NewUnsplashHandler(photoService *service.PhotoService) *UnsplashHandler {
	return &UnsplashHandler{
		photoService: photoService,
	}
}

// Photos serves GET /api/unsplash?action=...
func (h *UnsplashHandler) Photos(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		result interface{}
		err    error
	)

	switch action := c.Query("action"); action {
	case "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing action parameter. Use: " + unsplashUsage})
		return

	case "search":
		query := c.Query("query")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter required for search action"})
			return
		}
		result, err = h.photoService.SearchPhotos(ctx, service.SearchPhotosParams{
			Query:       query,
			Page:        queryInt(c, "page"),
			PerPage:     queryInt(c, "per_page"),
			Orientation: c.Query("orientation"),
			Color:       c.Query("color"),
			OrderBy:     c.Query("order_by"),
		})

	case "random":
		params := service.RandomPhotosParams{
			Query:       c.Query("query"),
			Count:       queryInt(c, "count"),
			Orientation: c.Query("orientation"),
			Featured:    c.Query("featured") == "true",
		}
		if ids := c.Query("collection_ids"); ids != "" {
			params.CollectionIDs = strings.Split(ids, ",")
		}
		result, err = h.photoService.GetRandomPhotos(ctx, params)

	case "photo":
		id := c.Query("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID parameter required for photo action"})
			return
		}
		result, err = h.photoService.GetPhoto(ctx, id)

	case "download":
		id := c.Query("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID parameter required for download action"})
			return
		}
		result, err = h.photoService.TrackPhotoDownload(ctx, id)

	case "list":
		result, err = h.photoService.ListPhotos(ctx, listParams(c))

	case "user":
		username := c.Query("username")
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username parameter required for user action"})
			return
		}
		result, err = h.photoService.GetUserPhotos(ctx, username, listParams(c))

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Use: " + unsplashUsage})
		return
	}

	if err != nil {
		logger.WithError(err).WithField("action", c.Query("action")).Error("Unsplash API error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func listParams(c *gin.Context) service.ListPhotosParams {
	return service.ListPhotosParams{
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "per_page"),
		OrderBy: c.Query("order_by"),
	}
}

// queryInt returns 0, meaning "not sent upstream", for absent or malformed values.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
