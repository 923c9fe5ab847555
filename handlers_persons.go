package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"egressos/pkg/photo"
	"egressos/pkg/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	photoField           = "imagem_perfil"
	defaultThumbnailSize = 160
)

var errUploadTooLarge = errors.New("file too large")

// readUpload returns the optional photo file of a multipart request. A missing
// file is not an error.
func (a *app) readUpload(c *gin.Context) (*registry.Upload, error) {
	fh, err := c.FormFile(photoField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	limit := a.cfg.MaxUploadMB << 20
	if fh.Size > limit {
		return nil, fmt.Errorf("%w (max %dMB)", errUploadTooLarge, a.cfg.MaxUploadMB)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (max %dMB)", errUploadTooLarge, a.cfg.MaxUploadMB)
	}
	return &registry.Upload{Filename: fh.Filename, Data: data}, nil
}

func (a *app) bindPersonFilter(c *gin.Context) (registry.PersonFilter, []registry.Warning, bool) {
	var form registry.PersonFilterForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return registry.PersonFilter{}, nil, false
	}
	f, warnings := registry.ParsePersonFilter(form, a.reg.Location())
	return f, warnings, true
}

// municipalityWarnings flags municipalities missing from the reference list.
func (a *app) municipalityWarnings(name string) []registry.Warning {
	if name == "" || len(a.ref.Municipalities()) == 0 || a.ref.HasMunicipality(name) {
		return nil
	}
	return []registry.Warning{{Field: "municipio", Message: "municipality not in the reference list"}}
}

func (a *app) searchPersonsHandler(c *gin.Context) {
	f, warnings, ok := a.bindPersonFilter(c)
	if !ok {
		return
	}
	page, err := a.reg.SearchPersons(c.Request.Context(), f, pageParam(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":         page.Items,
		"page":          page.Page,
		"per_page":      page.PerPage,
		"total":         page.Total,
		"pages":         page.Pages,
		"filter_active": !f.IsEmpty(),
		"warnings":      warnings,
	})
}

func (a *app) getPersonHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := a.reg.Person(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *app) createPersonHandler(c *gin.Context) {
	var in registry.PersonInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	up, err := a.readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, warnings, err := a.reg.CreatePerson(c.Request.Context(), in, up)
	if err != nil {
		a.respondError(c, err)
		return
	}
	warnings = append(warnings, a.municipalityWarnings(p.Municipality)...)
	a.log.Info("person created", zap.String("infopen", p.Infopen), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusCreated, gin.H{"message": "record created", "person": p, "warnings": warnings})
}

func (a *app) updatePersonHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in registry.PersonInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	up, err := a.readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, warnings, err := a.reg.UpdatePerson(c.Request.Context(), id, in, up)
	if err != nil {
		a.respondError(c, err)
		return
	}
	warnings = append(warnings, a.municipalityWarnings(p.Municipality)...)
	a.log.Info("person updated", zap.Uint("id", p.ID), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusOK, gin.H{"message": "record updated", "person": p, "warnings": warnings})
}

func (a *app) deletePersonHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := a.reg.DeletePerson(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("person deleted", zap.Uint("id", p.ID), zap.String("infopen", p.Infopen), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

func (a *app) replacePhotoHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := a.reg.Person(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	up, err := a.readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stored, err := a.reg.ReplacePhoto(c.Request.Context(), p.Infopen, up)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": stored})
}

func (a *app) imageHandler(c *gin.Context) {
	raw, mime, err := a.reg.Image(c.Request.Context(), c.Param("infopen"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, mime, raw)
}

func (a *app) thumbnailHandler(c *gin.Context) {
	size := defaultThumbnailSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 16 and 1024"})
			return
		}
		size = n
	}
	raw, _, err := a.reg.Image(c.Request.Context(), c.Param("infopen"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	thumb, err := photo.Thumbnail(raw, size)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, photo.MimeJPEG, thumb)
}

func (a *app) mapPointsHandler(c *gin.Context) {
	f, warnings, ok := a.bindPersonFilter(c)
	if !ok {
		return
	}
	points, err := a.reg.MapPoints(c.Request.Context(), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points, "warnings": warnings})
}

func attachment(c *gin.Context, filename, contentType string, doc []byte) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, doc)
}

func (a *app) exportPersonsCSVHandler(c *gin.Context) {
	f, _, ok := a.bindPersonFilter(c)
	if !ok {
		return
	}
	doc, rows, err := a.reg.ExportPersonsCSV(c.Request.Context(), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("persons exported", zap.String("format", "csv"), zap.Int("rows", rows), zap.String("by", c.GetString("username")))
	attachment(c, registry.PersonCSVFilename, registry.CSVContentType, doc)
}

func (a *app) exportPersonsXLSXHandler(c *gin.Context) {
	f, _, ok := a.bindPersonFilter(c)
	if !ok {
		return
	}
	doc, rows, err := a.reg.ExportPersonsXLSX(c.Request.Context(), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("persons exported", zap.String("format", "xlsx"), zap.Int("rows", rows), zap.String("by", c.GetString("username")))
	attachment(c, registry.PersonXLSXFilename, registry.XLSXContentType, doc)
}
