package main

import (
	"net/http"

	"egressos/pkg/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bindJudicialFilter(c *gin.Context) (registry.JudicialFilter, bool) {
	var form registry.JudicialFilterForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return registry.JudicialFilter{}, false
	}
	return registry.ParseJudicialFilter(form), true
}

func (a *app) searchJudicialHandler(c *gin.Context) {
	f, ok := bindJudicialFilter(c)
	if !ok {
		return
	}
	page, err := a.reg.SearchJudicial(c.Request.Context(), f, pageParam(c))
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
	})
}

// judicialPersonsHandler lists the Persons a note can be attached to.
func (a *app) judicialPersonsHandler(c *gin.Context) {
	persons, err := a.reg.PersonsForSelect(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	type option struct {
		Infopen string `json:"infopen"`
		Name    string `json:"nome_completo"`
	}
	out := make([]option, 0, len(persons))
	for _, p := range persons {
		out = append(out, option{Infopen: p.Infopen, Name: p.FullName})
	}
	c.JSON(http.StatusOK, out)
}

func (a *app) getJudicialHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	n, err := a.reg.Judicial(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (a *app) createJudicialHandler(c *gin.Context) {
	var in registry.JudicialInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := a.reg.CreateJudicial(c.Request.Context(), in)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("judicial note created", zap.Uint("id", n.ID), zap.String("infopen", n.Infopen), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusCreated, gin.H{"message": "record created", "judicial": n})
}

func (a *app) updateJudicialHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in registry.JudicialInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := a.reg.UpdateJudicial(c.Request.Context(), id, in)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record updated", "judicial": n})
}

func (a *app) deleteJudicialHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := a.reg.DeleteJudicial(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("judicial note deleted", zap.Uint("id", id), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

func (a *app) exportJudicialCSVHandler(c *gin.Context) {
	f, ok := bindJudicialFilter(c)
	if !ok {
		return
	}
	doc, rows, err := a.reg.ExportJudicialCSV(c.Request.Context(), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("judicial notes exported", zap.String("format", "csv"), zap.Int("rows", rows))
	attachment(c, registry.JudicialCSVFilename, registry.CSVContentType, doc)
}

func (a *app) exportJudicialXLSXHandler(c *gin.Context) {
	f, ok := bindJudicialFilter(c)
	if !ok {
		return
	}
	doc, rows, err := a.reg.ExportJudicialXLSX(c.Request.Context(), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.log.Info("judicial notes exported", zap.String("format", "xlsx"), zap.Int("rows", rows))
	attachment(c, registry.JudicialXLSXFilename, registry.XLSXContentType, doc)
}
