package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumekit/internal/resume"
	"resumekit/internal/templates"
)

// TemplateHandler 负责模板相关的 API。
type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// GET /v1/templates
// 按选择器顺序返回全部模板。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, templates.All())
}

// GET /v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	v, ok := templates.Lookup(resume.TemplateID(c.Param("id")))
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, v)
}
