package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/pkg/version"
)

// ServiceInfoHandler reports service identity and mounted capabilities.
type ServiceInfoHandler struct {
	capabilities []string
}

// NewServiceInfoHandler creates a service info handler. The capability
// list is fixed at startup from what the server actually mounted, so
// operators can tell a coordination-only node from a full deployment.
func NewServiceInfoHandler(capabilities []string) *ServiceInfoHandler {
	return &ServiceInfoHandler{capabilities: capabilities}
}

// ServiceInfo represents the service identity information
type ServiceInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// HandleServiceInfo serves service identity information as JSON
func (h *ServiceInfoHandler) HandleServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ServiceInfo{
		Name:         cnst.AppName,
		Description:  "Session state and turn coordination service for asynchronous multiplayer games",
		Version:      version.Get(),
		Capabilities: h.capabilities,
	})
}
