package server

import (
	"net/http"
	"strconv"

	usagedomain "github.com/brightops/usagesync/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type clientUsageResponse struct {
	ClientID snowflake.ID              `json:"clientId"`
	Months   []usagedomain.ClientUsage `json:"months"`
}

// ClientUsage returns the client's most recent reconciled months, newest
// first. The first entry is the current month.
func (s *Server) ClientUsage(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	clientID := snowflake.ID(id)
	window := s.holder.Current().MonthsWindow
	rows, err := s.usageRepo.ListRecent(c.Request.Context(), s.db, clientID, window)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(rows) == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, clientUsageResponse{ClientID: clientID, Months: rows})
}
