package handler

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/application/service"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"github.com/sangkips/invoicecore/pkg/utils"
)

const dateLayout = "2006-01-02"

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &userID
}

// GetUserRoles extracts the user roles from the Gin context
func GetUserRoles(c *gin.Context) []string {
	roles, exists := c.Get("user_roles")
	if !exists {
		return nil
	}
	list, _ := roles.([]string)
	return list
}

// GetUserPermissions extracts the user permissions from the Gin context
func GetUserPermissions(c *gin.Context) []string {
	permissions, exists := c.Get("user_permissions")
	if !exists {
		return nil
	}
	list, _ := permissions.([]string)
	return list
}

// IsPrivileged reports whether the caller may edit reports they do not own
// or that are still pending
func IsPrivileged(c *gin.Context) bool {
	if slices.Contains(GetUserPermissions(c), service.PermissionManageReports) {
		return true
	}
	roles := GetUserRoles(c)
	return slices.Contains(roles, "admin") || slices.Contains(roles, "super-admin")
}

// parseID reads a UUID path parameter
func parseID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := utils.ParseUUID(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.NewBadRequestError("Invalid " + name)
	}
	return id, nil
}

// parseDate parses an optional YYYY-MM-DD value
func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperror.NewFieldError(field, "Date must use the YYYY-MM-DD format")
	}
	return &t, nil
}
