package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseUserID parses the :user_id path parameter as a positive 64-bit integer.
func ParseUserID(c *gin.Context) (int64, error) {
	raw := c.Param("user_id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user_id parameter: must be a positive integer")
	}
	return userID, nil
}
