// utils/response.go
package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

// RespondWithError writes a uniform JSON error body.
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// GenerateRandomString returns a hex string of the requested length,
// used for invoice number suffixes.
func GenerateRandomString(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "000000"[:length]
	}
	return hex.EncodeToString(buf)[:length]
}
