package utils

import "github.com/gin-gonic/gin"

// Success writes 200 with data plus "ok": true.
func Success(c *gin.Context, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(200, body)
}

// JSON writes data as-is with 200.
func JSON(c *gin.Context, data gin.H) {
	c.JSON(200, data)
}

// Error writes a client or server error as {"error": msg}.
func Error(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": msg,
	})
}

// Failed reports an accepted request whose work failed. The status stays 200
// so senders that retry on non-2xx do not redeliver.
func Failed(c *gin.Context, msg string) {
	c.JSON(200, gin.H{
		"ok":    false,
		"error": msg,
	})
}
