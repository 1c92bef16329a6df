package webserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MbBrainz/grantflow-dev-sub000/src/apperr"
)

// respond writes err as {"err": ...}. User-facing errors are shown as they
// are; anything else is logged and replaced by a generic retry message.
func respond(c *gin.Context, err error, action string) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindPrecondition:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	default:
		log.Printf("http: failed to %s (req=%s): %v", action, c.GetString("request_id"), err)
		c.JSON(status, gin.H{"err": "Failed to " + action + ". Please try again."})
		return
	}
	var ae *apperr.Error
	errors.As(err, &ae)
	c.JSON(status, gin.H{"err": ae.Msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"err": msg})
}

func idParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "bad id")
		return 0, false
	}
	return id, true
}
