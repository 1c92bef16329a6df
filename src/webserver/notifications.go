package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
)

type Notifications struct{ store *data.Store }

func NewNotifications(store *data.Store) Notifications { return Notifications{store: store} }

func (n Notifications) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := n.store.ListNotifications(c.Request.Context(), userID(c), limit)
	if err != nil {
		respond(c, err, "load notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}
