package handler

import (
	"officine/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// JobsHandler exposes the dead-letter list of the e-mail queue to admins.
type JobsHandler struct{ rdb *redis.Client }

func NewJobsHandler(rdb *redis.Client) *JobsHandler { return &JobsHandler{rdb: rdb} }

type failedJobsQuery struct {
	Limit int64 `form:"limit,default=20" json:"limit" validate:"min=1,max=100"`
}

type failedJobsResponse struct {
	Queue   string            `json:"queue"`
	Total   int64             `json:"total"`
	Entries []worker.DLQEntry `json:"entries"`
}

// Failed lists the newest dead e-mail jobs. Without Redis there is no queue
// and the list is empty.
func (h *JobsHandler) Failed(c *gin.Context) {
	var q failedJobsQuery
	if !bindQuery(c, &q) || !validateStruct(c, &q) {
		return
	}
	resp := failedJobsResponse{Queue: worker.QueueEmail, Entries: []worker.DLQEntry{}}
	if h.rdb == nil {
		respond(c, resp)
		return
	}

	ctx := c.Request.Context()
	total, err := worker.DLQLength(ctx, h.rdb, worker.QueueEmail)
	if err != nil {
		fail(c, err)
		return
	}
	entries, err := worker.DLQEntries(ctx, h.rdb, worker.QueueEmail, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Total = total
	resp.Entries = entries
	respond(c, resp)
}
