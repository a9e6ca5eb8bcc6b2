package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/GermanBurdin1/lesson-service/api"
	"github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/wire"
	"github.com/GermanBurdin1/lesson-service/pkg/response"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

type StatsProvider interface {
	GetLessonsStats(ctx context.Context, from, to time.Time) (*api.StatsResponse, error)
}

type Response struct {
	response.Response
	Stats api.StatsResponse `json:"stats"`
}

// New aggregates lesson counts over a period. Query params: from, to
// (RFC 3339).
func New(log *slog.Logger, provider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.stats.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
		if err != nil {
			log.Error("Invalid from", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "from must be RFC 3339"))
			return
		}

		to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
		if err != nil {
			log.Error("Invalid to", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "to must be RFC 3339"))
			return
		}

		stats, err := provider.GetLessonsStats(r.Context(), from, to)

		if wire.Error(w, r, log, err, "Failed to compute stats") {
			return
		}

		render.JSON(w, r, Response{
			Stats: *stats,
		})
	}
}
