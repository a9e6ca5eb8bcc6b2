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

const dateLayout = "2006-01-02"

type SlotProvider interface {
	GetAvailableSlots(ctx context.Context, teacherID string, date time.Time) ([]*api.SlotInfo, error)
}

type Response struct {
	response.Response
	Slots []*api.SlotInfo `json:"slots"`
}

// New renders the day grid of a teacher. Query params: teacherId, date
// (YYYY-MM-DD, interpreted in the server's local zone).
func New(log *slog.Logger, provider SlotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		teacherID := r.URL.Query().Get("teacherId")
		if teacherID == "" {
			log.Error("teacherId is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "teacherId is required"))
			return
		}

		rawDate := r.URL.Query().Get("date")
		date, err := time.ParseInLocation(dateLayout, rawDate, time.Local)
		if err != nil {
			log.Error("Invalid date", slog.String("date", rawDate), sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "date must be YYYY-MM-DD"))
			return
		}

		slots, err := provider.GetAvailableSlots(r.Context(), teacherID, date)

		if wire.Error(w, r, log, err, "Failed to compute slots") {
			return
		}

		log.Info("Slots computed",
			slog.String("teacher_id", teacherID),
			slog.String("date", rawDate),
			slog.Int("count", len(slots)),
		)
		render.JSON(w, r, Response{
			Slots: slots,
		})
	}
}
