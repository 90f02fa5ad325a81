package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-path/mindpath-server/internal/report"
)

// WeaknessReportHandler aggregates a student's answering patterns over a
// window. Dates are YYYY-MM-DD; the window defaults to the last 30 days.
func WeaknessReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, "studentID")
		to := time.Now()
		from := to.AddDate(0, 0, -30)
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "bad from date", 400)
				return
			}
			from = t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				http.Error(w, "bad to date", 400)
				return
			}
			to = t.AddDate(0, 0, 1) // inclusive end date
		}
		rep, err := svc.Weakness(r.Context(), studentID, from, to)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
