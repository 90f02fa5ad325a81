package report

import (
	"context"
	"time"

	"github.com/mind-path/mindpath-server/internal/quiz"
)

// FastSec is the threshold under which an incorrect answer counts as a
// rushing error.
const FastSec = 5

type TypeStats struct {
	Attempted      int     `json:"attempted"`
	Incorrect      int     `json:"incorrect"`
	AverageTimeSec float64 `json:"average_time_sec"`
}

type WeaknessReport struct {
	TotalQuestions int                  `json:"total_questions"`
	RushingErrors  int                  `json:"rushing_errors"`
	StatsByType    map[string]TypeStats `json:"stats_by_type"`
}

// Service aggregates a student's responses over a window into a weakness
// report consumed by the teacher dashboard.
type Service struct {
	store quiz.Store
}

func NewService(store quiz.Store) *Service { return &Service{store: store} }

// Weakness builds the report over attempts completed in [from, to).
func (s *Service) Weakness(ctx context.Context, studentID string, from, to time.Time) (WeaknessReport, error) {
	responses, err := s.store.ListResponsesForUser(ctx, studentID, from, to)
	if err != nil {
		return WeaknessReport{}, err
	}

	rep := WeaknessReport{
		TotalQuestions: len(responses),
		StatsByType:    map[string]TypeStats{},
	}
	totalTime := map[string]int{}
	for _, r := range responses {
		key := string(r.QuestionType)
		st := rep.StatsByType[key]
		st.Attempted++
		if !r.IsCorrect {
			st.Incorrect++
			if r.ResponseTime < FastSec {
				rep.RushingErrors++
			}
		}
		totalTime[key] += r.ResponseTime
		rep.StatsByType[key] = st
	}
	for key, st := range rep.StatsByType {
		if st.Attempted > 0 {
			st.AverageTimeSec = float64(totalTime[key]) / float64(st.Attempted)
			rep.StatsByType[key] = st
		}
	}
	return rep, nil
}
