package quiz

// Scoring is deliberately pure: given the quiz's questions (answers loaded)
// and the attempt's responses it always produces the same score, which is
// what makes regrading idempotent.

// Score computes the attempt percentage in [0,100]. Callers must guarantee
// at least one question.
func Score(questions []Question, responses []Response) float64 {
	total := 0.0
	for _, q := range questions {
		total += questionContribution(q, responsesFor(q.ID, responses))
	}
	return total / float64(len(questions)) * 100
}

// questionContribution is the per-question share in [0,1].
func questionContribution(q Question, rs []Response) float64 {
	switch q.Type {
	case OpenEnded:
		if len(rs) == 0 {
			return 0
		}
		// Ungraded counts as zero until the AI pass or a teacher fills it in.
		fs := rs[0].FinalScore()
		if fs == nil {
			return 0
		}
		return clamp01(*fs)

	case MultipleChoice:
		var correct, incorrect float64
		correctIDs := map[string]bool{}
		for _, a := range q.Answers {
			if a.IsCorrect {
				correctIDs[a.ID] = true
				correct++
			} else {
				incorrect++
			}
		}
		var correctSelected, incorrectSelected float64
		for _, r := range rs {
			if correctIDs[r.AnswerID] {
				correctSelected++
			} else {
				incorrectSelected++
			}
		}
		// Penalty denominator counts every wrong option defined for the
		// question, not just the ones selected.
		contribution := correctSelected/correct - incorrectSelected/(correct+incorrect)
		if contribution < 0 {
			contribution = 0
		}
		return contribution

	default: // single choice
		// The recorded correctness flag of the first response decides; the
		// one-selection rule is enforced when the answer is submitted.
		if len(rs) > 0 && rs[0].IsCorrect {
			return 1
		}
		return 0
	}
}

// QuestionResult is the per-question breakdown shown with attempt results.
type QuestionResult struct {
	QuestionID   string         `json:"question_id"`
	Text         string         `json:"text"`
	Type         QuestionType   `json:"type"`
	IsCorrect    bool           `json:"is_correct"`
	TeacherScore *float64       `json:"teacher_score,omitempty"`
	AIScore      *float64       `json:"ai_score,omitempty"`
	AIFeedback   string         `json:"ai_feedback,omitempty"`
	Answers      []AnswerResult `json:"answers"`
}

type AnswerResult struct {
	AnswerID   string `json:"answer_id"`
	Text       string `json:"text"`
	IsSelected bool   `json:"is_selected"`
	IsCorrect  bool   `json:"is_correct"`
}

// Classify builds the display classification for one question. Open-ended
// questions always report IsCorrect=false: the flag is not meaningful for
// free text, the scores and feedback carry the signal.
func Classify(q Question, responses []Response) QuestionResult {
	rs := responsesFor(q.ID, responses)
	res := QuestionResult{QuestionID: q.ID, Text: q.Text, Type: q.Type}

	if q.Type == OpenEnded {
		text := ""
		if len(rs) > 0 {
			text = rs[0].TextAnswer
			res.TeacherScore = rs[0].TeacherScore
			res.AIScore = rs[0].AIScore
			res.AIFeedback = rs[0].AIFeedback
		}
		res.Answers = []AnswerResult{{Text: text, IsSelected: true}}
		return res
	}

	selected := map[string]bool{}
	for _, r := range rs {
		selected[r.AnswerID] = true
	}
	for _, a := range q.Answers {
		res.Answers = append(res.Answers, AnswerResult{
			AnswerID:   a.ID,
			Text:       a.Text,
			IsSelected: selected[a.ID],
			IsCorrect:  a.IsCorrect,
		})
	}

	if q.Type == MultipleChoice {
		correct := map[string]bool{}
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct[a.ID] = true
			}
		}
		res.IsCorrect = setsEqual(selected, correct)
	} else {
		res.IsCorrect = len(rs) > 0 && rs[0].IsCorrect
	}
	return res
}

func responsesFor(questionID string, responses []Response) []Response {
	var out []Response
	for _, r := range responses {
		if r.QuestionID == questionID {
			out = append(out, r)
		}
	}
	return out
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
