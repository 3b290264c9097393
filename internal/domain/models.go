package domain

import "sort"

// Question models an MCQ question. Options are keyed by a short option key and
// Answer names the correct key. Whether Answer actually appears in Options is
// not validated anywhere; scoring treats a dangling answer key as incorrect.
type Question struct {
	Prompt  string            `json:"prompt"`
	Options map[string]string `json:"options"`
	Answer  string            `json:"answer"`
}

// SubjectTree is one full snapshot of the content catalog, keyed first by
// subject name and then by question ID. Snapshots are replaced wholesale on
// update, never merged.
type SubjectTree map[string]map[string]Question

// Counts returns the number of questions per subject.
func (t SubjectTree) Counts() map[string]int {
	counts := make(map[string]int, len(t))
	for subject, questions := range t {
		counts[subject] = len(questions)
	}
	return counts
}

// OrderedQuestions flattens a subject's question map into a list ordered by
// question ID, so reads are deterministic regardless of map iteration order.
// Nil if the subject is absent.
func (t SubjectTree) OrderedQuestions(subject string) []Question {
	byID, ok := t[subject]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	questions := make([]Question, 0, len(ids))
	for _, id := range ids {
		questions = append(questions, byID[id])
	}
	return questions
}

// UpdateManifest is the small externally hosted document describing the
// currently intended content version. Consumed read-only.
type UpdateManifest struct {
	Version      string `json:"version"`
	Message      string `json:"message"`
	Blocked      bool   `json:"blocked"`
	UpdateNotice string `json:"updateNotice"`
}

// QuizResult records one completed quiz. Immutable once created; history is
// append-only, newest first.
type QuizResult struct {
	Subject     string   `json:"subject"`
	Score       int      `json:"score"`
	Total       int      `json:"total"`
	Timestamp   int64    `json:"timestamp"` // epoch millis
	UserAnswers []string `json:"userAnswers"`
}

// UserProfile is the locally stored user identity.
type UserProfile struct {
	Name     string `json:"name"`
	AvatarID string `json:"avatarId"`
}
