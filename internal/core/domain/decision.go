package domain

// DecisionKind classifies the reconciliation outcome for one exam.
type DecisionKind int

const (
	// DecisionAlreadyPresent means an identical document already exists
	// in the exam's destination category.
	DecisionAlreadyPresent DecisionKind = iota

	// DecisionMissing means the exam is absent from its category and
	// eligible for upload.
	DecisionMissing

	// DecisionUntracked means the exam's code has no mapped category,
	// or the category could not be enumerated and was degraded.
	DecisionUntracked

	// DecisionBlocked means the exam's content identity is on the
	// known-bad list and must never be uploaded.
	DecisionBlocked
)

// String returns a human-readable name for the decision kind.
func (k DecisionKind) String() string {
	switch k {
	case DecisionAlreadyPresent:
		return "already-present"
	case DecisionMissing:
		return "missing"
	case DecisionUntracked:
		return "untracked"
	case DecisionBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Decision is the engine's verdict for a single exam.
type Decision struct {
	// Exam is the source item the decision applies to.
	Exam Exam

	// Kind is the outcome.
	Kind DecisionKind

	// Identity is the exam's content identity. Zero for untracked exams
	// whose bytes were never fetched.
	Identity ContentIdentity

	// Reason carries extra context, e.g. why a category was degraded.
	Reason string
}

// Candidate is a missing exam retained for upload. The content is
// buffered while hashing so the upload does not re-fetch the archive.
type Candidate struct {
	Exam     Exam
	Category Category
	Identity ContentIdentity

	// Label is the exam sitting (diet) used as the display name.
	Label string

	// Content holds the full document bytes.
	Content []byte
}
