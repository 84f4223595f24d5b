package enum

// FeedbackKind identifies an explicit or implicit user signal.
type FeedbackKind string

const (
	FeedbackKindLike            FeedbackKind = "like"
	FeedbackKindDislike         FeedbackKind = "dislike"
	FeedbackKindSave            FeedbackKind = "save"
	FeedbackKindShare           FeedbackKind = "share"
	FeedbackKindGenerateSimilar FeedbackKind = "generate_similar"
	FeedbackKindDelete          FeedbackKind = "delete"
	FeedbackKindCritique        FeedbackKind = "critique"
	FeedbackKindImpression      FeedbackKind = "impression_ms"
	FeedbackKindSwipe           FeedbackKind = "swipe"
)

// ValidFeedbackKind reports whether k is a known signal kind.
func ValidFeedbackKind(k FeedbackKind) bool {
	switch k {
	case FeedbackKindLike, FeedbackKindDislike, FeedbackKindSave,
		FeedbackKindShare, FeedbackKindGenerateSimilar, FeedbackKindDelete,
		FeedbackKindCritique, FeedbackKindImpression, FeedbackKindSwipe:
		return true
	default:
		return false
	}
}

// Specificity classifies how concrete a user command is.
type Specificity string

const (
	SpecificityLow    Specificity = "low"
	SpecificityMedium Specificity = "medium"
	SpecificityHigh   Specificity = "high"
)
