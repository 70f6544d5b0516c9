package services

const (
	MinDescriptionLength = 1
	MaxDescriptionLength = 200
	MaxNotesLength       = 1000
)

const (
	// MaxExpenseCents caps a single expense at ten million in major units.
	MaxExpenseCents = 1_000_000_000
)

const (
	GeneralRateLimit = 500
	AIRateLimit      = 8
)
