package domain

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// InterestedIn values; EVERYONE matches any gender.
const (
	InterestedInMen      = "MEN"
	InterestedInWomen    = "WOMEN"
	InterestedInEveryone = "EVERYONE"
)

const (
	ActivityLight    = "LIGHT"
	ActivityModerate = "MODERATE"
	ActivityActive   = "ACTIVE"
	ActivityAthlete  = "ATHLETE"
)

// Workout styles shown in onboarding and used as feed filters.
var WorkoutStyles = []string{
	"STRENGTH", "CROSSFIT", "RUNNING", "CYCLING", "YOGA", "PILATES",
	"HIIT", "SWIMMING", "CLIMBING", "BOXING", "TEAM_SPORTS", "HIKING",
}

// Transaction kinds recorded in the crush ledger.
const (
	TxSent                  = "sent"
	TxPurchased             = "purchased"
	TxBonus                 = "bonus"
	TxRefund                = "refund"
	TxSubscriptionStarted   = "subscription_started"
	TxSubscriptionRenewed   = "subscription_renewed"
	TxSubscriptionCancelled = "subscription_cancelled"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

const (
	NotificationCrushReceived   = "CRUSH_RECEIVED"
	NotificationMatchCreated    = "MATCH_CREATED"
	NotificationMessageReceived = "MESSAGE_RECEIVED"
	NotificationPaymentConfirm  = "PAYMENT_CONFIRMED"
	NotificationSubscription    = "SUBSCRIPTION_UPDATED"
)

// Outbox event types; they double as Kafka message types.
const (
	EventCrushReceived   = "crush.received"
	EventMatchCreated    = "match.created"
	EventMessageReceived = "message.received"
	EventPaymentDone     = "payment.completed"
	EventSubscription    = "subscription.updated"
)

const (
	DefaultCrushBalance = 5
	MaxProfilePhotos    = 6
	MinAge              = 18
	MaxMessageLength    = 2000 // runes
)
