package models

import "time"

// MediaKind is the type of a media item attached to a post
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// MediaItem is a single photo or video referenced by its Telegram file id
type MediaItem struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// PostStatus is the moderation status of a submitted post
type PostStatus string

const (
	PostPending  PostStatus = "pending"
	PostApproved PostStatus = "approved"
	PostRejected PostStatus = "rejected"
)

// PendingPost represents a submitted post awaiting a moderator decision
type PendingPost struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Username    string      `json:"username"`
	AuthorPhone string      `json:"author_phone,omitempty"`
	Caption     string      `json:"caption"`
	Media       []MediaItem `json:"media"`
	IsAlbum     bool        `json:"is_album"`
	Status      PostStatus  `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`

	AwaitingEvidence    bool  `json:"awaiting_evidence"`
	EvidenceRequestedBy int64 `json:"evidence_requested_by,omitempty"`
}

// PublishedPost is the durable record of an approved post, keyed by the channel message id
type PublishedPost struct {
	MessageID      int
	PostID         int64
	AuthorID       int64
	AuthorUsername string
	AuthorPhone    string
	PublishedAt    time.Time
	ChannelID      int64
	Caption        string
}

// PaymentAction is the paid action a requester asked for
type PaymentAction string

const (
	ActionInfo   PaymentAction = "info"
	ActionDelete PaymentAction = "delete"
)

// Valid reports whether the action is one of the known paid actions
func (a PaymentAction) Valid() bool {
	return a == ActionInfo || a == ActionDelete
}

// PaymentStatus tracks a paid action through proof submission and moderator review
type PaymentStatus string

const (
	PaymentAwaitingProof PaymentStatus = "awaiting_proof"
	PaymentProofSent     PaymentStatus = "proof_sent"
	PaymentCompleted     PaymentStatus = "completed"
	PaymentRejected      PaymentStatus = "rejected"
)

// PendingPayment is a requester's in-progress paid action
type PendingPayment struct {
	RequesterID int64         `json:"requester_id"`
	Action      PaymentAction `json:"action"`
	TargetMsgID int           `json:"target_msg_id"`
	Status      PaymentStatus `json:"status"`
	Price       int           `json:"price"`
	RequestedAt time.Time     `json:"requested_at"`
	ProofSentAt time.Time     `json:"proof_sent_at,omitempty"`

	CompletedBy int64     `json:"completed_by,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	RejectedBy  int64     `json:"rejected_by,omitempty"`
	RejectedAt  time.Time `json:"rejected_at,omitempty"`
}
