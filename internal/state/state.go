// Package state holds the in-process workflow state of the bot: submitted posts awaiting
// moderation, paid-action requests and shared phone contacts. None of it survives a restart.
package state

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"newsbot/internal/models"
)

var (
	// ErrNotFound is returned when no matching entry exists
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessed is returned when the entry already left the state an action requires
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrInProgress is returned while another action on the same entry is running
	ErrInProgress = errors.New("action in progress")
)

// State is the single holder of workflow state shared by all handlers
type State struct {
	mu sync.Mutex

	lastPostID atomic.Int64
	posts      map[int64]*models.PendingPost
	publishing map[int64]bool

	payments   map[int64]*models.PendingPayment
	processing map[int64]bool

	phones map[int64]string
}

// New creates an empty state
func New() *State {
	return &State{
		posts:      make(map[int64]*models.PendingPost),
		publishing: make(map[int64]bool),
		payments:   make(map[int64]*models.PendingPayment),
		processing: make(map[int64]bool),
		phones:     make(map[int64]string),
	}
}

// SeedPostID makes the next post id start after highWater
func (s *State) SeedPostID(highWater int64) {
	for {
		cur := s.lastPostID.Load()
		if highWater <= cur || s.lastPostID.CompareAndSwap(cur, highWater) {
			return
		}
	}
}

// LastPostID returns the most recently assigned post id
func (s *State) LastPostID() int64 {
	return s.lastPostID.Load()
}

// AddPendingPost assigns the next id and stores the post as pending
func (s *State) AddPendingPost(post models.PendingPost) models.PendingPost {
	post.ID = s.lastPostID.Inc()
	post.Status = models.PostPending
	post.Media = append([]models.MediaItem(nil), post.Media...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = &post
	return copyPost(&post)
}

// PendingPost returns a copy of the post with the given id
func (s *State) PendingPost(id int64) (models.PendingPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return models.PendingPost{}, false
	}
	return copyPost(p), true
}

// PendingPosts returns all posts still waiting for a decision, oldest first
func (s *State) PendingPosts() []models.PendingPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PendingPost
	for _, p := range s.posts {
		if p.Status == models.PostPending {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BeginApproval marks a pending post as being published. The status stays pending until
// FinishApproval reports success.
func (s *State) BeginApproval(id int64) (models.PendingPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingLocked(id)
	if err != nil {
		return models.PendingPost{}, err
	}
	s.publishing[id] = true
	return copyPost(p), nil
}

// FinishApproval ends a publish attempt. On success the post becomes approved,
// otherwise it stays pending and can be approved again.
func (s *State) FinishApproval(id int64, published bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.publishing, id)
	if p, ok := s.posts[id]; ok && published && p.Status == models.PostPending {
		p.Status = models.PostApproved
	}
}

// Reject moves a pending post to rejected
func (s *State) Reject(id int64) (models.PendingPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingLocked(id)
	if err != nil {
		return models.PendingPost{}, err
	}
	p.Status = models.PostRejected
	return copyPost(p), nil
}

// RequestEvidence flags a pending post as waiting for evidence from its author
func (s *State) RequestEvidence(id, moderatorID int64) (models.PendingPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pendingLocked(id)
	if err != nil {
		return models.PendingPost{}, err
	}
	p.AwaitingEvidence = true
	p.EvidenceRequestedBy = moderatorID
	return copyPost(p), nil
}

// TakeEvidenceRequest returns the oldest pending post of the user that waits for evidence
// and clears its flag
func (s *State) TakeEvidenceRequest(userID int64) (models.PendingPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.PendingPost
	for _, p := range s.posts {
		if p.UserID != userID || !p.AwaitingEvidence || p.Status != models.PostPending {
			continue
		}
		if found == nil || p.ID < found.ID {
			found = p
		}
	}
	if found == nil {
		return models.PendingPost{}, false
	}
	found.AwaitingEvidence = false
	return copyPost(found), true
}

func (s *State) pendingLocked(id int64) (*models.PendingPost, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != models.PostPending {
		return nil, ErrAlreadyProcessed
	}
	if s.publishing[id] {
		return nil, ErrInProgress
	}
	return p, nil
}

// SetPayment creates or overwrites the requester's payment entry in awaiting-proof state
func (s *State) SetPayment(requesterID int64, action models.PaymentAction, targetMsgID, price int, at time.Time) models.PendingPayment {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &models.PendingPayment{
		RequesterID: requesterID,
		Action:      action,
		TargetMsgID: targetMsgID,
		Status:      models.PaymentAwaitingProof,
		Price:       price,
		RequestedAt: at,
	}
	s.payments[requesterID] = p
	delete(s.processing, requesterID)
	return *p
}

// Payment returns a copy of the requester's payment entry
func (s *State) Payment(requesterID int64) (models.PendingPayment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[requesterID]
	if !ok {
		return models.PendingPayment{}, false
	}
	return *p, true
}

// AwaitingProof returns the requester's payment if it still waits for proof
func (s *State) AwaitingProof(requesterID int64) (models.PendingPayment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[requesterID]
	if !ok || p.Status != models.PaymentAwaitingProof {
		return models.PendingPayment{}, false
	}
	return *p, true
}

// MarkProofSent moves an awaiting-proof payment to proof-sent
func (s *State) MarkProofSent(requesterID int64, at time.Time) (models.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[requesterID]
	if !ok {
		return models.PendingPayment{}, ErrNotFound
	}
	if p.Status != models.PaymentAwaitingProof {
		return models.PendingPayment{}, ErrAlreadyProcessed
	}
	p.Status = models.PaymentProofSent
	p.ProofSentAt = at
	return *p, nil
}

// ClaimPayment validates the requester/target/action triad against the stored entry and
// reserves it for a moderator decision. Release it with ReleasePayment or CompletePayment.
func (s *State) ClaimPayment(requesterID int64, targetMsgID int, action models.PaymentAction) (models.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.matchLocked(requesterID, targetMsgID, action)
	if err != nil {
		return models.PendingPayment{}, err
	}
	s.processing[requesterID] = true
	return *p, nil
}

// ReleasePayment drops a claim without changing the payment
func (s *State) ReleasePayment(requesterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processing, requesterID)
}

// CompletePayment marks a claimed payment completed
func (s *State) CompletePayment(requesterID, moderatorID int64, at time.Time) (models.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.processing, requesterID)
	p, ok := s.payments[requesterID]
	if !ok {
		return models.PendingPayment{}, ErrNotFound
	}
	if p.Status != models.PaymentProofSent {
		return models.PendingPayment{}, ErrAlreadyProcessed
	}
	p.Status = models.PaymentCompleted
	p.CompletedBy = moderatorID
	p.CompletedAt = at
	return *p, nil
}

// RejectPayment validates the triad and marks the payment rejected
func (s *State) RejectPayment(requesterID int64, targetMsgID int, action models.PaymentAction, moderatorID int64, at time.Time) (models.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.matchLocked(requesterID, targetMsgID, action)
	if err != nil {
		return models.PendingPayment{}, err
	}
	p.Status = models.PaymentRejected
	p.RejectedBy = moderatorID
	p.RejectedAt = at
	return *p, nil
}

// Payments returns every payment entry ordered by request time
func (s *State) Payments() []models.PendingPayment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PendingPayment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].RequesterID < out[j].RequesterID
	})
	return out
}

// StuckPayments returns payments whose proof was sent but not yet decided
func (s *State) StuckPayments() []models.PendingPayment {
	var out []models.PendingPayment
	for _, p := range s.Payments() {
		if p.Status == models.PaymentProofSent {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) matchLocked(requesterID int64, targetMsgID int, action models.PaymentAction) (*models.PendingPayment, error) {
	p, ok := s.payments[requesterID]
	if !ok || p.TargetMsgID != targetMsgID || p.Action != action {
		return nil, ErrNotFound
	}
	if p.Status != models.PaymentProofSent {
		return nil, ErrAlreadyProcessed
	}
	if s.processing[requesterID] {
		return nil, ErrInProgress
	}
	return p, nil
}

// SetPhone remembers the phone number a user shared
func (s *State) SetPhone(userID int64, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones[userID] = phone
}

// Phone returns the phone number a user shared, if any
func (s *State) Phone(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phones[userID]
}

func copyPost(p *models.PendingPost) models.PendingPost {
	c := *p
	c.Media = append([]models.MediaItem(nil), p.Media...)
	return c
}
