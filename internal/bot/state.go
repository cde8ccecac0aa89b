package bot

import (
	"sync"
	"time"

	"sportbook/internal/api"
	"sportbook/internal/selection"
)

type flowStep string

const (
	stepNone         flowStep = "none"
	stepTenant       flowStep = "tenant"
	stepBranch       flowStep = "branch"
	stepResource     flowStep = "resource"
	stepWeek         flowStep = "week"
	stepDiscountCode flowStep = "discount_code"
	stepPreview      flowStep = "preview"
	stepRejectReason flowStep = "reject_reason"
	stepBlockReason  flowStep = "block_reason"
)

// BookingDraft accumulates the user's choices across the flow.
type BookingDraft struct {
	TenantID     string
	TenantName   string
	BranchID     string
	BranchName   string
	ResourceID   string
	ResourceName string
	SlotMinutes  int
	HourlyPrice  float64
	Currency     string

	WeekPivot time.Time
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM

	DiscountCode string
	Quote        *api.DiscountQuote

	// pending rejection: which booking the typed reason applies to
	RejectBookingID string
}

type userState struct {
	Step       flowStep
	Draft      BookingDraft
	Blocking   bool // admin is picking corners instead of booking
	Candidates []selection.BlockCandidate
	GridRows   int  // row count of the last rendered grid
	GridMsgID  int  // message to edit on week navigation
	GridChatID int64
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*userState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*userState)}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
