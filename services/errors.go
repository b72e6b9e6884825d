package services

import "errors"

// Resolver error taxonomy. Handlers map these onto HTTP statuses; none of
// them leaves a partial write behind — a failed resolver call always rolls
// the whole transition back.

// Mission resolver
var (
	ErrMissionInactive        = errors.New("mission is not active")
	ErrOutsideWindow          = errors.New("outside mission submission window")
	ErrAlreadyCompleted       = errors.New("mission already completed")
	ErrAlreadyPending         = errors.New("a pending submission already exists")
	ErrCompletionLimitReached = errors.New("mission completion limit reached")
	ErrInvalidEvidence        = errors.New("submitted evidence does not satisfy the mission")
)

// Auction resolver
var (
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrBidTooLow        = errors.New("bid below current price plus minimum increment")
	ErrStalePrice       = errors.New("bid lost a concurrent price update, re-read and retry")
	ErrAlreadyClosed    = errors.New("auction already closed")
	ErrNoLeaderBid      = errors.New("auction has no bids to close on")
	ErrParticipantHasNoTeam = errors.New("participant has no team")
)

// Race resolver
var (
	ErrRaceNotStarted  = errors.New("race has not been started")
	ErrNotARace        = errors.New("mission is not a race")
	ErrAlreadyResolved = errors.New("submission is not pending")
)

// Challenge resolver
var (
	ErrChallengeAlreadyCompleted = errors.New("challenge already completed, points were awarded")
	ErrChallengeNotOpen          = errors.New("challenge is not accepting results")
	ErrNoResultsToScore          = errors.New("challenge has no results to score")
	ErrParticipantCapExceeded    = errors.New("team participant cap reached for this challenge")
)

// Shared
var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidInput = errors.New("invalid input")
)
