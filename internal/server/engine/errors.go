package engine

import (
	"errors"
	"fmt"

	"chessarena/internal/server/board"
)

var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrIllegalMove      = errors.New("illegal move")
	ErrNotPlayersTurn   = errors.New("not player's turn")
	ErrGameNotActive    = errors.New("game not active")
	ErrReplayCorruption = errors.New("replay corruption")
	ErrDrawNotClaimable = errors.New("draw not claimable")
)

// Reason names the specific check a rejected move failed
type Reason string

const (
	ReasonOutOfRange         Reason = "out-of-range"
	ReasonNoPiece            Reason = "no-piece"
	ReasonWrongColor         Reason = "wrong-color"
	ReasonUnreachable        Reason = "unreachable"
	ReasonPathBlocked        Reason = "path-blocked"
	ReasonFriendlyTarget     Reason = "friendly-target"
	ReasonCastlingRight      Reason = "castling-right"
	ReasonCastleThroughCheck Reason = "castle-through-check"
	ReasonCastleOutOfCheck   Reason = "castle-out-of-check"
	ReasonSelfCheck          Reason = "self-check"
	ReasonPromotionRequired  Reason = "promotion-required"
	ReasonInvalidPromotion   Reason = "invalid-promotion"
	ReasonUnparsable         Reason = "unparsable"
	ReasonAmbiguous          Reason = "ambiguous"
	ReasonTerminal           Reason = "terminal"
	ReasonPieceMismatch      Reason = "piece-mismatch"
)

// MoveError reports why a move was rejected. Kind is one of the sentinel errors above.
type MoveError struct {
	Kind   error
	Reason Reason
	From   board.Square
	To     board.Square
	Ply    int
}

func (e *MoveError) Error() string {
	if e.From.Valid() && e.To.Valid() {
		return fmt.Sprintf("%v %s%s: %s", e.Kind, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *MoveError) Unwrap() error { return e.Kind }

// ReplayError marks the ply at which a move log stopped replaying
type ReplayError struct {
	Ply int
	Err error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("%v at ply %d: %v", ErrReplayCorruption, e.Ply, e.Err)
}

// Unwrap exposes both ErrReplayCorruption and the underlying move error
func (e *ReplayError) Unwrap() []error {
	return []error{ErrReplayCorruption, e.Err}
}

// ReasonOf extracts the rejection reason from err, if any
func ReasonOf(err error) Reason {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Reason
	}
	return ""
}
