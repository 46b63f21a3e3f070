package board

import (
	"fmt"
	"strings"

	"chessarena/internal/server/core"
)

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

// pieceLetters are the uppercase SAN/FEN letters, indexed by PieceType
const pieceLetters = " PNBRQK"

func (p PieceType) String() string {
	if int(p) < len(pieceNames) {
		return pieceNames[p]
	}
	return "unknown"
}

// Letter returns the uppercase SAN letter ('P' for pawns)
func (p PieceType) Letter() byte {
	if p == NoPieceType || int(p) >= len(pieceLetters) {
		return '?'
	}
	return pieceLetters[p]
}

// PieceTypeFromLetter accepts upper or lower case letters
func PieceTypeFromLetter(c byte) PieceType {
	if i := strings.IndexByte(pieceLetters, c&^0x20); i > 0 {
		return PieceType(i)
	}
	return NoPieceType
}

// ParsePieceType accepts full names ("queen") or letters ("q", "Q")
func ParsePieceType(s string) (PieceType, error) {
	if len(s) == 1 {
		if p := PieceTypeFromLetter(s[0]); p != NoPieceType {
			return p, nil
		}
	}
	for i, name := range pieceNames {
		if i > 0 && strings.EqualFold(name, s) {
			return PieceType(i), nil
		}
	}
	return NoPieceType, fmt.Errorf("invalid piece type: %q", s)
}

func (p PieceType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PieceType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = NoPieceType
		return nil
	}
	parsed, err := ParsePieceType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsSlider reports whether the piece moves along rays
func (p PieceType) IsSlider() bool {
	return p == Bishop || p == Rook || p == Queen
}

// Piece is the zero value for an empty square
type Piece struct {
	Type  PieceType  `json:"type"`
	Color core.Color `json:"color"`
	Moved bool       `json:"moved"`
}

func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

// FENChar returns the FEN letter, uppercase for white
func (p Piece) FENChar() byte {
	if p.IsEmpty() {
		return '.'
	}
	c := p.Type.Letter()
	if p.Color == core.ColorBlack {
		c |= 0x20
	}
	return c
}
