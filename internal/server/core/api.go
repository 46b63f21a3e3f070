package core

// Request types

type CreateGameRequest struct {
	White PlayerConfig `json:"white"`
	Black PlayerConfig `json:"black"`
	FEN   string       `json:"fen,omitempty" validate:"omitempty,max=100"`
}

// MoveRequest carries either a coordinate move (from/to) or a SAN string
type MoveRequest struct {
	From      string `json:"from,omitempty" validate:"required_without=Notation,omitempty,len=2"`
	To        string `json:"to,omitempty" validate:"required_without=Notation,omitempty,len=2"`
	Promotion string `json:"promotion,omitempty" validate:"omitempty,oneof=q r b n Q R B N"`
	Notation  string `json:"notation,omitempty" validate:"omitempty,min=2,max=10"`
	PlayerID  string `json:"playerId,omitempty" validate:"omitempty,uuid"`
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=300"` // Max based on longest games in history (272), theoretical max 5949
}

type ResignRequest struct {
	Color string `json:"color" validate:"required,oneof=w b white black"`
}

type DrawRequest struct {
	Color  string `json:"color" validate:"required,oneof=w b white black"`
	Action string `json:"action" validate:"required,oneof=offer accept decline claim"`
}

// Response types

type GameResponse struct {
	GameID       string          `json:"gameId"`
	FEN          string          `json:"fen"`
	InitialFEN   string          `json:"initialFen"`
	Turn         string          `json:"turn"`  // "w" or "b"
	State        string          `json:"state"` // "active", "check", "checkmate", ...
	Winner       string          `json:"winner,omitempty"`
	Board        [8][8]string    `json:"board"` // [rank][file], rank 0 is rank 1, "" for empty
	Moves        []MoveInfo      `json:"moves"`
	Players      PlayersResponse `json:"players"`
	DrawOffer    string          `json:"drawOffer,omitempty"`
	CanClaimDraw bool            `json:"canClaimDraw"`
	Revision     int             `json:"revision"`
	LastMove     *MoveInfo       `json:"lastMove,omitempty"`
}

// MoveInfo is the flat per-ply record handed to presentation and storage
type MoveInfo struct {
	Ply            int    `json:"ply"`
	From           string `json:"from"`
	To             string `json:"to"`
	Piece          string `json:"piece"`
	PlayerColor    string `json:"playerColor"` // "w" or "b"
	IsCapture      bool   `json:"isCapture"`
	IsCheck        bool   `json:"isCheck"`
	IsCheckmate    bool   `json:"isCheckmate"`
	IsCastle       bool   `json:"isCastle"`
	IsEnPassant    bool   `json:"isEnPassant,omitempty"`
	IsPromotion    bool   `json:"isPromotion"`
	PromotionPiece string `json:"promotionPiece,omitempty"`
	Notation       string `json:"notation"`
}

type PlayersResponse struct {
	White *Player `json:"white"`
	Black *Player `json:"black"`
}

type LegalMovesResponse struct {
	From    string     `json:"from"`
	Targets []MoveInfo `json:"targets"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
