// Package notation translates the HUB wire forms for draughts positions
// and moves. It validates shape only; move legality belongs to the engine.
package notation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Squares is the number of playable squares on the 10x10 board.
const Squares = 50

type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "B"
	}
	return "W"
}

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "W", "w":
		return White, nil
	case "B", "b":
		return Black, nil
	}
	return White, fmt.Errorf("bad side marker %q", s)
}

// Position holds piece placement by square number (1..50, the standard
// numbering from Black's back rank). Kings are listed separately from men.
type Position struct {
	Turn       Side
	WhiteMen   []int
	BlackMen   []int
	WhiteKings []int
	BlackKings []int
}

// StartPosition is the initial setup of international draughts: Black on
// 1-20, White on 31-50, White to move.
func StartPosition() Position {
	p := Position{Turn: White}
	for sq := 1; sq <= 20; sq++ {
		p.BlackMen = append(p.BlackMen, sq)
	}
	for sq := 31; sq <= 50; sq++ {
		p.WhiteMen = append(p.WhiteMen, sq)
	}
	return p
}

// ParsePosition accepts both wire forms: the compact 51-character string
// (side marker followed by one of "wbWBe" per square) and the delimited
// form "W:<white>:<black>[:<kings>]" with comma-separated square numbers.
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Position{}, fmt.Errorf("empty position")
	}
	if strings.ContainsRune(s, ':') {
		return parseDelimited(s)
	}
	return parseCompact(s)
}

func parseCompact(s string) (Position, error) {
	if len(s) != Squares+1 {
		return Position{}, fmt.Errorf("compact position length %d, want %d", len(s), Squares+1)
	}
	turn, err := ParseSide(s[:1])
	if err != nil {
		return Position{}, err
	}
	p := Position{Turn: turn}
	for i, r := range s[1:] {
		sq := i + 1
		switch r {
		case 'w':
			p.WhiteMen = append(p.WhiteMen, sq)
		case 'b':
			p.BlackMen = append(p.BlackMen, sq)
		case 'W':
			p.WhiteKings = append(p.WhiteKings, sq)
		case 'B':
			p.BlackKings = append(p.BlackKings, sq)
		case 'e':
		default:
			return Position{}, fmt.Errorf("bad piece char %q at square %d", string(r), sq)
		}
	}
	return p, nil
}

func parseDelimited(s string) (Position, error) {
	groups := strings.Split(s, ":")
	if len(groups) < 3 || len(groups) > 4 {
		return Position{}, fmt.Errorf("position has %d groups, want 3 or 4", len(groups))
	}
	turn, err := ParseSide(groups[0])
	if err != nil {
		return Position{}, err
	}
	white, err := parseSquareList(groups[1])
	if err != nil {
		return Position{}, fmt.Errorf("white group: %w", err)
	}
	black, err := parseSquareList(groups[2])
	if err != nil {
		return Position{}, fmt.Errorf("black group: %w", err)
	}

	var kings []int
	if len(groups) == 4 {
		kings, err = parseSquareList(groups[3])
		if err != nil {
			return Position{}, fmt.Errorf("kings group: %w", err)
		}
	}

	p := Position{Turn: turn}
	kingSet := make(map[int]bool, len(kings))
	for _, sq := range kings {
		kingSet[sq] = true
	}
	for _, sq := range white {
		if kingSet[sq] {
			p.WhiteKings = append(p.WhiteKings, sq)
		} else {
			p.WhiteMen = append(p.WhiteMen, sq)
		}
	}
	for _, sq := range black {
		if kingSet[sq] {
			p.BlackKings = append(p.BlackKings, sq)
		} else {
			p.BlackMen = append(p.BlackMen, sq)
		}
	}
	for _, sq := range kings {
		if !contains(white, sq) && !contains(black, sq) {
			return Position{}, fmt.Errorf("king on empty square %d", sq)
		}
	}
	return p, nil
}

func parseSquareList(group string) ([]int, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, nil
	}
	parts := strings.Split(group, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		sq, err := parseSquare(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	sort.Ints(out)
	return out, nil
}

func parseSquare(s string) (int, error) {
	sq, err := strconv.Atoi(s)
	if err != nil || sq < 1 || sq > Squares {
		return 0, fmt.Errorf("bad square %q", s)
	}
	return sq, nil
}

// Hub renders the compact 51-character wire form.
func (p Position) Hub() string {
	board := make([]byte, Squares)
	for i := range board {
		board[i] = 'e'
	}
	for _, sq := range p.WhiteMen {
		board[sq-1] = 'w'
	}
	for _, sq := range p.BlackMen {
		board[sq-1] = 'b'
	}
	for _, sq := range p.WhiteKings {
		board[sq-1] = 'W'
	}
	for _, sq := range p.BlackKings {
		board[sq-1] = 'B'
	}
	return p.Turn.String() + string(board)
}

// String renders the delimited form.
func (p Position) String() string {
	var kings []int
	kings = append(kings, p.WhiteKings...)
	kings = append(kings, p.BlackKings...)
	sort.Ints(kings)

	var white []int
	white = append(white, p.WhiteMen...)
	white = append(white, p.WhiteKings...)
	sort.Ints(white)
	var black []int
	black = append(black, p.BlackMen...)
	black = append(black, p.BlackKings...)
	sort.Ints(black)

	out := p.Turn.String() + ":" + joinSquares(white) + ":" + joinSquares(black)
	if len(kings) > 0 {
		out += ":" + joinSquares(kings)
	}
	return out
}

// PieceAt reports the occupant of a square as one of 'w', 'b', 'W', 'B'
// or 'e' for empty.
func (p Position) PieceAt(sq int) byte {
	switch {
	case contains(p.WhiteMen, sq):
		return 'w'
	case contains(p.BlackMen, sq):
		return 'b'
	case contains(p.WhiteKings, sq):
		return 'W'
	case contains(p.BlackKings, sq):
		return 'B'
	}
	return 'e'
}

func joinSquares(sqs []int) string {
	parts := make([]string, len(sqs))
	for i, sq := range sqs {
		parts[i] = strconv.Itoa(sq)
	}
	return strings.Join(parts, ",")
}

func contains(sqs []int, sq int) bool {
	for _, v := range sqs {
		if v == sq {
			return true
		}
	}
	return false
}

// Move is one half-move in wire notation. A quiet move is from-to; a
// capture lists every landing square in jump order, the last being To.
type Move struct {
	From     int
	Landings []int
	Capture  bool
}

// To returns the final landing square.
func (m Move) To() int {
	if len(m.Landings) == 0 {
		return m.From
	}
	return m.Landings[len(m.Landings)-1]
}

// IsCapture reports whether the move was written with capture notation.
func (m Move) IsCapture() bool {
	return m.Capture
}

// ParseMove parses "32-28" and "32x21x12" style tokens.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	var sep string
	switch {
	case strings.ContainsRune(s, 'x'):
		sep = "x"
	case strings.ContainsRune(s, '-'):
		sep = "-"
	default:
		return Move{}, fmt.Errorf("bad move %q", s)
	}

	parts := strings.Split(s, sep)
	if len(parts) < 2 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	if sep == "-" && len(parts) != 2 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}

	from, err := parseSquare(parts[0])
	if err != nil {
		return Move{}, fmt.Errorf("bad move %q: %w", s, err)
	}
	m := Move{From: from, Capture: sep == "x"}
	for _, part := range parts[1:] {
		sq, err := parseSquare(part)
		if err != nil {
			return Move{}, fmt.Errorf("bad move %q: %w", s, err)
		}
		m.Landings = append(m.Landings, sq)
	}
	return m, nil
}

// ParseMoveList splits a space-separated move list, preserving order.
func ParseMoveList(s string) ([]Move, error) {
	fields := strings.Fields(s)
	out := make([]Move, 0, len(fields))
	for _, f := range fields {
		m, err := ParseMove(f)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (m Move) String() string {
	sep := "-"
	if m.IsCapture() {
		sep = "x"
	}
	parts := make([]string, 0, len(m.Landings)+1)
	parts = append(parts, strconv.Itoa(m.From))
	for _, sq := range m.Landings {
		parts = append(parts, strconv.Itoa(sq))
	}
	return strings.Join(parts, sep)
}
