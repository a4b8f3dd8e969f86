// Package lifecycle classifies a market event (mercadillo) into one of seven
// mutually exclusive lifecycle states and exposes the static metadata the rest
// of the service needs to render and gate each state: colors, icon, sort
// priority and the permitted-action predicates.
package lifecycle

import (
	"errors"
	"strings"
)

// State is the derived lifecycle state of a mercadillo. The numeric value is
// also its sort priority: lower values are more urgent and are shown first.
type State int

const (
	InProgress State = iota + 1
	PendingCashCount
	PendingBalanceAssignment
	FullyScheduled
	PartiallyScheduled
	Closed
	Cancelled
)

// ErrUnknownState is returned by ParseState for codes outside the table.
var ErrUnknownState = errors.New("unknown lifecycle state")

// Meta is the design-time metadata attached to each state.
type Meta struct {
	State     State  `json:"-"`
	Code      string `json:"code"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
	Icon      string `json:"icon"`
	Priority  int    `json:"priority"`
}

// table is indexed by State; index 0 is unused.
var table = [...]Meta{
	{},
	{State: InProgress, Code: "IN_PROGRESS", Label: "En curso", Color: "#2E7D32", TextColor: "#FFFFFF", Icon: "play_circle", Priority: 1},
	{State: PendingCashCount, Code: "PENDING_CASH_COUNT", Label: "Pendiente de arqueo", Color: "#F9A825", TextColor: "#000000", Icon: "point_of_sale", Priority: 2},
	{State: PendingBalanceAssignment, Code: "PENDING_BALANCE_ASSIGNMENT", Label: "Pendiente de asignar saldo", Color: "#EF6C00", TextColor: "#FFFFFF", Icon: "account_balance_wallet", Priority: 3},
	{State: FullyScheduled, Code: "FULLY_SCHEDULED", Label: "Programado", Color: "#1565C0", TextColor: "#FFFFFF", Icon: "event_available", Priority: 4},
	{State: PartiallyScheduled, Code: "PARTIALLY_SCHEDULED", Label: "Programado sin saldo", Color: "#90CAF9", TextColor: "#000000", Icon: "event", Priority: 5},
	{State: Closed, Code: "CLOSED", Label: "Cerrado", Color: "#616161", TextColor: "#FFFFFF", Icon: "lock", Priority: 6},
	{State: Cancelled, Code: "CANCELLED", Label: "Cancelado", Color: "#C62828", TextColor: "#FFFFFF", Icon: "cancel", Priority: 7},
}

// Valid reports whether s is one of the seven defined states.
func (s State) Valid() bool { return s >= InProgress && s <= Cancelled }

func (s State) meta() Meta {
	if !s.Valid() {
		return Meta{}
	}
	return table[s]
}

// String returns the persisted code of the state ("IN_PROGRESS", ...).
func (s State) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return table[s].Code
}

// MarshalText stores states by code in JSON and in the database layer.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrUnknownState
	}
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState maps a persisted code back to its State.
func ParseState(code string) (State, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, m := range table[1:] {
		if m.Code == code {
			return m.State, nil
		}
	}
	return 0, ErrUnknownState
}

// MetaFor returns the metadata row of s.
func MetaFor(s State) Meta { return s.meta() }

// All returns the metadata of every state ordered by priority.
func All() []Meta {
	out := make([]Meta, 0, len(table)-1)
	out = append(out, table[1:]...)
	return out
}

func ColorFor(s State) string     { return s.meta().Color }
func TextColorFor(s State) string { return s.meta().TextColor }
func IconFor(s State) string      { return s.meta().Icon }

// PriorityFor ranks states for display; the lowest number wins when a
// calendar day holds several events.
func PriorityFor(s State) int { return s.meta().Priority }

// RequiresAttention is true for the two post-event states that wait on the
// vendor.
func RequiresAttention(s State) bool {
	return s == PendingCashCount || s == PendingBalanceAssignment
}

// CanBeCancelled is true iff no sales were recorded and the event is neither
// cancelled nor closed.
func CanBeCancelled(s State, hasSales bool) bool {
	if hasSales {
		return false
	}
	return s != Cancelled && s != Closed
}

// CanReceiveSales is true only while the event is in progress.
func CanReceiveSales(s State) bool { return s == InProgress }

// Terminal states are never touched by time-driven recomputation.
func Terminal(s State) bool { return s == Cancelled }

// Dominant returns the state to show for a group of events, or 0 when the
// group is empty.
func Dominant(states ...State) State {
	var best State
	for _, s := range states {
		if !s.Valid() {
			continue
		}
		if best == 0 || PriorityFor(s) < PriorityFor(best) {
			best = s
		}
	}
	return best
}
