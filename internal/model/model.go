package model

import "time"

// DeskView is the state of the order desk after an action, as shown to the
// operator next to the rendered map.
type DeskView struct {
	Phase         string              `json:"phase"`
	Interaction   string              `json:"interaction"` // click, menu
	Selection     SelectionView       `json:"selection"`
	Options       []string            `json:"options,omitempty"`
	Message       string              `json:"message,omitempty"`
	MessageKind   string              `json:"message_kind,omitempty"`
	LastOrder     string              `json:"last_order,omitempty"`
	Parties       []string            `json:"parties"`
	Orders        map[string][]string `json:"orders"`
	Units         map[string][]string `json:"units"`
	RenderVersion uint64              `json:"render_version"`
}

// Message kinds reported in DeskView.MessageKind.
const (
	MessageOK             = "ok"
	MessageInfo           = "info"
	MessageRejected       = "rejected"
	MessageEngineRejected = "engine_rejected"
	MessageError          = "error"
)

// SelectionView describes the current selection.
type SelectionView struct {
	State       string   `json:"state"` // idle, unit_selected, awaiting_support_target, awaiting_convoy_target
	Unit        string   `json:"unit,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Supportable []string `json:"supportable,omitempty"`
	Carried     string   `json:"carried,omitempty"`
}

// JournalEntry records one desk event for later review.
type JournalEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Phase     string    `json:"phase,omitempty"`
	Party     string    `json:"party,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Order     string    `json:"order,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal entry kinds.
const (
	JournalOrder     = "order"
	JournalDelete    = "delete"
	JournalReplace   = "replace"
	JournalClear     = "clear"
	JournalRejection = "rejection"
	JournalProcess   = "process"
	JournalReset     = "reset"
)
