package order

import (
	"context"
	"strings"

	"github.com/freeeve/orderdesk/internal/engine"
)

// Replace returns list with any order for o's unit removed and o appended.
// The input slice is not modified.
func Replace(list []string, o Order) []string {
	out := Remove(list, o.UnitID())
	return append(out, o.String())
}

// Remove returns list without the orders whose unit identity equals unitID.
// The input slice is not modified.
func Remove(list []string, unitID string) []string {
	id := IdentityOf(unitID)
	out := make([]string, 0, len(list))
	for _, s := range list {
		if IdentityOf(s) == id {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Book performs whole-list read-modify-write updates of a party's pending
// orders against the engine. Every mutating method issues exactly one
// SetOrders call.
type Book struct {
	eng engine.Engine
}

// NewBook returns a Book writing through eng.
func NewBook(eng engine.Engine) *Book {
	return &Book{eng: eng}
}

// Submit replaces any pending order for o's unit with o.
func (b *Book) Submit(ctx context.Context, party engine.Party, o Order) ([]string, error) {
	current, err := b.eng.Orders(ctx, party)
	if err != nil {
		return nil, err
	}
	next := Replace(current, o)
	if err := b.eng.SetOrders(ctx, party, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes the pending order for unitID. Deleting an order that does
// not exist still rewrites the list unchanged.
func (b *Book) Delete(ctx context.Context, party engine.Party, unitID string) ([]string, error) {
	current, err := b.eng.Orders(ctx, party)
	if err != nil {
		return nil, err
	}
	next := Remove(current, unitID)
	if err := b.eng.SetOrders(ctx, party, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ReplaceAll sets the party's orders from free text, one order per line.
// Blank lines are skipped and a later line for the same unit replaces an
// earlier one. Order text is passed to the engine as typed; the engine is
// the judge of its validity.
func (b *Book) ReplaceAll(ctx context.Context, party engine.Party, text string) ([]string, error) {
	next := Lines(text)
	if err := b.eng.SetOrders(ctx, party, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clear removes every pending order for party.
func (b *Book) Clear(ctx context.Context, party engine.Party) error {
	return b.eng.SetOrders(ctx, party, []string{})
}

// Pending returns the parsed pending order for unitID, if one exists and
// parses.
func (b *Book) Pending(ctx context.Context, party engine.Party, unitID string) (Order, bool, error) {
	current, err := b.eng.Orders(ctx, party)
	if err != nil {
		return Order{}, false, err
	}
	o, ok := Find(current, party, unitID)
	return o, ok, nil
}

// Find returns the parsed order for unitID in list.
func Find(list []string, party engine.Party, unitID string) (Order, bool) {
	id := IdentityOf(unitID)
	for _, s := range list {
		if IdentityOf(s) != id {
			continue
		}
		o, err := Parse(s, party)
		if err != nil {
			return Order{}, false
		}
		return o, true
	}
	return Order{}, false
}

// Lines splits multi-line order text into trimmed order strings, keeping one
// order per unit (the last one wins, in the position of the first).
func Lines(text string) []string {
	var out []string
	index := make(map[string]int)
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		id := IdentityOf(line)
		if i, ok := index[id]; ok {
			out[i] = line
			continue
		}
		index[id] = len(out)
		out = append(out, line)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
