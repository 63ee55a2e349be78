package prizepool

import (
	"fmt"
	"sort"

	"prize-pool/internal/model"
)

// NextOrder returns max(order)+1 over the pool, or 1 for an empty pool.
func NextOrder(rewards []model.Reward) int {
	highest := 0
	for _, r := range rewards {
		if r.Order > highest {
			highest = r.Order
		}
	}
	return highest + 1
}

// Reorder moves the element at from to position to, shifting the elements in
// between, and renumbers the result 1..N. Out-of-range indices fail without
// touching the input; the input slice is never modified.
func Reorder(list []model.Reward, from, to int) ([]model.Reward, error) {
	n := len(list)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, &Error{
			Kind:    KindInvalidRange,
			Message: fmt.Sprintf("cannot move %d to %d in a list of %d", from, to, n),
		}
	}

	out := make([]model.Reward, 0, n)
	for i, r := range list {
		if i != from {
			out = append(out, r.Clone())
		}
	}
	moved := list[from].Clone()
	out = append(out, model.Reward{})
	copy(out[to+1:], out[to:])
	out[to] = moved

	for i := range out {
		out[i].Order = i + 1
	}
	return out, nil
}

// OrderChanges returns id -> new order for each element of reordered whose
// order differs from the same id in before.
func OrderChanges(before, reordered []model.Reward) map[int64]int {
	prev := make(map[int64]int, len(before))
	for _, r := range before {
		prev[r.ID] = r.Order
	}
	changes := make(map[int64]int)
	for _, r := range reordered {
		if old, ok := prev[r.ID]; !ok || old != r.Order {
			changes[r.ID] = r.Order
		}
	}
	return changes
}

// SlotOrders hands the order values held by view back out to reordered, in
// the new sequence, and returns id -> order for the rewards whose order moved.
// Rewards outside the view keep their slots, so orders across the whole pool
// stay unique. ok is false when the view's orders are not distinct and cannot
// be reused as slots.
func SlotOrders(view, reordered []model.Reward) (changes map[int64]int, ok bool) {
	slots := make([]int, 0, len(view))
	for _, r := range view {
		slots = append(slots, r.Order)
	}
	sort.Ints(slots)
	for i := 1; i < len(slots); i++ {
		if slots[i] == slots[i-1] {
			return nil, false
		}
	}

	placed := make([]model.Reward, len(reordered))
	for i, r := range reordered {
		placed[i] = r
		placed[i].Order = slots[i]
	}
	return OrderChanges(view, placed), true
}

// Renumber returns copies of rewards in order-then-id sequence numbered 1..N.
func Renumber(rewards []model.Reward) []model.Reward {
	out := Project(rewards, Filter{})
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}
