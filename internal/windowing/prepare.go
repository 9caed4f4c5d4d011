package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/fsagent/internal/logging"
)

// Stats describes a prepared window.
type Stats struct {
	// Total is the estimated cost of the included groups.
	Total  int
	Budget int
	// IncludedGroups and SkippedGroups always add up to the number of groups.
	IncludedGroups int
	SkippedGroups  int
	// OverBudgetNewest is set when nothing useful fits: the newest group alone
	// (or, for a pinned window, the pin plus the newest group) exceeds Budget.
	OverBudgetNewest bool
	// Pinned counts the messages PreparePinnedWindow kept at the front.
	Pinned int
}

// PrepareSendWindow returns the longest suffix of msgs made of whole groups
// whose estimated cost stays within budget. Order is preserved and groups are
// never split. The window is empty, with OverBudgetNewest set, when the newest
// group alone does not fit or budget is not positive.
func PrepareSendWindow(msgs []anthropic.MessageParam, budget int, c TokenCounter) ([]anthropic.MessageParam, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupBlocks(msgs)
	first, total := fitNewest(groups, msgs, budget, c)
	if first == len(groups) {
		logf("over_budget_newest_group", logging.Int("budget", budget))
		return nil, Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}
	}
	included := len(groups) - first
	return msgs[groups[first].Start:], Stats{
		Total:          total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  first,
	}
}

// PreparePinnedWindow keeps the first group (the task instruction) at the
// front and fills the remaining budget with the newest groups. Groups between
// the pin and that tail are dropped. When the pin and the newest group cannot
// both fit the window is empty and OverBudgetNewest is set.
func PreparePinnedWindow(msgs []anthropic.MessageParam, budget int, c TokenCounter) ([]anthropic.MessageParam, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}
	groups := GroupBlocks(msgs)
	pin := groups[0]
	pinCost := c.CountGroup(pin, msgs)
	overBudget := Stats{Budget: budget, SkippedGroups: len(groups), OverBudgetNewest: true}

	if pinCost > budget {
		logf("pinned_over_budget", logging.Int("budget", budget), logging.Int("cost", pinCost))
		return nil, overBudget
	}
	if len(groups) == 1 {
		return msgs, Stats{Total: pinCost, Budget: budget, IncludedGroups: 1, Pinned: pin.Len()}
	}

	rest := groups[1:]
	first, total := fitNewest(rest, msgs, budget-pinCost, c)
	if first == len(rest) {
		logf("pinned_no_room_for_newest", logging.Int("budget", budget), logging.Int("pin_cost", pinCost))
		return nil, overBudget
	}

	tail := msgs[rest[first].Start:]
	window := make([]anthropic.MessageParam, 0, pin.Len()+len(tail))
	window = append(window, msgs[pin.Start:pin.End]...)
	window = append(window, tail...)
	included := len(rest) - first + 1
	return window, Stats{
		Total:          pinCost + total,
		Budget:         budget,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
		Pinned:         pin.Len(),
	}
}

// fitNewest walks groups from newest to oldest and returns the index of the
// oldest group that still fits together with everything newer, and the cost of
// that suffix. It returns len(groups) when even the newest group does not fit.
func fitNewest(groups []Group, msgs []anthropic.MessageParam, budget int, c TokenCounter) (first, total int) {
	first = len(groups)
	for i := len(groups) - 1; i >= 0; i-- {
		cost := c.CountGroup(groups[i], msgs)
		if total+cost > budget {
			break
		}
		total += cost
		first = i
	}
	return first, total
}
