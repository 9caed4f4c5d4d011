package windowing

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/fsagent/internal/logging"
)

// GroupKind tells whether a Group is a lone message or a tool call with its results.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

func (k GroupKind) String() string {
	if k == GroupPair {
		return "pair"
	}
	return "singleton"
}

// Group is the half-open message span [Start, End). A window never splits one.
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// Len returns the number of messages in g.
func (g Group) Len() int { return g.End - g.Start }

// pairFault explains why an assistant tool call was not paired with the next message.
type pairFault string

const (
	faultNoUserReply pairFault = "not_followed_by_user"
	faultOrdering    pairFault = "ordering_invalid"
	faultMissing     pairFault = "missing_results"
	faultExtra       pairFault = "extra_results"
)

// GroupBlocks splits msgs into the units a send window keeps or drops whole.
//
// An assistant message with tool_use blocks forms a pair with the next message
// when that message is a user turn whose leading blocks are tool_results
// answering exactly those calls, in any order. Text may follow the results but
// not precede them. Error results pair like any other. Everything else stands
// alone, so a window can never send a tool_result without its tool_use.
func GroupBlocks(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		calls := toolUseIDs(msgs[i])
		if len(calls) > 0 {
			fault := pairWith(calls, msgs, i+1)
			if fault == "" {
				groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
				i++
				continue
			}
			logf("exclude_pair", logging.Str("reason", string(fault)), logging.Int("idx", i))
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
	}
	return groups
}

// pairWith checks msgs[next] as the reply to calls. An empty fault means it pairs.
func pairWith(calls idSet, msgs []anthropic.MessageParam, next int) pairFault {
	if next >= len(msgs) || msgs[next].Role != anthropic.MessageParamRoleUser {
		return faultNoUserReply
	}
	results, ok := leadingResultIDs(msgs[next])
	switch {
	case !ok:
		return faultOrdering
	case !results.covers(calls):
		return faultMissing
	case !calls.covers(results):
		return faultExtra
	}
	return ""
}

type idSet map[string]struct{}

// covers reports whether every id in other is also in s.
func (s idSet) covers(other idSet) bool {
	for id := range other {
		if _, ok := s[id]; !ok {
			return false
		}
	}
	return true
}

// toolUseIDs returns the tool_use ids of an assistant message; nil for any other role.
func toolUseIDs(m anthropic.MessageParam) idSet {
	if m.Role != anthropic.MessageParamRoleAssistant {
		return nil
	}
	var ids idSet
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			if ids == nil {
				ids = idSet{}
			}
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingResultIDs collects the ids of the tool_results at the head of m.
// ok is false when a tool_result appears after any other block.
func leadingResultIDs(m anthropic.MessageParam) (ids idSet, ok bool) {
	ids = idSet{}
	inHead := true
	for _, blk := range m.Content {
		tr := blk.OfToolResult
		if tr == nil {
			inHead = false
			continue
		}
		if !inHead {
			return ids, false
		}
		if tr.ToolUseID != "" {
			ids[tr.ToolUseID] = struct{}{}
		}
	}
	return ids, true
}

// logf writes a reason-coded debug line; visible with log_level=debug.
func logf(msg string, fields ...logging.Field) {
	ev := logging.Debug().Add(logging.Component("windowing"))
	for _, f := range fields {
		ev.Add(f)
	}
	ev.Msg(msg)
}

func typeField(v any) logging.Field { return logging.Str("type", fmt.Sprintf("%T", v)) }
