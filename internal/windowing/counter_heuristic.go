package windowing

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
	CountGroup(g Group, all []anthropic.MessageParam) int
}

// HeuristicCounter charges one unit per rune of visible payload plus a fixed
// overhead per block. It is deterministic, which keeps window decisions
// reproducible in tests and in the events log.
//
// Charged payload:
//   - text: the text
//   - tool_use: the tool name and the JSON input, so file contents the model
//     writes count against the budget
//   - tool_result: the string payload, or the text of nested blocks
//
// Any other block costs the overhead only.
type HeuristicCounter struct{}

// blockOverhead is added once per content block; the counter tests pin it.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += blockOverhead + payloadRunes(blk)
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []anthropic.MessageParam) int {
	total := 0
	for _, m := range all[min(g.Start, len(all)):min(g.End, len(all))] {
		total += h.CountMessage(m)
	}
	return total
}

func payloadRunes(blk anthropic.ContentBlockParamUnion) int {
	switch {
	case blk.OfText != nil:
		return utf8.RuneCountInString(blk.OfText.Text)
	case blk.OfToolUse != nil:
		return utf8.RuneCountInString(blk.OfToolUse.Name) + inputRunes(blk.OfToolUse.Input)
	case blk.OfToolResult != nil:
		return resultRunes(blk.OfToolResult.Content)
	}
	return 0
}

// inputRunes sizes a tool_use input, which is raw JSON when it comes back
// from the API and a Go value when built locally.
func inputRunes(in any) int {
	switch v := in.(type) {
	case nil:
		return 0
	case json.RawMessage:
		return utf8.RuneCount(v)
	case []byte:
		return utf8.RuneCount(v)
	case string:
		return utf8.RuneCountInString(v)
	}
	b, err := json.Marshal(in)
	if err != nil {
		logf("counter_unsized_input", typeField(in))
		return 0
	}
	return utf8.RuneCount(b)
}

func resultRunes(content any) int {
	switch v := content.(type) {
	case []anthropic.ToolResultBlockParamContentUnion:
		n := 0
		for _, nb := range v {
			if nb.OfText != nil {
				n += utf8.RuneCountInString(nb.OfText.Text)
			}
		}
		return n
	case string:
		return utf8.RuneCountInString(v)
	case nil:
		return 0
	}
	logf("counter_unsized_result", typeField(content))
	return 0
}
