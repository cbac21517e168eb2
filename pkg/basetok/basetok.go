// Package basetok runs a base-language grammar over the virtual buffer and
// turns its scoped output into semantic tokens.
package basetok

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/grammar"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"github.com/walteh/gotmpls-hybrid/pkg/spans"
	"gitlab.com/tozd/go/errors"
)

// Tokenize feeds virt to g one physical line at a time, threading the grammar
// state from each line into the next. A grammar.DocumentGrammar lexes virt in
// one pass instead. Raw tokens are cut around the template spans so a base
// token never covers a blanked region, and pieces that are empty or only
// whitespace are dropped.
func Tokenize(ctx context.Context, virt string, sp []spans.Span, g grammar.Grammar) ([]semtok.BaseToken, error) {
	if g == nil {
		return nil, nil
	}

	logger := zerolog.Ctx(ctx).With().Str("scope", g.ScopeName()).Logger()

	lines := strings.Split(virt, "\n")
	results, err := lineResults(g, virt, lines)
	if err != nil {
		return nil, err
	}

	var (
		tokens    []semtok.BaseToken
		lineStart int
	)

	for lineNum, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		res := results[lineNum]

		lineTokens := make([]semtok.BaseToken, 0, len(res.Tokens))
		for _, rt := range res.Tokens {
			start, end := max(rt.Start, 0), min(rt.End, len(line))
			if start >= end {
				continue
			}
			kind := KindForScopes(rt.Scopes)
			for _, piece := range subtract(lineStart+start, lineStart+end, sp) {
				text := virt[piece[0]:piece[1]]
				if strings.TrimFunc(text, unicode.IsSpace) == "" {
					continue
				}
				lineTokens = append(lineTokens, semtok.BaseToken{
					Line:      lineNum,
					StartChar: piece[0] - lineStart,
					Length:    piece[1] - piece[0],
					Kind:      kind,
					Modifiers: []semtok.Modifier{semtok.ModifierBase},
				})
			}
		}

		sort.SliceStable(lineTokens, func(i, j int) bool {
			return lineTokens[i].StartChar < lineTokens[j].StartChar
		})
		tokens = append(tokens, lineTokens...)

		lineStart += len(raw) + 1
	}

	logger.Debug().Int("tokens", len(tokens)).Msg("base tokenization complete")

	return tokens, nil
}

// lineResults runs g over lines, in one pass when the engine lexes whole documents.
func lineResults(g grammar.Grammar, virt string, lines []string) ([]*grammar.LineResult, error) {
	if dg, ok := g.(grammar.DocumentGrammar); ok {
		results, err := dg.TokenizeDocument(virt)
		if err != nil {
			return nil, errors.Errorf("tokenizing document: %w", err)
		}
		if len(results) != len(lines) {
			return nil, errors.Errorf("grammar returned %d lines, want %d", len(results), len(lines))
		}
		for lineNum, res := range results {
			if res == nil {
				return nil, errors.Errorf("tokenizing line %d: grammar returned no result", lineNum)
			}
		}
		return results, nil
	}

	results := make([]*grammar.LineResult, len(lines))
	var state grammar.StateStack
	for lineNum, raw := range lines {
		res, err := g.TokenizeLine(strings.TrimSuffix(raw, "\r"), state)
		if err != nil {
			return nil, errors.Errorf("tokenizing line %d: %w", lineNum, err)
		}
		if res == nil {
			return nil, errors.Errorf("tokenizing line %d: grammar returned no result", lineNum)
		}
		state = res.State
		results[lineNum] = res
	}
	return results, nil
}

// subtract returns the parts of [start, end) not covered by any span.
// sp must be sorted and non-overlapping.
func subtract(start, end int, sp []spans.Span) [][2]int {
	i := sort.Search(len(sp), func(i int) bool { return sp[i].End > start })

	var out [][2]int
	for ; i < len(sp) && sp[i].Start < end; i++ {
		if sp[i].Start > start {
			out = append(out, [2]int{start, sp[i].Start})
		}
		start = max(start, sp[i].End)
	}
	if start < end {
		out = append(out, [2]int{start, end})
	}
	return out
}
