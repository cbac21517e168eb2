package lsp

import (
	"slices"

	"github.com/walteh/gotmpls-hybrid/pkg/lsp/protocol"
	"github.com/walteh/gotmpls-hybrid/pkg/position"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
)

// negotiateEncoding picks utf-8 when the client offers it, since that is how
// tokens are computed. Everything else falls back to utf-16, which every
// client must support.
func negotiateEncoding(caps protocol.ClientCapabilities) protocol.PositionEncodingKind {
	if caps.General != nil && slices.Contains(caps.General.PositionEncodings, protocol.PositionEncodingUTF8) {
		return protocol.PositionEncodingUTF8
	}
	return protocol.PositionEncodingUTF16
}

func isASCII(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] >= 0x80 {
			return false
		}
	}
	return true
}

// tokensIn re-encodes st, whose columns and lengths are in bytes of text, in
// the units of enc. st is not modified.
func tokensIn(enc protocol.PositionEncodingKind, text string, st *semtok.SemanticTokens) *semtok.SemanticTokens {
	if enc == protocol.PositionEncodingUTF8 || isASCII(text) {
		return st
	}

	idx := position.NewLineIndex(text)
	tokens := semtok.Decode(st)
	for i, tok := range tokens {
		line := int(tok.Line)
		start := idx.UTF16Column(line, int(tok.Column))
		end := idx.UTF16Column(line, int(tok.Column+tok.Length))
		tokens[i].Column = uint32(start)
		tokens[i].Length = uint32(end - start)
	}
	return semtok.Encode(tokens)
}

// offsetOf resolves a client position in enc to a byte offset in the text idx indexes.
func offsetOf(enc protocol.PositionEncodingKind, idx *position.LineIndex, pos protocol.Position) int {
	line, col := int(pos.Line), int(pos.Character)
	if enc != protocol.PositionEncodingUTF8 {
		col = idx.ByteColumn(line, col)
	}
	return idx.LineColumnToOffset(line, col)
}
