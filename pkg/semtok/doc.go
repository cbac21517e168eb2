/*
Package semtok holds the token model shared by both tokenizers and the merge
step that turns them into one semantic token stream.

🎨 Two streams, one result:
--------------------------

	original text ──► template lexer ──► []ParsedToken ─┐
	                                                     ├─► Merge ─► []Token ─► Encode ─► SemanticTokens
	virtual buffer ─► base tokenizer ──► []BaseToken ───┘

Both input lists arrive sorted by (line, column). Merge walks them with two
pointers; on a tie the template token is emitted first. Every merged token
carries the modifier bit of the stream it came from (`template` or `base`),
so a client can style `string` from a `{{ "..." }}` differently from a
`string` in the surrounding HTML.

🔢 Wire format:
--------------
Each token becomes five integers:

	[deltaLine, deltaChar, length, typeIndex, modifierBits]

deltaChar is relative to the previous token on the same line and absolute
after a line change. typeIndex and modifierBits point into the Legend, which
is derived deterministically from TemplateKinds and BaseKinds.
*/
package semtok
