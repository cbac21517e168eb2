package tokenize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	"github.com/walteh/gotmpls-hybrid/pkg/hybrid"
	"github.com/walteh/gotmpls-hybrid/pkg/position"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	format string // table, pretty, json, raw
	fs     afero.Fs
}

func NewTokenizeCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "tokenize [file...]",
		Short: "print the hybrid semantic tokens of template files",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVar(&me.format, "format", "table", "output format: table, pretty, json or raw")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

// Row is one decoded token.
type Row struct {
	Line      uint32            `json:"line"`
	Column    uint32            `json:"column"`
	Length    uint32            `json:"length"`
	Type      semtok.Kind       `json:"type"`
	Modifiers []semtok.Modifier `json:"modifiers"`
	Text      string            `json:"text"`
}

// Result is the tokenization of one file.
type Result struct {
	File     string   `json:"file"`
	Language string   `json:"language"`
	Source   string   `json:"source"`
	Data     []uint32 `json:"data"`
	Rows     []Row    `json:"tokens"`

	text string
}

func (me *Handler) Run(ctx context.Context, out io.Writer, files []string) error {
	switch me.format {
	case "table", "pretty", "json", "raw":
	default:
		return errors.Errorf("unknown format %q", me.format)
	}

	provider, err := hybrid.NewProvider(ctx, config.FromContext(ctx))
	if err != nil {
		return errors.Errorf("creating token provider: %w", err)
	}

	results := make([]*Result, len(files))

	grp, grpctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		grp.Go(func() error {
			res, err := me.tokenize(grpctx, provider, file)
			if err != nil {
				return errors.Errorf("tokenizing %s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	return render(out, me.format, results)
}

func (me *Handler) tokenize(ctx context.Context, provider *hybrid.Provider, file string) (*Result, error) {
	data, err := afero.ReadFile(me.fs, file)
	if err != nil {
		return nil, errors.Errorf("reading file: %w", err)
	}

	uri := file
	if abs, err := filepath.Abs(file); err == nil {
		uri = "file://" + filepath.ToSlash(abs)
	}
	doc := hybrid.Document{URI: uri, Version: 1, Text: string(data)}

	detection := provider.Detect(doc)
	tokens := provider.Tokens(ctx, doc)

	zerolog.Ctx(ctx).Debug().Str("file", file).Str("language", detection.LanguageID).Int("tokens", tokens.Len()).Msg("tokenized")

	return &Result{
		File:     file,
		Language: detection.LanguageID,
		Source:   string(detection.Source),
		Data:     tokens.Data,
		Rows:     Rows(provider.Legend(), doc.Text, tokens),
		text:     doc.Text,
	}, nil
}

// Rows decodes tokens against legend and attaches the covered text.
func Rows(legend *semtok.Legend, text string, tokens *semtok.SemanticTokens) []Row {
	idx := position.NewLineIndex(text)

	decoded := semtok.Decode(tokens)
	rows := make([]Row, 0, len(decoded))
	for _, tok := range decoded {
		kind, _ := legend.Kind(tok.Type)
		start := idx.LineColumnToOffset(int(tok.Line), int(tok.Column))
		end := min(start+int(tok.Length), len(text))
		rows = append(rows, Row{
			Line:      tok.Line,
			Column:    tok.Column,
			Length:    tok.Length,
			Type:      kind,
			Modifiers: legend.ModifierNames(tok.Modifiers),
			Text:      text[start:end],
		})
	}
	return rows
}

func render(out io.Writer, format string, results []*Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return errors.Errorf("encoding results: %w", err)
		}
	case "raw":
		for _, res := range results {
			parts := make([]string, len(res.Data))
			for i, n := range res.Data {
				parts[i] = fmt.Sprint(n)
			}
			fmt.Fprintf(out, "%s: %s\n", res.File, strings.Join(parts, " "))
		}
	case "pretty":
		for _, res := range results {
			fmt.Fprintf(out, "%s (%s, %s)\n", color.New(color.Bold).Sprint(res.File), res.Language, res.Source)
			fmt.Fprintln(out, Highlight(res.text, res.Rows))
		}
	default:
		for _, res := range results {
			fmt.Fprintf(out, "# %s (%s, %s)\n", res.File, res.Language, res.Source)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LINE\tCOL\tLEN\tTYPE\tMODIFIERS\tTEXT")
			for _, row := range res.Rows {
				mods := make([]string, len(row.Modifiers))
				for i, m := range row.Modifiers {
					mods[i] = string(m)
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%q\n", row.Line, row.Column, row.Length, row.Type, strings.Join(mods, ","), row.Text)
			}
			if err := w.Flush(); err != nil {
				return errors.Errorf("writing table: %w", err)
			}
		}
	}
	return nil
}

var kindColors = map[semtok.Kind]*color.Color{
	semtok.KindBegin:         color.New(color.FgHiMagenta, color.Bold),
	semtok.KindEnd:           color.New(color.FgHiMagenta, color.Bold),
	semtok.KindControl:       color.New(color.FgMagenta),
	semtok.KindBuiltin:       color.New(color.FgCyan),
	semtok.KindVariable:      color.New(color.FgYellow),
	semtok.KindProperty:      color.New(color.FgHiYellow),
	semtok.KindAssignment:    color.New(color.FgHiWhite),
	semtok.KindPipe:          color.New(color.FgHiWhite),
	semtok.KindString:        color.New(color.FgGreen),
	semtok.KindRawString:     color.New(color.FgGreen),
	semtok.KindStringEscape:  color.New(color.FgHiGreen),
	semtok.KindUnknownEscape: color.New(color.FgRed),
	semtok.KindPlaceholder:   color.New(color.FgHiCyan),
	semtok.KindNumber:        color.New(color.FgBlue),
	semtok.KindComment:       color.New(color.FgHiBlack),
	semtok.KindTag:           color.New(color.FgRed),
	semtok.KindAttribute:     color.New(color.FgHiRed),
	semtok.KindClass:         color.New(color.FgHiBlue),
	semtok.KindNamespace:     color.New(color.FgBlue),
	semtok.KindFunction:      color.New(color.FgCyan),
	semtok.KindOperator:      color.New(color.FgWhite),
	semtok.KindKeyword:       color.New(color.FgMagenta),
	semtok.KindPunctuation:   color.New(color.FgWhite),
}

// Highlight colors text by the tokens in rows, which must be in document order.
func Highlight(text string, rows []Row) string {
	idx := position.NewLineIndex(text)

	var b strings.Builder
	cursor := 0
	for _, row := range rows {
		start := idx.LineColumnToOffset(int(row.Line), int(row.Column))
		end := min(start+int(row.Length), len(text))
		if start < cursor {
			continue
		}
		b.WriteString(text[cursor:start])

		c, ok := kindColors[row.Type]
		if !ok {
			b.WriteString(text[start:end])
		} else {
			b.WriteString(c.Sprint(text[start:end]))
		}
		cursor = end
	}
	b.WriteString(text[cursor:])
	return b.String()
}
