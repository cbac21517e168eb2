// Package hybrid produces semantic tokens for documents that mix Go template
// actions with a base language such as HTML or YAML.
//
// Each request runs this pipeline, falling back to template tokens alone when
// anything goes wrong:
//
//	text ──► detect base language ──► load grammar ─────────────┐
//	  │                                                          ▼
//	  ├──► extract spans ──► virtual buffer ──► base tokens ──► merge ──► encode
//	  │                                                          ▲
//	  └──► template lexer ──► keep tokens inside spans ──────────┘
package hybrid

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/basetok"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	"github.com/walteh/gotmpls-hybrid/pkg/directive"
	"github.com/walteh/gotmpls-hybrid/pkg/grammar"
	"github.com/walteh/gotmpls-hybrid/pkg/semantics/template"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"github.com/walteh/gotmpls-hybrid/pkg/spans"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Document is one version of an open file.
type Document struct {
	URI     string
	Version int32
	Text    string
}

// GrammarSource hands out base-language grammars. A nil grammar with a nil
// error means the language is treated as plain text.
type GrammarSource interface {
	Available() error
	GetGrammar(ctx context.Context, languageID string) (grammar.Grammar, error)
}

type settings struct {
	lexer       *template.Lexer
	grammars    GrammarSource
	detect      directive.Options
	maxFileSize int64
}

type Option func(*settings)

func WithDirectiveOptions(opts directive.Options) Option {
	return func(s *settings) { s.detect = opts }
}

func WithMaxFileSize(n int64) Option {
	return func(s *settings) { s.maxFileSize = n }
}

type Provider struct {
	legend *semtok.Legend
	cache  *Cache

	mu       sync.RWMutex
	settings settings

	warnOnce *sync.Once
}

// New creates a provider around an already built lexer and grammar source.
func New(lexer *template.Lexer, grammars GrammarSource, opts ...Option) *Provider {
	s := settings{
		lexer:       lexer,
		grammars:    grammars,
		detect:      directive.DefaultOptions(),
		maxFileSize: config.DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Provider{
		legend:   semtok.DefaultLegend(),
		cache:    NewCache(),
		settings: s,
		warnOnce: &sync.Once{},
	}
}

// NewProvider builds the lexer and grammar store described by cfg.
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	s, err := settingsFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(s.lexer, s.grammars, WithDirectiveOptions(s.detect), WithMaxFileSize(s.maxFileSize)), nil
}

func settingsFromConfig(ctx context.Context, cfg *config.Config) (settings, error) {
	lx, err := template.NewLexer(template.WithBuiltins(cfg.ExtraBuiltins...))
	if err != nil {
		return settings{}, errors.Errorf("creating template lexer: %w", err)
	}

	store := grammar.NewStore(ctx, grammar.NewRegistry(cfg.Languages...), cfg.GrammarSource())

	return settings{
		lexer:       lx,
		grammars:    store,
		detect:      cfg.DirectiveOptions(),
		maxFileSize: cfg.MaxFileSize,
	}, nil
}

// Reload swaps in a new configuration and drops every cached result.
func (p *Provider) Reload(ctx context.Context, cfg *config.Config) error {
	s, err := settingsFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.settings = s
	p.warnOnce = &sync.Once{}
	p.mu.Unlock()

	p.cache.Reset()
	zerolog.Ctx(ctx).Info().Msg("hybrid tokenizer reloaded")
	return nil
}

func (p *Provider) snapshot() (settings, *sync.Once) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings, p.warnOnce
}

func (p *Provider) Legend() *semtok.Legend {
	return p.legend
}

// Unavailable returns the reason base-language highlighting is off, or nil.
func (p *Provider) Unavailable() error {
	s, _ := p.snapshot()
	return s.grammars.Available()
}

// Detect reports which base language doc would be highlighted with.
func (p *Provider) Detect(doc Document) directive.Detection {
	s, _ := p.snapshot()
	return directive.DetectPath(uriPath(doc.URI), doc.Text, s.detect)
}

// Evict forgets the cached result for uri.
func (p *Provider) Evict(uri string) {
	p.cache.Evict(uri)
}

// Tokens returns the encoded tokens for doc. Asking again for the same
// version returns the same object without recomputing. It never fails: when
// the full pipeline cannot run the result holds template tokens only.
func (p *Provider) Tokens(ctx context.Context, doc Document) *semtok.SemanticTokens {
	if cached, ok := p.cache.Get(doc.URI, doc.Version); ok {
		return cached
	}

	result := p.compute(ctx, doc)
	p.cache.Put(doc.URI, doc.Version, result)
	return result
}

func (p *Provider) compute(ctx context.Context, doc Document) *semtok.SemanticTokens {
	logger := zerolog.Ctx(ctx).With().Str("uri", doc.URI).Int32("version", doc.Version).Logger()
	ctx = logger.WithContext(ctx)

	s, once := p.snapshot()

	if int64(len(doc.Text)) > s.maxFileSize {
		logger.Debug().Int("size", len(doc.Text)).Int64("max", s.maxFileSize).Msg("document too large, template tokens only")
		return p.templateOnly(ctx, s, doc.Text)
	}

	if err := s.grammars.Available(); err != nil {
		once.Do(func() {
			logger.Warn().Err(err).Msg("base language highlighting unavailable for this session")
		})
		return p.templateOnly(ctx, s, doc.Text)
	}

	result, err := p.hybrid(ctx, s, doc)
	if err != nil {
		logger.Warn().Err(err).Msg("hybrid tokenization failed, falling back to template tokens")
		return p.templateOnly(ctx, s, doc.Text)
	}
	return result
}

func (p *Provider) hybrid(ctx context.Context, s settings, doc Document) (result *semtok.SemanticTokens, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during tokenization: %v", r)
		}
	}()

	detection := directive.DetectPath(uriPath(doc.URI), doc.Text, s.detect)
	zerolog.Ctx(ctx).Debug().Str("language", detection.LanguageID).Str("source", string(detection.Source)).Msg("detected base language")

	// grammar loading may hit the filesystem, the template side only needs the text
	var g grammar.Grammar
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic loading grammar: %v", r)
			}
		}()
		g, err = s.grammars.GetGrammar(egctx, detection.LanguageID)
		return err
	})

	sp := spans.Extract(doc.Text)
	tmpl, lexErr := s.lexer.TokenizeSpans(ctx, doc.Text, sp)

	if err := eg.Wait(); err != nil {
		return nil, errors.Errorf("loading grammar for %s: %w", detection.LanguageID, err)
	}
	if lexErr != nil {
		return nil, errors.Errorf("lexing template: %w", lexErr)
	}

	var base []semtok.BaseToken
	if g != nil {
		virt := spans.VirtualBuffer(doc.Text, sp)
		if err := spans.ValidateParity(doc.Text, virt, sp); err != nil {
			return nil, err
		}
		base, err = basetok.Tokenize(ctx, virt, sp, g)
		if err != nil {
			return nil, errors.Errorf("tokenizing %s: %w", detection.LanguageID, err)
		}
	}

	return semtok.Encode(semtok.Merge(p.legend, tmpl, base)), nil
}

func (p *Provider) templateOnly(ctx context.Context, s settings, text string) *semtok.SemanticTokens {
	tmpl, err := s.lexer.Tokenize(ctx, text)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("template lexer stopped early")
	}
	return semtok.Encode(semtok.TemplateOnly(p.legend, tmpl))
}

// uriPath turns a file URI into a path usable for override globs.
func uriPath(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	return strings.TrimPrefix(uri, "file:")
}

func (d Document) String() string {
	return fmt.Sprintf("%s@%d", d.URI, d.Version)
}
