package grammar

import (
	"archive/tar"
	"context"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/gotmpls-hybrid/pkg/targz"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

var ErrUnavailable = errors.Base("grammar engine unavailable")

// Source says where external grammar definitions come from. Both fields are optional.
type Source struct {
	// Dir is a directory of chroma XML lexer definitions.
	Dir string
	// Archive is a .tar.gz of chroma XML lexer definitions.
	Archive string
}

// Store resolves language ids to loaded grammars and caches the outcome,
// including misses, so repeated lookups of an unknown grammar are free.
type Store struct {
	registry *Registry
	fs       afero.Fs

	mu       sync.RWMutex
	grammars map[string]Grammar // by scope, nil marks a miss
	group    singleflight.Group

	unavailable error
}

// NewStore creates a store. A broken Source does not fail construction: the
// store is marked unavailable and every lookup reports ErrUnavailable.
func NewStore(ctx context.Context, registry *Registry, src Source) *Store {
	return newStore(ctx, afero.NewOsFs(), registry, src)
}

func newStore(ctx context.Context, osfs afero.Fs, registry *Registry, src Source) *Store {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("dir", src.Dir).Str("archive", src.Archive).Msg("creating new grammar store")

	s := NewStoreWithFs(registry, nil)

	fs, err := openSource(osfs, src)
	if err != nil {
		logger.Warn().Err(err).Msg("grammar engine unavailable, falling back to template-only highlighting")
		s.unavailable = errors.Errorf("%w: %s", ErrUnavailable, err.Error())
		return s
	}
	s.fs = fs

	return s
}

// NewStoreWithFs creates a store that reads external definitions from fs, which may be nil.
func NewStoreWithFs(registry *Registry, fs afero.Fs) *Store {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Store{
		registry: registry,
		fs:       fs,
		grammars: make(map[string]Grammar),
	}
}

func openSource(osfs afero.Fs, src Source) (afero.Fs, error) {
	var layers []afero.Fs

	if src.Dir != "" {
		ok, err := afero.DirExists(osfs, src.Dir)
		if err != nil {
			return nil, errors.Errorf("checking grammar dir: %w", err)
		}
		if !ok {
			return nil, errors.Errorf("grammar dir %s does not exist", src.Dir)
		}
		layers = append(layers, afero.NewReadOnlyFs(afero.NewBasePathFs(osfs, src.Dir)))
	}

	if src.Archive != "" {
		data, err := afero.ReadFile(osfs, src.Archive)
		if err != nil {
			return nil, errors.Errorf("reading grammar archive: %w", err)
		}
		mem, err := targz.LoadIntoFs(data, targz.LoadOptions{
			Filter: func(h *tar.Header) bool { return strings.HasSuffix(h.Name, ".xml") },
		})
		if err != nil {
			return nil, errors.Errorf("loading grammar archive %s: %w", src.Archive, err)
		}
		layers = append(layers, mem)
	}

	switch len(layers) {
	case 0:
		return nil, nil
	case 1:
		return layers[0], nil
	default:
		// archive entries shadow the directory
		return afero.NewCopyOnWriteFs(layers[0], layers[1]), nil
	}
}

// Available returns nil when grammars can be loaded.
func (s *Store) Available() error {
	return s.unavailable
}

func (s *Store) Registry() *Registry {
	return s.registry
}

// GetGrammar returns the grammar for a language id. A nil grammar with a nil
// error means the language has no grammar and is treated as plain text.
func (s *Store) GetGrammar(ctx context.Context, languageID string) (Grammar, error) {
	if s.unavailable != nil {
		return nil, s.unavailable
	}

	lang, ok := s.registry.Lookup(languageID)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("language", languageID).Msg("unknown language, no grammar")
		return nil, nil
	}
	if !lang.HasGrammar() {
		return nil, nil
	}

	s.mu.RLock()
	g, ok := s.grammars[lang.Scope]
	s.mu.RUnlock()
	if ok {
		return g, nil
	}

	v, _, _ := s.group.Do(lang.Scope, func() (any, error) {
		g := s.load(ctx, lang)
		s.mu.Lock()
		s.grammars[lang.Scope] = g
		s.mu.Unlock()
		return g, nil
	})

	g, _ = v.(Grammar)
	return g, nil
}

// load never fails: anything that goes wrong is logged and recorded as a miss.
func (s *Store) load(ctx context.Context, lang Language) Grammar {
	logger := zerolog.Ctx(ctx).With().Str("language", lang.ID).Str("scope", lang.Scope).Logger()

	if s.fs != nil && lang.File != "" {
		if ok, _ := afero.Exists(s.fs, lang.File); ok {
			lx, err := chroma.NewXMLLexer(afero.NewIOFS(s.fs), lang.File)
			if err == nil {
				logger.Debug().Str("file", lang.File).Msg("loaded grammar from file")
				return NewChromaGrammar(lx, lang.Scope)
			}
			logger.Warn().Err(err).Str("file", lang.File).Msg("parsing grammar file, trying built-in lexer")
		}
	}

	for _, name := range []string{lang.Alias, strings.TrimSuffix(lang.File, ".xml")} {
		if name == "" {
			continue
		}
		if lx := lexers.Get(name); lx != nil {
			logger.Debug().Str("lexer", name).Msg("loaded built-in grammar")
			return NewChromaGrammar(lx, lang.Scope)
		}
	}

	logger.Warn().Msg("grammar not found")
	return nil
}

// LoadCustomGrammar registers a chroma XML lexer definition under scope,
// replacing whatever was cached for it.
func (s *Store) LoadCustomGrammar(ctx context.Context, scope string, data []byte) error {
	zerolog.Ctx(ctx).Debug().Str("scope", scope).Msg("loading custom grammar")

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "custom.xml", data, 0o644); err != nil {
		return errors.Errorf("staging custom grammar: %w", err)
	}

	lx, err := chroma.NewXMLLexer(afero.NewIOFS(mem), "custom.xml")
	if err != nil {
		return errors.Errorf("parsing custom grammar: %w", err)
	}

	s.mu.Lock()
	s.grammars[scope] = NewChromaGrammar(lx, scope)
	s.mu.Unlock()

	return nil
}

// ClearCache forgets every loaded grammar and every recorded miss.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.grammars = make(map[string]Grammar)
	s.mu.Unlock()
}

// Cached reports whether scope has an entry, and whether that entry is a miss.
func (s *Store) Cached(scope string) (cached bool, miss bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grammars[scope]
	return ok, ok && g == nil
}
