// Package render provides markdown rendering and syntax highlighting functionality.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/cache"
	"github.com/debemdeboas/post-editor/internal/config"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// Renderer turns post content into HTML with one markdown flavour and one
// syntax highlighting style.
type Renderer struct {
	kind        string
	syntaxTheme string

	// Protects the check-render-set sequence in RenderCached.
	mu sync.Mutex
}

func New(kind, syntaxTheme string) *Renderer {
	if kind != config.RendererMmark {
		kind = config.RendererClassic
	}
	return &Renderer{
		kind:        kind,
		syntaxTheme: syntaxTheme,
	}
}

func (r *Renderer) cacheKey(contentHash string) cache.RenderKey {
	return cache.RenderKey{ContentHash: contentHash, Style: r.kind + "/" + r.syntaxTheme}
}

// Render returns the HTML for md.
func (r *Renderer) Render(md []byte) []byte {
	switch r.kind {
	case config.RendererMmark:
		return RenderMarkdownMmark(md, r.syntaxTheme)
	default:
		return RenderMarkdownClassic(md, r.syntaxTheme)
	}
}

func (r *Renderer) RenderCached(md []byte, contentHash string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return r.Render(md)
	}

	// First check cache without locking (fast path for cache hits)
	if cached, found := cache.GetRendered(r.cacheKey(contentHash)); found {
		renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache hit for rendered markdown")
		return cached.HTML
	}

	renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache miss for rendered markdown")
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, found := cache.GetRendered(r.cacheKey(contentHash)); found {
		return cached.HTML
	}

	out := r.Render(md)
	cache.SetRendered(r.cacheKey(contentHash), out)

	return out
}

// Warm pre-renders content asynchronously so the next page view hits the cache.
func (r *Renderer) Warm(md []byte, contentHash string) {
	go func() {
		r.RenderCached(md, contentHash)
		renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache warming completed")
	}()
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "<pre>" + escape(code) + "</pre>"
	}

	var buf strings.Builder
	formatter := html.New(
		html.TabWidth(4),
		html.WrapLongLines(true),
	)
	if err := formatter.Format(&buf, styles.Get(highlightTheme), iterator); err != nil {
		return "<pre>" + escape(code) + "</pre>"
	}

	return buf.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

func escape(s string) string {
	return htmlEscaper.Replace(s)
}

func codeBlockHook(highlightTheme string) md_html.RenderNodeFunc {
	return func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		code, ok := node.(*ast.CodeBlock)
		if !ok || !entering {
			return ast.GoToNext, false
		}

		var lang string
		if info := code.Info; info != nil {
			lang = string(info)
		}
		fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", HighlightCode(string(code.Literal), lang, highlightTheme))
		return ast.GoToNext, true
	}
}

// RenderMarkdownClassic renders with gomarkdown. Raw HTML in the source is dropped.
func RenderMarkdownClassic(md []byte, highlightTheme string) []byte {
	opts := md_html.RendererOptions{
		Flags:          md_html.CommonFlags | md_html.SkipHTML | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		RenderNodeHook: codeBlockHook(highlightTheme),
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.SuperSubscript | parser.DefinitionLists |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.NonBlockingSpace,
	).Parse(markdown.NormalizeNewlines(md))

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

func RenderMarkdownMmark(md []byte, highlightTheme string) []byte {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)

	var info *mast.TitleData

	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		Flags: parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)

	mparser.AddIndex(doc)

	// The title block is optional; default the language so lang.New has a value.
	if info == nil {
		info = &mast.TitleData{
			Title:    "Untitled",
			Language: "en",
		}
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(info.Language),
	}

	highlight := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, handled := highlight(w, node, entering); handled {
				return status, true
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.SkipHTML | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts))
}
