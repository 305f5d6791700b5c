// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go4.org/bytereplacer"
	"golang.org/x/net/html/atom"
	"zombiezen.com/go/markdown/internal/pool"
)

// An HTMLRenderer converts parsed documents into HTML.
//
// # Security considerations
//
// CommonMark permits the use of [raw HTML], which can introduce
// [Cross-Site Scripting (XSS)] vulnerabilities and [HTML parse errors]
// when used with untrusted inputs.
// There are a few options to mitigate this risk:
//
//   - The resulting HTML can be sent through an HTML sanitizer.
//     This is highly recommended.
//   - Set IgnoreRaw to prevent inclusion of raw HTML.
//     This eliminates any raw HTML usage,
//     so the output is guaranteed to use a fixed set of elements
//     and avoid parse errors.
//     However, this can lead to content being omitted from the document entirely,
//     which may be surprising to end-users for legitimate use cases.
//   - FilterTag can be used to prevent some tags from being used
//     while still showing the source text.
//     Note that this does not prevent parse errors.
//     For untrusted inputs, this technique should be combined with sanitization.
//
// [Cross-Site Scripting (XSS)]: https://owasp.org/www-community/attacks/xss/
// [HTML parse errors]: https://html.spec.whatwg.org/multipage/parsing.html#parse-errors
// [raw HTML]: https://spec.commonmark.org/0.31.2/#raw-html
type HTMLRenderer struct {
	// SoftBreakBehavior determines how soft line breaks are rendered.
	SoftBreakBehavior SoftBreakBehavior
	// If IgnoreRaw is true, the renderer skips any HTML blocks or raw HTML.
	IgnoreRaw bool
	// FilterTag is a predicate function
	// that reports whether an element with the given lowercased tag name
	// should have its leading angle bracket escaped.
	// If FilterTag is nil, then no filtering will occur.
	//
	// FilterTag functions must not modify the byte slice
	// nor retain the slice after the function returns.
	FilterTag func(tag []byte) bool
	// Handlers renders each node.
	// If Handlers is nil, the renderer uses [DefaultHTMLHandlers].
	Handlers *Dispatcher[*HTMLContext]
}

// Names of the default HTML handlers,
// for use with [Dispatcher] positioning methods.
const (
	HTMLDocumentHandlerName       = "document"
	HTMLBlockQuoteHandlerName     = "blockquote"
	HTMLListHandlerName           = "list"
	HTMLListItemHandlerName       = "listitem"
	HTMLParagraphHandlerName      = "paragraph"
	HTMLHeadingHandlerName        = "heading"
	HTMLThematicBreakHandlerName  = "thematicbreak"
	HTMLCodeBlockHandlerName      = "codeblock"
	HTMLBlockHandlerName          = "htmlblock"
	HTMLTextHandlerName           = "text"
	HTMLLinkDefinitionHandlerName = "linkdefinition"
	HTMLLineBreakHandlerName      = "linebreak"
	HTMLCodeSpanHandlerName       = "codespan"
	HTMLEmphasisHandlerName       = "emphasis"
	HTMLLinkHandlerName           = "link"
	HTMLImageHandlerName          = "image"
	HTMLAutolinkHandlerName       = "autolink"
	HTMLRawHandlerName            = "rawhtml"
	HTMLChildrenHandlerName       = "children"
)

// DefaultHTMLHandlers returns a new dispatcher
// holding the CommonMark HTML handlers.
// Node kinds without a handler render their children.
func DefaultHTMLHandlers() *Dispatcher[*HTMLContext] {
	return NewDispatcher(
		KindHandler(HTMLDocumentHandlerName, renderHTMLChildren, DocumentKind, InlineRootKind),
		KindHandler(HTMLBlockQuoteHandlerName, renderHTMLBlockQuote, BlockQuoteKind),
		KindHandler(HTMLListHandlerName, renderHTMLList, ListKind),
		KindHandler(HTMLListItemHandlerName, renderHTMLListItem, ListItemKind),
		KindHandler(HTMLParagraphHandlerName, renderHTMLParagraph, ParagraphKind),
		KindHandler(HTMLHeadingHandlerName, renderHTMLHeading, ATXHeadingKind, SetextHeadingKind),
		KindHandler(HTMLThematicBreakHandlerName, renderHTMLThematicBreak, ThematicBreakKind),
		KindHandler(HTMLCodeBlockHandlerName, renderHTMLCodeBlock, IndentedCodeKind, FencedCodeKind),
		KindHandler(HTMLBlockHandlerName, renderHTMLBlock, HTMLBlockKind),
		KindHandler(HTMLTextHandlerName, renderHTMLText, TextKind, CharacterReferenceKind),
		KindHandler(HTMLLinkDefinitionHandlerName, renderNothing, LinkReferenceDefinitionKind),
		KindHandler(HTMLLineBreakHandlerName, renderHTMLLineBreak, SoftLineBreakKind, HardLineBreakKind),
		KindHandler(HTMLCodeSpanHandlerName, renderHTMLCodeSpan, CodeSpanKind),
		KindHandler(HTMLEmphasisHandlerName, renderHTMLEmphasis, EmphasisKind, StrongKind),
		KindHandler(HTMLLinkHandlerName, renderHTMLLink, LinkKind),
		KindHandler(HTMLImageHandlerName, renderHTMLImage, ImageKind),
		KindHandler(HTMLAutolinkHandlerName, renderHTMLAutolink, AutolinkKind),
		KindHandler(HTMLRawHandlerName, renderHTMLRaw, RawHTMLKind),
		FallbackHandler(HTMLChildrenHandlerName, renderHTMLChildren),
	)
}

var defaultHTMLHandlers = DefaultHTMLHandlers()

var htmlBuffers = pool.New(16, func() []byte { return make([]byte, 0, 4096) }, func(b []byte) []byte { return b[:0] })

// RenderHTML writes a document to the given writer as HTML
// using the default options for [HTMLRenderer].
func RenderHTML(w io.Writer, doc *Document) error {
	return new(HTMLRenderer).Render(w, doc)
}

// Render writes a document to the given writer as HTML.
// It will return the first error encountered, if any.
func (r *HTMLRenderer) Render(w io.Writer, doc *Document) error {
	buf := htmlBuffers.Get()
	defer func() { htmlBuffers.Put(buf) }()
	var err error
	buf, err = r.AppendNode(buf, doc.Root())
	if err != nil {
		return errors.Wrap(err, "render markdown to html")
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "render markdown to html")
	}
	return nil
}

// AppendNode appends the rendered HTML of a node to dst
// and returns the resulting byte slice.
func (r *HTMLRenderer) AppendNode(dst []byte, n Node) ([]byte, error) {
	c := &HTMLContext{
		r:        r,
		handlers: r.Handlers,
		dst:      dst,
	}
	if c.handlers == nil {
		c.handlers = defaultHTMLHandlers
	}
	err := c.Render(n)
	return c.dst, err
}

// HTMLContext is the state of an HTML rendering,
// passed to each [HandlerFunc].
type HTMLContext struct {
	r        *HTMLRenderer
	handlers *Dispatcher[*HTMLContext]
	dst      []byte
	lowerBuf []byte
}

// Renderer returns the renderer's options.
func (c *HTMLContext) Renderer() *HTMLRenderer {
	return c.r
}

// Render renders a single node through the dispatcher.
func (c *HTMLContext) Render(n Node) error {
	return c.handlers.Dispatch(c, n)
}

// Children renders each of n's children in order.
func (c *HTMLContext) Children(n Node) error {
	for child := range n.Children() {
		if err := c.Render(child); err != nil {
			return err
		}
	}
	return nil
}

// WriteString appends s to the output verbatim.
func (c *HTMLContext) WriteString(s string) {
	c.dst = append(c.dst, s...)
}

// WriteEscaped appends s to the output with HTML special characters escaped.
func (c *HTMLContext) WriteEscaped(s string) {
	c.dst = escapeHTML(c.dst, s)
}

// CR appends a newline unless the output is empty or already ends in one.
func (c *HTMLContext) CR() {
	if len(c.dst) > 0 && c.dst[len(c.dst)-1] != '\n' {
		c.dst = append(c.dst, '\n')
	}
}

// OpenTagAttr starts an element's start tag,
// leaving it open for [HTMLContext.Attr] calls.
// The caller must finish the tag with [HTMLContext.EndTag].
func (c *HTMLContext) OpenTagAttr(name atom.Atom) {
	start := len(c.dst)
	c.dst = append(c.dst, '<')
	c.dst = append(c.dst, name.String()...)
	if c.r.FilterTag != nil && c.r.FilterTag(c.dst[start+1:]) {
		c.dst = c.dst[:start]
		c.dst = append(c.dst, "&lt;"...)
		c.dst = append(c.dst, name.String()...)
	}
}

// Attr appends an attribute to a start tag begun with [HTMLContext.OpenTagAttr].
// The value is escaped.
func (c *HTMLContext) Attr(name, value string) {
	c.dst = append(c.dst, ' ')
	c.dst = append(c.dst, name...)
	c.dst = append(c.dst, `="`...)
	c.dst = escapeHTML(c.dst, value)
	c.dst = append(c.dst, '"')
}

// EndTag finishes a start tag begun with [HTMLContext.OpenTagAttr].
func (c *HTMLContext) EndTag() {
	c.dst = append(c.dst, '>')
}

// OpenTag appends an element's start tag.
func (c *HTMLContext) OpenTag(name atom.Atom) {
	c.OpenTagAttr(name)
	c.EndTag()
}

// CloseTag appends an element's end tag.
func (c *HTMLContext) CloseTag(name atom.Atom) {
	start := len(c.dst)
	c.dst = append(c.dst, "</"...)
	c.dst = append(c.dst, name.String()...)
	if c.r.FilterTag != nil && c.r.FilterTag(c.dst[start+2:]) {
		c.dst = c.dst[:start]
		c.dst = append(c.dst, "&lt;/"...)
		c.dst = append(c.dst, name.String()...)
	}
	c.dst = append(c.dst, '>')
}

func renderHTMLChildren(c *HTMLContext, n Node) (bool, error) {
	return true, c.Children(n)
}

func renderHTMLBlockQuote(c *HTMLContext, n Node) (bool, error) {
	c.CR()
	c.OpenTag(atom.Blockquote)
	c.CR()
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CR()
	c.CloseTag(atom.Blockquote)
	c.CR()
	return true, nil
}

func renderHTMLList(c *HTMLContext, n Node) (bool, error) {
	tag := atom.Ul
	c.CR()
	if n.IsOrderedList() {
		tag = atom.Ol
		c.OpenTagAttr(tag)
		if start := n.ListStart(); start != 1 {
			c.Attr("start", strconv.Itoa(start))
		}
		c.EndTag()
	} else {
		c.OpenTag(tag)
	}
	c.CR()
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CR()
	c.CloseTag(tag)
	c.CR()
	return true, nil
}

func renderHTMLListItem(c *HTMLContext, n Node) (bool, error) {
	c.CR()
	c.OpenTag(atom.Li)
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(atom.Li)
	c.CR()
	return true, nil
}

func renderHTMLParagraph(c *HTMLContext, n Node) (bool, error) {
	if item := n.Parent(); item.Kind() == ListItemKind && item.Parent().IsTightList() {
		return true, c.Children(n)
	}
	c.CR()
	c.OpenTag(atom.P)
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(atom.P)
	c.CR()
	return true, nil
}

var headingTags = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// HeadingTag returns the element for a heading of the given level.
func HeadingTag(level int) atom.Atom {
	return headingTags[max(1, min(level, len(headingTags)))-1]
}

func renderHTMLHeading(c *HTMLContext, n Node) (bool, error) {
	tag := HeadingTag(n.HeadingLevel())
	c.CR()
	c.OpenTag(tag)
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(tag)
	c.CR()
	return true, nil
}

func renderHTMLThematicBreak(c *HTMLContext, n Node) (bool, error) {
	c.CR()
	c.OpenTagAttr(atom.Hr)
	c.WriteString(" />")
	c.CR()
	return true, nil
}

func renderHTMLCodeBlock(c *HTMLContext, n Node) (bool, error) {
	c.CR()
	c.OpenTag(atom.Pre)
	c.OpenTagAttr(atom.Code)
	if words := strings.Fields(n.Info()); n.Kind() == FencedCodeKind && len(words) > 0 {
		c.Attr("class", "language-"+words[0])
	}
	c.EndTag()
	for _, line := range n.Lines() {
		c.WriteEscaped(line.Text())
		c.WriteString("\n")
	}
	c.CloseTag(atom.Code)
	c.CloseTag(atom.Pre)
	c.CR()
	return true, nil
}

func renderHTMLBlock(c *HTMLContext, n Node) (bool, error) {
	if c.r.IgnoreRaw {
		return true, nil
	}
	c.CR()
	for i, line := range n.Lines() {
		if i > 0 {
			c.WriteString("\n")
		}
		c.writeRaw(line.Text())
	}
	c.CR()
	return true, nil
}

func renderNothing(*HTMLContext, Node) (bool, error) {
	return true, nil
}

func renderHTMLText(c *HTMLContext, n Node) (bool, error) {
	c.WriteEscaped(n.Text())
	return true, nil
}

func renderHTMLLineBreak(c *HTMLContext, n Node) (bool, error) {
	const hardLineBreak = "<br />\n"
	if n.Kind() == HardLineBreakKind {
		c.WriteString(hardLineBreak)
		return true, nil
	}
	switch c.r.SoftBreakBehavior {
	case SoftBreakHarden:
		c.WriteString(hardLineBreak)
	case SoftBreakSpace:
		c.WriteString(" ")
	default:
		c.WriteString("\n")
	}
	return true, nil
}

func renderHTMLCodeSpan(c *HTMLContext, n Node) (bool, error) {
	c.OpenTag(atom.Code)
	c.WriteEscaped(n.Text())
	c.CloseTag(atom.Code)
	return true, nil
}

func renderHTMLEmphasis(c *HTMLContext, n Node) (bool, error) {
	tag := atom.Em
	if n.Kind() == StrongKind {
		tag = atom.Strong
	}
	c.OpenTag(tag)
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(tag)
	return true, nil
}

func renderHTMLLink(c *HTMLContext, n Node) (bool, error) {
	c.OpenTagAttr(atom.A)
	c.Attr("href", NormalizeURI(n.Destination()))
	if n.TitlePresent() {
		c.Attr("title", n.Title())
	}
	c.EndTag()
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(atom.A)
	return true, nil
}

func renderHTMLImage(c *HTMLContext, n Node) (bool, error) {
	c.OpenTagAttr(atom.Img)
	c.Attr("src", NormalizeURI(n.Destination()))
	c.Attr("alt", PlainText(n))
	if n.TitlePresent() {
		c.Attr("title", n.Title())
	}
	c.WriteString(" />")
	return true, nil
}

func renderHTMLAutolink(c *HTMLContext, n Node) (bool, error) {
	c.OpenTagAttr(atom.A)
	c.Attr("href", NormalizeURI(n.Destination()))
	c.EndTag()
	c.WriteEscaped(n.Text())
	c.CloseTag(atom.A)
	return true, nil
}

func renderHTMLRaw(c *HTMLContext, n Node) (bool, error) {
	if !c.r.IgnoreRaw {
		c.writeRaw(n.Text())
	}
	return true, nil
}

// PlainText returns the text content of an inline node's descendants
// with markup removed, as used for image descriptions.
// Line breaks become spaces.
func PlainText(n Node) string {
	sb := new(strings.Builder)
	for d := range n.Descendants() {
		switch d.Kind() {
		case TextKind, CodeSpanKind, CharacterReferenceKind, RawHTMLKind:
			sb.WriteString(d.Text())
		case AutolinkKind:
			sb.WriteString(d.Text())
		case SoftLineBreakKind, HardLineBreakKind:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// writeRaw appends raw HTML,
// escaping the opening bracket of filtered tags.
func (c *HTMLContext) writeRaw(s string) {
	if c.r.FilterTag == nil {
		c.dst = append(c.dst, s...)
		return
	}
	c.filterRaw(s)
}

// filterRaw performs the tag filtering
// described in https://github.github.com/gfm/#disallowed-raw-html-extension-.
//
// It cannot use a conventional HTML parser,
// since raw HTML in Markdown may be incomplete or start in the middle of a tag.
func (c *HTMLContext) filterRaw(rawHTML string) {
	const (
		copyState = iota
		commentState
		piState
		declState
		cdataState
	)
	state := copyState
	copyStart := 0
	for i := 0; i < len(rawHTML); {
		switch state {
		case copyState:
			if rawHTML[i] != '<' {
				i++
				continue
			}
			rest := rawHTML[i:]
			switch {
			case strings.HasPrefix(rest, "<![CDATA["):
				state = cdataState
				i += len("<![CDATA[")
			case strings.HasPrefix(rest, "<!--"):
				state = commentState
				i += len("<!--")
			case strings.HasPrefix(rest, "<?"):
				state = piState
				i += len("<?")
			case len(rest) >= 3 && rest[1] == '!' && isASCIILetter(rest[2]):
				state = declState
				i += len("<!x")
			default:
				nameStart := i + 1
				if nameStart < len(rawHTML) && rawHTML[nameStart] == '/' {
					nameStart++
				}
				nameEnd := scanHTMLTagName(rawHTML, nameStart)
				if nameEnd < 0 {
					i++
					continue
				}
				if c.FilterTagName(rawHTML[nameStart:nameEnd]) {
					c.dst = append(c.dst, rawHTML[copyStart:i]...)
					c.dst = append(c.dst, "&lt;"...)
					copyStart = i + 1
				}
				i = nameEnd
			}
		case commentState:
			if strings.HasPrefix(rawHTML[i:], "-->") {
				state = copyState
				i += len("-->")
			} else {
				i++
			}
		case piState:
			if strings.HasPrefix(rawHTML[i:], "?>") {
				state = copyState
				i += len("?>")
			} else {
				i++
			}
		case declState:
			if rawHTML[i] == '>' {
				state = copyState
			}
			i++
		case cdataState:
			if strings.HasPrefix(rawHTML[i:], "]]>") {
				state = copyState
				i += len("]]>")
			} else {
				i++
			}
		default:
			panic("unreachable")
		}
	}
	c.dst = append(c.dst, rawHTML[copyStart:]...)
}

// FilterTagName reports whether the renderer's FilterTag
// rejects the given tag name, ignoring case.
func (c *HTMLContext) FilterTagName(name string) bool {
	if c.r.FilterTag == nil {
		return false
	}
	c.lowerBuf = c.lowerBuf[:0]
	for i := 0; i < len(name); i++ {
		c.lowerBuf = append(c.lowerBuf, toLowerASCII(name[i]))
	}
	return c.r.FilterTag(c.lowerBuf)
}

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\x00", "\ufffd",
)

// escapeHTML appends the HTML-escaped version of src to dst.
// NUL characters are replaced with U+FFFD.
func escapeHTML(dst []byte, src string) []byte {
	if !strings.ContainsAny(src, "&<>\"\x00") {
		return append(dst, src...)
	}
	return append(dst, htmlEscaper.Replace([]byte(src))...)
}

// FilterTagGFM performs the same tag filtering as the
// GitHub Flavored Markdown [tagfilter extension].
// It is suitable for use as the FilterTag field in [HTMLRenderer].
//
// [tagfilter extension]: https://github.github.com/gfm/#disallowed-raw-html-extension-
func FilterTagGFM(tag []byte) bool {
	switch atom.Lookup(tag) {
	case atom.Title, atom.Textarea, atom.Style, atom.Xmp, atom.Iframe,
		atom.Noembed, atom.Noframes, atom.Script, atom.Plaintext:
		return true
	default:
		return false
	}
}

// SoftBreakBehavior is an enumeration of rendering styles for [soft line breaks].
//
// [soft line breaks]: https://spec.commonmark.org/0.31.2/#soft-line-breaks
type SoftBreakBehavior int

const (
	// SoftBreakPreserve indicates that a soft line break should be rendered as a newline.
	SoftBreakPreserve SoftBreakBehavior = iota
	// SoftBreakSpace indicates that a soft line break should be rendered as a space.
	SoftBreakSpace
	// SoftBreakHarden indicates that a soft line break should be rendered as a hard line break.
	SoftBreakHarden
)

// String returns the configuration name of the behavior.
func (b SoftBreakBehavior) String() string {
	switch b {
	case SoftBreakPreserve:
		return "preserve"
	case SoftBreakSpace:
		return "space"
	case SoftBreakHarden:
		return "harden"
	default:
		return "SoftBreakBehavior(" + strconv.Itoa(int(b)) + ")"
	}
}

// ParseSoftBreakBehavior converts a name returned by [SoftBreakBehavior.String]
// back into a behavior.
func ParseSoftBreakBehavior(s string) (SoftBreakBehavior, error) {
	switch s {
	case "", "preserve":
		return SoftBreakPreserve, nil
	case "space":
		return SoftBreakSpace, nil
	case "harden":
		return SoftBreakHarden, nil
	default:
		return 0, errors.Newf("unknown soft break behavior %q", s)
	}
}

// NormalizeURI percent-encodes any characters in a string
// that are not reserved or unreserved URI characters.
// This is commonly used for transforming CommonMark link destinations
// into strings suitable for href or src attributes.
func NormalizeURI(s string) string {
	// RFC 3986 reserved and unreserved characters.
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	var buf [utf8.UTFMax]byte
	for i := 0; i < len(s); {
		c, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				sb.WriteString(s[i : i+3])
				i += 3
				continue
			}
			sb.WriteString("%25")
		case c < utf8.RuneSelf && (isASCIILetter(byte(c)) || isASCIIDigit(byte(c)) || strings.IndexByte(safeSet, byte(c)) >= 0):
			sb.WriteByte(byte(c))
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, b := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(urlHexDigit(b >> 4))
				sb.WriteByte(urlHexDigit(b & 0x0f))
			}
		}
		i += size
	}
	return sb.String()
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
