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

// A DelimiterRule describes a character whose runs
// pair up to form container inlines, like '*' for emphasis.
type DelimiterRule struct {
	Char byte
	// MinRun and MaxRun bound the length of runs that can open or close.
	// Runs outside the bounds are literal text.
	// A MaxRun of zero means unbounded.
	MinRun int
	MaxRun int
	// MaxConsume is the largest number of delimiters
	// a single opener/closer pair consumes from each side.
	MaxConsume int
	// WithinWord permits runs flanked by alphanumerics on both sides
	// to open and close, as '*' does and '_' does not.
	WithinWord bool
	// RuleOfThree enables the CommonMark restriction that
	// a run that can both open and close cannot pair with another
	// if the sum of their lengths is a multiple of 3
	// unless both lengths are multiples of 3.
	RuleOfThree bool
	// Create returns a new detached container inline
	// for a pair that consumed count delimiters from each side.
	Create func(doc *Document, char byte, count int) Node
}

// EmphasisRules returns the CommonMark delimiter rules for '*' and '_'.
func EmphasisRules() []DelimiterRule {
	return []DelimiterRule{
		{
			Char:        '*',
			MinRun:      1,
			MaxConsume:  2,
			WithinWord:  true,
			RuleOfThree: true,
			Create:      newEmphasis,
		},
		{
			Char:        '_',
			MinRun:      1,
			MaxConsume:  2,
			WithinWord:  false,
			RuleOfThree: true,
			Create:      newEmphasis,
		},
	}
}

func newEmphasis(doc *Document, char byte, count int) Node {
	kind := EmphasisKind
	if count >= 2 {
		kind = StrongKind
	}
	n := doc.NewNode(kind)
	n.SetDelimiter(char, count)
	return n
}

// delimiter is an entry in the [delimiter stack].
//
// [delimiter stack]: https://spec.commonmark.org/0.31.2/#delimiter-stack
type delimiter struct {
	node      Node
	rule      *DelimiterRule
	count     int
	origCount int
	canOpen   bool
	canClose  bool
	// Content offsets of the remaining run.
	start int
	end   int

	prev *delimiter
	next *delimiter
}

// delimiterRunParser pushes runs of registered delimiter characters
// onto the delimiter stack.
type delimiterRunParser struct{}

// DelimiterRunParserName is the name of the inline parser
// that handles the characters of registered [DelimiterRule] values.
const DelimiterRunParserName = "delimiters"

func (delimiterRunParser) Name() string { return DelimiterRunParserName }

// OpeningCharacters returns nil:
// the pipeline registers the characters of its delimiter rules instead.
func (delimiterRunParser) OpeningCharacters() []rune { return nil }

func (delimiterRunParser) openingCharacters(pl *Pipeline) []rune {
	chars := make([]rune, 0, len(pl.delimiterRules))
	for _, rule := range pl.delimiterRules {
		chars = append(chars, rune(rule.Char))
	}
	return chars
}

func (delimiterRunParser) Match(p *InlineProcessor) bool {
	c := p.Char()
	rule := p.ctx.pipeline.delimiterRule(c)
	if rule == nil {
		return false
	}
	start := p.Pos()
	end := start
	for end < len(p.content) && p.content[end] == c {
		end++
	}
	n := end - start
	p.SetPos(end)
	if n < rule.MinRun || (rule.MaxRun > 0 && n > rule.MaxRun) {
		// Consumed as literal text.
		return true
	}

	canOpen, canClose := flankingFlags(p.RuneBefore(start), p.RuneAt(end), rule.WithinWord)
	node := p.doc.NewText(p.content[start:end], p.SourceSpan(start, end))
	p.Emit(node)
	if !canOpen && !canClose {
		return true
	}
	d := &delimiter{
		node:      node,
		rule:      rule,
		count:     n,
		origCount: n,
		canOpen:   canOpen,
		canClose:  canClose,
		start:     start,
		end:       end,
		prev:      p.delims,
	}
	if p.delims != nil {
		p.delims.next = d
	}
	p.delims = d
	return true
}

// flankingFlags determines whether a [delimiter run]
// [can open emphasis] and/or [can close emphasis].
//
// [delimiter run]: https://spec.commonmark.org/0.31.2/#delimiter-run
// [can open emphasis]: https://spec.commonmark.org/0.31.2/#can-open-emphasis
// [can close emphasis]: https://spec.commonmark.org/0.31.2/#can-close-emphasis
func flankingFlags(prevChar, nextChar rune, withinWord bool) (canOpen, canClose bool) {
	leftFlanking := !isUnicodeWhitespace(nextChar) &&
		(!isUnicodePunctuation(nextChar) || isUnicodeWhitespace(prevChar) || isUnicodePunctuation(prevChar))
	rightFlanking := !isUnicodeWhitespace(prevChar) &&
		(!isUnicodePunctuation(prevChar) || isUnicodeWhitespace(nextChar) || isUnicodePunctuation(nextChar))
	canOpen = leftFlanking && (withinWord || !rightFlanking || isUnicodePunctuation(prevChar))
	canClose = rightFlanking && (withinWord || !leftFlanking || isUnicodePunctuation(nextChar))
	return canOpen, canClose
}

type openersBottomKey struct {
	char    byte
	canOpen bool
	mod3    int
}

// processEmphasis implements the [process emphasis procedure]
// to convert delimiters above stackBottom to container inlines.
//
// [process emphasis procedure]: https://spec.commonmark.org/0.31.2/#process-emphasis
func (p *InlineProcessor) processEmphasis(stackBottom *delimiter) {
	openersBottom := make(map[openersBottomKey]*delimiter)

	// Find the first delimiter above stack_bottom.
	var closer *delimiter
	for d := p.delims; d != nil && d != stackBottom; d = d.prev {
		closer = d
	}

	for closer != nil {
		if !closer.canClose {
			closer = closer.next
			continue
		}
		key := openersBottomKey{
			char:    closer.rule.Char,
			canOpen: closer.canOpen,
			mod3:    closer.origCount % 3,
		}
		bottom, hasBottom := openersBottom[key]
		if !hasBottom {
			bottom = stackBottom
		}
		var opener *delimiter
		for o := closer.prev; o != nil && o != stackBottom && o != bottom; o = o.prev {
			if o.rule.Char == closer.rule.Char && o.canOpen && !isOddMatch(o, closer) {
				opener = o
				break
			}
		}

		if opener == nil {
			// No openers for this kind of closer up to this point,
			// so put a lower bound on future searches.
			openersBottom[key] = closer.prev
			next := closer.next
			if !closer.canOpen {
				p.removeDelimiter(closer)
			}
			closer = next
			continue
		}

		use := min(opener.count, closer.count, max(closer.rule.MaxConsume, 1))
		opener.count -= use
		closer.count -= use
		opener.end -= use
		closer.start += use
		opener.node.SetText(opener.node.Text()[:opener.count])
		closer.node.SetText(closer.node.Text()[use:])
		if p.precise {
			opener.node.SetSpan(p.SourceSpan(opener.start, opener.end))
			closer.node.SetSpan(p.SourceSpan(closer.start, closer.end))
		}

		container := closer.rule.Create(p.doc, closer.rule.Char, use)
		moveBetween(container, opener.node, closer.node)
		container.SetSpan(p.SourceSpan(opener.end, closer.start))

		// Remove any delimiters between the opener and closer.
		opener.next = closer
		closer.prev = opener

		if opener.count == 0 {
			opener.node.unlink()
			p.removeDelimiter(opener)
		}
		if closer.count == 0 {
			next := closer.next
			closer.node.unlink()
			p.removeDelimiter(closer)
			closer = next
		}
	}

	// Remove all delimiters above stack_bottom.
	for p.delims != nil && p.delims != stackBottom {
		p.removeDelimiter(p.delims)
	}
}

// isOddMatch reports whether the "rule of 3" prevents
// opener and closer from pairing.
func isOddMatch(opener, closer *delimiter) bool {
	if !closer.rule.RuleOfThree {
		return false
	}
	return (closer.canOpen || opener.canClose) &&
		closer.origCount%3 != 0 &&
		(opener.origCount+closer.origCount)%3 == 0
}

func (p *InlineProcessor) removeDelimiter(d *delimiter) {
	if d.prev != nil {
		d.prev.next = d.next
	}
	if d.next != nil {
		d.next.prev = d.prev
	} else {
		p.delims = d.prev
	}
	d.prev, d.next = nil, nil
}

// moveBetween moves the siblings strictly between first and last
// into container, then inserts container after first.
func moveBetween(container, first, last Node) {
	for n := first.NextSibling(); !n.IsNil() && n != last; {
		next := n.NextSibling()
		n.unlink()
		container.link(n, container.rec().lastChild, 0)
		n = next
	}
	first.insertAfter(container)
}
