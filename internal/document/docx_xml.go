package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var (
	prefixedWordNS = regexp.MustCompile(`xmlns:([A-Za-z_][\w.\-]*)="` + regexp.QuoteMeta(wordNS) + `"`)
	defaultWordNS  = regexp.MustCompile(`xmlns="` + regexp.QuoteMeta(wordNS) + `"`)
)

// openElem is an element enclosing text inside a paragraph. start and end
// are byte offsets of its start tag and of the byte after its end tag.
type openElem struct {
	name  string
	tag   string
	props string
	start int64
	end   int64
	run   bool
}

type unitKind int

const (
	unitText unitKind = iota
	unitTab
	unitBreak
)

// textUnit is an element contributing characters to a paragraph's text: a
// non-empty <w:t>, or a <w:tab/> or <w:br/> directly inside a run.
type textUnit struct {
	kind      unitKind
	start     int64
	end       int64
	runes     []rune
	first     int
	ancestors []*openElem
}

// paragraph is one top-level <w:p> of the document part. start and end
// are byte offsets into the part, end exclusive; closeAt is the offset of
// the end tag and equals end for a self-closing or synthesised paragraph.
type paragraph struct {
	start         int64
	end           int64
	closeAt       int64
	text          string
	props         string
	firstRunProps string
	lastRunProps  string
	units         []textUnit
}

func (p *paragraph) bare() bool {
	return p.closeAt >= p.end
}

// wordBody is a parsed word/document.xml. Serialisation copies the raw
// bytes between and around paragraphs untouched.
type wordBody struct {
	raw        []byte
	prefix     string
	paragraphs []paragraph
}

func namespacePrefix(raw []byte) string {
	if m := prefixedWordNS.FindSubmatch(raw); m != nil {
		return string(m[1])
	}
	if defaultWordNS.Match(raw) {
		return ""
	}
	return "w"
}

// tagName returns the qualified element name of the start tag at the
// beginning of raw.
func tagName(raw []byte) string {
	end := 1
	for end < len(raw) {
		switch raw[end] {
		case ' ', '\t', '\r', '\n', '/', '>':
			return string(raw[1:end])
		}
		end++
	}
	return string(raw[1:])
}

func runProps(ancestors []*openElem) string {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if ancestors[i].run {
			return ancestors[i].props
		}
	}
	return ""
}

func parseWordBody(raw []byte) (*wordBody, error) {
	body := &wordBody{raw: raw, prefix: namespacePrefix(raw)}
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		cur       *paragraph
		text      []rune
		chars     []rune
		open      []*openElem
		unit      *textUnit
		unitDepth int
		depth     int
		pDepth    int
		nested    int
		bodyDepth int
		bodyEnd   int64 = -1
		sectStart int64 = -1
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			isWord := t.Name.Space == wordNS
			if cur == nil {
				if !isWord {
					continue
				}
				switch t.Name.Local {
				case "body":
					if bodyDepth == 0 {
						bodyDepth = depth
					}
				case "sectPr":
					if bodyDepth > 0 && depth == bodyDepth+1 && sectStart < 0 {
						sectStart = offset
					}
				case "p":
					cur = &paragraph{start: offset}
					pDepth = depth
					text = text[:0]
					open = open[:0]
				}
				continue
			}

			if isWord && t.Name.Local == "p" {
				nested++
			}
			ancestors := append([]*openElem(nil), open...)
			el := &openElem{
				name:  tagName(raw[offset:]),
				tag:   string(raw[offset:dec.InputOffset()]),
				start: offset,
				run:   isWord && t.Name.Local == "r",
			}
			open = append(open, el)
			if !isWord || nested > 0 || unit != nil {
				continue
			}
			inRun := len(ancestors) > 0 && ancestors[len(ancestors)-1].run
			switch t.Name.Local {
			case "t":
				unit = &textUnit{kind: unitText, start: offset, first: len(text), ancestors: ancestors}
				chars = chars[:0]
				unitDepth = depth
			case "tab":
				if inRun {
					unit = &textUnit{kind: unitTab, start: offset, first: len(text), runes: []rune{'\t'}, ancestors: ancestors}
					unitDepth = depth
				}
			case "br", "cr":
				if inRun {
					unit = &textUnit{kind: unitBreak, start: offset, first: len(text), runes: []rune{'\v'}, ancestors: ancestors}
					unitDepth = depth
				}
			}

		case xml.EndElement:
			end := dec.InputOffset()
			isWord := t.Name.Space == wordNS
			switch {
			case cur != nil && depth == pDepth:
				cur.closeAt = offset
				cur.end = end
				cur.text = string(text)
				if n := len(cur.units); n > 0 {
					cur.firstRunProps = runProps(cur.units[0].ancestors)
					cur.lastRunProps = runProps(cur.units[n-1].ancestors)
				}
				body.paragraphs = append(body.paragraphs, *cur)
				cur = nil
			case cur != nil:
				el := open[len(open)-1]
				open = open[:len(open)-1]
				el.end = end
				if isWord && t.Name.Local == "p" {
					nested--
				}
				if unit != nil && depth == unitDepth {
					unit.end = end
					if unit.kind == unitText {
						unit.runes = append([]rune(nil), chars...)
					}
					if len(unit.runes) > 0 {
						cur.units = append(cur.units, *unit)
						text = append(text, unit.runes...)
					}
					unit = nil
				}
				if !isWord {
					break
				}
				switch t.Name.Local {
				case "rPr":
					if n := len(open); n > 0 && open[n-1].run {
						open[n-1].props = string(raw[el.start:end])
					}
				case "pPr":
					if len(open) == 0 {
						cur.props = string(raw[el.start:end])
					}
				}
			case isWord && t.Name.Local == "body" && depth == bodyDepth:
				bodyEnd = offset
			}
			depth--

		case xml.CharData:
			if unit != nil && unit.kind == unitText {
				chars = append(chars, []rune(string(t))...)
			}
		}
	}

	if len(body.paragraphs) == 0 {
		// A body without paragraphs still needs one addressable line.
		at := sectStart
		if at < 0 {
			at = bodyEnd
		}
		if at < 0 {
			return nil, fmt.Errorf("%w: document part has no body", ErrCorruptDocument)
		}
		body.paragraphs = append(body.paragraphs, paragraph{start: at, end: at, closeAt: at})
	}
	return body, nil
}

func (b *wordBody) texts() []string {
	out := make([]string, len(b.paragraphs))
	for i, p := range b.paragraphs {
		out[i] = p.text
	}
	return out
}

func (b *wordBody) tag(local string) string {
	if b.prefix == "" {
		return local
	}
	return b.prefix + ":" + local
}

// writeRunText writes text as the content of an open <w:t>, turning tabs
// and manual breaks into their own elements.
func (b *wordBody) writeRunText(out *bytes.Buffer, text []rune) {
	start := 0
	flush := func(end int) {
		if end > start {
			_ = xml.EscapeText(out, []byte(string(text[start:end])))
		}
	}
	for i, r := range text {
		var elem string
		switch r {
		case '\t':
			elem = "tab"
		case '\v':
			elem = "br"
		default:
			continue
		}
		flush(i)
		out.WriteString("</" + b.tag("t") + "><" + b.tag(elem) + "/>" + b.openText())
		start = i + 1
	}
	flush(len(text))
}

func (b *wordBody) openText() string {
	return "<" + b.tag("t") + ` xml:space="preserve">`
}

func (b *wordBody) closeText() string {
	return "</" + b.tag("t") + ">"
}

// renderFresh builds a paragraph holding text as a single run with the
// given paragraph and run properties.
func (b *wordBody) renderFresh(text, props, runProps string) []byte {
	var out bytes.Buffer
	out.WriteString("<" + b.tag("p") + ">")
	out.WriteString(props)
	if text != "" {
		out.WriteString("<" + b.tag("r") + ">")
		out.WriteString(runProps)
		b.writeTextElems(&out, []rune(text))
		out.WriteString("</" + b.tag("r") + ">")
	}
	out.WriteString("</" + b.tag("p") + ">")
	return out.Bytes()
}

// writeTextElems writes text as run content: <w:t> elements for plain
// text and <w:tab/> or <w:br/> for tabs and manual breaks.
func (b *wordBody) writeTextElems(out *bytes.Buffer, text []rune) {
	start := 0
	flush := func(end int) {
		if end > start {
			out.WriteString(b.openText())
			_ = xml.EscapeText(out, []byte(string(text[start:end])))
			out.WriteString(b.closeText())
		}
	}
	for i, r := range text {
		switch r {
		case '\t':
			flush(i)
			out.WriteString("<" + b.tag("tab") + "/>")
		case '\v':
			flush(i)
			out.WriteString("<" + b.tag("br") + "/>")
		default:
			continue
		}
		start = i + 1
	}
	flush(len(text))
}

// serialize writes the part back. Clean lines reuse their paragraph's
// original bytes; edited paragraphs keep every element the edit did not
// reach. Lines sharing an origin are contiguous and in order.
func (b *wordBody) serialize(lines []bufferLine) []byte {
	var out bytes.Buffer
	prev := int64(0)
	i := 0
	for k := range b.paragraphs {
		p := &b.paragraphs[k]
		out.Write(b.raw[prev:p.start])
		j := i
		for j < len(lines) && lines[j].origin == k {
			j++
		}
		b.writeParagraph(&out, p, lines[i:j])
		i = j
		prev = p.end
	}
	out.Write(b.raw[prev:])
	return out.Bytes()
}

func (b *wordBody) writeParagraph(out *bytes.Buffer, p *paragraph, group []bufferLine) {
	if len(group) == 1 && !group[0].dirty {
		out.Write(b.raw[p.start:p.end])
		return
	}
	e := newParagraphEdit(b, p, group, out)
	if p.bare() || len(e.derived) == 0 {
		for _, l := range group {
			out.Write(b.renderFresh(string(l.text), p.props, p.firstRunProps))
		}
		return
	}
	e.write()
}

type attach int

const (
	attachNewRun attach = iota
	attachPrev
	attachBeforeNext
	attachPrepend
)

type insertKey struct {
	line int
	pos  int
}

// paragraphEdit rewrites one stored paragraph for the lines loaded from
// it. Positions are character indexes into the stored paragraph text; a
// boundary c sits between characters c-1 and c. Derived lines split the
// stored text into consecutive ranges ending at bounds.
type paragraphEdit struct {
	b       *wordBody
	p       *paragraph
	out     *bytes.Buffer
	group   []bufferLine
	derived []int
	bounds  []int
	present []bool
	inserts map[insertKey][]rune
	pos     int64
}

func newParagraphEdit(b *wordBody, p *paragraph, group []bufferLine, out *bytes.Buffer) *paragraphEdit {
	n := len([]rune(p.text))
	e := &paragraphEdit{
		b:       b,
		p:       p,
		out:     out,
		group:   group,
		present: make([]bool, n),
		inserts: make(map[insertKey][]rune),
		pos:     p.start,
	}
	lo := 0
	for gi, l := range group {
		if l.fresh {
			continue
		}
		d := len(e.derived)
		e.derived = append(e.derived, gi)
		at, hi := lo, lo
		for k, src := range l.src {
			if src >= 0 && src < n {
				e.present[src] = true
				at = src + 1
				hi = max(hi, at)
				continue
			}
			key := insertKey{line: d, pos: at}
			e.inserts[key] = append(e.inserts[key], l.text[k])
		}
		e.bounds = append(e.bounds, hi)
		lo = hi
	}
	if len(e.bounds) > 0 {
		e.bounds[len(e.bounds)-1] = n
	}
	return e
}

// span returns the first and last derived line touching boundary c. Each
// step from one to the next is a paragraph split at c.
func (e *paragraphEdit) span(c int) (int, int) {
	first := len(e.bounds) - 1
	for d, hi := range e.bounds {
		if hi >= c {
			first = d
			break
		}
	}
	last := first
	for last+1 < len(e.bounds) && e.bounds[last] <= c {
		last++
	}
	return first, last
}

func (e *paragraphEdit) hasCut(c int) bool {
	first, last := e.span(c)
	return last > first
}

// attachAt decides where text typed at boundary c, before any split, is
// written. Replacing text takes the formatting of what it replaces;
// otherwise typed text continues the preceding run.
func (e *paragraphEdit) attachAt(c int, prev, next *textUnit) attach {
	if next != nil && next.kind == unitText && !e.hasCut(c) && (prev == nil || !e.present[c]) {
		return attachPrepend
	}
	if prev != nil {
		return attachPrev
	}
	if next != nil {
		return attachBeforeNext
	}
	return attachNewRun
}

func (e *paragraphEdit) copyTo(at int64) {
	if at > e.pos {
		e.out.Write(e.b.raw[e.pos:at])
		e.pos = at
	}
}

func (e *paragraphEdit) write() {
	p := e.p
	e.writeFresh(0, e.derived[0], p.firstRunProps)
	var prev *textUnit
	for i := range p.units {
		u := &p.units[i]
		carry := e.boundary(u.first, prev, u)
		var next *textUnit
		if i+1 < len(p.units) {
			next = &p.units[i+1]
		}
		e.writeUnit(u, carry, next)
		prev = u
	}
	e.boundary(len(e.present), prev, nil)
	e.copyTo(p.end)
	e.writeFresh(e.derived[len(e.derived)-1]+1, len(e.group), p.lastRunProps)
}

func (e *paragraphEdit) writeFresh(from, to int, runProps string) {
	for gi := from; gi < to; gi++ {
		e.out.Write(e.b.renderFresh(string(e.group[gi].text), e.p.props, runProps))
	}
}

// cutPoint returns where a split between prev and next goes: at the
// shallowest point between them, with the elements still open there.
func (e *paragraphEdit) cutPoint(prev, next *textUnit) (int64, []*openElem) {
	switch {
	case next == nil:
		return e.p.closeAt, nil
	case prev == nil:
		if len(next.ancestors) > 0 {
			return next.ancestors[0].start, nil
		}
		return next.start, nil
	}
	common := 0
	for common < len(prev.ancestors) && common < len(next.ancestors) && prev.ancestors[common] == next.ancestors[common] {
		common++
	}
	if common < len(prev.ancestors) {
		return prev.ancestors[common].end, prev.ancestors[:common]
	}
	return prev.end, prev.ancestors[:common]
}

// boundary handles the events at a boundary between units and copies the
// stored bytes up to next (or to the paragraph end tag). It returns the
// text to prepend into next.
func (e *paragraphEdit) boundary(c int, prev, next *textUnit) []rune {
	att := e.attachAt(c, prev, next)
	first, last := e.span(c)
	stop := e.p.closeAt
	var anc []*openElem
	if next != nil {
		stop = next.start
		anc = next.ancestors
	}
	cutAt, cutAnc := stop, anc
	if last > first {
		cutAt, cutAnc = e.cutPoint(prev, next)
	}
	props := e.p.lastRunProps
	if prev == nil {
		props = e.p.firstRunProps
	}

	var carry []rune
	for d := first; d <= last; d++ {
		if d > first {
			e.copyTo(cutAt)
			e.cut(d-1, cutAnc)
		}
		ins := e.inserts[insertKey{line: d, pos: c}]
		switch {
		case d == first && att == attachPrev:
		case d == last && next != nil && next.kind == unitText:
			carry = ins
		case d == last:
			e.copyTo(stop)
			e.writeInsert(anc, ins, props)
		default:
			e.copyTo(cutAt)
			e.writeInsert(cutAnc, ins, props)
		}
	}
	e.copyTo(stop)
	return carry
}

func (e *paragraphEdit) writeInsert(anc []*openElem, text []rune, props string) {
	if len(text) == 0 {
		return
	}
	inRun := false
	for _, el := range anc {
		inRun = inRun || el.run
	}
	if !inRun {
		e.out.WriteString("<" + e.b.tag("r") + ">" + props)
	}
	e.b.writeTextElems(e.out, text)
	if !inRun {
		e.out.WriteString("</" + e.b.tag("r") + ">")
	}
}

// cut closes the paragraph after derived line d, writes the fresh lines
// that follow it and reopens anc inside a new paragraph.
func (e *paragraphEdit) cut(d int, anc []*openElem) {
	for i := len(anc) - 1; i >= 0; i-- {
		e.out.WriteString("</" + anc[i].name + ">")
	}
	e.out.WriteString("</" + e.b.tag("p") + ">")
	e.writeFresh(e.derived[d]+1, e.derived[d+1], runProps(anc))
	e.out.WriteString("<" + e.b.tag("p") + ">" + e.p.props)
	for _, el := range anc {
		e.out.WriteString(el.tag)
		if el.run {
			e.out.WriteString(el.props)
		}
	}
}

// changed reports whether any character of u was removed and whether a
// split or typed text falls strictly inside it.
func (e *paragraphEdit) changed(u *textUnit) (removed, inside bool) {
	for k := range u.runes {
		c := u.first + k
		if !e.present[c] {
			removed = true
		}
		if k == 0 {
			continue
		}
		first, last := e.span(c)
		if last > first {
			inside = true
		}
		for d := first; d <= last; d++ {
			if len(e.inserts[insertKey{line: d, pos: c}]) > 0 {
				inside = true
			}
		}
	}
	return removed, inside
}

// writeUnit writes u with prepend typed before its first character.
// Units the edit does not reach are copied from the stored bytes.
func (e *paragraphEdit) writeUnit(u *textUnit, prepend []rune, next *textUnit) {
	raw := e.b.raw
	endC := u.first + len(u.runes)
	var tail []rune
	if e.attachAt(endC, u, next) == attachPrev {
		first, _ := e.span(endC)
		tail = e.inserts[insertKey{line: first, pos: endC}]
	}
	e.pos = u.end

	if u.kind != unitText {
		if e.present[u.first] {
			e.out.Write(raw[u.start:u.end])
		}
		e.b.writeTextElems(e.out, tail)
		return
	}

	removed, inside := e.changed(u)
	if !removed && !inside && len(prepend) == 0 && len(tail) == 0 {
		e.out.Write(raw[u.start:u.end])
		return
	}
	if !inside && len(prepend) == 0 && len(tail) == 0 && !e.keepsAny(u) {
		return
	}

	e.out.WriteString(e.b.openText())
	e.b.writeRunText(e.out, prepend)
	for k, r := range u.runes {
		c := u.first + k
		if k > 0 {
			first, last := e.span(c)
			for d := first; d <= last; d++ {
				if d > first {
					e.out.WriteString(e.b.closeText())
					e.cut(d-1, u.ancestors)
					e.out.WriteString(e.b.openText())
				}
				e.b.writeRunText(e.out, e.inserts[insertKey{line: d, pos: c}])
			}
		}
		if e.present[c] {
			e.b.writeRunText(e.out, []rune{r})
		}
	}
	e.b.writeRunText(e.out, tail)
	e.out.WriteString(e.b.closeText())
}

func (e *paragraphEdit) keepsAny(u *textUnit) bool {
	for k := range u.runes {
		if e.present[u.first+k] {
			return true
		}
	}
	return false
}
