// Package extractor finds complete, self-delimited fragments in a byte buffer
// that may end in the middle of a fragment.
package extractor

import "bytes"

// Delimiter describes one fragment shape: the bytes it starts with, the bytes
// it ends with, and a suffix appended to the extracted text. The suffix closes
// elements whose end token is only the end of an opening tag.
type Delimiter struct {
	Start  []byte
	End    []byte
	Suffix []byte
}

// Default returns the delimiters of the VersaLex XML event log: full
// <Event>...</Event> containers and self-contained <Run ...> opening tags.
func Default() []Delimiter {
	return []Delimiter{
		{Start: []byte("<Event>"), End: []byte("</Event>")},
		{Start: []byte("<Run "), End: []byte(">"), Suffix: []byte("</Run>")},
	}
}

// Fragment is one extracted span. Text is a copy and stays valid after the
// buffer it came from is reused.
type Fragment struct {
	Start int
	End   int
	Text  []byte
}

type Extractor struct {
	delims []Delimiter
}

// New builds an Extractor over delims. With no delimiters it uses Default().
func New(delims ...Delimiter) *Extractor {
	if len(delims) == 0 {
		delims = Default()
	}
	return &Extractor{delims: delims}
}

// Next finds the fragment whose start token occurs earliest at or after
// offset. When two delimiters start at the same position the one declared
// first wins. ok is false when no start token is present or the winning
// delimiter's end token has not arrived yet; nothing is consumed in that case.
func (x *Extractor) Next(buf []byte, offset int) (frag Fragment, next int, ok bool) {
	if offset < 0 || offset > len(buf) {
		return Fragment{}, offset, false
	}

	begin := -1
	var win *Delimiter
	for i := range x.delims {
		d := &x.delims[i]
		idx := bytes.Index(buf[offset:], d.Start)
		if idx < 0 {
			continue
		}
		idx += offset
		if begin < 0 || idx < begin {
			begin = idx
			win = d
		}
	}
	if win == nil {
		return Fragment{}, offset, false
	}

	from := begin + len(win.Start)
	idx := bytes.Index(buf[from:], win.End)
	if idx < 0 {
		return Fragment{}, offset, false
	}
	end := from + idx + len(win.End)

	text := make([]byte, 0, end-begin+len(win.Suffix))
	text = append(text, buf[begin:end]...)
	text = append(text, win.Suffix...)
	return Fragment{Start: begin, End: end, Text: text}, end, true
}

// Drain calls fn for every complete fragment in buf, in order, and returns the
// number of leading bytes consumed. The caller keeps buf[consumed:] as the
// carry-over for the next read. Drain stops early when fn returns false.
func (x *Extractor) Drain(buf []byte, fn func(Fragment) bool) int {
	consumed := 0
	for {
		frag, next, ok := x.Next(buf, consumed)
		if !ok {
			return consumed
		}
		consumed = next
		if !fn(frag) {
			return consumed
		}
	}
}
