package frames

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// DefaultFragmentFile is the name of the generated LaTeX fragment
const DefaultFragmentFile = "figures.tex"

// FragmentPolicy decides which capture times get a subfigure
type FragmentPolicy string

const (
	// FragmentAllTimes emits a subfigure for every requested time, even when
	// the frame could not be extracted and the referenced image does not exist
	FragmentAllTimes FragmentPolicy = "all"

	// FragmentExtractedOnly emits subfigures only for images that were written
	FragmentExtractedOnly FragmentPolicy = "extracted"
)

// Entry is one subfigure in the fragment
type Entry struct {
	Seconds   float64
	ImageRef  string
	Extracted bool
}

// Fragment accumulates subfigure entries for a figure block
type Fragment struct {
	relativePath string
	columns      int
	policy       FragmentPolicy
	entries      []Entry
}

// NewFragment creates an empty fragment. relativePath is prepended to every
// image reference; columns sizes each subfigure (values below 1 use DefaultColumns).
func NewFragment(relativePath string, columns int, policy FragmentPolicy) *Fragment {
	if columns < 1 {
		columns = DefaultColumns
	}
	if policy == "" {
		policy = FragmentAllTimes
	}
	return &Fragment{
		relativePath: relativePath,
		columns:      columns,
		policy:       policy,
	}
}

// Add appends an entry for a capture time
func (f *Fragment) Add(seconds float64, extracted bool) {
	f.entries = append(f.entries, Entry{
		Seconds:   seconds,
		ImageRef:  f.relativePath + FormatSeconds(seconds),
		Extracted: extracted,
	})
}

// Entries returns the entries that will be rendered, in order
func (f *Fragment) Entries() []Entry {
	if f.policy != FragmentExtractedOnly {
		return f.entries
	}
	var kept []Entry
	for _, e := range f.entries {
		if e.Extracted {
			kept = append(kept, e)
		}
	}
	return kept
}

// SubfigureWidth returns the \textwidth fraction of each subfigure.
// It is 1/columns rounded to two decimal places, less 0.01 for spacing.
// The difference is not re-rounded, so float noise is kept as is.
func SubfigureWidth(columns int) float64 {
	if columns < 1 {
		columns = DefaultColumns
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(1/float64(columns), 'f', 2, 64), 64)
	return rounded - 0.01
}

// WriteTo renders the figure block to w
func (f *Fragment) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	width := strconv.FormatFloat(SubfigureWidth(f.columns), 'f', -1, 64)

	fmt.Fprint(cw, "\\begin{figure}[H]\n")
	fmt.Fprint(cw, "\t\\centering\n")
	for _, e := range f.Entries() {
		fmt.Fprintf(cw, "\t\\begin{subfigure}{%s\\textwidth}\n", width)
		fmt.Fprint(cw, "\t\t\\centering\n")
		fmt.Fprintf(cw, "\t\t\\includegraphics[width=\\textwidth]{%s}\n", e.ImageRef)
		fmt.Fprintf(cw, "\t\t\\caption{%s seconds}\n", FormatSeconds(e.Seconds))
		fmt.Fprint(cw, "\t\\end{subfigure}\n")
	}
	fmt.Fprint(cw, "\t\\caption[]{}\n")
	fmt.Fprint(cw, "\t\\label{}\n")
	fmt.Fprint(cw, "\\end{figure}\n")

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

// countingWriter remembers the first write error so rendering stays linear
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
