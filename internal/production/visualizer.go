package production

import (
	"fmt"
	"strings"

	"github.com/comalice/rovercore/internal/core"
)

// DefaultVisualizer renders a transition table as Graphviz DOT.
type DefaultVisualizer struct{}

// ExportDOT generates DOT source for table with current highlighted.
// Rules of one state are numbered in evaluation order.
func (v *DefaultVisualizer) ExportDOT(table *core.Table, current core.State) string {
	var buf strings.Builder
	buf.WriteString(`digraph Statechart {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for _, s := range []core.State{core.StateIdle, core.StateActive, core.StateAvoiding, core.StateFault} {
		style := ""
		switch {
		case s == current:
			style = ` style="rounded,filled" fillcolor=lightgreen`
		case s == core.StateFault:
			style = ` color=red`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", s.String(), s.String(), style)
	}

	prio := map[core.State]int{}
	for _, r := range table.Rules() {
		prio[r.From]++
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n",
			r.From.String(), r.To.String(), fmt.Sprintf("%d: %s", prio[r.From], core.FormatEvents(r.On)))
	}
	fmt.Fprintf(&buf, "  %q -> %q [label=\"recover\" style=dashed];\n", core.StateFault.String(), core.StateIdle.String())

	buf.WriteString("}\n")
	return buf.String()
}
