package scene

import (
	"fmt"
	"strings"
)

// Dump renders the subtree rooted at n as indented text, one node per line.
// Hidden nodes are marked, destroyed nodes are skipped.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n, 0)

	return b.String()
}

func dump(b *strings.Builder, n *Node, depth int) {
	if n == nil || n.destroyed {
		return
	}

	fmt.Fprintf(b, "%s%s", strings.Repeat("  ", depth), n.name)

	if n.accessibleName != "" {
		fmt.Fprintf(b, " %q", n.accessibleName)
	}

	if !n.visible {
		b.WriteString(" [hidden]")
	}

	if n.opacity != 255 {
		fmt.Fprintf(b, " opacity=%d", n.opacity)
	}

	if len(n.pseudoClasses) > 0 {
		fmt.Fprintf(b, " :%s", strings.Join(n.pseudoClasses, ":"))
	}

	if len(n.effectOrder) > 0 {
		fmt.Fprintf(b, " effects=%s", strings.Join(n.effectOrder, ","))
	}

	b.WriteByte('\n')

	for _, child := range n.children {
		dump(b, child, depth+1)
	}
}
