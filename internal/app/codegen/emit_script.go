package codegen

import (
	"fmt"
	"sort"
	"strings"
)

// EmitScript renders doc back to readable pseudo-source text: one class
// per sheet, one method per node, annotated with the "# NODE_ID:" marker.
// Per spec.md §6, this text is never parsed back — it exists purely for
// display and debugging.
func EmitScript(doc *ScriptDocument) string {
	var b strings.Builder

	keys := make([]SheetKey, 0, len(doc.Sheets))
	for k := range doc.Sheets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return doc.Sheets[keys[i]].ClassName < doc.Sheets[keys[j]].ClassName })

	for _, key := range keys {
		sp := doc.Sheets[key]
		fmt.Fprintf(&b, "class %s:\n", sp.ClassName)
		for _, n := range sp.Nodes {
			fmt.Fprintf(&b, "    # NODE_ID:%s\n", n.NodeID)
			fmt.Fprintf(&b, "    def %s(%s):  # variant=%s label=%q\n", n.MethodName, renderArgs(n), n.Variant, n.Label)
			fmt.Fprintf(&b, "%s\n", renderBody(doc, n))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "root = %s\n", doc.Sheets[doc.Root].ClassName)
	return b.String()
}

func renderArgs(n *NodeProgram) string {
	if len(n.Inputs) == 0 {
		return ""
	}
	args := make([]string, 0, len(n.Inputs))
	for port := range n.Inputs {
		args = append(args, sanitizeIdent(port))
	}
	sort.Strings(args)
	return strings.Join(args, ", ")
}

func renderBody(doc *ScriptDocument, n *NodeProgram) string {
	switch n.Variant {
	case "function":
		if n.Config.ParseError != "" {
			return fmt.Sprintf("        raise SyntaxError(%q)", n.Config.ParseError)
		}
		lines := strings.Split(n.Config.Code, "\n")
		for i, l := range lines {
			lines[i] = "        " + l
		}
		return strings.Join(lines, "\n")
	case "sheet":
		target := doc.Sheets[n.Config.SheetTarget]
		name := string(n.Config.SheetTarget)
		if target != nil {
			name = target.ClassName
		}
		return fmt.Sprintf("        sub = %s(...); register_instance(%q, sub); sub.run(); return sub.public_outputs()", name, n.NodeID)
	case "lut":
		return fmt.Sprintf("        return lookup(%d rows, key)", len(n.Config.LUTRows))
	case "constant", "input":
		return fmt.Sprintf("        return %v", n.Config.Value)
	default:
		return "        pass"
	}
}
