package renderer

import (
	"reflect"
	"strings"
	"text/template/parse"
)

// isNilNode returns true if node is nil or an interface holding a nil pointer (e.g. *parse.ListNode).
func isNilNode(node parse.Node) bool {
	if node == nil {
		return true
	}
	v := reflect.ValueOf(node)
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// walkParseNodes visits node and its descendants. atRoot reports whether dot is
// still the root data at that node: range and with bodies rebind it.
func walkParseNodes(node parse.Node, atRoot bool, visit func(n parse.Node, atRoot bool)) {
	if isNilNode(node) {
		return
	}
	visit(node, atRoot)
	switch n := node.(type) {
	case *parse.ListNode:
		for _, c := range n.Nodes {
			walkParseNodes(c, atRoot, visit)
		}
	case *parse.ActionNode:
		walkParseNodes(n.Pipe, atRoot, visit)
	case *parse.PipeNode:
		for _, c := range n.Cmds {
			walkParseNodes(c, atRoot, visit)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			walkParseNodes(a, atRoot, visit)
		}
	case *parse.IfNode:
		walkParseNodes(n.Pipe, atRoot, visit)
		walkParseNodes(n.List, atRoot, visit)
		walkParseNodes(n.ElseList, atRoot, visit)
	case *parse.RangeNode:
		walkParseNodes(n.Pipe, atRoot, visit)
		walkParseNodes(n.List, false, visit)
		walkParseNodes(n.ElseList, atRoot, visit)
	case *parse.WithNode:
		walkParseNodes(n.Pipe, atRoot, visit)
		walkParseNodes(n.List, false, visit)
		walkParseNodes(n.ElseList, atRoot, visit)
	case *parse.TemplateNode:
		walkParseNodes(n.Pipe, atRoot, visit)
	}
}

// varRef is a field chain read from the root data, e.g. .user.name -> [user name].
// ranged marks chains used as a range subject.
type varRef struct {
	path   []string
	ranged bool
}

func rootPath(n parse.Node, atRoot bool) []string {
	switch n := n.(type) {
	case *parse.FieldNode:
		if atRoot && len(n.Ident) > 0 {
			return n.Ident
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			return n.Ident[1:]
		}
	}
	return nil
}

// referencedPaths collects the field chains read from the root data, in source
// order: .x outside range/with bodies and $.x anywhere.
func referencedPaths(tree *parse.Tree) []varRef {
	if tree == nil || tree.Root == nil {
		return nil
	}
	var out []varRef
	ranged := make(map[string]bool)
	walkParseNodes(tree.Root, true, func(n parse.Node, atRoot bool) {
		if rn, ok := n.(*parse.RangeNode); ok && rn.Pipe != nil {
			for _, cmd := range rn.Pipe.Cmds {
				if len(cmd.Args) == 1 {
					if p := rootPath(cmd.Args[0], atRoot); p != nil {
						ranged[strings.Join(p, ".")] = true
					}
				}
			}
			return
		}
		if p := rootPath(n, atRoot); p != nil {
			out = append(out, varRef{path: p})
		}
	})
	for i := range out {
		out[i].ranged = ranged[strings.Join(out[i].path, ".")]
	}
	return out
}

// rootVars returns the distinct root names of refs in first-seen order.
func rootVars(refs []varRef) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range refs {
		if !seen[r.path[0]] {
			seen[r.path[0]] = true
			out = append(out, r.path[0])
		}
	}
	return out
}

// emptyValues builds, per root name, a placeholder that renders every
// referenced chain under it as "": a leaf is "", an inner name a nested map.
// Range subjects stay absent, which range treats as empty.
func emptyValues(refs []varRef) map[string]any {
	root := make(map[string]any)
	for _, r := range refs {
		cur := root
		for i, name := range r.path {
			last := i == len(r.path)-1
			next, ok := cur[name].(map[string]any)
			switch {
			case ok:
			case last:
				if _, set := cur[name]; !set && !r.ranged {
					cur[name] = ""
				}
				continue
			default:
				next = make(map[string]any)
				cur[name] = next
			}
			cur = next
		}
	}
	return root
}
