package javasrc

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/serval-uni-lu/flakime/pkg/javasrc/tspool"
)

// statement is an executable statement of a method body together with the
// offset where code meant to run right after it is inserted.
type statement struct {
	node     *sitter.Node
	start    int
	end      int
	insertAt uint32
}

// collectStatements returns the statements of a method body in source order.
// Compound statements are followed by the statements of their block bodies.
// Lambda bodies and anonymous classes are expressions and are not visited.
func collectStatements(body *sitter.Node) []statement {
	if body == nil {
		return nil
	}
	var out []statement
	walkContainer(body, &out, 0)
	return out
}

func walkContainer(container *sitter.Node, out *[]statement, depth int) {
	if depth > tspool.MaxTreeDepth {
		return
	}
	for i := 0; i < int(container.NamedChildCount()); i++ {
		child := container.NamedChild(i)
		if IsComment(child) || child.Type() == NodeSwitchLabel {
			continue
		}
		*out = append(*out, newStatement(child))
		descend(child, out, depth+1)
	}
}

func walkBody(node *sitter.Node, out *[]statement, depth int) {
	if node != nil && node.Type() == NodeBlock {
		walkContainer(node, out, depth)
	}
}

func descend(stmt *sitter.Node, out *[]statement, depth int) {
	switch stmt.Type() {
	case NodeBlock:
		walkContainer(stmt, out, depth)
	case NodeIfStatement:
		walkBody(stmt.ChildByFieldName("consequence"), out, depth)
		if alt := stmt.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == NodeIfStatement {
				descend(alt, out, depth+1)
			} else {
				walkBody(alt, out, depth)
			}
		}
	case NodeForStatement, NodeEnhancedForStatement, NodeWhileStatement,
		NodeDoStatement, NodeSynchronizedStatement:
		walkBody(stmt.ChildByFieldName("body"), out, depth)
	case NodeTryStatement, NodeTryWithResources:
		walkBody(stmt.ChildByFieldName("body"), out, depth)
		for _, c := range FindChildrenByType(stmt, NodeCatchClause) {
			walkBody(c.ChildByFieldName("body"), out, depth)
		}
		if f := FindChildByType(stmt, NodeFinallyClause); f != nil {
			walkBody(FindChildByType(f, NodeBlock), out, depth)
		}
	case NodeLabeledStatement:
		if n := stmt.NamedChildCount(); n > 0 {
			descend(stmt.NamedChild(int(n)-1), out, depth+1)
		}
	case NodeSwitchExpression:
		sb := stmt.ChildByFieldName("body")
		if sb == nil {
			return
		}
		for i := 0; i < int(sb.NamedChildCount()); i++ {
			group := sb.NamedChild(i)
			switch group.Type() {
			case NodeSwitchGroup:
				walkContainer(group, out, depth+1)
			case NodeSwitchRule:
				for _, b := range FindChildrenByType(group, NodeBlock) {
					walkContainer(b, out, depth+1)
				}
			}
		}
	}
}

func newStatement(node *sitter.Node) statement {
	s := statement{
		node:  node,
		start: StartLine(node),
		end:   EndLine(node),
	}

	switch node.Type() {
	case NodeReturnStatement, NodeThrowStatement, NodeBreakStatement,
		NodeContinueStatement, NodeYieldStatement:
		// Nothing runs after a jump, so the guard goes in front of it.
		s.insertAt = node.StartByte()
	case NodeBlock:
		s.insertAt = node.StartByte() + 1
		s.end = s.start
	case NodeIfStatement, NodeForStatement, NodeEnhancedForStatement,
		NodeWhileStatement, NodeDoStatement, NodeSynchronizedStatement,
		NodeTryStatement, NodeTryWithResources:
		if body := compoundBody(node); body != nil && body.Type() == NodeBlock {
			s.insertAt = body.StartByte() + 1
			s.end = StartLine(body)
		} else {
			s.insertAt = node.StartByte()
			s.end = s.start
		}
	case NodeLabeledStatement, NodeSwitchExpression:
		s.insertAt = node.StartByte()
		s.end = s.start
	default:
		s.insertAt = node.EndByte()
	}
	return s
}

func compoundBody(node *sitter.Node) *sitter.Node {
	if node.Type() == NodeIfStatement {
		return node.ChildByFieldName("consequence")
	}
	return node.ChildByFieldName("body")
}
