package interpreter

import (
	"strings"

	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/parser"
)

// ApplyAmendment walks one amendment's edits, in document order, against
// the interpreter's working tree. It stops at the first directive that
// cannot be applied and returns its error; the edits before it stay in
// the working tree. The amendment is recorded as applied, and the tree
// re-indexed, only when every edit succeeds.
func (it *Interpreter) ApplyAmendment(name string) error {
	amd, ok := it.amendments[name]
	if !ok {
		return &UndefinedIdentifierError{Name: name}
	}
	for _, edit := range amd.Edits {
		if err := it.applyEdit(amd.Ident, edit); err != nil {
			return err
		}
	}
	it.appliedAmendments = append(it.appliedAmendments, amd)
	it.index()
	return nil
}

// LoadAmendmentSource parses a standalone amendment document (as supplied
// via the CLI's -a flag) and registers any AMENDMENT statements it
// contains against the working tree, returning their names in document
// order so the caller can apply them one at a time.
func (it *Interpreter) LoadAmendmentSource(src string) ([]string, error) {
	prog, perr := parser.Parse(src)
	if perr != nil {
		return nil, perr
	}
	var names []string
	for _, stmt := range prog.Statements {
		if amd, ok := stmt.(*ast.AmendmentStatement); ok {
			it.tree.Statements = append(it.tree.Statements, amd)
			it.amendments[amd.Ident] = amd
			names = append(names, amd.Ident)
		}
	}
	return names, nil
}

// AppliedAmendments returns the amendments applied so far, in application order.
func (it *Interpreter) AppliedAmendments() []*ast.AmendmentStatement {
	return append([]*ast.AmendmentStatement(nil), it.appliedAmendments...)
}

func (it *Interpreter) applyEdit(amendment string, edit ast.AmendmentEdit) error {
	switch edit.Op {
	case ast.AmendAdd:
		it.tree.Statements = append(it.tree.Statements, edit.Addition)
		return nil
	case ast.AmendDelete:
		idx := it.findStatement(edit.Target)
		if idx < 0 {
			return &AmendmentTargetMissingError{Amendment: amendment, Target: edit.Target}
		}
		it.tree.Statements = append(it.tree.Statements[:idx], it.tree.Statements[idx+1:]...)
		return nil
	case ast.AmendReplace:
		idx := it.findStatement(edit.Target)
		if idx < 0 {
			return &AmendmentTargetMissingError{Amendment: amendment, Target: edit.Target}
		}
		it.tree.Statements[idx] = edit.Addition
		return nil
	case ast.AmendModify:
		idx := it.findStatement(edit.Target)
		if idx < 0 {
			return &AmendmentTargetMissingError{Amendment: amendment, Target: edit.Target}
		}
		return setField(it.tree.Statements[idx], edit.Field, edit.NewValue)
	}
	return &InvariantViolationError{Message: "unknown amendment op"}
}

func (it *Interpreter) findStatement(name string) int {
	for i, s := range it.tree.Statements {
		if s.Name() == name {
			return i
		}
	}
	return -1
}

// setField applies a MODIFY directive's SET <field> = <value>. The field
// name is matched case-insensitively against a fixed set: a covenant's
// REQUIRES or MAX_AMOUNT, a basket's CAPACITY, MAXIMUM or FLOOR, a
// reserve's TARGET or MINIMUM, and a DEFINE's VALUE or CAPPED_AT.
func setField(stmt ast.Statement, field string, value ast.Expression) error {
	field = strings.ToUpper(field)
	switch s := stmt.(type) {
	case *ast.CovenantStatement:
		switch field {
		case "REQUIRES":
			s.Requires = value
			return nil
		case "MAX_AMOUNT":
			s.MaxAmount = value
			return nil
		}
	case *ast.BasketStatement:
		switch field {
		case "CAPACITY":
			s.Capacity = value
			return nil
		case "MAXIMUM":
			s.Maximum = value
			return nil
		case "FLOOR":
			s.Floor = value
			return nil
		}
	case *ast.ReserveStatement:
		switch field {
		case "TARGET":
			s.Target = value
			return nil
		case "MINIMUM":
			s.Minimum = value
			return nil
		}
	case *ast.DefineStatement:
		switch field {
		case "VALUE":
			s.Value = value
			return nil
		case "CAPPED_AT":
			s.CappedAt = value
			return nil
		}
	}
	return &InvariantViolationError{Message: "unsupported MODIFY field " + field + " on " + stmt.Name()}
}
