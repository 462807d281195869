// Package sleepctx defines an analyzer that reports time.Sleep outside tests.
//
// Long-running loops must wait through a context-aware timer so that
// shutdown is never delayed by a pending pause.
package sleepctx

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the sleepctx analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "sleepctx",
	Doc:      "reports time.Sleep calls in non-test code; use a context-aware wait instead",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call, ok := n.(*ast.CallExpr)
		if !ok || isTestFile(pass, call) {
			return
		}
		if isTimeSleep(pass, call) {
			pass.Reportf(call.Pos(), "time.Sleep ignores cancellation; wait on a timer together with ctx.Done()")
		}
	})
	return nil, nil
}

func isTestFile(pass *analysis.Pass, n ast.Node) bool {
	f := pass.Fset.File(n.Pos())
	return f != nil && strings.HasSuffix(f.Name(), "_test.go")
}

// isTimeSleep resolves the callee through type information so renamed imports are caught too.
func isTimeSleep(pass *analysis.Pass, call *ast.CallExpr) bool {
	if call == nil || call.Fun == nil {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel == nil {
		return false
	}
	if pass.TypesInfo == nil || pass.TypesInfo.Uses == nil {
		return false
	}
	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}
	return fn.Pkg().Path() == "time" && fn.Name() == "Sleep"
}
