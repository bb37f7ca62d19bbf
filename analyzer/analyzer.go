// Package analyzer reports code in workflow functions that breaks deterministic replay.
package analyzer

import (
	"flag"
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const workflowPackageSuffix = "go-dialogflow/workflow"

// Analyzer runs with default settings.
var Analyzer = New()

// New returns a new analyzer instance with its own flag set.
func New() *analysis.Analyzer {
	var checkPrivateReturnValues bool

	flags := flag.NewFlagSet("dialogflow", flag.ExitOnError)
	flags.BoolVar(&checkPrivateReturnValues, "checkprivatereturnvalues", false, "check return values of unexported workflow functions")

	a := &analysis.Analyzer{
		Name:     "dialogflow",
		Doc:      "Checks for non-deterministic code in conversational workflows",
		Flags:    *flags,
		Requires: []*analysis.Analyzer{inspect.Analyzer},
	}

	a.Run = func(pass *analysis.Pass) (any, error) {
		return run(pass, checkPrivateReturnValues)
	}

	return a
}

// Calls that return different values when a turn is replayed.
var forbiddenCalls = map[string]string{
	"time.Now":   "use ctx.Now() instead of time.Now in workflows",
	"time.Since": "use ctx.Now() instead of time.Since in workflows",
	"time.Until": "use ctx.Now() instead of time.Until in workflows",
	"time.Sleep": "time.Sleep blocks the turn, use wf.ReceiveActivity to wait in workflows",
	"os.Getenv":  "reading the environment is not deterministic, use wf.Call in workflows",
}

var forbiddenPackages = map[string]string{
	"math/rand":    "random numbers are not deterministic, use wf.Call or ctx.NewGUID in workflows",
	"math/rand/v2": "random numbers are not deterministic, use wf.Call or ctx.NewGUID in workflows",
	"crypto/rand":  "random numbers are not deterministic, use wf.Call or ctx.NewGUID in workflows",
}

func run(pass *analysis.Pass, checkPrivateReturnValues bool) (any, error) {
	inspector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.FuncDecl)(nil)}

	inspector.Preorder(nodeFilter, func(node ast.Node) {
		funcDecl := node.(*ast.FuncDecl)

		if funcDecl.Body == nil || !isWorkflow(pass, funcDecl) {
			return
		}

		if checkPrivateReturnValues || funcDecl.Name.IsExported() {
			checkResults(pass, funcDecl)
		}

		ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.RangeStmt:
				if t := pass.TypesInfo.TypeOf(n.X); t != nil {
					if _, ok := t.Underlying().(*types.Map); ok {
						pass.Reportf(n.Pos(), "iterating over a map is not deterministic and not allowed in workflows")
					}
				}

			case *ast.GoStmt:
				pass.Reportf(n.Pos(), "`go` statements are not allowed in workflows, start work in wf.Call instead")

			case *ast.SelectStmt:
				pass.Reportf(n.Pos(), "`select` is not deterministic and not allowed in workflows")

			case *ast.CallExpr:
				checkCall(pass, n)
			}

			return true
		})
	})

	return nil, nil
}

func checkResults(pass *analysis.Pass, funcDecl *ast.FuncDecl) {
	results := funcDecl.Type.Results
	if results == nil || results.NumFields() == 0 {
		pass.Reportf(funcDecl.Pos(), "workflow %q doesn't return anything. needs to return a result and `error`", funcDecl.Name.Name)
		return
	}

	if results.NumFields() != 2 {
		pass.Reportf(funcDecl.Pos(), "workflow %q needs to return exactly a result and `error`", funcDecl.Name.Name)
		return
	}

	last := results.List[len(results.List)-1]
	if t := pass.TypesInfo.TypeOf(last.Type); t == nil || t.String() != "error" {
		pass.Reportf(funcDecl.Pos(), "workflow %q doesn't return `error` as last return value", funcDecl.Name.Name)
	}
}

func checkCall(pass *analysis.Pass, call *ast.CallExpr) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return
	}

	// Methods are fine, ctx.Now is a method too
	if sig, ok := fn.Type().(*types.Signature); ok && sig.Recv() != nil {
		return
	}

	if msg, ok := forbiddenCalls[fn.Pkg().Path()+"."+fn.Name()]; ok {
		pass.Reportf(call.Pos(), "%s", msg)
		return
	}

	if msg, ok := forbiddenPackages[fn.Pkg().Path()]; ok {
		pass.Reportf(call.Pos(), "%s", msg)
	}
}

// isWorkflow returns true for functions taking a workflow context as their first parameter.
func isWorkflow(pass *analysis.Pass, funcDecl *ast.FuncDecl) bool {
	params := funcDecl.Type.Params.List
	if len(params) < 1 {
		return false
	}

	t := pass.TypesInfo.TypeOf(params[0].Type)
	if t == nil {
		return false
	}

	named, ok := t.(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()
	if obj.Name() != "Context" || obj.Pkg() == nil {
		return false
	}

	return strings.HasSuffix(obj.Pkg().Path(), workflowPackageSuffix)
}
