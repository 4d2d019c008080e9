package ingest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/spf13/afero"

	"aura/internal/index/chunk"
)

// goIngestor is the language-aware ingestor for Go source files: it emits
// one chunk per top-level declaration (func, method, type) and a matching
// set of code-graph nodes/Contains edges, grounded on the spec's "chunk
// boundaries align with syntactic units (functions, classes)" requirement.
type goIngestor struct{}

func (goIngestor) Supports(path string) bool {
	return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
}

func (goIngestor) Ingest(fs afero.Fs, path string, opts chunk.Options) (Result, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest(go): read %s: %w", path, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		// Not valid Go (partial edit, generated stub, etc.) — degrade to
		// the text ingestor rather than failing the whole ingestion run.
		return textIngestor{}.Ingest(fs, path, opts)
	}

	pkgName := file.Name.Name
	var result Result
	seq := 0

	typeFQN := map[string]string{}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				kind := "Struct"
				if _, isIface := ts.Type.(*ast.InterfaceType); isIface {
					kind = "Interface"
				}
				fqn := pkgName + "." + ts.Name.Name
				typeFQN[ts.Name.Name] = fqn
				start := fset.Position(d.Pos()).Line
				end := fset.Position(d.End()).Line
				result.Nodes = append(result.Nodes, Node{
					Kind: kind, FQN: fqn, Name: ts.Name.Name,
					SourcePath: path, StartLine: start, EndLine: end,
				})
				result.Chunks = append(result.Chunks, ChunkRecord{
					SourcePath: path, Seq: seq, Text: sliceLines(src, start, end),
					StartLine: start, EndLine: end, Ingestor: "go",
				})
				seq++

				if st, ok := ts.Type.(*ast.StructType); ok && st.Fields != nil {
					for _, f := range st.Fields.List {
						for _, name := range f.Names {
							fieldFQN := fqn + "." + name.Name
							result.Nodes = append(result.Nodes, Node{
								Kind: "Field", FQN: fieldFQN, Name: name.Name,
								SourcePath: path,
								StartLine:  fset.Position(f.Pos()).Line,
								EndLine:    fset.Position(f.End()).Line,
							})
							result.Edges = append(result.Edges, Edge{Kind: "Contains", FromFQN: fqn, ToFQN: fieldFQN})
						}
					}
				}
			}

		case *ast.FuncDecl:
			start := fset.Position(d.Pos()).Line
			end := fset.Position(d.End()).Line
			var fqn, recvFQN string
			if d.Recv != nil && len(d.Recv.List) > 0 {
				recvName := recvTypeName(d.Recv.List[0].Type)
				fqn = pkgName + "." + recvName + "." + d.Name.Name
				recvFQN = pkgName + "." + recvName
			} else {
				fqn = pkgName + "." + d.Name.Name
			}

			kind := "Func"
			if recvFQN != "" {
				kind = "Method"
			}
			result.Nodes = append(result.Nodes, Node{
				Kind: kind, FQN: fqn, Name: d.Name.Name,
				SourcePath: path, StartLine: start, EndLine: end,
			})
			if recvFQN != "" {
				result.Edges = append(result.Edges, Edge{Kind: "Contains", FromFQN: recvFQN, ToFQN: fqn})
			}

			result.Chunks = append(result.Chunks, ChunkRecord{
				SourcePath: path, Seq: seq, Text: sliceLines(src, start, end),
				StartLine: start, EndLine: end, Ingestor: "go",
			})
			seq++
		}
	}

	if len(result.Chunks) == 0 {
		return textIngestor{}.Ingest(fs, path, opts)
	}

	return result, nil
}

func recvTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return recvTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return "?"
	}
}

func sliceLines(src []byte, start, end int) string {
	lines := strings.Split(string(src), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
