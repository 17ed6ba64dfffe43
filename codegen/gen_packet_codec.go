//go:build ignore
// +build ignore

// gen_packet_codec generates Encode/Decode methods and per-state packet
// registries for structs marked with an @gen doc comment.
//
//	// @gen:r,w,regserver
//	type LoginStart struct {
//		Name string `field:"String"`
//	}
//
// Options: r (Decode), w (Encode), regserver / regclient (add the struct to
// the serverbound / clientbound registry of its file). The registry prefix is
// the capitalized file name, so login.go yields LoginServerboundRegistry.
// Each field tag names the Write<Type>/Read<Type> pair used for that field.
package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/template"
)

type Field struct {
	Name      string // struct field name
	FieldType string // codec type, e.g. VarInt, String, ByteArray
}

type GeneratedStruct struct {
	Name              string
	Fields            []Field
	GenRead, GenWrite bool

	RegServerbound, RegClientbound bool
	PacketID                       string
}

type File struct {
	Name           string
	RegistryPrefix string
	Structs        []GeneratedStruct
}

func (f File) HasServerRegistry() bool {
	for _, s := range f.Structs {
		if s.RegServerbound {
			return true
		}
	}
	return false
}

func (f File) HasClientRegistry() bool {
	for _, s := range f.Structs {
		if s.RegClientbound {
			return true
		}
	}
	return false
}

const tmpl = `// Code generated by gen_packet_codec.go; DO NOT EDIT.

package {{.PkgName}}

import (
	"io"
)
{{range .Files}}
// Source: {{.Name}}
{{if .HasServerRegistry}}
var {{.RegistryPrefix}}ServerboundRegistry = map[int32]func() Decodable{
{{- range .Structs}}
	{{- if .RegServerbound}}
	{{.PacketID}}: func() Decodable { return &{{.Name}}{} },
	{{- end}}
{{- end}}
}
{{end}}
{{- if .HasClientRegistry}}
var {{.RegistryPrefix}}ClientboundRegistry = map[int32]func() Decodable{
{{- range .Structs}}
	{{- if .RegClientbound}}
	{{.PacketID}}: func() Decodable { return &{{.Name}}{} },
	{{- end}}
{{- end}}
}
{{end}}
{{- range .Structs}}
{{- if .GenWrite}}
func (p {{.Name}}) Encode(w io.Writer) (err error) {
{{- range .Fields}}
	if err = Write{{.FieldType}}(w, p.{{.Name}}); err != nil {
		return
	}
{{- end}}
	return
}
{{end}}
{{- if .GenRead}}
func (p *{{.Name}}) Decode(r *FrameReader) (err error) {
{{- range .Fields}}
	if p.{{.Name}}, err = Read{{.FieldType}}(r); err != nil {
		return
	}
{{- end}}
	return nil
}
{{end}}
{{- end}}
{{- end}}`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run gen_packet_codec.go -- path/to/dir")
		os.Exit(1)
	}

	targetDir := os.Args[len(os.Args)-1]
	fset := token.NewFileSet()
	var parsedFiles []File
	var pkgName string

	filePaths, err := filepath.Glob(filepath.Join(targetDir, "*.go"))
	if err != nil {
		panic(err)
	}

	for _, filePath := range filePaths {
		base := filepath.Base(filePath)
		if strings.HasPrefix(base, "zz_generated") || strings.HasSuffix(base, "_test.go") {
			continue
		}

		node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
		if err != nil {
			panic(err)
		}

		if pkgName == "" {
			pkgName = node.Name.Name
		}

		if f, ok := parseFile(node, base); ok {
			parsedFiles = append(parsedFiles, f)
		}
	}

	var buf bytes.Buffer
	t := template.Must(template.New("code").Parse(tmpl))
	data := struct {
		PkgName string
		Files   []File
	}{
		PkgName: pkgName,
		Files:   parsedFiles,
	}
	if err := t.Execute(&buf, data); err != nil {
		panic(err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		panic(fmt.Errorf("format generated code: %w", err))
	}

	outFile := filepath.Join(targetDir, "zz_generated_codec.go")
	if err := os.WriteFile(outFile, src, 0o644); err != nil {
		panic(err)
	}

	fmt.Printf("Generated %s for package %s\n", outFile, pkgName)
}

func parseFile(node *ast.File, base string) (File, bool) {
	namePart := strings.TrimSuffix(base, filepath.Ext(base))
	registryPrefix := strings.ToUpper(namePart[:1]) + namePart[1:]
	structIDs := packetIDs(node)

	var structs []GeneratedStruct
	for _, decl := range node.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE || gen.Doc == nil {
			continue
		}

		opts, ok := genOptions(gen.Doc)
		if !ok {
			continue
		}

		for _, spec := range gen.Specs {
			tspec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := tspec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			id, ok := structIDs[tspec.Name.Name]
			if !ok {
				panic(fmt.Sprintf("%s: %s has no literal ID() method", base, tspec.Name.Name))
			}

			structs = append(structs, GeneratedStruct{
				Name:           tspec.Name.Name,
				Fields:         structFields(structType),
				GenRead:        opts["r"],
				GenWrite:       opts["w"],
				RegServerbound: opts["regserver"],
				RegClientbound: opts["regclient"],
				PacketID:       id,
			})
		}
	}

	if len(structs) == 0 {
		return File{}, false
	}
	return File{Name: base, RegistryPrefix: registryPrefix, Structs: structs}, true
}

// packetIDs maps receiver type names to the literal returned by their ID method.
func packetIDs(node *ast.File) map[string]string {
	ids := make(map[string]string)
	for _, decl := range node.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "ID" || fn.Recv == nil || len(fn.Recv.List) == 0 || fn.Body == nil {
			continue
		}

		recvType := fn.Recv.List[0].Type
		if star, ok := recvType.(*ast.StarExpr); ok {
			recvType = star.X
		}
		ident, ok := recvType.(*ast.Ident)
		if !ok {
			continue
		}

		for _, stmt := range fn.Body.List {
			if ret, ok := stmt.(*ast.ReturnStmt); ok && len(ret.Results) > 0 {
				if lit, ok := ret.Results[0].(*ast.BasicLit); ok {
					ids[ident.Name] = lit.Value
				}
			}
		}
	}
	return ids
}

func genOptions(doc *ast.CommentGroup) (map[string]bool, bool) {
	for _, comment := range doc.List {
		_, rest, found := strings.Cut(comment.Text, "@gen:")
		if !found {
			continue
		}
		opts := make(map[string]bool)
		for _, opt := range strings.Split(strings.TrimSpace(rest), ",") {
			opts[strings.TrimSpace(opt)] = true
		}
		return opts, true
	}
	return nil, false
}

func structFields(st *ast.StructType) []Field {
	var fields []Field
	for _, field := range st.Fields.List {
		if field.Tag == nil {
			continue
		}
		rawTag := strings.Trim(field.Tag.Value, "`")
		fieldType := reflect.StructTag(rawTag).Get("field")
		if fieldType == "" {
			continue
		}
		for _, name := range field.Names {
			fields = append(fields, Field{Name: name.Name, FieldType: fieldType})
		}
	}
	return fields
}
