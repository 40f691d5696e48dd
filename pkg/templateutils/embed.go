package templateutils

import (
	"io/fs"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
)

// MustTemplate parses name from fsys with sprig's hermetic functions and [Funcs].
func MustTemplate(fsys fs.FS, name string) *template.Template {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic(err)
	}
	return template.Must(template.New(name).
		Funcs(sprig.HermeticTxtFuncMap()).
		Funcs(Funcs).
		Parse(string(content)))
}
