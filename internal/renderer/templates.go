package renderer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

var tmplFuncs = template.FuncMap{
	"heading": headingFor,
	"desc": func(it *types.CollectionItem) string {
		if it.Description != nil {
			return *it.Description
		}
		return "_(not yet described)_"
	},
	"statusBadge": statusBadge,
	"meta": func(it *types.CollectionItem, key string) string {
		if v, ok := it.Metadata[key]; ok && v != nil {
			return fmt.Sprintf("%v", v)
		}
		return ""
	},
}

// statusBadge summarizes an item's status map as a short marker for the
// markdown listing. Repository collections get sync markers; anything
// else falls back to the generic state field.
func statusBadge(it *types.CollectionItem) string {
	if len(it.Status) == 0 {
		return ""
	}
	if gs, ok := it.Status["git_status"].(string); ok {
		switch gs {
		case "up_to_date":
			return "✓"
		case "modified":
			return "●"
		case "no_remote":
			return "◌"
		case "error", "not_a_repo":
			return "✗"
		}
	}
	if st, ok := it.Status["state"].(string); ok && st == "error" {
		return "✗"
	}
	return ""
}

const genericMarkdown = `# {{.Title}}
{{if .Description}}
{{.Description}}
{{end}}
> {{.TotalItems}} items · generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}
{{range .Groups}}
## {{heading .Category}}
{{range .Items}}
### {{.Name}}{{with statusBadge .}} {{.}}{{end}}

{{desc .}}
{{end}}{{end}}`

const repositoriesMarkdown = `# {{.Title}}
{{if .Description}}
{{.Description}}
{{end}}
> {{.TotalItems}} repositories · generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}

Legend: ✓ up to date · ● local changes · ◌ no remote · ✗ error
{{range .Groups}}
## {{heading .Category}}

| Repository | Status | Branch | Description |
|---|---|---|---|
{{range .Items}}| [{{.Name}}]({{.Path}}) | {{statusBadge .}} | {{meta . "branch"}} | {{desc .}} |
{{end}}{{end}}`

var (
	genericTmpl      = template.Must(template.New("generic").Funcs(tmplFuncs).Parse(genericMarkdown))
	repositoriesTmpl = template.Must(template.New("repositories").Funcs(tmplFuncs).Parse(repositoriesMarkdown))
)

func markdownTemplate(collectionType string) *template.Template {
	if collectionType == "repositories" {
		return repositoriesTmpl
	}
	return genericTmpl
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 56rem; margin: 2rem auto; padding: 0 1rem; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: .3rem; }
.item { margin: .6rem 0; }
.path { color: #666; font-size: .85rem; font-family: monospace; }
.meta { color: #888; font-size: .8rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p class="meta">{{.TotalItems}} items · generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
{{range .Groups}}
<h2>{{heading .Category}}</h2>
{{range .Items}}
<div class="item">
<strong>{{.Name}}</strong> <span class="path">{{.Path}}</span>
<div>{{desc .}}</div>
</div>
{{end}}
{{end}}
</body>
</html>
`

var htmlTmpl = htmltemplate.Must(htmltemplate.New("page").Funcs(htmltemplate.FuncMap{
	"heading": headingFor,
	"desc": func(it *types.CollectionItem) string {
		if it.Description != nil {
			return *it.Description
		}
		return "(not yet described)"
	},
}).Parse(htmlPage))

func renderHTML(v view) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
