package preview

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	Title       string
	Description string
	Step        *StepView
	Number      int
	Count       int
	HasPrevious bool
	HasNext     bool
}

// WriteHTML renders one page of the preview as a standalone HTML document.
// The page index is clamped to the visible steps; every control is disabled.
func WriteHTML(w io.Writer, p *Preview, page int) error {
	if p == nil {
		p = &Preview{}
	}
	pager := NewPager(len(p.Steps))
	pager.Go(page)

	data := pageData{
		Title:       p.Title,
		Description: p.Description,
		Count:       pager.Count(),
		HasPrevious: pager.HasPrevious(),
		HasNext:     pager.HasNext(),
	}
	if data.Title == "" {
		data.Title = "Form preview"
	}
	if pager.Count() > 0 {
		data.Step = &p.Steps[pager.Index()]
		data.Number = pager.Index() + 1
	}
	return pageTemplate.Execute(w, data)
}
