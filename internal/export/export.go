// Package export produces the self-contained readonly HTML page: the
// annotated document body with inline sticky notes and just enough
// script to click a highlight and see its note.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/AkutaZehy/Annoti/internal/annotation"
)

// Options controls the exported page.
type Options struct {
	Title string
	// ShowNotes displays every sticky note on load instead of hiding
	// them until the highlight is clicked.
	ShowNotes bool
}

type noteView struct {
	ID     string
	Author string
	Note   string
	Style  template.CSS
}

type pageData struct {
	Title     string
	Body      template.HTML
	Notes     []noteView
	Payload   template.JS
	ShowNotes bool
}

// Page renders the readonly export. bodyHTML is the already-rendered
// document body with highlight markers in place; it is trusted as
// produced by the renderer, everything else is escaped by the template.
func Page(bodyHTML string, anns []*annotation.Annotation, opts Options) (string, error) {
	if opts.Title == "" {
		opts.Title = "Annotated"
	}

	notes := make([]noteView, 0, len(anns))
	for _, a := range anns {
		notes = append(notes, noteView{
			ID:     a.ID,
			Author: a.AuthorName,
			Note:   a.Note,
			Style: template.CSS(fmt.Sprintf(
				"left: %.0fpx; top: %.0fpx; width: %.0fpx; height: %.0fpx;",
				a.NotePosition.X, a.NotePosition.Y,
				a.NoteSize.Width, a.NoteSize.Height)),
		})
	}

	payload, err := json.Marshal(anns)
	if err != nil {
		return "", fmt.Errorf("encoding annotation payload: %w", err)
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, pageData{
		Title:     opts.Title,
		Body:      template.HTML(bodyHTML),
		Notes:     notes,
		Payload:   template.JS(payload),
		ShowNotes: opts.ShowNotes,
	})
	if err != nil {
		return "", fmt.Errorf("rendering export page: %w", err)
	}
	return buf.String(), nil
}

var pageTmpl = template.Must(template.New("readonly").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: system-ui, -apple-system, sans-serif; background: #242424; color: #ddd; font-size: 16px; line-height: 1.6; position: relative; }
        .container { max-width: 900px; margin: 0 auto; padding: 20px; }
        .container h1, .container h2, .container h3 { color: #fff; margin: 1em 0 0.5em; }
        .container p { margin: 0.8em 0; }
        .container pre { background: #1a1a1a; padding: 1em; overflow-x: auto; border-radius: 4px; }
        .container code { background: #1a1a1a; padding: 0.2em 0.4em; border-radius: 3px; }
        .container blockquote { margin: 0.8em 0; padding-left: 1em; border-left: 3px solid #444; color: #999; }
        .doc-highlight {
            background: rgba(255, 215, 0, 0.3);
            border-bottom: 2px solid gold;
            cursor: pointer;
            padding: 2px 0;
        }
        .doc-highlight:hover { background: rgba(255, 215, 0, 0.5); }
        .sticky-note {
            position: absolute;
            background: #fff9c4;
            color: #333;
            border: 1px solid #ddd;
            border-radius: 4px;
            box-shadow: 2px 2px 8px rgba(0,0,0,0.3);
            z-index: 1000;
            {{if not .ShowNotes}}display: none;{{end}}
        }
        .note-header {
            background: #ffd700;
            padding: 4px 8px;
            display: flex;
            justify-content: space-between;
            align-items: center;
            border-radius: 4px 4px 0 0;
        }
        .note-author { font-weight: bold; font-size: 12px; }
        .note-close { background: none; border: none; font-size: 18px; cursor: pointer; padding: 0 4px; opacity: 0.7; }
        .note-close:hover { opacity: 1; }
        .note-content { padding: 10px; font-size: 14px; white-space: pre-wrap; }
        .reopen-btn {
            position: fixed; bottom: 20px; right: 20px;
            background: #ffd700; color: #333; border: none; border-radius: 50%;
            width: 50px; height: 50px; font-size: 24px; cursor: pointer;
            box-shadow: 2px 2px 8px rgba(0,0,0,0.3); z-index: 2000;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="document-body">{{.Body}}</div>
    </div>
{{range .Notes}}    <div class="sticky-note" data-group-id="{{.ID}}" style="{{.Style}}">
        <div class="note-header">
            <span class="note-author">{{.Author}}</span>
            <button class="note-close" data-close="{{.ID}}">&times;</button>
        </div>
        <div class="note-content">{{.Note}}</div>
    </div>
{{end}}
    <button class="reopen-btn" id="show-all" title="Show all notes">&#128221;</button>

    <script type="application/json" id="ann-payload">{{.Payload}}</script>
    <script>
        function noteFor(id) {
            return document.querySelector('.sticky-note[data-group-id="' + id + '"]');
        }
        document.querySelectorAll('.doc-highlight').forEach(function(el) {
            el.addEventListener('click', function() {
                var note = noteFor(el.dataset.groupId);
                if (note) {
                    note.style.display = 'block';
                    note.scrollIntoView({ behavior: 'smooth', block: 'center' });
                }
            });
        });
        document.querySelectorAll('.note-close').forEach(function(btn) {
            btn.addEventListener('click', function() {
                var note = noteFor(btn.dataset.close);
                if (note) note.style.display = 'none';
            });
        });
        document.getElementById('show-all').addEventListener('click', function() {
            document.querySelectorAll('.sticky-note').forEach(function(note) {
                note.style.display = 'block';
            });
        });
    </script>
</body>
</html>
`))
