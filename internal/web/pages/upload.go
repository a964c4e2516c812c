// Package pages holds the server-rendered HTML components.
package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// UploadPageParams configures the upload form.
type UploadPageParams struct {
	Action      string // Form target (default: /generate)
	MaxFileSize int64  // Shown to the user, in bytes
}

// UploadPage renders the generation form: a primary spreadsheet, a zip of
// .txt configuration files and an optional reference spreadsheet.
func UploadPage(p UploadPageParams) templ.Component {
	if p.Action == "" {
		p.Action = "/generate"
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, uploadPageHTML,
			templ.EscapeString(p.Action),
			templ.EscapeString(formatSize(p.MaxFileSize)),
		)
		return err
	})
}

const uploadPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Flexfield input generator</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem; color: #1f2937; }
h1 { font-size: 1.5rem; }
fieldset { border: 1px solid #d1d5db; border-radius: .5rem; padding: 1rem; margin-bottom: 1rem; }
label { display: block; font-weight: 600; margin-bottom: .25rem; }
small { color: #6b7280; display: block; margin-top: .25rem; }
button { background: #2563eb; color: #fff; border: 0; border-radius: .375rem; padding: .5rem 1rem; cursor: pointer; }
</style>
</head>
<body>
<h1>Flexfield input generator</h1>
<form method="post" action="%s" enctype="multipart/form-data">
<fieldset>
<label for="excel_file">Input spreadsheet</label>
<input id="excel_file" name="excel_file" type="file" accept=".xlsx" required>
<small>Must contain a DESCRIPTIVE_FLEXFIELD_NAME column when a reference file is supplied.</small>
</fieldset>
<fieldset>
<label for="folder_zip">Configuration archive</label>
<input id="folder_zip" name="folder_zip" type="file" accept=".zip" required>
<small>A zip of .txt files. Each file becomes a CONFIG_&lt;name&gt; column.</small>
</fieldset>
<fieldset>
<label for="dff_file">Reference spreadsheet (optional)</label>
<input id="dff_file" name="dff_file" type="file" accept=".xlsx">
<small>Columns DESCRIPTIVE_FLEXFIELD_NAME, END_USER_COLUMN_NAME, FORM_LEFT_PROMPT.</small>
</fieldset>
<p><small>Maximum upload size: %s</small></p>
<button type="submit">Generate output.xlsx</button>
</form>
</body>
</html>
`

func formatSize(n int64) string {
	const mb = 1024 * 1024
	switch {
	case n <= 0:
		return "unlimited"
	case n >= mb:
		return fmt.Sprintf("%d MB", n/mb)
	default:
		return fmt.Sprintf("%d KB", n/1024)
	}
}
