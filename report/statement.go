package report

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/statement"
)

// Renderer builds printable statement documents through Gotenberg.
type Renderer struct {
	client *Client
	tmpl   *template.Template
}

func NewRenderer(client *Client) *Renderer {
	return &Renderer{
		client: client,
		tmpl:   template.Must(template.New("statement").Parse(statementTemplate)),
	}
}

type statementView struct {
	Title     string
	Subject   string
	Period    string
	Statement statement.Statement
}

// RenderStatement renders the statement to PDF. The subject label is caller
// supplied; amounts are printed exactly as computed, signs included.
func (r *Renderer) RenderStatement(ctx context.Context, st statement.Statement, q statement.Query) ([]byte, error) {
	label := "Account"
	switch q.Kind {
	case statement.SubjectCustomer:
		label = "Customer"
	case statement.SubjectSupplier:
		label = "Supplier"
	}
	view := statementView{
		Title:     label + " Statement",
		Subject:   fmt.Sprintf("%s #%d", label, q.SubjectID),
		Period:    fmt.Sprintf("%s to %s", q.From.Format("2006-01-02"), q.To.Format("2006-01-02")),
		Statement: st,
	}

	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, buf.String())
}

const statementTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; }
h1 { font-size: 18px; margin-bottom: 0; }
.meta { color: #555; margin-bottom: 16px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 6px 8px; border-bottom: 1px solid #ddd; text-align: right; }
th:first-child, td:first-child, th:nth-child(2), td:nth-child(2) { text-align: left; }
tfoot td { font-weight: bold; border-top: 2px solid #333; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Subject}} &mdash; {{.Period}}</div>
<table>
<thead>
<tr><th>Date</th><th>Description</th><th>Doc No</th><th>Debit</th><th>Credit</th><th>Balance</th></tr>
</thead>
<tbody>
<tr><td></td><td>Opening balance</td><td></td><td></td><td></td><td>{{.Statement.OpeningBalance}}</td></tr>
{{range .Statement.Transactions}}
<tr><td>{{.Date.Format "2006-01-02"}}</td><td>{{.Description}}</td><td>{{.DocNo}}</td><td>{{.Debit}}</td><td>{{.Credit}}</td><td>{{.Balance}}</td></tr>
{{end}}
</tbody>
<tfoot>
<tr><td></td><td>Totals</td><td></td><td>{{.Statement.TotalDebit}}</td><td>{{.Statement.TotalCredit}}</td><td>{{.Statement.ClosingBalance}}</td></tr>
</tfoot>
</table>
</body>
</html>`
