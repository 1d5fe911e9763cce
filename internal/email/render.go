package email

import (
	"bytes"
	"fmt"
	"html/template"

	"paperfeed/internal/core"
)

// Template holds the visual configuration for the digest email.
type Template struct {
	Name            string
	Subject         string
	HeaderColor     string
	BackgroundColor string
	TextColor       string
	LinkColor       string
	BorderColor     string
	MaxWidth        string
	FontFamily      string
}

// DefaultTemplate returns the standard weekly digest template.
func DefaultTemplate() *Template {
	return &Template{
		Name:            "weekly",
		Subject:         "Your weekly paper digest - {{.Date}}",
		HeaderColor:     "#2563eb", // Blue-600
		BackgroundColor: "#f8fafc", // Slate-50
		TextColor:       "#1e293b", // Slate-800
		LinkColor:       "#3b82f6", // Blue-500
		BorderColor:     "#e2e8f0", // Slate-200
		MaxWidth:        "600px",
		FontFamily:      "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
}

// emailCSS returns responsive CSS for the digest template.
func emailCSS(tmpl *Template) string {
	return fmt.Sprintf(`
<style type="text/css">
  body, table, td, p, a, li {
    -webkit-text-size-adjust: 100%%;
    -ms-text-size-adjust: 100%%;
  }
  body {
    margin: 0 !important;
    padding: 0 !important;
    background-color: %s;
    font-family: %s;
    color: %s;
    line-height: 1.6;
  }
  .container {
    max-width: %s;
    margin: 0 auto;
    background-color: #ffffff;
    border: 1px solid %s;
    border-radius: 8px;
    overflow: hidden;
  }
  .header {
    background-color: %s;
    color: #ffffff;
    padding: 24px;
    text-align: center;
  }
  .header h1 {
    margin: 0;
    font-size: 24px;
    font-weight: 600;
  }
  .header .date {
    margin: 8px 0 0 0;
    font-size: 14px;
    opacity: 0.9;
  }
  .content {
    padding: 24px;
  }
  h2 {
    color: %s;
    font-size: 20px;
    font-weight: 600;
    margin: 32px 0 16px 0;
    border-bottom: 2px solid %s;
    padding-bottom: 8px;
  }
  p {
    margin: 0 0 16px 0;
    font-size: 16px;
  }
  a {
    color: %s;
    text-decoration: none;
  }
  a:hover {
    text-decoration: underline;
  }
  .paper-card {
    background-color: #f8fafc;
    border: 1px solid %s;
    border-radius: 6px;
    padding: 20px;
    margin: 16px 0;
  }
  .paper-title {
    font-size: 17px;
    font-weight: 600;
    color: %s;
    margin: 0 0 8px 0;
  }
  .paper-reason {
    font-size: 15px;
    margin: 0 0 12px 0;
  }
  .paper-meta {
    font-size: 13px;
    color: #64748b;
  }
  .profile-note {
    font-size: 13px;
    color: #64748b;
    font-style: italic;
    margin-top: 16px;
  }
  .footer {
    background-color: #f1f5f9;
    padding: 20px 24px;
    text-align: center;
    font-size: 14px;
    color: #64748b;
    border-top: 1px solid %s;
  }
  @media only screen and (max-width: 600px) {
    .container {
      margin: 0 !important;
      border-radius: 0 !important;
    }
    .content {
      padding: 16px !important;
    }
  }
</style>
`,
		tmpl.BackgroundColor, tmpl.FontFamily, tmpl.TextColor, tmpl.MaxWidth,
		tmpl.BorderColor, tmpl.HeaderColor, tmpl.HeaderColor, tmpl.BorderColor,
		tmpl.LinkColor, tmpl.BorderColor, tmpl.TextColor, tmpl.BorderColor)
}

const digestHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Weekly Paper Digest</title>
    {{.CSS}}
</head>
<body>
    <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%">
        <tr>
            <td align="center">
                <div class="container">
                    <div class="header">
                        <h1>Weekly Paper Digest</h1>
                        <p class="date">Week of {{.Date}}</p>
                    </div>

                    <div class="content">
                        <p>{{.Digest.Summary}}</p>

                        {{if .Digest.MustReadPapers}}
                        <h2>Must Read</h2>
                        {{range .Digest.MustReadPapers}}
                        <div class="paper-card">
                            <div class="paper-title"><a href="{{.Paper.URL}}">{{.Paper.Title}}</a></div>
                            <div class="paper-reason">{{.Reason}}</div>
                            <div class="paper-meta">
                                {{if .Paper.Venue}}{{.Paper.Venue}}{{end}}
                                {{if .Paper.CitationCount}} &middot; {{.Paper.CitationCount}} citations{{end}}
                            </div>
                        </div>
                        {{end}}
                        {{end}}

                        {{if .Digest.WorthReadingPapers}}
                        <h2>Worth Reading</h2>
                        {{range .Digest.WorthReadingPapers}}
                        <div class="paper-card">
                            <div class="paper-title"><a href="{{.Paper.URL}}">{{.Paper.Title}}</a></div>
                            <div class="paper-reason">{{.Reason}}</div>
                            <div class="paper-meta">
                                {{if .Paper.Venue}}{{.Paper.Venue}}{{end}}
                                {{if .Paper.CitationCount}} &middot; {{.Paper.CitationCount}} citations{{end}}
                            </div>
                        </div>
                        {{end}}
                        {{end}}

                        {{if .Digest.ProfileIsFallback}}
                        <p class="profile-note">
                            Ranked using {{.Digest.ProfileDescription}}. Add a bio to your
                            profile for more personalized picks.
                        </p>
                        {{end}}
                    </div>

                    <div class="footer">
                        <p>Covering {{.Digest.PapersCount}} papers published in the last week.</p>
                    </div>
                </div>
            </td>
        </tr>
    </table>
</body>
</html>`

// RenderDigest renders a digest as an HTML email body.
func RenderDigest(digest *core.Digest, tmpl *Template) (string, error) {
	t, err := template.New("digest-email").Parse(digestHTML)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	data := struct {
		Digest *core.Digest
		Date   string
		CSS    template.HTML
	}{
		Digest: digest,
		Date:   digest.WeekStartDate.Format("2006-01-02"),
		CSS:    template.HTML(emailCSS(tmpl)),
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

// GenerateSubject renders the subject line for a digest email.
func GenerateSubject(tmpl *Template, date string) (string, error) {
	t, err := template.New("subject").Parse(tmpl.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Date string }{Date: date}); err != nil {
		return "", fmt.Errorf("failed to execute subject template: %w", err)
	}
	return buf.String(), nil
}
