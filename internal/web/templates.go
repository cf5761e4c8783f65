package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/sloppy/foxport/internal/history"
	"github.com/sloppy/foxport/internal/repository"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html lang=\"en\"><head>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta charset=\"utf-8\">"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, layoutStyles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body><main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

func installationsPage(installs []installationView, imported []string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<header class=\"page-header\"><p class=\"eyebrow\">foxport</p><h1>Firefox profiles</h1><p class=\"subhead\">Installations found on this machine and the data each profile can provide.</p></header>"); err != nil {
			return err
		}

		if len(installs) == 0 {
			if _, err := io.WriteString(w, "<section class=\"card\"><p class=\"empty\">No Firefox installations found.</p></section>"); err != nil {
				return err
			}
		}
		for _, inst := range installs {
			if _, err := fmt.Fprintf(w, "<section class=\"card\"><h2>%s</h2><p class=\"subhead\">Firefox %s</p>",
				html.EscapeString(inst.Installation.Root), html.EscapeString(inst.Installation.Version)); err != nil {
				return err
			}
			if len(inst.Profiles) == 0 {
				if _, err := io.WriteString(w, "<p class=\"empty\">No profiles registered.</p></section>"); err != nil {
					return err
				}
				continue
			}
			if _, err := io.WriteString(w, "<table><thead><tr><th>Profile</th><th>Data</th><th>Size</th><th>Modified</th></tr></thead><tbody>"); err != nil {
				return err
			}
			for _, p := range inst.Profiles {
				if err := profileRow(w, p); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</tbody></table></section>"); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Imported</h2>"); err != nil {
			return err
		}
		if len(imported) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">Nothing imported yet. Run <code>foxport import</code>.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<ul class=\"import-list\">"); err != nil {
			return err
		}
		for _, name := range imported {
			if _, err := fmt.Fprintf(w, "<li><a class=\"back-link\" href=\"/imports/%s\">%s</a></li>", url.PathEscape(name), html.EscapeString(name)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></section>")
		return err
	})
	return layout("foxport - Profiles", body)
}

func profileRow(w io.Writer, p profileView) error {
	name := html.EscapeString(p.Profile.Name)
	if p.Profile.IsDefault {
		name += " <span class=\"badge\">default</span>"
	}
	var groups []string
	if p.Validation.HasPlaces {
		groups = append(groups, "bookmarks", "history")
	}
	if p.Validation.HasPasswords {
		groups = append(groups, "passwords")
	}
	if p.Validation.HasPreferences {
		groups = append(groups, "settings")
	}
	data := "<span class=\"empty\">nothing importable</span>"
	if p.Validation.IsValid {
		data = html.EscapeString(strings.Join(groups, ", "))
	}
	modified := "-"
	if !p.Metadata.LastModified.IsZero() {
		modified = humanize.Time(p.Metadata.LastModified)
	}
	_, err := fmt.Fprintf(w, "<tr><td>%s<br><code>%s</code></td><td>%s</td><td>%s</td><td>%s</td></tr>",
		name, html.EscapeString(p.Profile.ID), data, humanize.Bytes(uint64(p.Metadata.Size)), modified)
	return err
}

func importDetailPage(name string, md repository.ImportMetadata, entries []history.Entry) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<header class=\"page-header\"><p class=\"eyebrow\">Import</p><h1>%s</h1><p class=\"subhead\">From %s, imported %s.</p></header>",
			html.EscapeString(name), html.EscapeString(md.SourceProfile.Name), humanize.Time(md.ImportedAt)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Contents</h2><div class=\"stats-grid\">"); err != nil {
			return err
		}
		for _, stat := range []struct {
			label string
			value int
		}{
			{"Bookmarks", md.Stats.BookmarksCount},
			{"History", md.Stats.HistoryCount},
			{"Passwords", md.Stats.PasswordsCount},
		} {
			if _, err := fmt.Fprintf(w, "<div><p class=\"stat-label\">%s</p><p class=\"stat-value\">%s</p></div>", stat.label, humanize.Comma(int64(stat.value))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</div></section>"); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "<section class=\"card\"><h2>Settings</h2><p>Homepage: <code>%s</code></p><p>Search engine: %s</p><p>Cookies: %s</p></section>",
			html.EscapeString(md.Settings.Homepage), html.EscapeString(md.Settings.SearchEngine), html.EscapeString(string(md.Settings.Privacy.CookiePolicy))); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Recent history</h2>"); err != nil {
			return err
		}
		if len(entries) == 0 {
			if _, err := io.WriteString(w, "<p class=\"empty\">No history imported.</p></section>"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "<table><thead><tr><th>Page</th><th>Visits</th><th>Last visit</th></tr></thead><tbody>"); err != nil {
				return err
			}
			for _, e := range entries {
				title := e.Title
				if title == "" {
					title = e.URL
				}
				if _, err := fmt.Fprintf(w, "<tr><td><a href=\"%s\">%s</a></td><td>%d</td><td>%s</td></tr>",
					html.EscapeString(e.URL), html.EscapeString(title), e.VisitCount, e.LastVisitTime.Format(time.DateTime)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</tbody></table></section>"); err != nil {
				return err
			}
		}

		escaped := url.PathEscape(name)
		_, err := fmt.Fprintf(w, "<div class=\"page-actions\"><a class=\"back-link\" href=\"/api/imports/%s/export?format=json\">Export JSON</a><a class=\"back-link\" href=\"/api/imports/%s/export?format=csv\">Bookmarks CSV</a><a class=\"back-link\" href=\"/api/imports/%s/export?format=csv&amp;data=history\">History CSV</a><a class=\"back-link\" href=\"/\">Back to profiles</a></div>", escaped, escaped, escaped)
		return err
	})
	return layout("foxport - "+name, body)
}

const layoutStyles = `<style>
:root {
  color-scheme: light;
  --bg: #f6f1e8;
  --bg-accent: #f3e3d3;
  --ink: #1f262d;
  --muted: #5c6c73;
  --card: rgba(255, 255, 255, 0.78);
  --stroke: rgba(31, 38, 45, 0.12);
  --accent: #c2532b;
  --shadow: 0 16px 40px rgba(15, 23, 28, 0.12);
}

* {
  box-sizing: border-box;
}

body {
  margin: 0;
  min-height: 100vh;
  font-family: "Iowan Old Style", "Palatino Linotype", "Book Antiqua", serif;
  color: var(--ink);
  background: radial-gradient(circle at 20% 20%, var(--bg-accent), transparent 45%),
    linear-gradient(135deg, #fbf7ef, var(--bg));
}

.shell {
  max-width: 960px;
  margin: 0 auto;
  padding: 48px 24px 72px;
  display: grid;
  gap: 24px;
}

.page-header h1 {
  margin: 8px 0;
  font-size: clamp(2rem, 3vw, 2.6rem);
}

.eyebrow {
  text-transform: uppercase;
  letter-spacing: 0.24em;
  font-size: 0.72rem;
  color: var(--muted);
  margin: 0;
}

.subhead,
.empty {
  margin: 0;
  color: var(--muted);
}

.card {
  background: var(--card);
  border: 1px solid var(--stroke);
  border-radius: 16px;
  padding: 20px 22px;
  box-shadow: var(--shadow);
}

table {
  width: 100%;
  border-collapse: collapse;
  margin-top: 12px;
}

th,
td {
  text-align: left;
  padding: 8px 10px;
  border-bottom: 1px solid var(--stroke);
  vertical-align: top;
}

.badge {
  font-size: 0.75rem;
  border-radius: 999px;
  padding: 2px 8px;
  background: rgba(194, 83, 43, 0.12);
  color: var(--accent);
}

.stats-grid {
  display: grid;
  gap: 16px;
  grid-template-columns: repeat(auto-fit, minmax(140px, 1fr));
  margin-top: 12px;
}

.stat-label {
  margin: 0;
  font-size: 0.85rem;
  color: var(--muted);
  text-transform: uppercase;
  letter-spacing: 0.1em;
}

.stat-value {
  margin: 6px 0 0;
  font-size: 1.5rem;
}

.import-list {
  list-style: none;
  margin: 0;
  padding: 0;
  display: grid;
  gap: 8px;
}

.page-actions {
  display: flex;
  gap: 16px;
}

.back-link {
  color: var(--accent);
  text-decoration: none;
  font-weight: 600;
}
</style>`
