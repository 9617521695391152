package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const previewLimit = 280

// Info summarizes a knowledge file before it is attached to a profile.
type Info struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Pages     int    `json:"pages,omitempty"`
	Title     string `json:"title,omitempty"`
	Preview   string `json:"preview,omitempty"`
}

// Inspect reads basic metadata and a short text preview from a knowledge
// file. PDF files report a page count, HTML files report their title, and
// everything else is treated as plain text.
func Inspect(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("inspecting %s: %w", path, err)
	}

	info := Info{Path: path, SizeBytes: stat.Size()}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		if err := inspectPDF(path, &info); err != nil {
			return Info{}, err
		}
	case ".html", ".htm":
		if err := inspectHTML(path, &info); err != nil {
			return Info{}, err
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return Info{}, fmt.Errorf("reading %s: %w", path, err)
		}
		info.Preview = preview(string(data))
	}

	return info, nil
}

// InspectAll inspects files concurrently, preserving input order in the
// result. The first failure cancels the remaining inspections.
func InspectAll(ctx context.Context, paths []string) ([]Info, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	results := make([]Info, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency; inspection is disk and CPU heavy.

	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			info, err := Inspect(path)
			if err != nil {
				return err
			}
			results[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func inspectPDF(path string, info *Info) error {
	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	info.Pages = r.NumPage()

	text, err := r.GetPlainText()
	if err != nil {
		// Encrypted or image-only PDFs still count as valid knowledge files.
		return nil
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return nil
	}
	info.Preview = preview(buf.String())
	return nil
}

func inspectHTML(path string, info *Info) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening HTML %s: %w", path, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing HTML %s: %w", path, err)
	}
	info.Title = htmlTitle(doc)
	return nil
}

func htmlTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := htmlTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// preview collapses whitespace and truncates on a rune boundary.
func preview(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) <= previewLimit {
		return collapsed
	}
	end := previewLimit
	for end > 0 && !utf8.RuneStart(collapsed[end]) {
		end--
	}
	return collapsed[:end]
}
