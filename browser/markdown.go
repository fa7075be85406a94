package browser

import (
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// HTMLToMarkdown converts an html document, resolving relative links
// against pageURL when it is set.
func HTMLToMarkdown(html, pageURL string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if pageURL != "" {
		opts = append(opts, converter.WithDomain(pageURL))
	}
	md, err := mdConverter.ConvertString(html, opts...)
	if err != nil {
		return "", fmt.Errorf("browser: markdown: %w", err)
	}
	return md, nil
}

// Markdown renders the page content as markdown.
func (p *Page) Markdown(ctx context.Context) (string, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return "", err
	}
	_, url, err := p.Info(ctx)
	if err != nil {
		return "", err
	}
	return HTMLToMarkdown(html, url)
}
