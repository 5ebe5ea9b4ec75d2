package acquisition

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/pkg/utils"
)

// Extract parses a listing page and returns one candidate per item matched
// by the source's selectors. Items without a usable link are dropped.
func Extract(htmlContent, pageURL string, src *entity.Source, page int) ([]entity.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	sel := src.Selectors
	var out []entity.RawCandidate
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(sel.Link).First()
		if link.Length() == 0 && goquery.NodeName(item) == "a" {
			link = item
		}
		href, ok := link.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return
		}

		title := textOf(item, sel.Title)
		if title == "" {
			title = clean(link.Text())
		}

		c := entity.RawCandidate{
			SourceID: src.ID,
			Title:    title,
			Body:     textOf(item, sel.Body),
			URL:      abs,
			RawDate:  dateOf(item, sel.Date, sel.DateAttr),
			Page:     page,
		}
		if sel.IDAttr != "" {
			if id, ok := item.Attr(sel.IDAttr); ok {
				c.ExternalID = strings.TrimSpace(id)
			} else if id, ok := link.Attr(sel.IDAttr); ok {
				c.ExternalID = strings.TrimSpace(id)
			}
		}
		out = append(out, c)
	})
	return out, nil
}

func textOf(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return clean(s.Find(selector).First().Text())
}

func dateOf(s *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	node := s.Find(selector).First()
	if attr != "" {
		if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return clean(v)
		}
	}
	return clean(node.Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
