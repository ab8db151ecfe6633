package portal

import (
	"bytes"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/nao1215/adslwatch/internal/model"
	"github.com/nao1215/adslwatch/internal/textnorm"
)

// snapshotField identifies which AccountSnapshot field a label fills.
type snapshotField int

const (
	fieldSubscriptionDate snapshotField = iota + 1
	fieldPlan
	fieldStatus
	fieldAvailableBalance
	fieldExpiryDate
)

// SnapshotParser extracts AccountSnapshot values from authenticated pages.
// It is safe for concurrent use once constructed.
type SnapshotParser struct {
	tableXPath   string
	welcomeXPath string

	// labels maps normalized label text to the field it fills.
	labels map[string]snapshotField
}

// NewSnapshotParser creates a parser for the given layout.
// It returns ErrInvalidXPath if either expression does not compile.
func NewSnapshotParser(layout Layout) (*SnapshotParser, error) {
	layout = layout.Merge(DefaultLayout())

	empty := &html.Node{Type: html.DocumentNode}
	for _, expr := range []string{layout.TableXPath, layout.WelcomeXPath} {
		if _, err := htmlquery.QueryAll(empty, expr); err != nil {
			return nil, wrapXPath(expr, err)
		}
	}

	p := &SnapshotParser{
		tableXPath:   layout.TableXPath,
		welcomeXPath: layout.WelcomeXPath,
		labels:       make(map[string]snapshotField),
	}
	p.addLabels(fieldSubscriptionDate, layout.Labels.SubscriptionDate)
	p.addLabels(fieldPlan, layout.Labels.Plan)
	p.addLabels(fieldStatus, layout.Labels.Status)
	p.addLabels(fieldAvailableBalance, layout.Labels.AvailableBalance)
	p.addLabels(fieldExpiryDate, layout.Labels.ExpiryDate)

	return p, nil
}

func (p *SnapshotParser) addLabels(field snapshotField, labels []string) {
	for _, label := range labels {
		if key := textnorm.Label(label); key != "" {
			p.labels[key] = field
		}
	}
}

// Parse reads an authenticated page.
// ok is false when no known label row was found, in which case the page is
// not an account page (or the layout changed).
func (p *SnapshotParser) Parse(r io.Reader) (snap model.AccountSnapshot, ok bool) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return model.AccountSnapshot{}, false
	}
	return p.parseDocument(doc)
}

// ParseBytes is Parse over a byte slice.
func (p *SnapshotParser) ParseBytes(page []byte) (model.AccountSnapshot, bool) {
	return p.Parse(bytes.NewReader(page))
}

func (p *SnapshotParser) parseDocument(doc *html.Node) (model.AccountSnapshot, bool) {
	var snap model.AccountSnapshot

	tables, err := htmlquery.QueryAll(doc, p.tableXPath)
	if err != nil {
		return snap, false
	}

	for _, table := range tables {
		for _, row := range htmlquery.Find(table, ".//tr") {
			cells := htmlquery.Find(row, "./*[self::td or self::th]")
			if len(cells) != 2 {
				continue
			}
			field, known := p.labels[textnorm.Label(htmlquery.InnerText(cells[0]))]
			if !known {
				continue
			}
			setField(&snap, field, strings.TrimSpace(htmlquery.InnerText(cells[1])))
		}
	}

	if snap.IsEmpty() {
		return model.AccountSnapshot{}, false
	}

	if welcome, err := htmlquery.QueryAll(doc, p.welcomeXPath); err == nil && len(welcome) > 0 {
		snap.DisplayedName = strings.TrimSpace(htmlquery.InnerText(welcome[0]))
	}

	return snap, true
}

// setField fills a snapshot field once; the first matching row wins.
func setField(snap *model.AccountSnapshot, field snapshotField, value string) {
	var target *string
	switch field {
	case fieldSubscriptionDate:
		target = &snap.SubscriptionDate
	case fieldPlan:
		target = &snap.PlanText
	case fieldStatus:
		target = &snap.StatusText
	case fieldAvailableBalance:
		target = &snap.AvailableBalanceText
	case fieldExpiryDate:
		target = &snap.ExpiryDateText
	default:
		return
	}
	if *target == "" {
		*target = value
	}
}
