// Package pdf renders invoices and credit memos to A4 PDF documents.
//
// The layout follows the paper template customers already know: customer
// address left and brand plus invoice meta right, a rule, the document title,
// the line-item table with VAT and total rows, payment terms, and a centered
// company footer on every page.
package pdf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"faktura/internal/invoice"
	"faktura/internal/logger"
	"faktura/pkg/models"
)

const (
	pageMargin   = 20.0 // mm, left/right/top
	breakMargin  = 32.0 // mm kept free at the bottom for the footer
	footerOffset = 25.0 // mm from the page bottom to the footer rule
	lineHeight   = 4.5
	footerLine   = 3.5
	logoHeight   = 14.0
	metaWidth    = 65.0

	dateLayout = "02.01.2006"
	fileLayout = "20060102"

	fallbackBrand = "ST Digital"
)

type column struct {
	title    string
	fraction float64
	align    string
	wrap     bool
}

var columns = []column{
	{"Tasktype", 0.1667, "L", true},
	{"Task description", 0.3333, "L", true},
	{"Min. forbrugt", 0.1222, "R", false},
	{"Price", 0.1222, "R", false},
	{"Discount %", 0.1222, "R", false},
	{"Sum", 0.1334, "R", false},
}

// Renderer writes invoice PDFs into a directory.
type Renderer struct {
	dir      string
	logoPath string
	compress bool
}

// NewRenderer creates a renderer writing to dir. logoPath may point to a
// GIF, PNG or JPEG; when it is missing or unreadable the company name is
// printed instead.
func NewRenderer(dir, logoPath string) *Renderer {
	return &Renderer{dir: dir, logoPath: logoPath, compress: true}
}

// FileName is the PDF name for an invoice number issued on date.
func FileName(number int, issued time.Time) string {
	return fmt.Sprintf("faktura_%d_%s.pdf", number, issued.Format(fileLayout))
}

// Render writes inv and returns the file path. A file with the same name is
// overwritten.
func (r *Renderer) Render(inv *models.Invoice) (string, error) {
	const op = "Render"
	log := logger.WithInvoice("pdf", inv.Number)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: failed to create %s: %w", op, r.dir, err)
	}
	path := filepath.Join(r.dir, FileName(inv.Number, inv.IssueDate))

	d := newDocument(inv, r.compress)
	d.header(r.logoPath)
	d.rule()
	d.title()
	d.table()
	d.payment()

	pages := d.pdf.PageNo()
	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("%s: failed to write %s: %w", op, path, err)
	}

	log.Info().Str("file", path).Int("pages", pages).Msg("Invoice PDF written")
	return path, nil
}

type document struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	inv    *models.Invoice
	width  float64
	widths []float64
}

func newDocument(inv *models.Invoice, compress bool) *document {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetAutoPageBreak(true, breakMargin)
	p.SetCompression(compress)

	pageW, _ := p.GetPageSize()
	d := &document{
		pdf:   p,
		tr:    p.UnicodeTranslatorFromDescriptor(""),
		inv:   inv,
		width: pageW - 2*pageMargin,
	}
	for _, c := range columns {
		d.widths = append(d.widths, d.width*c.fraction)
	}

	title := invoice.Invoice.Title()
	if inv.CreditMemo {
		title = invoice.CreditMemo.Title()
	}
	p.SetTitle(fmt.Sprintf("%s %d", title, inv.Number), true)
	p.SetAuthor(inv.Company.Name, true)
	p.SetCreator("faktura", true)
	p.SetFooterFunc(d.footer)
	p.AddPage()
	return d
}

func (d *document) cell(w, h float64, text string, ln int, align string) {
	d.pdf.CellFormat(w, h, d.tr(text), "", ln, align, false, 0, "")
}

func (d *document) header(logoPath string) {
	top := d.pdf.GetY()
	leftW := d.width - metaWidth

	d.pdf.SetFont("Helvetica", "", 9)
	for _, line := range customerLines(d.inv.Customer) {
		d.cell(leftW, lineHeight, line, 2, "L")
	}
	leftBottom := d.pdf.GetY()

	x := pageMargin + leftW
	d.pdf.SetXY(x, top)
	if !d.logo(logoPath, x) {
		brand := strings.TrimSpace(d.inv.Company.Name)
		if brand == "" {
			brand = fallbackBrand
		}
		d.pdf.SetFont("Helvetica", "B", 20)
		d.cell(metaWidth, 9, brand, 2, "R")
	}

	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetX(x)
	d.cell(metaWidth, lineHeight, "Fakturadato: "+d.inv.IssueDate.Format(dateLayout), 2, "R")
	d.cell(metaWidth, lineHeight, "Fakturanr.: "+strconv.Itoa(d.inv.Number), 2, "R")

	d.pdf.SetY(math.Max(leftBottom, d.pdf.GetY()) + 2)
}

// logo draws the image right-aligned in the meta column and reports whether
// it did.
func (d *document) logo(path string, x float64) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}

	opts := gofpdf.ImageOptions{ReadDpi: true}
	info := d.pdf.RegisterImageOptions(path, opts)
	if !d.pdf.Ok() || info == nil || info.Height() == 0 {
		log := logger.WithComponent("pdf")
		log.Warn().Str("logo", path).Err(d.pdf.Error()).Msg("Logo unreadable, printing company name")
		d.pdf.ClearError()
		return false
	}

	w := logoHeight * info.Width() / info.Height()
	y := d.pdf.GetY()
	d.pdf.ImageOptions(path, x+metaWidth-w, y, w, logoHeight, false, opts, 0, "")
	d.pdf.SetXY(x, y+logoHeight+1)
	return true
}

func (d *document) rule() {
	y := d.pdf.GetY()
	d.pdf.SetLineWidth(0.2)
	d.pdf.Line(pageMargin, y, pageMargin+d.width, y)
	d.pdf.SetY(y + 6)
}

func (d *document) title() {
	title := invoice.Invoice.Title()
	if d.inv.CreditMemo {
		title = invoice.CreditMemo.Title()
	}
	d.pdf.SetFont("Helvetica", "B", 11)
	d.cell(d.width, 6, title, 1, "L")
	d.pdf.Ln(6)
}

func (d *document) breakAt() float64 {
	_, pageH := d.pdf.GetPageSize()
	return pageH - breakMargin
}

func (d *document) tableHeader() {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetFillColor(245, 245, 245)
	for i, c := range columns {
		d.pdf.CellFormat(d.widths[i], 7, d.tr(c.title), "B", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *document) table() {
	d.tableHeader()
	d.pdf.SetFont("Helvetica", "", 9)

	for _, line := range d.inv.Lines {
		cells := []string{
			line.Task.TaskType,
			line.Task.Description,
			strconv.Itoa(line.Minutes),
			invoice.FormatAmount(line.UnitPrice),
			line.Discount.String(),
			invoice.FormatAmount(line.Amount),
		}

		rows := 1
		for i, c := range columns {
			if c.wrap {
				n := len(d.pdf.SplitLines([]byte(d.tr(cells[i])), d.widths[i]-2))
				rows = max(rows, n)
			}
		}
		h := float64(rows)*lineHeight + 2

		if d.pdf.GetY()+h > d.breakAt() {
			d.pdf.AddPage()
			d.tableHeader()
			d.pdf.SetFont("Helvetica", "", 9)
		}

		y := d.pdf.GetY()
		x := pageMargin
		for i, c := range columns {
			d.pdf.SetXY(x, y+1)
			if c.wrap {
				d.pdf.MultiCell(d.widths[i], lineHeight, d.tr(cells[i]), "", c.align, false)
			} else {
				d.cell(d.widths[i], lineHeight, cells[i], 0, c.align)
			}
			x += d.widths[i]
		}
		d.pdf.SetXY(pageMargin, y+h)
	}

	d.totals()
}

func (d *document) totals() {
	if d.pdf.GetY()+14 > d.breakAt() {
		d.pdf.AddPage()
	}

	labelX := pageMargin
	for _, w := range d.widths[:4] {
		labelX += w
	}
	labelW, sumW := d.widths[4], d.widths[5]

	y := d.pdf.GetY() + 1
	d.pdf.Line(labelX, y, pageMargin+d.width, y)
	d.pdf.SetY(y + 1)

	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetX(labelX)
	d.cell(labelW, 6, "Moms (25%)", 0, "R")
	d.cell(sumW, 6, invoice.FormatAmount(d.inv.VAT), 1, "R")

	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetX(labelX)
	d.cell(labelW, 6, "Samlet pris", 0, "R")
	d.cell(sumW, 6, invoice.FormatAmount(d.inv.Total), 1, "R")
}

type span struct {
	text  string
	style string
}

func (d *document) paragraph(spans ...span) {
	for _, s := range spans {
		d.pdf.SetFont("Helvetica", s.style, 9)
		d.pdf.Write(lineHeight, d.tr(s.text))
	}
	d.pdf.Ln(lineHeight)
}

func (d *document) payment() {
	c := d.inv.Company
	d.pdf.Ln(12)

	d.paragraph(
		span{"Betalingsbetingelser:", "B"},
		span{fmt.Sprintf(" Netto %d dage - forfalden %s", d.inv.PaymentTermsDays(), d.inv.DueDate.Format(dateLayout)), ""},
	)

	bank := strings.TrimSpace(c.BankName)
	if bank == "" {
		bank = "Bank"
	}
	account := strings.TrimSpace(c.BankAccount)
	spans := []span{{"Beløbet indbetales til vor bank. ", ""}, {bank, "B"}}
	if reg := registrationNumber(account); reg != "" {
		spans = append(spans, span{" - Regnr.: ", ""}, span{reg, "B"})
	}
	if account != "" {
		spans = append(spans, span{" / Kontonr.: ", ""}, span{account, "B"})
	}
	d.paragraph(spans...)

	d.paragraph(
		span{"Fakturanr. ", ""},
		span{strconv.Itoa(d.inv.Number), "B"},
		span{" bedes anført ved bankoverførsel", ""},
	)
	d.pdf.Ln(lineHeight)
	d.paragraph(span{"Ved for sen betaling påregnes rente i henhold til gældende lovgivning.", "I"})
}

func (d *document) footer() {
	_, pageH := d.pdf.GetPageSize()
	y := pageH - footerOffset

	d.pdf.SetLineWidth(0.2)
	d.pdf.Line(pageMargin, y, pageMargin+d.width, y)

	d.pdf.SetFont("Helvetica", "", 8)
	for i, line := range FooterLines(d.inv.Company) {
		d.pdf.SetXY(pageMargin, y+1+float64(i)*footerLine)
		d.cell(d.width, footerLine, line, 0, "C")
	}
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

func labeled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + value
}

// FooterLines builds the page footer from the company details. Empty
// components are dropped and empty lines are omitted.
func FooterLines(c models.CompanyDetails) []string {
	candidates := []string{
		joinNonEmpty(c.Name, c.Address, strings.TrimSpace(c.Zip+" "+c.Town), labeled("CVR: ", c.CVR)),
		joinNonEmpty(labeled("Tlf.: ", c.Phone), labeled("Mail: ", c.Email)),
		joinNonEmpty(labeled("Bank: ", c.BankName), labeled("Konto: ", c.BankAccount), labeled("IBAN: ", c.IBAN), labeled("SWIFT: ", c.SWIFT)),
		strings.TrimSpace(c.AdditionalInfo),
	}

	var lines []string
	for _, l := range candidates {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func customerLines(c models.Customer) []string {
	var lines []string
	for _, l := range []string{c.Name, c.Address, strings.TrimSpace(c.Zip + " " + c.Town)} {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// registrationNumber extracts the Danish bank registration number from an
// account written as "regnr/kontonr".
func registrationNumber(account string) string {
	parts := strings.Split(account, "/")
	if len(parts) != 2 {
		return ""
	}
	reg := strings.TrimSpace(parts[0])
	digits := strings.ReplaceAll(reg, " ", "")
	if digits == "" {
		return ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return reg
}
