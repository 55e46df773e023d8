package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"stocklens/internal/models"
	"stocklens/internal/workflow"
)

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	if stdoutIsTerminal() {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	return tw
}

func renderProducts(products []models.ProductRecord) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Product", "Unit", "Category", "Confidence", "Created"})
	for _, p := range products {
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Local().Format("Jan 02 15:04")
		}
		tw.AppendRow(table.Row{p.ID, p.ProductName, p.Unit, p.Category, formatConfidence(p.Confidence), created})
	}
	tw.Render()
}

func renderPending(items []models.ExtractionResult) {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Product", "Unit", "Category", "Confidence"})
	for i, item := range items {
		tw.AppendRow(table.Row{i + 1, item.ProductName, item.Unit, item.Category, formatConfidence(item.Confidence)})
	}
	tw.Render()
}

func renderSessions(sessions []models.SessionSummary) {
	tw := newTable()
	tw.AppendHeader(table.Row{"Session", "Products", "Last Seen"})
	for _, s := range sessions {
		lastSeen := ""
		if !s.LastSeen.IsZero() {
			lastSeen = s.LastSeen.Local().Format("Jan 02, 2006 15:04")
		}
		tw.AppendRow(table.Row{s.SessionID, s.Count, lastSeen})
	}
	tw.Render()
}

func formatConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}

func showAlert(o *workflow.Orchestrator) {
	if alert, ok := o.Alerts().Current(); ok {
		fmt.Printf("[%s] %s\n", alert.Kind, alert.Message)
	}
}

// promptField asks for one field, keeping the current value on empty input.
func promptField(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, err := reader.ReadString('\n')
	if err != nil {
		return current
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

// promptEdit walks the operator through every editable field of item.
func promptEdit(reader *bufio.Reader, item models.ExtractionResult) models.ExtractionResult {
	edited := item
	edited.ProductName = promptField(reader, "product_name", item.ProductName)
	edited.Unit = promptField(reader, "unit", item.Unit)
	edited.Description = promptField(reader, "description", item.Description)

	categories := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		categories[i] = string(c)
	}
	category := promptField(reader, "category ("+strings.Join(categories, "|")+")", string(item.Category))
	edited.Category = models.Category(category)

	confidence := promptField(reader, "confidence (0-1)", strconv.FormatFloat(item.Confidence, 'f', -1, 64))
	if parsed, err := strconv.ParseFloat(confidence, 64); err == nil {
		edited.Confidence = parsed
	}
	return edited
}
