package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hopper/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	dimCellStyle = cellStyle.
			Foreground(lipgloss.Color("240"))
)

// TableCodec renders a snapshot as a terminal table
type TableCodec struct{}

// NewTableCodec creates a new table codec
func NewTableCodec() *TableCodec {
	return &TableCodec{}
}

// Format returns the codec format identifier
func (c *TableCodec) Format() string {
	return "table"
}

// Export writes the records as a table with one row per host
func (c *TableCodec) Export(snap *domain.InventorySnapshot, w io.Writer) error {
	snap = normalize(snap)

	rows := make([][]string, 0, len(snap.Records))
	for _, rec := range snap.Records {
		source := rec.Attr(domain.AttrSourceName)
		if source == "" {
			source = string(rec.Source)
		}
		rows = append(rows, []string{rec.Name, rec.Address, source, strings.Join(rec.Aliases(), " ")})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers("NAME", "ADDRESS", "SOURCE", "ALIASES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3:
				return dimCellStyle
			default:
				return cellStyle
			}
		})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
