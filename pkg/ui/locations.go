package ui

import (
	"fmt"

	"butterfliy/pkg/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Locations renders locations as a table on the result writer
func (p *Printer) Locations(locations []models.Location) {
	if len(locations) == 0 {
		p.Warning("no locations found")
		return
	}

	rows := make([][]string, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, []string{
			loc.ID,
			loc.Country,
			loc.State,
			loc.Area,
			loc.Status,
			formatImages(loc.Images),
		})
	}

	header := p.label
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.faint).
		Headers("ID", "COUNTRY", "STATE", "AREA", "STATUS", "IMAGES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	p.println(p.out, t.String())
}

func formatImages(images []string) string {
	switch len(images) {
	case 0:
		return "-"
	case 1:
		return "1 image"
	default:
		return fmt.Sprintf("%d images", len(images))
	}
}
