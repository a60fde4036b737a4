package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pantrypal/api/internal/model"
)

func renderItems(items []model.GroceryItem) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Name", "Quantity", "Unit", "Category"})
	for _, item := range items {
		tw.AppendRow(table.Row{
			item.ID,
			item.Name,
			strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			item.Unit,
			string(item.Category),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
