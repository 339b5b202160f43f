package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
)

const (
	barWidth = 30
	maxLabel = 40
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// renderReport formats a report for the terminal.
func renderReport(rep analytics.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Painel de Performance RODRIGO.FLOW™") + "\n")
	b.WriteString(mutedStyle.Render("Período: "+rep.Range.String()) + "\n")

	if rep.Empty {
		b.WriteString("\nNenhum dado encontrado para o período selecionado.\n")
		return b.String()
	}

	section(&b, "Perfis comportamentais detectados")
	b.WriteString(bars(rep.Archetypes))

	section(&b, "Taxa de aplicação das estratégias")
	app := rep.Application
	if app.HasApplied {
		fmt.Fprintf(&b, "%.2f%% (%d de %d interações)\n", app.Percent, app.Applied, app.Total)
	} else {
		b.WriteString("Nenhuma estratégia aplicada no período.\n")
	}
	b.WriteString(bars([]analytics.Count{
		{Label: "Sim", Count: app.Applied},
		{Label: "Não", Count: app.NotApplied},
	}))

	section(&b, "Desempenho por vendedor")
	if len(rep.Submitters) == 0 {
		b.WriteString(mutedStyle.Render("Nenhum vendedor identificado.") + "\n")
	} else {
		rows := make([][]string, 0, len(rep.Submitters))
		for _, s := range rep.Submitters {
			rows = append(rows, []string{
				s.Name,
				strconv.Itoa(s.Total),
				strconv.Itoa(s.Applied),
				strconv.Itoa(s.NotApplied),
				fmt.Sprintf("%.2f%%", s.Percent),
				s.Dominant,
			})
		}
		b.WriteString(grid([]string{"Vendedor", "Interações", "Aplicadas", "Não aplicadas", "% Aplicadas", "Perfil dominante"}, rows) + "\n")
	}

	section(&b, "Vendedores em alerta (perfis diferentes de "+archetype.Ideal+")")
	if rep.Alerts.Empty() {
		b.WriteString("Nenhum vendedor em alerta no período.\n")
	} else {
		headers := append([]string{"Vendedor"}, rep.Alerts.Archetypes...)
		headers = append(headers, "Total")
		rows := make([][]string, 0, len(rep.Alerts.Rows))
		for _, r := range rep.Alerts.Rows {
			row := []string{r.Submitter}
			for _, a := range rep.Alerts.Archetypes {
				row = append(row, strconv.Itoa(r.Counts[a]))
			}
			rows = append(rows, append(row, strconv.Itoa(r.Total)))
		}
		b.WriteString(grid(headers, rows) + "\n")
	}

	section(&b, "Objeções mais comuns")
	b.WriteString(bars(rep.TopObjections))
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(sectionStyle.Render(title) + "\n")
}

func grid(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// bars renders counts as horizontal bars scaled to the largest count.
func bars(counts []analytics.Count) string {
	labelWidth, top := 0, 0
	for _, c := range counts {
		labelWidth = max(labelWidth, lipgloss.Width(truncate(c.Label, maxLabel)))
		top = max(top, c.Count)
	}
	label := lipgloss.NewStyle().Width(labelWidth)
	var b strings.Builder
	for _, c := range counts {
		n := 0
		if top > 0 {
			n = c.Count * barWidth / top
		}
		fmt.Fprintf(&b, "%s %s %d\n",
			label.Render(truncate(c.Label, maxLabel)),
			barStyle.Render(strings.Repeat("█", n)),
			c.Count)
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
