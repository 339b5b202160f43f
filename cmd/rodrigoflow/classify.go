package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
)

func classifyCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify one objection without saving it",
		Long:  "Classify one objection description and print the coaching response. Reads stdin when no text is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}

			completer, err := newCompleter(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLMTimeout)
			defer cancel()

			res, err := classifier.New(completer, slog.Default()).Classify(ctx, text)
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderClassification(res.Classification))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the model response verbatim")
	return cmd
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(2).Width(88)
)

func renderClassification(c classifier.Classification) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RODRIGO.FLOW™ ANALISA") + "\n\n")
	fields := []struct{ label, value string }{
		{"Perfil Detectado", c.Archetype},
		{"Sua Reação", c.ReactionAnalysis},
		{"A Estratégia Que Funciona", c.StrategyScript},
		{"Aja Como Um Guerreiro", c.CoachingTip},
	}
	for _, f := range fields {
		b.WriteString(labelStyle.Render(f.label) + "\n")
		b.WriteString(bodyStyle.Render(f.value) + "\n\n")
	}
	if !c.ArchetypeKnown {
		b.WriteString(warningStyle.Render("Perfil fora do catálogo: "+c.Archetype) + "\n")
	}
	if c.Partial() {
		b.WriteString(warningStyle.Render("Campos não encontrados na resposta: "+strings.Join(c.MissingNames(), ", ")) + "\n")
	}
	return b.String()
}
