package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/llm"
	"github.com/apresai/podcraft/internal/script"
	"github.com/apresai/podcraft/internal/tts"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	defaultStyle = lipgloss.NewStyle().Bold(true)
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List script and speech providers and whether they are configured",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		printProviders(out, "Script models", llm.Kinds(), cfg.LLM)
		printProviders(out, "Speech", tts.Kinds(), cfg.TTS)
		fmt.Fprintf(out, "\n%s\n  %s\n\n", sectionStyle.Render("Languages"), strings.Join(script.LanguageNames(), ", "))
		return nil
	},
}

var voicesCmd = &cobra.Command{
	Use:   "voices [provider]",
	Short: "List available voices for the speech providers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := tts.Kinds()
		if len(args) == 1 {
			kinds = args
		}
		out := cmd.OutOrStdout()
		for _, kind := range kinds {
			voices, err := tts.AvailableVoices(kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n  %s\n", sectionStyle.Render(strings.ToUpper(kind)))
			fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 50))
			if len(voices) == 0 {
				fmt.Fprintln(out, missingStyle.Render("  no voice catalog"))
				continue
			}
			fmt.Fprintf(out, "  %-36s %-12s %-8s %s\n", "ID", "NAME", "GENDER", "DESCRIPTION")
			for _, v := range voices {
				def := ""
				if v.DefaultFor != "" {
					def = fmt.Sprintf(" (default %s)", v.DefaultFor)
				}
				fmt.Fprintf(out, "  %-36s %-12s %-8s %s%s\n", v.ID, v.Name, v.Gender, v.Description, def)
			}
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(voicesCmd)
}

func printProviders(out io.Writer, title string, kinds []string, pc config.ProvidersConfig) {
	fmt.Fprintf(out, "\n%s\n", sectionStyle.Render(title))
	for _, kind := range kinds {
		name := fmt.Sprintf("%-12s", kind)
		if kind == pc.Default {
			name = defaultStyle.Render(name)
		}
		status := missingStyle.Render("not configured")
		if configured(pc.Platform(kind)) {
			status = readyStyle.Render("ready")
		}
		marker := " "
		if kind == pc.Default {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %s %s\n", marker, name, status)
	}
}

// configured reports whether any credential is set. Providers on ambient
// cloud credentials (nova, polly, google) show as not configured.
func configured(p config.Platform) bool {
	return p.APIKey != "" || p.SecretKey != "" || p.AppID != ""
}
