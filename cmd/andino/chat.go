package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/router"
)

var (
	promptStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	answerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	metaStyle = lipgloss.NewStyle().
		Faint(true).
		Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	errStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCore(cfg)
		if err != nil {
			return err
		}

		repl := &repl{
			core:      c,
			reader:    bufio.NewReader(os.Stdin),
			sessionID: fmt.Sprintf("cli-%d", time.Now().Unix()),
		}
		return repl.run(cmd)
	},
}

type repl struct {
	core      *core
	reader    *bufio.Reader
	sessionID string
}

func (r *repl) run(cmd *cobra.Command) error {
	fmt.Println(promptStyle.Render("Asistente de indicadores económicos"))
	fmt.Println(metaStyle.Render("Sesión: " + r.sessionID))
	fmt.Println(metaStyle.Render("Comandos: salir | limpiar | limpiar cache | stats | ver cache | nueva sesion <id>"))

	for {
		fmt.Print(promptStyle.Render("> "))
		text, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if r.handleCommand(cmd, text) {
			continue
		}
		if strings.EqualFold(text, "salir") {
			return nil
		}

		turn := r.core.router.Process(cmd.Context(), text, r.sessionID)
		r.render(turn.Result.AnswerText(), turn.Decision.Strategy, turn.FromCache, turn.Elapsed, turn.Result.HasWarning(), turn.Result.IsError())
	}
}

// handleCommand intercepts REPL commands; it returns false for regular
// questions.
func (r *repl) handleCommand(cmd *cobra.Command, text string) bool {
	lower := strings.ToLower(text)
	switch {
	case lower == "limpiar":
		r.core.router.ClearSession(cmd.Context(), r.sessionID)
		fmt.Println(metaStyle.Render("memoria de la sesión limpiada"))
	case lower == "limpiar cache":
		count := r.core.store.DeleteNamespace(cmd.Context(), cache.NamespaceUpstream)
		fmt.Println(metaStyle.Render(fmt.Sprintf("se eliminaron %d entradas del caché", count)))
	case lower == "stats":
		stats := r.core.store.Stats(cmd.Context())
		fmt.Println(metaStyle.Render(fmt.Sprintf("caché conectado=%v claves=%d memoria=%s",
			stats.Connected, stats.TotalKeys, stats.UsedMemory)))
	case lower == "ver cache":
		for _, entry := range r.core.store.Entries(cmd.Context(), cache.NamespaceUpstream, 20) {
			fmt.Println(metaStyle.Render(fmt.Sprintf("%s  ttl=%s  %s", entry.Key, entry.TTL, entry.Preview)))
		}
	case strings.HasPrefix(lower, "nueva sesion"):
		id := strings.TrimSpace(text[len("nueva sesion"):])
		if id == "" {
			id = fmt.Sprintf("cli-%d", time.Now().Unix())
		}
		r.sessionID = id
		fmt.Println(metaStyle.Render("Sesión: " + r.sessionID))
	default:
		return false
	}
	return true
}

func (r *repl) render(answer string, strategy router.Strategy, fromCache bool, elapsed time.Duration, warned, failed bool) {
	switch {
	case failed:
		fmt.Println(errStyle.Render(answer))
	case warned:
		fmt.Println(warnStyle.Render(answer))
	default:
		fmt.Println(answerStyle.Render(answer))
	}

	source := "api"
	if fromCache {
		source = "caché"
	}
	fmt.Println(metaStyle.Render(fmt.Sprintf("[%s · %s · %s]", strategy, source, elapsed.Round(time.Millisecond))))
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
