// Package warmup pre-populates the upstream cache with the questions users
// ask most, so the first real request of the day is already a hit.
package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/router"
	"github.com/lcastrov/andino/internal/upstream"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func spanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// Stats summarizes one warmup run.
type Stats struct {
	Total   int           `json:"total"`
	Warmed  int           `json:"warmed"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"-"`
}

type Warmer struct {
	upstream  upstream.Client
	store     cache.Store
	questions []string
	ttl       time.Duration
	cron      *cron.Cron
}

func New(up upstream.Client, store cache.Store, questions []string, ttl time.Duration) *Warmer {
	return &Warmer{
		upstream:  up,
		store:     store,
		questions: questions,
		ttl:       ttl,
	}
}

// DefaultQuestions builds the stock question list: rolling ranges for the
// exchange rate and the housing unit, plus the month's inflation figures.
func DefaultQuestions(now time.Time, days int) []string {
	if days <= 0 {
		days = 30
	}
	from := now.AddDate(0, 0, -days)
	lastMonth := now.AddDate(0, -1, 0)

	return []string{
		"¿Cuál es la TRM de hoy?",
		fmt.Sprintf("¿Cuál es la TRM del %s al %s?", spanishDate(from), spanishDate(now)),
		fmt.Sprintf("Valores de la UVR del %s al %s", spanishDate(from), spanishDate(now)),
		fmt.Sprintf("¿Cuál fue la inflación de %s de %d? Incluye las divisiones de gasto",
			spanishMonths[lastMonth.Month()-1], lastMonth.Year()),
		fmt.Sprintf("Valores del IPC en %s de %d", spanishMonths[lastMonth.Month()-1], lastMonth.Year()),
	}
}

type questionsFile struct {
	Questions []string `yaml:"questions"`
}

// LoadQuestions reads a YAML question list from path.
func LoadQuestions(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var parsed questionsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("questions file %s holds no questions", path)
	}
	return parsed.Questions, nil
}

// Run warms every configured question once. Already-cached questions are
// skipped, so a run right after another is nearly free. Error and warned
// results are counted as failures and never written.
func (w *Warmer) Run(ctx context.Context) Stats {
	start := time.Now()
	stats := Stats{Total: len(w.questions)}

	for _, question := range w.questions {
		if err := ctx.Err(); err != nil {
			slog.Warn("Warmup interrupted", "error", err)
			break
		}

		key := cache.DeriveKey(string(router.DefaultStrategy), question)
		if _, ok := w.store.Get(ctx, cache.NamespaceUpstream, key); ok {
			stats.Skipped++
			continue
		}

		result := w.upstream.Query(ctx, string(router.DefaultStrategy), question)
		if result.IsError() || result.HasWarning() {
			slog.Warn("Warmup question failed", "question", question)
			stats.Failed++
			continue
		}

		value, err := json.Marshal(result)
		if err != nil {
			stats.Failed++
			continue
		}
		w.store.Set(ctx, cache.NamespaceUpstream, key, value, w.ttl)
		stats.Warmed++
	}

	stats.Elapsed = time.Since(start)
	slog.Info("Warmup run finished",
		"total", stats.Total,
		"warmed", stats.Warmed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed)
	return stats
}

// Schedule runs warmup on the given cron spec until Stop is called. The
// first run happens immediately, not at the first tick.
func (w *Warmer) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { w.Run(ctx) }); err != nil {
		return fmt.Errorf("schedule warmup %q: %w", spec, err)
	}

	w.cron = c
	go w.Run(ctx)
	c.Start()
	slog.Info("Warmup scheduled", "spec", spec)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (w *Warmer) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}
