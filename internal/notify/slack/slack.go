// Package slack posts triage run summaries to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

const (
	maxGoItems  = 5
	httpTimeout = 10 * time.Second
)

// Notifier sends run summaries to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts a run summary to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, sum *triage.Summary) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(sum)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "run_id", sum.RunID)
	return nil
}

func buildMessage(sum *triage.Summary) map[string]any {
	blocks := []map[string]any{
		headerBlock(sum),
		{"type": "divider"},
		fieldsBlock(sum),
	}

	if goBlock := goItemsBlock(sum); goBlock != nil {
		blocks = append(blocks, map[string]any{"type": "divider"}, goBlock)
	}
	if failBlock := failuresBlock(sum); failBlock != nil {
		blocks = append(blocks, map[string]any{"type": "divider"}, failBlock)
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(sum))

	return map[string]any{"blocks": blocks}
}

func headerBlock(sum *triage.Summary) map[string]any {
	emoji := runEmoji(sum)
	title := "Triage Run Complete"
	if sum.Status == triage.RunFailed {
		title = "Triage Run Failed"
	}
	text := fmt.Sprintf("%s %s: %d scored, %d failed", emoji, title, sum.Scored, sum.Failed)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(sum *triage.Summary) map[string]any {
	counts := recommendationCounts(sum)
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", sum.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source:* %s", sum.Source),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*GO:* %d", counts[triage.Go]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*CONDITIONAL:* %d", counts[triage.Conditional]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*NO-GO:* %d", counts[triage.NoGo]),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", sum.Duration),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

// goItemsBlock lists the highest-scoring GO recommendations, or nil when the
// run produced none.
func goItemsBlock(sum *triage.Summary) map[string]any {
	var gos []*triage.Report
	for _, r := range sum.Reports() {
		if r.Recommendation == triage.Go {
			gos = append(gos, r)
		}
	}
	if len(gos) == 0 {
		return nil
	}

	sort.Slice(gos, func(i, j int) bool { return gos[i].Score > gos[j].Score })
	if len(gos) > maxGoItems {
		gos = gos[:maxGoItems]
	}

	var b strings.Builder
	b.WriteString("*Top opportunities*\n")
	for _, r := range gos {
		line := fmt.Sprintf("\n• [%d] %s — %s", r.Score, r.Title, r.Agency)
		if r.SourceURL != "" {
			line = fmt.Sprintf("\n• [%d] <%s|%s> — %s", r.Score, r.SourceURL, r.Title, r.Agency)
		}
		b.WriteString(line)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": b.String(),
		},
	}
}

// failuresBlock lists per-item failures, or nil when the run had none.
func failuresBlock(sum *triage.Summary) map[string]any {
	failures := sum.Failures()
	if len(failures) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("*Failures*\n")
	for _, f := range failures {
		b.WriteString(fmt.Sprintf("\n• %s (%s): %s", f.SolicitationID, f.Kind, truncate(f.Message, 160)))
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": b.String(),
		},
	}
}

func contextBlock(sum *triage.Summary) map[string]any {
	ts := sum.CompletedAt
	if ts.IsZero() {
		ts = sum.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("quorum-triage • run %s • %s", sum.RunID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func recommendationCounts(sum *triage.Summary) map[triage.Recommendation]int {
	counts := make(map[triage.Recommendation]int)
	for _, r := range sum.Reports() {
		counts[r.Recommendation]++
	}
	return counts
}

func runEmoji(sum *triage.Summary) string {
	switch {
	case sum.Status == triage.RunFailed:
		return "\U0001f534" // red circle
	case sum.Failed > 0:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
