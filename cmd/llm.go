package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/llm"
	"github.com/abhisek/trackwise/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failed, _ := cmd.Flags().GetBool("failed")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Backend.LLMEventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Newest: true})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM requests recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-12s  %-26s  %6s  %6s  %7s  %s\n",
			"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Fprintln(out, rule(96))
		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			if failed && e.Success {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-12s  %-26s  %6d  %6d  %7d  %s\n",
				e.ID, e.Timestamp.Local().Format(time.DateTime), truncate(e.Purpose, 12),
				truncate(e.Model, 26), e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.Backend.LLMEventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("LLM request %d not found", id)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %d\n", e.ID)
		fmt.Fprintf(out, "Time:      %s\n", e.Timestamp.Local().Format(time.DateTime))
		fmt.Fprintf(out, "Provider:  %s\n", e.Provider)
		fmt.Fprintf(out, "Model:     %s\n", e.Model)
		fmt.Fprintf(out, "Purpose:   %s\n", e.Purpose)
		fmt.Fprintf(out, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		if c := llm.LookupCost(e.Model); c != nil {
			fmt.Fprintf(out, "Cost:      %s\n", formatCost(c.Cost(e.InputTokens, e.OutputTokens)))
		}
		fmt.Fprintf(out, "Latency:   %dms\n", e.LatencyMs)
		fmt.Fprintf(out, "Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", e.ErrorMessage)
		}
		section(out, "REQUEST", e.RequestBody)
		section(out, "RESPONSE", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		repo := a.Backend.LLMEventRepo()
		byPurpose, err := repo.UsageBy(cmd.Context(), "purpose")
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		fmt.Fprintln(out, "Usage by Purpose")
		fmt.Fprintln(out, rule(72))
		fmt.Fprintf(out, "%-16s  %6s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Failed", "Input", "Output", "Avg Ms")
		fmt.Fprintln(out, rule(72))
		var calls, in, outTok int
		for _, u := range byPurpose {
			fmt.Fprintf(out, "%-16s  %6d  %6d  %10d  %10d  %8d\n",
				truncate(u.Key, 16), u.Calls, u.Failures, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			calls += u.Calls
			in += u.InputTokens
			outTok += u.OutputTokens
		}
		fmt.Fprintln(out, rule(72))
		fmt.Fprintf(out, "%-16s  %6d  %6s  %10d  %10d\n", "TOTAL", calls, "", in, outTok)

		byModel, err := repo.UsageBy(cmd.Context(), "model")
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Estimated Cost (USD)")
		fmt.Fprintln(out, rule(72))
		var total float64
		var unpriced []string
		for _, u := range byModel {
			c := llm.LookupCost(u.Key)
			cost := "?"
			if c == nil {
				unpriced = append(unpriced, u.Key)
			} else {
				total += c.Cost(u.InputTokens, u.OutputTokens)
				cost = formatCost(c.Cost(u.InputTokens, u.OutputTokens))
			}
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %9s\n",
				truncate(u.Key, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
		}
		fmt.Fprintln(out, rule(72))
		label := "TOTAL"
		if len(unpriced) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %9s\n", label, "", "", "", formatCost(total))
		if len(unpriced) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
		}
		return nil
	},
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show this purpose (e.g. study-plan)")
	llmListCmd.Flags().Bool("failed", false, "Only show failed requests")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}

func section(w io.Writer, title, body string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule(60))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule(60))
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintln(w, body)
}

func rule(n int) string { return strings.Repeat("─", n) }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
