// Command dispatch triggers outbound sales calls from the command line,
// one number at a time or from a batch file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nuvu/outdial/internal/dial"
	"github.com/nuvu/outdial/internal/env"
)

func main() {
	godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var (
		leadID    string
		batchFile string
		execute   bool
	)

	root := &cobra.Command{
		Use:   "dispatch [phone-number]",
		Short: "Dispatch outbound sales calls through the voice platform",
		Long: `Dispatch validates US phone numbers and asks the voice platform to
create a call room and send the sales agent into it. Without --execute the
planned dispatch is printed and nothing is called.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromEnv()
			if err != nil {
				return err
			}

			if batchFile != "" {
				return dispatchBatch(cmd.Context(), client, batchFile, execute)
			}
			if len(args) == 0 {
				return fmt.Errorf("provide a phone number or --batch file")
			}
			return dispatchOne(cmd.Context(), client, args[0], leadID, execute)
		},
	}

	root.Flags().StringVar(&leadID, "lead-id", "", "lead identifier attached to the call")
	root.Flags().StringVar(&batchFile, "batch", "", "file with one 'phone[,lead-id]' entry per line")
	root.Flags().BoolVar(&execute, "execute", false, "actually dispatch instead of printing the plan")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func clientFromEnv() (*dial.Client, error) {
	url := env.Str("LIVEKIT_URL", "")
	apiKey := env.Str("LIVEKIT_API_KEY", "")
	apiSecret := env.Str("LIVEKIT_API_SECRET", "")
	if url == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set")
	}
	return dial.NewClient(
		url, apiKey, apiSecret,
		env.Str("AGENT_NAME", "outbound_call_agent"),
		env.Str("SIP_TRUNK_ID", ""),
		nil,
	), nil
}

func dispatchOne(ctx context.Context, client *dial.Client, phone, leadID string, execute bool) error {
	validated, ok := dial.ValidatePhoneNumber(phone)
	if !ok {
		return fmt.Errorf("invalid phone number: %s", phone)
	}

	if !execute {
		fmt.Printf("would dispatch call to %s (lead %q); add --execute to place it\n", validated, leadID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	d, err := client.Dispatch(ctx, dial.Lead{ID: leadID, PhoneNumber: validated})
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", validated, err)
	}
	fmt.Printf("call dispatched to %s (room %s, lead %s)\n", d.Phone, d.RoomName, d.LeadID)
	return nil
}

// dispatchBatch reads 'phone[,lead-id]' lines, skipping blanks and comments.
// One bad number does not stop the rest of the batch.
func dispatchBatch(ctx context.Context, client *dial.Client, path string, execute bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var failed int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phone, leadID := line, ""
		if i := strings.IndexByte(line, ','); i >= 0 {
			phone, leadID = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
		}
		if err := dispatchOne(ctx, client, phone, leadID, execute); err != nil {
			slog.Error("batch entry failed", "phone", phone, "error", err)
			failed++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d batch entries failed", failed)
	}
	return nil
}
