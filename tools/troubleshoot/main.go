// Command troubleshoot prints how the availability service classifies every window of a day.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/libs/grpcx"
)

func main() {
	var (
		addr    = flag.String("addr", getenv("AVAILABILITY_GRPC_ADDR", "localhost:9090"), "availability service gRPC address")
		eventID = flag.String("event", getenv("EVENT_ID", ""), "event id")
		date    = flag.String("date", time.Now().UTC().Format("2006-01-02"), "calendar date (YYYY-MM-DD) in the event timezone")
		start   = flag.String("start", "", "explain a single window starting at this RFC3339 instant instead of a whole day")
		asJSON  = flag.Bool("json", false, "print the raw response as JSON")
		timeout = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	if strings.TrimSpace(*eventID) == "" {
		fatal("-event is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpcx.Dial(ctx, *addr, grpcx.DialOptions{Timeout: *timeout})
	if err != nil {
		fatal(fmt.Sprintf("dial %s: %v", *addr, err))
	}
	defer conn.Close()
	client := availabilityv1.NewClient(conn)

	var out any
	if *start != "" {
		slot, err := client.Explain(ctx, availabilityv1.ExplainRequest{EventID: *eventID, StartTime: *start})
		if err != nil {
			fatal(err.Error())
		}
		out = slot
		if !*asJSON {
			renderSlot(os.Stdout, slot)
			return
		}
	} else {
		eval, err := client.Evaluate(ctx, availabilityv1.EvaluateRequest{EventID: *eventID, Date: *date})
		if err != nil {
			fatal(err.Error())
		}
		out = eval
		if !*asJSON {
			render(os.Stdout, eval)
			return
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(err.Error())
	}
}

func render(w io.Writer, e availabilityv1.Evaluation) {
	fmt.Fprintf(w, "event %s on %s (%s)\n", e.EventID, e.Date, e.Timezone)
	if e.Kind == availabilityv1.KindDay {
		fmt.Fprintf(w, "%s: %s\n", e.Code, e.Reason)
		renderUnavailable(w, e.UnavailableHosts)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tCODE\tREASON")
	for _, s := range e.Slots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.StartTime, s.EndTime, s.Code, s.Reason)
	}
	_ = tw.Flush()

	if e.Summary != nil {
		fmt.Fprintf(w, "\n%d windows: %d available, %d blocked", e.Summary.Total, e.Summary.Available, e.Summary.Blocked)
		if e.Summary.TopBlockingReason != "" {
			fmt.Fprintf(w, " (mostly %s)", e.Summary.TopBlockingReason)
		}
		fmt.Fprintln(w)
		codes := make([]string, 0, len(e.Summary.Counts))
		for code := range e.Summary.Counts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %-14s %d\n", code, e.Summary.Counts[code])
		}
	}
	renderUnavailable(w, e.UnavailableHosts)
}

func renderSlot(w io.Writer, s availabilityv1.Slot) {
	fmt.Fprintf(w, "%s - %s\n%s: %s\n", s.StartTime, s.EndTime, s.Code, s.Reason)
	if d := s.Details; d != nil {
		if len(d.CandidateHosts) > 0 {
			fmt.Fprintf(w, "candidates: %s\n", strings.Join(d.CandidateHosts, ", "))
		}
		if len(d.ClearedHosts) > 0 {
			fmt.Fprintf(w, "cleared:    %s\n", strings.Join(d.ClearedHosts, ", "))
		}
		if d.ConflictStart != "" {
			fmt.Fprintf(w, "conflict:   %s - %s\n", d.ConflictStart, d.ConflictEnd)
		}
	}
}

func renderUnavailable(w io.Writer, hosts []string) {
	if len(hosts) > 0 {
		fmt.Fprintf(w, "hosts treated as busy (data unavailable): %s\n", strings.Join(hosts, ", "))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
