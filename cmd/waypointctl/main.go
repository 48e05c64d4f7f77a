// waypointctl: operator client for waypointd.
//
//	waypointctl [-server URL] [-json] [watch]
//	waypointctl go X Y Z [-speed S] [-ignore-heading] [-wait]
//	waypointctl cancel [ID]
//	waypointctl status
//	waypointctl goals
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/teslashibe/go-waypoint/pkg/console"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/web"
)

// envServer overrides the default server URL.
const envServer = "WAYPOINT_SERVER"

var (
	server     = flag.String("server", "", "waypointd base URL (or WAYPOINT_SERVER, default http://localhost:8080)")
	jsonOutput = flag.Bool("json", false, "Print JSON instead of text")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	api := console.NewAPI(serverURL())
	args := flag.Args()

	if len(args) == 0 {
		return runTUI(api)
	}

	ctx := context.Background()
	switch args[0] {
	case "watch":
		return runTUI(api)
	case "go":
		return cmdGo(ctx, api, args[1:])
	case "cancel":
		id := ""
		if len(args) > 1 {
			id = args[1]
		}
		if err := api.Cancel(ctx, id); err != nil {
			return err
		}
		fmt.Println("cancel accepted")
		return nil
	case "status":
		st, err := api.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(st)
	case "goals":
		goals, err := api.Goals(ctx)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return printJSON(goals)
		}
		for _, g := range goals {
			printGoal(g)
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nUsage: waypointctl [watch|go|cancel|status|goals]", args[0])
	}
}

func serverURL() string {
	if *server != "" {
		return *server
	}
	if v := os.Getenv(envServer); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func runTUI(api *console.API) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(console.NewModel(api), tea.WithAltScreen())
	go console.NewFeed(api.FeedURL()).Run(ctx, p.Send)

	_, err := p.Run()
	return err
}

func cmdGo(ctx context.Context, api *console.API, args []string) error {
	fs := flag.NewFlagSet("go", flag.ContinueOnError)
	speed := fs.Float64("speed", 0, "Max speed for this goal in m/s (0 = server default)")
	ignoreHeading := fs.Bool("ignore-heading", false, "Keep the current heading")
	wait := fs.Bool("wait", false, "Block until the goal finishes")

	// Coordinates come first so negative values are not read as flags.
	if len(args) < 3 {
		return errors.New("usage: waypointctl go X Y Z [-speed S] [-ignore-heading] [-wait]")
	}
	var target [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", args[i], err)
		}
		target[i] = v
	}
	if err := fs.Parse(args[3:]); err != nil {
		return err
	}

	g, err := api.Submit(ctx, protocol.GoalData{Target: target, MaxSpeed: *speed, IgnoreHeading: *ignoreHeading})
	if err != nil {
		return err
	}
	if !*wait {
		if *jsonOutput {
			return printJSON(g)
		}
		printGoal(g)
		return nil
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		cur, err := api.Goal(ctx, g.ID)
		if err != nil {
			return err
		}
		if cur.FinishedAt == nil {
			continue
		}
		if *jsonOutput {
			if err := printJSON(cur); err != nil {
				return err
			}
		} else {
			printGoal(cur)
		}
		if !cur.Success {
			return fmt.Errorf("goal %s", cur.State)
		}
		return nil
	}
	return nil
}

func printStatus(st web.StatusResponse) error {
	if *jsonOutput {
		return printJSON(st)
	}
	fmt.Printf("state:     %s\n", st.State)
	if st.GoalID != "" {
		fmt.Printf("goal:      %s\n", st.GoalID)
	}
	fmt.Printf("position:  %.2f %.2f %.2f\n", st.Position[0], st.Position[1], st.Position[2])
	fmt.Printf("heading:   %.3f rad\n", st.Heading)
	fmt.Printf("distance:  %.2f m\n", st.DistanceToGoal)
	fmt.Printf("speed:     %.2f m/s\n", st.Speed)
	fmt.Printf("policy:    %s\n", st.Policy)
	fmt.Printf("ticks:     %d (send errors %d)\n", st.Ticks, st.SendErrors)
	return nil
}

func printGoal(g web.GoalStatus) {
	fmt.Printf("%s  %-9s  target=(%.2f, %.2f, %.2f)  max_speed=%.2f",
		g.ID, g.State, g.Target[0], g.Target[1], g.Target[2], g.MaxSpeed)
	if g.Error != "" {
		fmt.Printf("  error=%s", g.Error)
	}
	fmt.Println()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
