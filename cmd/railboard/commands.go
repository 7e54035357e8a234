// ABOUTME: Subcommand implementations for the railboard CLI
// ABOUTME: Thin translation from flags and prompts to client calls

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/railboard/internal/api"
	"github.com/2389/railboard/internal/client"
	"github.com/2389/railboard/internal/realtime"
)

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

// credentials resolves email and password from flags, prompting for
// whatever was not given.
func credentials(args []string, name string) (email, password string, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}

	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		email = prompt(reader, "Email", "")
	}
	if password == "" {
		password = prompt(reader, "Password", "")
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}

func requireSession(c *client.Client) error {
	if !c.HasSession() {
		return fmt.Errorf("not logged in (run: railboard login)")
	}
	return nil
}

func cmdLogin(ctx context.Context, c *client.Client, args []string) error {
	email, password, err := credentials(args, "login")
	if err != nil {
		return err
	}

	if err := c.Login(ctx, email, password); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Logged in as %s\n", c.State().Session.User.Email)
	return nil
}

func cmdRegister(ctx context.Context, c *client.Client, args []string) error {
	email, password, err := credentials(args, "register")
	if err != nil {
		return err
	}

	if err := c.Register(ctx, email, password); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Registered and logged in as %s\n", c.State().Session.User.Email)
	return nil
}

func cmdLogout(ctx context.Context, c *client.Client) error {
	if !c.HasSession() {
		fmt.Println("Not logged in.")
		return nil
	}

	c.Logout(ctx)
	fmt.Println("Logged out.")
	return nil
}

func cmdStatus(c *client.Client) error {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	st := c.State()
	if st.Session == nil {
		fmt.Println("Status: logged out")
		return nil
	}

	cyan.Println("Session")
	cyan.Println("-------")
	fmt.Printf("Email:  %s\n", st.Session.User.Email)
	fmt.Printf("Role:   %s\n", st.Session.User.Role)
	fmt.Printf("User:   %s\n", st.Session.User.ID)
	if !st.Session.AccessExpiry.IsZero() {
		remaining := time.Until(st.Session.AccessExpiry).Round(time.Second)
		if remaining > 0 {
			gray.Printf("Token:  expires in %s\n", remaining)
		} else {
			gray.Println("Token:  expired (refreshes on next request)")
		}
	}
	return nil
}

func cmdSchedules(ctx context.Context, c *client.Client, args []string) error {
	if err := requireSession(c); err != nil {
		return err
	}

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return schedulesList(ctx, c, args)
	case "get":
		if len(args) < 1 {
			return fmt.Errorf("usage: railboard schedules get <id>")
		}
		s, err := c.Schedules.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printScheduleDetail(s)
		return nil
	case "create":
		return schedulesCreate(ctx, c, args)
	case "update":
		return schedulesUpdate(ctx, c, args)
	case "delete":
		if len(args) < 1 {
			return fmt.Errorf("usage: railboard schedules delete <id>")
		}
		s, err := c.Schedules.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ Deleted schedule %s (%s)\n", s.ID, s.RouteName)
		return nil
	default:
		return fmt.Errorf("unknown schedules subcommand: %s", sub)
	}
}

func schedulesList(ctx context.Context, c *client.Client, args []string) error {
	var filter api.ScheduleFilter
	fs := flag.NewFlagSet("schedules list", flag.ContinueOnError)
	fs.StringVar(&filter.DateFrom, "from", "", "departure date lower bound")
	fs.StringVar(&filter.DateTo, "to", "", "departure date upper bound")
	fs.StringVar(&filter.RouteName, "route", "", "route name filter")
	fs.StringVar(&filter.TrainTypeID, "train-type", "", "train type id filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	schedules, err := c.Schedules.List(ctx, filter)
	if err != nil {
		return err
	}

	if len(schedules) == 0 {
		fmt.Println("No schedules.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROUTE\tTRAIN\tDEPARTURE\tARRIVAL")
	for _, s := range schedules {
		train := s.TrainID
		if s.Train != nil {
			train = s.Train.TrainTitle
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.RouteName, train, s.DepartureDate, s.FinishedDate)
	}
	return w.Flush()
}

func schedulesCreate(ctx context.Context, c *client.Client, args []string) error {
	var input api.CreateScheduleInput
	var stops string
	fs := flag.NewFlagSet("schedules create", flag.ContinueOnError)
	fs.StringVar(&input.TrainID, "train", "", "train id (required)")
	fs.StringVar(&input.RouteName, "route", "", "route name (required)")
	fs.StringVar(&input.DepartureDate, "departure", "", "departure date (required)")
	fs.StringVar(&input.FinishedDate, "arrival", "", "arrival date (required)")
	fs.StringVar(&stops, "stops", "", "comma-separated stop names")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if input.TrainID == "" || input.RouteName == "" || input.DepartureDate == "" || input.FinishedDate == "" {
		return fmt.Errorf("--train, --route, --departure, and --arrival are required")
	}
	input.Stops = splitStops(stops)

	s, err := c.Schedules.Create(ctx, input)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("  ✓ Created schedule %s\n", s.ID)
	return nil
}

func schedulesUpdate(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: railboard schedules update <id> [flags]")
	}
	id := args[0]

	var input api.UpdateScheduleInput
	var stops string
	fs := flag.NewFlagSet("schedules update", flag.ContinueOnError)
	fs.StringVar(&input.TrainID, "train", "", "train id")
	fs.StringVar(&input.RouteName, "route", "", "route name")
	fs.StringVar(&input.DepartureDate, "departure", "", "departure date")
	fs.StringVar(&input.FinishedDate, "arrival", "", "arrival date")
	fs.StringVar(&stops, "stops", "", "comma-separated stop names")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	input.Stops = splitStops(stops)

	s, err := c.Schedules.Update(ctx, id, input)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("  ✓ Updated schedule %s\n", s.ID)
	return nil
}

func splitStops(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	stops := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			stops = append(stops, p)
		}
	}
	return stops
}

func printScheduleDetail(s api.Schedule) {
	cyan := color.New(color.FgCyan)

	cyan.Println(s.RouteName)
	cyan.Println(strings.Repeat("-", len(s.RouteName)))
	fmt.Printf("ID:        %s\n", s.ID)
	if s.Train != nil {
		title := s.Train.TrainTitle
		if s.Train.TrainType != nil {
			title += " (" + s.Train.TrainType.Name + ")"
		}
		fmt.Printf("Train:     %s\n", title)
	} else {
		fmt.Printf("Train:     %s\n", s.TrainID)
	}
	fmt.Printf("Departs:   %s\n", s.DepartureDate)
	fmt.Printf("Arrives:   %s\n", s.FinishedDate)
	if len(s.Stops) > 0 {
		fmt.Printf("Stops:     %s\n", strings.Join(s.Stops, " → "))
	}
}

func cmdTrains(ctx context.Context, c *client.Client) error {
	if err := requireSession(c); err != nil {
		return err
	}

	types, err := c.Trains.ListTypes(ctx)
	if err != nil {
		return err
	}

	if len(types) == 0 {
		fmt.Println("No train types.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%s\n", t.ID, t.Name)
	}
	return w.Flush()
}

func cmdFavorites(ctx context.Context, c *client.Client, args []string) error {
	if err := requireSession(c); err != nil {
		return err
	}

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		favorites, err := c.Favorites.List(ctx)
		if err != nil {
			return err
		}
		if len(favorites) == 0 {
			fmt.Println("No favorites.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCHEDULE\tROUTE\tDEPARTURE")
		for _, f := range favorites {
			route, departure := "", ""
			if f.Schedule != nil {
				route = f.Schedule.RouteName
				departure = f.Schedule.DepartureDate
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", f.ScheduleID, route, departure)
		}
		return w.Flush()
	case "add":
		if len(args) < 1 {
			return fmt.Errorf("usage: railboard favorites add <schedule-id>")
		}
		if _, err := c.Favorites.Add(ctx, args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ Favorited %s\n", args[0])
		return nil
	case "remove":
		if len(args) < 1 {
			return fmt.Errorf("usage: railboard favorites remove <schedule-id>")
		}
		if _, err := c.Favorites.Remove(ctx, args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ Unfavorited %s\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown favorites subcommand: %s", sub)
	}
}

func cmdWatch(ctx context.Context, c *client.Client) error {
	if err := requireSession(c); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	c.OnRealtimeEvent(func(event, id string) {
		ts := time.Now().Format("15:04:05")
		gray.Printf("%s ", ts)
		switch event {
		case realtime.EventScheduleCreated:
			green.Print("created ")
		case realtime.EventScheduleUpdated:
			yellow.Print("updated ")
		case realtime.EventScheduleDeleted:
			red.Print("deleted ")
		default:
			fmt.Printf("%s ", event)
		}
		fmt.Println(id)
	})

	fmt.Println("Watching for schedule events. Ctrl-C to stop.")
	<-ctx.Done()
	fmt.Println()
	return nil
}
