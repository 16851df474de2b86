package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"roomsheet/internal/config"
	"roomsheet/internal/google"
	"roomsheet/internal/models"
)

// Monthly tabs are created by hand, and a forgotten one takes the whole
// month offline. This tool creates the coming month's tab with the grid
// the interpreters expect: title in A1, room for recurring entries, the
// label row, one row per day.

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		yearFlag   = flag.Int("year", 0, "year to scaffold (default: next month)")
		monthFlag  = flag.Int("month", 0, "month to scaffold, 1-12 (default: next month)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	year, month, err := targetMonth(*yearFlag, *monthFlag, cfg.Sheet.Location())
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s %d", strings.ToUpper(month.String()), year)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := google.NewClient(ctx, cfg.Google)
	if err != nil {
		return fmt.Errorf("google client: %w", err)
	}

	tabs, err := client.TabList(ctx)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}
	for _, tab := range tabs {
		if strings.EqualFold(strings.TrimSpace(tab.Title), title) {
			fmt.Printf("tab %q already exists (gid=%d), nothing to do\n", tab.Title, tab.GID)
			return nil
		}
	}

	gid, err := client.AddTab(ctx, title)
	if err != nil {
		return fmt.Errorf("add tab: %w", err)
	}

	grid := monthGrid(title, year, month, cfg.Rooms)
	rangeA1 := fmt.Sprintf("'%s'!A1:I%d", title, len(grid))
	if err = client.UpdateValues(ctx, rangeA1, grid); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}

	fmt.Printf("done: tab %q gid=%d rows=%d\n", title, gid, len(grid))
	return nil
}

// targetMonth defaults to the month after the current one; scaffolding is
// something you run ahead of time.
func targetMonth(year, month int, loc *time.Location) (int, time.Month, error) {
	if year == 0 && month == 0 {
		next := time.Date(time.Now().In(loc).Year(), time.Now().In(loc).Month()+1, 1, 0, 0, 0, 0, loc)
		return next.Year(), next.Month(), nil
	}
	if year <= 0 || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("need both -year and -month, month in 1..12")
	}
	return year, time.Month(month), nil
}

func monthGrid(title string, year int, month time.Month, rooms []models.Room) [][]interface{} {
	grid := [][]interface{}{
		{title},
		// Two blank rows where humans put the recurring schedules.
		{"", "", "", "", "", "", "", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{
			"DATE", "DAY", "BOOKING STAFF",
			roomBanner(rooms, 0), roomBanner(rooms, 1),
			"START", "END", "START", "END",
		},
	}

	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for day := 1; day <= lastDay; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		grid = append(grid, []interface{}{day, date.Weekday().String(), "", "", "", "", "", "", ""})
	}
	return grid
}

func roomBanner(rooms []models.Room, idx int) string {
	if idx >= len(rooms) {
		return "MEETING ROOM"
	}
	return "MEETING ROOM " + strings.ToUpper(rooms[idx].Name)
}
