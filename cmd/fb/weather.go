package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/focusboard/focusboard/internal/board/widget"
	"github.com/focusboard/focusboard/internal/ui"
)

var weatherCmd = &cobra.Command{
	Use:     "weather",
	GroupID: "board",
	Short:   "Show the clock and the current weather",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tick := widget.FormatTick(time.Now())
		fmt.Printf("%s  %s\n", ui.RenderBold(tick.Time), tick.Date)

		wc := widget.DefaultWeatherConfig()
		wc.Latitude = cfg.Weather.Latitude
		wc.Longitude = cfg.Weather.Longitude
		wc.Logger = logger
		report, err := widget.NewWeather(wc).Fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("weather unavailable: %w", err)
		}
		fmt.Println(report.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
}
