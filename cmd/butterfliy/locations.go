package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"butterfliy/internal/fetcher"
	"butterfliy/pkg/models"

	"github.com/spf13/cobra"
)

func newLocationsCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"loc"},
		Short:   "Browse locations",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	render := func(locations []models.Location) error {
		if !asJSON {
			g.printer.Locations(locations)
			return nil
		}
		out, err := json.MarshalIndent(locations, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode locations: %w", err)
		}
		g.printer.Raw(string(out) + "\n")
		return nil
	}

	var filter models.LocationFilter
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List locations, optionally filtered by country and state",
		Example: `  butterfliy locations list
  butterfliy locations list --country Kenya --state Nairobi`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			locations, err := s.client.Locations().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(locations)
		},
	}
	listCmd.Flags().StringVar(&filter.Country, "country", "", "only locations in this country")
	listCmd.Flags().StringVar(&filter.State, "state", "", "only locations in this state")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			locations, err := s.client.Locations().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(locations)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>...",
		Short: "Fetch one or more locations concurrently",
		Long: `Fetch locations by id. Several ids are fetched concurrently; each lookup
retries on its own, so one failing id does not hold up the others.`,
		Example: `  butterfliy locations get loc-1
  butterfliy locations get loc-1 loc-2 loc-3 --concurrency 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			progress := g.printer.NewProgress(len(args))
			results := fetcher.FetchEach(cmd.Context(), s.client.Locations(), args, s.cfg.API.Concurrency, s.log,
				func(r fetcher.Result) { progress.Add(r.Err == nil) })
			progress.Finish()

			var found []models.Location
			var firstErr error
			for _, r := range results {
				if r.Err != nil {
					if firstErr == nil {
						firstErr = r.Err
					}
					g.printer.Error(r.Job.ID, errors.New(describe(r.Err)))
					continue
				}
				found = append(found, *r.Location)
			}

			if err := render(found); err != nil {
				return err
			}
			if len(found) == 0 {
				return firstErr
			}
			return nil
		},
	}
	getCmd.Flags().Int("concurrency", 0, "number of concurrent lookups (default from config)")

	cmd.AddCommand(listCmd, searchCmd, getCmd)
	return cmd
}
