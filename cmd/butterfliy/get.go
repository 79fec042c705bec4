package main

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newGetCmd(g *globalOptions) *cobra.Command {
	var query []string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET an API path and print the JSON response",
		Long: `Send a GET request to any API path, relative to <base-url>/api.

Transient failures are retried according to the retry settings.`,
		Example: `  butterfliy get /locations
  butterfliy get /locations --query country=Kenya`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			values := url.Values{}
			for _, kv := range query {
				key, value, _ := strings.Cut(kv, "=")
				values.Add(key, value)
			}

			raw, err := s.client.GetRaw(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}

			var pretty bytes.Buffer
			if json.Indent(&pretty, raw, "", "  ") != nil {
				g.printer.Raw(string(raw) + "\n")
				return nil
			}
			g.printer.Raw(pretty.String() + "\n")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&query, "query", nil, "query parameter as key=value (repeatable)")
	return cmd
}
