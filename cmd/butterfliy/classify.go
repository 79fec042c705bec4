package main

import (
	"fmt"

	errs "butterfliy/pkg/errors"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type classifyOptions struct {
	status  int
	body    string
	message string
}

// classification is the YAML shape printed by classify
type classification struct {
	errs.ErrorInfo `yaml:",inline"`
	Class          errs.ErrorType `yaml:"class"`
}

func newClassifyCmd(g *globalOptions) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a failed request without sending one",
		Long: `Show how a failure would be classified and whether it would be retried.

Without --status the failure is treated as a network error: no response was
received. With --status, --body is parsed as the JSON error body the API
returned.`,
		Example: `  # A dropped connection
  butterfliy classify --message "connection reset by peer"

  # A validation failure with a server-supplied message
  butterfliy classify --status 422 --body '{"message":"Title is required"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := errs.Classify(opts.failure())
			out, err := yaml.Marshal(classification{ErrorInfo: info, Class: info.Class()})
			if err != nil {
				return fmt.Errorf("failed to encode classification: %w", err)
			}
			g.printer.Raw(string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.status, "status", 0, "HTTP status code of the response (omit for a network error)")
	cmd.Flags().StringVar(&opts.body, "body", "", "JSON response body")
	cmd.Flags().StringVar(&opts.message, "message", "", "transport error message for network errors")
	return cmd
}

func (o *classifyOptions) failure() error {
	if o.status == 0 {
		return &errs.NetworkError{Message: o.message}
	}
	return &errs.HTTPError{
		StatusCode: o.status,
		Body:       errs.ParseResponseBody([]byte(o.body)),
	}
}
