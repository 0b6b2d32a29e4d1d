package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/connprobe/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured connectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			// Resolving the catalog surfaces driver option errors before any probe runs.
			if _, err := cliCtx.Registry.Build(cliCtx.Config.ToSpecs()); err != nil {
				return err
			}
			return PrintResult(cmd, connectorList{Connectors: cliCtx.Config.Connectors})
		},
	}
}

type connectorList struct {
	Connectors []config.ConnectorConfig `json:"connectors"`
}

func (l connectorList) TableHeaders() []string {
	return []string{"NAME", "KIND", "ENDPOINT", "TLS", "TIMEOUT"}
}

func (l connectorList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Connectors))
	for _, c := range l.Connectors {
		timeout := "-"
		if c.Timeout > 0 {
			timeout = c.Timeout.String()
		}
		rows = append(rows, []string{c.Name, strings.ToLower(c.Kind), c.Endpoint, fmt.Sprint(c.TLS), timeout})
	}
	return rows
}

func (l connectorList) String() string {
	if len(l.Connectors) == 0 {
		return "no connectors configured\n"
	}
	var sb strings.Builder
	for _, c := range l.Connectors {
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", c.Name, strings.ToLower(c.Kind), c.Endpoint)
	}
	return sb.String()
}

//Personal.AI order the ending
