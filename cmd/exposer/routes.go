package main

import (
	"fmt"
	"io"

	"github.com/aretw0/exposer"
	"github.com/aretw0/exposer/internal/demo"
	httpAdapter "github.com/aretw0/exposer/pkg/adapters/http"
	"github.com/aretw0/exposer/pkg/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the endpoints synthesized for the demo model",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := exposer.New(demo.Registry())
		defer eng.Close()
		if err := eng.Register("device", demo.NewDevice()); err != nil {
			return err
		}
		printRoutes(cmd.OutOrStdout(), httpAdapter.RouteTable(eng.Routes()))
		return nil
	},
}

func printRoutes(w io.Writer, table []domain.RouteInfo) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	methods := map[string]*color.Color{
		"GET":  color.New(color.FgGreen),
		"POST": color.New(color.FgYellow),
		"PUT":  color.New(color.FgMagenta),
	}

	bold.Fprintf(w, "%-6s %-32s %-7s %s\n", "METHOD", "PATH", "KIND", "TYPE")
	for _, r := range table {
		c, ok := methods[r.Method]
		if !ok {
			c = color.New(color.Reset)
		}
		c.Fprintf(w, "%-6s", r.Method)
		fmt.Fprintf(w, " %-32s ", r.Path)
		gray.Fprintf(w, "%-7s", r.Kind)
		fmt.Fprintf(w, " %s\n", r.Type)
	}
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
